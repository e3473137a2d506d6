package rdb

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// nativeValue 把驱动返回的值转换成与列类型一致的 Go 值
// MySQL 文本协议对所有列都返回 []byte，数值列需要按列类型解析，
// 否则排序时数字会按字典序比较。DECIMAL 保持精确值，二进制列保持 []byte，NULL 保持为 nil
func nativeValue(databaseType string, v any) any {
	k := columnKind(databaseType)
	if k == kindBinary {
		return v
	}

	var text string
	switch x := v.(type) {
	case []byte:
		text = string(x)
	case string:
		text = x
	default:
		return v
	}

	switch k {
	case kindInteger:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
		if n, err := strconv.ParseUint(text, 10, 64); err == nil {
			return n
		}
	case kindFloat:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case kindDecimal:
		if d, err := decimal.NewFromString(text); err == nil {
			return d
		}
	}
	return text
}

type kind int

const (
	kindOther kind = iota
	kindInteger
	kindFloat
	kindDecimal
	kindBinary
)

// columnKind 归一化 DatabaseTypeName，兼容 "UNSIGNED BIGINT"、"int(11)" 这类写法
func columnKind(databaseType string) kind {
	t := strings.ToUpper(strings.TrimSpace(databaseType))
	t = strings.TrimPrefix(t, "UNSIGNED ")
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSpace(strings.TrimSuffix(t, " UNSIGNED"))

	switch t {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		return kindInteger
	case "FLOAT", "DOUBLE", "REAL":
		return kindFloat
	case "DECIMAL", "NUMERIC":
		return kindDecimal
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BIT":
		return kindBinary
	}
	return kindOther
}
