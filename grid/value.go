package grid

import (
	"cmp"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const TimeLayout = "2006-01-02 15:04:05"

// Compare 返回 -1/0/1
// nil 排在最前；数值按大小比较，decimal.Decimal 按精确值比较；time.Time 按时间先后；bool 中 false 在前；
// 字符串按字典序；类型不同时按 Format 的结果比较
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if c, ok := compareDecimal(a, b); ok {
		return c
	}
	if c, ok := compareNumber(a, b); ok {
		return c
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case []byte:
		if y, ok := b.([]byte); ok {
			return strings.Compare(string(x), string(y))
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}

	return strings.Compare(Format(a), Format(b))
}

func compareNumber(a, b any) (int, bool) {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	ka, kb := numberKind(va.Kind()), numberKind(vb.Kind())
	if ka == notNumber || kb == notNumber {
		return 0, false
	}

	switch {
	case ka == signed && kb == signed:
		return cmp.Compare(va.Int(), vb.Int()), true
	case ka == unsigned && kb == unsigned:
		return cmp.Compare(va.Uint(), vb.Uint()), true
	case ka == signed && kb == unsigned:
		if va.Int() < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(va.Int()), vb.Uint()), true
	case ka == unsigned && kb == signed:
		if vb.Int() < 0 {
			return 1, true
		}
		return cmp.Compare(va.Uint(), uint64(vb.Int())), true
	}
	return cmp.Compare(toFloat(va, ka), toFloat(vb, kb)), true
}

// compareDecimal 任一方为 decimal.Decimal 时按精确值比较，另一方须为数值
func compareDecimal(a, b any) (int, bool) {
	da, aok := a.(decimal.Decimal)
	db, bok := b.(decimal.Decimal)
	if !aok && !bok {
		return 0, false
	}
	if !aok {
		if da, aok = toDecimal(a); !aok {
			return 0, false
		}
	}
	if !bok {
		if db, bok = toDecimal(b); !bok {
			return 0, false
		}
	}
	return da.Cmp(db), true
}

func toDecimal(v any) (decimal.Decimal, bool) {
	rv := reflect.ValueOf(v)
	switch numberKind(rv.Kind()) {
	case signed:
		return decimal.NewFromInt(rv.Int()), true
	case unsigned:
		d, err := decimal.NewFromString(strconv.FormatUint(rv.Uint(), 10))
		return d, err == nil
	case floating:
		return decimal.NewFromFloat(rv.Float()), true
	}
	return decimal.Decimal{}, false
}

type numKind int

const (
	notNumber numKind = iota
	signed
	unsigned
	floating
)

func numberKind(k reflect.Kind) numKind {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signed
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return unsigned
	case reflect.Float32, reflect.Float64:
		return floating
	}
	return notNumber
}

func toFloat(v reflect.Value, k numKind) float64 {
	switch k {
	case signed:
		return float64(v.Int())
	case unsigned:
		return float64(v.Uint())
	}
	return v.Float()
}

// Format 单元格的展示文本
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(TimeLayout)
	case decimal.Decimal:
		return x.String()
	}
	return fmt.Sprint(v)
}

var timeLayouts = []string{TimeLayout, time.RFC3339, "2006-01-02"}

// ParseLike 把用户输入的文本转换成与 sample 相同的类型，无法转换时保留原文本
func ParseLike(sample any, text string) any {
	s := strings.TrimSpace(text)
	switch x := sample.(type) {
	case int, int8, int16, int32, int64:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case uint, uint8, uint16, uint32, uint64:
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
	case float32, float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case decimal.Decimal:
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	case bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	case time.Time:
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, x.Location()); err == nil {
				return t
			}
		}
	}
	return text
}
