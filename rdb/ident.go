package rdb

import (
	"regexp"

	"github.com/pkg/errors"
)

// 表名和列名无法参数化，拼进 SQL 之前必须匹配该模式
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var ErrInvalidIdentifier = errors.New("invalid identifier")

func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ValidateIdentifier 返回包装了 ErrInvalidIdentifier 的错误
func ValidateIdentifier(s string) error {
	if !IsIdentifier(s) {
		return errors.Wrapf(ErrInvalidIdentifier, "%q", s)
	}
	return nil
}
