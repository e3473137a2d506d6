package viewer

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	// ValidationError 表名或列名不满足标识符规则，或不在允许列表中
	ValidationError Kind = iota + 1
	// ConnectionError 无法连接数据库
	ConnectionError
	// QueryError SELECT 执行失败
	QueryError
	// UpdateError UPDATE 执行失败
	UpdateError
	// ColumnNotFoundError 排序列不在当前表头中
	ColumnNotFoundError
)

func (k Kind) String() string {
	switch k {
	case ValidationError:
		return "ValidationError"
	case ConnectionError:
		return "ConnectionError"
	case QueryError:
		return "QueryError"
	case UpdateError:
		return "UpdateError"
	case ColumnNotFoundError:
		return "ColumnNotFoundError"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error 动作失败时返回的错误，Msg 是展示给用户的文本
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Cause() error {
	return e.Err
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf 返回错误链中第一个 *Error 的类别，不是 *Error 时返回 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidationError(err error) bool     { return KindOf(err) == ValidationError }
func IsConnectionError(err error) bool     { return KindOf(err) == ConnectionError }
func IsQueryError(err error) bool          { return KindOf(err) == QueryError }
func IsUpdateError(err error) bool         { return KindOf(err) == UpdateError }
func IsColumnNotFoundError(err error) bool { return KindOf(err) == ColumnNotFoundError }
