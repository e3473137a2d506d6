package writer

import (
	"io"

	"github.com/hatlonely/dbviewer/ref"
)

// Namespace 输出器在 ref 中注册的命名空间
const Namespace = "github.com/hatlonely/dbviewer/log/writer"

func init() {
	ref.MustRegister(Namespace, "ConsoleWriter", NewConsoleWriterWithOptions)
	ref.MustRegister(Namespace, "FileWriter", NewFileWriterWithOptions)
	ref.MustRegister(Namespace, "MultiWriter", NewMultiWriterWithOptions)
}

// Writer 日志输出器接口
type Writer interface {
	io.Writer
	io.Closer
}

// NewWriterWithOptions 根据 TypeOptions 创建输出器
func NewWriterWithOptions(options *ref.TypeOptions) (Writer, error) {
	obj, err := ref.NewWithOptions(options)
	if err != nil {
		return nil, err
	}
	w, ok := obj.(Writer)
	if !ok {
		return nil, &notWriterError{typ: options.Type}
	}
	return w, nil
}

type notWriterError struct {
	typ string
}

func (e *notWriterError) Error() string {
	return e.typ + " does not implement Writer"
}
