package writer

import (
	"github.com/hatlonely/dbviewer/ref"
	"github.com/pkg/errors"
)

// MultiWriterOptions 多输出配置
type MultiWriterOptions struct {
	Writers []ref.TypeOptions `cfg:"writers" validate:"required,min=1"`
}

// MultiWriter 把同一条日志写到多个输出器
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriterWithOptions(options *MultiWriterOptions) (*MultiWriter, error) {
	if options == nil || len(options.Writers) == 0 {
		return nil, errors.New("at least one writer is required")
	}

	writers := make([]Writer, 0, len(options.Writers))
	for i := range options.Writers {
		w, err := NewWriterWithOptions(&options.Writers[i])
		if err != nil {
			for _, created := range writers {
				_ = created.Close()
			}
			return nil, errors.WithMessagef(err, "create writer %d", i)
		}
		writers = append(writers, w)
	}

	return &MultiWriter{writers: writers}, nil
}

func (m *MultiWriter) Write(p []byte) (int, error) {
	for i, w := range m.writers {
		if n, err := w.Write(p); err != nil {
			return n, errors.Wrapf(err, "writer %d", i)
		}
	}
	return len(p), nil
}

// Close 关闭所有输出器，返回最后一个错误
func (m *MultiWriter) Close() error {
	var lastErr error
	for i, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = errors.Wrapf(err, "close writer %d", i)
		}
	}
	return lastErr
}
