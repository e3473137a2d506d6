package writer

import (
	"io"
	"os"
)

// ConsoleWriterOptions 控制台输出配置
type ConsoleWriterOptions struct {
	// 输出目标：stdout, stderr
	Target string `cfg:"target" def:"stderr" validate:"omitempty,oneof=stdout stderr"`
}

// ConsoleWriter 控制台输出器
type ConsoleWriter struct {
	writer io.Writer
}

func NewConsoleWriterWithOptions(options *ConsoleWriterOptions) (*ConsoleWriter, error) {
	w := io.Writer(os.Stderr)
	if options != nil && options.Target == "stdout" {
		w = os.Stdout
	}
	return &ConsoleWriter{writer: w}, nil
}

func (c *ConsoleWriter) Write(p []byte) (int, error) {
	return c.writer.Write(p)
}

// Close 控制台不需要关闭
func (c *ConsoleWriter) Close() error {
	return nil
}
