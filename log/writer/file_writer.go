package writer

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileWriterOptions 文件输出配置
type FileWriterOptions struct {
	// 文件路径
	Path string `cfg:"path" validate:"required"`
}

// FileWriter 文件输出器
// 界面占用终端时日志只能写文件
type FileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func NewFileWriterWithOptions(options *FileWriterOptions) (*FileWriter, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("file path is required")
	}

	dir := filepath.Dir(options.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create directory %s", dir)
	}

	file, err := os.OpenFile(options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open file %s", options.Path)
	}

	return &FileWriter{path: options.Path, file: file}, nil
}

func (f *FileWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, errors.Errorf("file %s is closed", f.path)
	}
	return f.file.Write(p)
}

func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
