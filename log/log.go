package log

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hatlonely/dbviewer/log/writer"
	"github.com/hatlonely/dbviewer/ref"
	"github.com/pkg/errors"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// Options 日志初始化选项
type Options struct {
	// 日志级别：debug, info, warn, error
	Level string `cfg:"level" def:"info" validate:"omitempty,oneof=debug info warn error"`
	// 输出格式：text, json
	Format string `cfg:"format" def:"text" validate:"omitempty,oneof=text json"`
	// 时间格式，为空时使用 RFC3339
	TimeFormat string `cfg:"timeFormat"`
	// 是否显示调用者信息
	AddSource bool `cfg:"addSource"`
	// 附加到每条日志的字段
	Fields map[string]any `cfg:"fields"`
	// 输出器，为空时输出到 stderr
	Output *ref.TypeOptions `cfg:"output"`
}

var defaultLogger Logger = &SLog{slogger: slog.New(slog.NewTextHandler(discard{}, nil))}

// Default 返回进程级默认日志器，在 SetDefault 之前丢弃所有日志
func Default() Logger {
	return defaultLogger
}

func SetDefault(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// SLog 基于 log/slog 的 Logger 实现
type SLog struct {
	slogger *slog.Logger
	closer  writer.Writer
}

func NewLoggerWithOptions(options *Options) (*SLog, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}

	level, err := parseLevel(options.Level)
	if err != nil {
		return nil, err
	}

	var w writer.Writer
	if options.Output != nil && options.Output.Type != "" {
		w, err = writer.NewWriterWithOptions(options.Output)
		if err != nil {
			return nil, errors.WithMessage(err, "create writer")
		}
	} else {
		w, _ = writer.NewConsoleWriterWithOptions(nil)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: options.AddSource,
	}
	if options.TimeFormat != "" && options.TimeFormat != time.RFC3339 {
		format := options.TimeFormat
		handlerOpts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(a.Key, a.Value.Time().Format(format))
			}
			return a
		}
	}

	var handler slog.Handler
	switch strings.ToLower(options.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "text", "":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		_ = w.Close()
		return nil, errors.Errorf("unsupported format: %s", options.Format)
	}

	slogger := slog.New(handler)
	if len(options.Fields) > 0 {
		args := make([]any, 0, len(options.Fields)*2)
		for k, v := range options.Fields {
			args = append(args, k, v)
		}
		slogger = slogger.With(args...)
	}

	return &SLog{slogger: slogger, closer: w}, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("unknown level: %s", level)
}

func (l *SLog) Debug(msg string, args ...any) { l.slogger.Debug(msg, args...) }
func (l *SLog) Info(msg string, args ...any)  { l.slogger.Info(msg, args...) }
func (l *SLog) Warn(msg string, args ...any)  { l.slogger.Warn(msg, args...) }
func (l *SLog) Error(msg string, args ...any) { l.slogger.Error(msg, args...) }

func (l *SLog) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, args...)
}

func (l *SLog) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, args...)
}

func (l *SLog) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, args...)
}

func (l *SLog) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, args...)
}

func (l *SLog) With(args ...any) Logger {
	return &SLog{slogger: l.slogger.With(args...)}
}

func (l *SLog) WithGroup(name string) Logger {
	return &SLog{slogger: l.slogger.WithGroup(name)}
}

// Close 关闭底层输出器，派生出的日志器不持有输出器
func (l *SLog) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
