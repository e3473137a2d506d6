package main

import (
	"github.com/hatlonely/dbviewer/cfg"
	"github.com/hatlonely/dbviewer/log"
	"github.com/hatlonely/dbviewer/log/writer"
	"github.com/hatlonely/dbviewer/rdb"
	"github.com/hatlonely/dbviewer/ref"
	"github.com/hatlonely/dbviewer/viewer"
	"github.com/pkg/errors"
)

type MetricsOptions struct {
	rdb.ObservableOptions `cfg:",inline"`

	// Listen 不为空时在该地址暴露 /metrics
	Listen string `cfg:"listen" validate:"omitempty,hostname_port"`
}

type Options struct {
	Database rdb.ProviderOptions `cfg:"database"`
	Viewer   viewer.Options      `cfg:"viewer"`
	Logger   log.Options         `cfg:"logger"`
	Metrics  MetricsOptions      `cfg:"metrics"`

	// IDGenerator 动作 ID 生成器，为空时使用 UUID v7
	IDGenerator *ref.TypeOptions `cfg:"idGenerator"`
}

// LoadOptions 加载配置文件，未配置日志输出时写入 logFile
func LoadOptions(filename string, logFile string) (*Options, error) {
	options := &Options{}
	if err := cfg.Load(filename, options); err != nil {
		return nil, errors.WithMessage(err, "load config")
	}

	if options.Logger.Output == nil || options.Logger.Output.Type == "" {
		options.Logger.Output = &ref.TypeOptions{
			Namespace: writer.Namespace,
			Type:      "FileWriter",
			Options:   &writer.FileWriterOptions{Path: logFile},
		}
	}
	return options, nil
}
