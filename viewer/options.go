package viewer

import (
	"time"

	"github.com/hatlonely/dbviewer/cfg"
)

type Options struct {
	// Tables 可选择的表，为空时不限制
	Tables []string `cfg:"tables" def:"grupe,produs,riscuri,stocmagazin,vanzari" validate:"dive,required"`
	// DefaultTable 启动时选中的表，为空时取 Tables 第一个
	DefaultTable string `cfg:"defaultTable"`
	// Timeout 单个动作的数据库超时，负数表示不限制
	Timeout time.Duration `cfg:"timeout" def:"10s"`
}

func DefaultOptions() *Options {
	options := &Options{}
	_ = cfg.SetDefaults(options)
	return options
}
