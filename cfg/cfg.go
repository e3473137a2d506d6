package cfg

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// Load 从文件加载配置到 object
// 流程：按扩展名解码 -> 按 cfg tag 绑定 -> 填充 def 默认值 -> validate 校验
// filename 为空时只填充默认值并校验
func Load(filename string, object any) error {
	if filename == "" {
		return Finish(object)
	}

	decoder, err := DecoderForFile(filename)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	storage, err := decoder.Decode(data)
	if err != nil {
		return errors.WithMessagef(err, "config file %s", filename)
	}

	if err := storage.ConvertTo(object); err != nil {
		return errors.WithMessagef(err, "bind config file %s", filename)
	}

	return Finish(object)
}

// Finish 填充默认值并校验
func Finish(object any) error {
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults")
	}
	if err := validate.Struct(object); err != nil {
		return errors.Wrap(err, "validate config")
	}
	return nil
}
