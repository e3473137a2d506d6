package uid

import (
	"github.com/hatlonely/dbviewer/ref"
	"github.com/pkg/errors"
)

const Namespace = "github.com/hatlonely/dbviewer/uid"

func init() {
	ref.MustRegister(Namespace, "UUIDGenerator", NewUUIDGeneratorWithOptions)
	ref.MustRegister(Namespace, "SnowflakeGenerator", NewSnowflakeGeneratorWithOptions)
}

// Generator 生成动作 ID，用于关联同一次动作的日志
type Generator interface {
	Generate() string
}

// NewGeneratorWithOptions options 为空时返回 UUID v7 生成器
func NewGeneratorWithOptions(options *ref.TypeOptions) (Generator, error) {
	if options == nil || options.Type == "" {
		return NewUUIDGeneratorWithOptions(nil), nil
	}

	obj, err := ref.NewWithOptions(options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	generator, ok := obj.(Generator)
	if !ok {
		return nil, errors.Errorf("%s is not a Generator", options.Type)
	}
	return generator, nil
}
