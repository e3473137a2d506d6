package cfg

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Decoder 把原始配置数据解码为 MapStorage
type Decoder interface {
	Decode(data []byte) (*MapStorage, error)
}

type JsonDecoder struct{}

func (JsonDecoder) Decode(data []byte) (*MapStorage, error) {
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "decode json")
	}
	return NewMapStorage(result), nil
}

type YamlDecoder struct{}

func (YamlDecoder) Decode(data []byte) (*MapStorage, error) {
	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}
	return NewMapStorage(result), nil
}

type TomlDecoder struct{}

func (TomlDecoder) Decode(data []byte) (*MapStorage, error) {
	var result map[string]any
	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "decode toml")
	}
	return NewMapStorage(result), nil
}

// IniDecoder 默认分区的键放在顶层，其他分区各自成为一个子 map
// 分区名中的点号表示嵌套，例如 [logger.output]
type IniDecoder struct{}

func (IniDecoder) Decode(data []byte) (*MapStorage, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "decode ini")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if section.Name() != ini.DefaultSection {
			for _, part := range strings.Split(section.Name(), ".") {
				child, ok := target[part].(map[string]any)
				if !ok {
					child = map[string]any{}
					target[part] = child
				}
				target = child
			}
		}
		for _, key := range section.Keys() {
			target[key.Name()] = key.Value()
		}
	}
	return NewMapStorage(result), nil
}

// DecoderForFile 根据文件扩展名选择解码器
func DecoderForFile(filename string) (Decoder, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		return JsonDecoder{}, nil
	case ".yaml", ".yml":
		return YamlDecoder{}, nil
	case ".toml":
		return TomlDecoder{}, nil
	case ".ini":
		return IniDecoder{}, nil
	default:
		return nil, errors.Errorf("unsupported file extension: %q", ext)
	}
}
