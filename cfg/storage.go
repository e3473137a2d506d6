package cfg

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// MapStorage 解码后的配置数据，由 map/slice/标量组成
type MapStorage struct {
	data any
}

func NewMapStorage(data any) *MapStorage {
	return &MapStorage{data: data}
}

// Data 获取存储的原始数据
func (ms *MapStorage) Data() any {
	return ms.data
}

// Sub 获取子配置，key 用点号分隔，例如 "database.host"
func (ms *MapStorage) Sub(key string) *MapStorage {
	if key == "" {
		return ms
	}

	current := ms.data
	for _, k := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return NewMapStorage(nil)
		}
		current = m[k]
	}
	return NewMapStorage(current)
}

// ConvertTo 将配置数据转成结构体或者 map/slice 等任意结构
// 同时实现了 ref.Convertable
func (ms *MapStorage) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer, got %T", object)
	}
	return convertValue(ms.data, rv.Elem())
}

func convertValue(src any, dst reflect.Value) error {
	if src == nil {
		return nil
	}
	sv := reflect.ValueOf(src)

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem())
	}

	// 空接口字段保留子树，构造组件时再由 ref 转成具体的 Options 类型
	if dst.Kind() == reflect.Interface && dst.Type().NumMethod() == 0 {
		switch src.(type) {
		case map[string]any, []any:
			dst.Set(reflect.ValueOf(NewMapStorage(src)))
		default:
			dst.Set(sv)
		}
		return nil
	}

	if dst.Type() == reflect.TypeOf(time.Duration(0)) {
		return convertDuration(sv, dst)
	}

	switch dst.Kind() {
	case reflect.Struct:
		return convertStruct(src, dst)
	case reflect.Map:
		return convertMap(src, dst)
	case reflect.Slice:
		return convertSlice(src, dst)
	}

	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	// ini 和环境变量只有字符串
	if sv.Kind() == reflect.String {
		return parseScalar(sv.String(), dst)
	}

	if sv.Type().ConvertibleTo(dst.Type()) && dst.Kind() != reflect.String {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
}

func convertStruct(src any, dst reflect.Value) error {
	m, ok := src.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot convert %T to struct %v", src, dst.Type())
	}

	dt := dst.Type()
	for i := 0; i < dt.NumField(); i++ {
		field := dt.Field(i)
		if !field.IsExported() {
			continue
		}

		tags := strings.Split(field.Tag.Get("cfg"), ",")
		if tags[0] == "-" {
			continue
		}
		// 匿名字段带 inline 时与外层共用同一层 key
		if field.Anonymous && slices.Contains(tags[1:], "inline") {
			if err := convertValue(m, dst.Field(i)); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
			continue
		}

		name := field.Name
		if tags[0] != "" {
			name = tags[0]
		}

		value, found := lookup(m, name)
		if !found {
			continue
		}
		if err := convertValue(value, dst.Field(i)); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
	}
	return nil
}

// lookup 先精确匹配，再忽略大小写匹配
func lookup(m map[string]any, name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func convertMap(src any, dst reflect.Value) error {
	m, ok := src.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot convert %T to map", src)
	}
	if dst.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("unsupported map key type %v", dst.Type().Key())
	}

	if dst.IsNil() {
		dst.Set(reflect.MakeMapWithSize(dst.Type(), len(m)))
	}
	for k, v := range m {
		ev := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(v, ev); err != nil {
			return fmt.Errorf("key %s: %w", k, err)
		}
		dst.SetMapIndex(reflect.ValueOf(k).Convert(dst.Type().Key()), ev)
	}
	return nil
}

func convertSlice(src any, dst reflect.Value) error {
	var items []any
	switch v := src.(type) {
	case []any:
		items = v
	case string:
		// "a, b, c" 形式的列表
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	default:
		return fmt.Errorf("cannot convert %T to slice", src)
	}

	slice := reflect.MakeSlice(dst.Type(), len(items), len(items))
	for i, item := range items {
		if err := convertValue(item, slice.Index(i)); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	dst.Set(slice)
	return nil
}

func convertDuration(sv reflect.Value, dst reflect.Value) error {
	switch sv.Kind() {
	case reflect.String:
		d, err := time.ParseDuration(sv.String())
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", sv.String(), err)
		}
		dst.SetInt(int64(d))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(sv.Int())
	case reflect.Float32, reflect.Float64:
		// 浮点数视为秒
		dst.SetInt(int64(sv.Float() * float64(time.Second)))
	default:
		return fmt.Errorf("cannot convert %v to time.Duration", sv.Type())
	}
	return nil
}

func parseScalar(s string, dst reflect.Value) error {
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid bool value %q", s)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 0, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", s)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 0, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q", s)
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q", s)
		}
		dst.SetFloat(f)
	default:
		return fmt.Errorf("cannot convert string to %v", dst.Type())
	}
	return nil
}
