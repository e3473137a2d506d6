package cfg

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SetDefaults 为零值字段填充 def tag 中的默认值，嵌套结构体递归处理
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer, got %T", object)
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}

		if fv.Kind() == reflect.Struct || (fv.Kind() == reflect.Ptr && fv.Type().Elem().Kind() == reflect.Struct) {
			if err := setDefaults(fv); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
			continue
		}

		def, ok := field.Tag.Lookup("def")
		if !ok || !fv.IsZero() {
			continue
		}
		if err := setDefaultValue(fv, def); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func setDefaultValue(rv reflect.Value, def string) error {
	if rv.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(def)
		if err != nil {
			return fmt.Errorf("invalid duration value %q: %w", def, err)
		}
		rv.SetInt(int64(d))
		return nil
	}

	if rv.Kind() == reflect.Slice {
		parts := strings.Split(def, ",")
		slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setDefaultValue(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return fmt.Errorf("slice element %d: %w", i, err)
			}
		}
		rv.Set(slice)
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(def)
	case reflect.Bool:
		b, err := strconv.ParseBool(def)
		if err != nil {
			return fmt.Errorf("invalid bool value %q", def)
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(def, 0, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", def)
		}
		rv.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(def, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q", def)
		}
		rv.SetFloat(f)
	default:
		return fmt.Errorf("unsupported default for type %v", rv.Type())
	}
	return nil
}
