package ref

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// TypeOptions 通过命名空间和类型名描述一个可构造的组件
// 配置文件中的日志输出器等组件都用它来声明
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type"`
	Options   any    `cfg:"options"`
}

// Convertable 可以把自身转换成构造函数参数类型的配置数据
// cfg 包中的 MapStorage 实现了该接口
type Convertable interface {
	ConvertTo(object any) error
}

type constructor struct {
	fn           reflect.Value
	hasOptions   bool
	returnsError bool
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func newConstructor(fn any) (*constructor, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, errors.New("constructor must be a function")
	}

	ft := fv.Type()
	if ft.NumIn() > 1 {
		return nil, errors.Errorf("constructor must have 0 or 1 input parameters, got %d", ft.NumIn())
	}
	if ft.NumOut() != 1 && ft.NumOut() != 2 {
		return nil, errors.Errorf("constructor must have 1 or 2 return values, got %d", ft.NumOut())
	}
	if ft.NumOut() == 2 && !ft.Out(1).Implements(errorType) {
		return nil, errors.New("second return value must be error")
	}

	return &constructor{
		fn:           fv,
		hasOptions:   ft.NumIn() == 1,
		returnsError: ft.NumOut() == 2,
	}, nil
}

func (c *constructor) call(options any) (any, error) {
	var args []reflect.Value
	if c.hasOptions {
		arg, err := c.prepare(options)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	results := c.fn.Call(args)
	if c.returnsError && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// prepare 把 options 转成构造函数需要的参数类型
func (c *constructor) prepare(options any) (reflect.Value, error) {
	paramType := c.fn.Type().In(0)

	if options == nil {
		return reflect.Value{}, errors.New("constructor requires options but got nil")
	}

	if convertable, ok := options.(Convertable); ok {
		target := paramType
		if target.Kind() == reflect.Ptr {
			target = target.Elem()
		}
		pv := reflect.New(target)
		if err := convertable.ConvertTo(pv.Interface()); err != nil {
			return reflect.Value{}, errors.Wrapf(err, "convert options to %v", paramType)
		}
		if paramType.Kind() == reflect.Ptr {
			return pv, nil
		}
		return pv.Elem(), nil
	}

	ov := reflect.ValueOf(options)
	if !ov.Type().AssignableTo(paramType) {
		return reflect.Value{}, errors.Errorf("options type %v is not assignable to %v", ov.Type(), paramType)
	}
	return ov, nil
}

var constructors sync.Map

func key(namespace, typ string) string {
	return namespace + ":" + typ
}

// Register 注册构造函数，同一个 key 重复注册同一个函数时直接忽略
func Register(namespace string, typ string, fn any) error {
	c, err := newConstructor(fn)
	if err != nil {
		return errors.WithMessagef(err, "register %s", key(namespace, typ))
	}

	if existing, loaded := constructors.LoadOrStore(key(namespace, typ), c); loaded {
		if existing.(*constructor).fn.Pointer() != c.fn.Pointer() {
			return fmt.Errorf("constructor for %s already registered with different function", key(namespace, typ))
		}
	}
	return nil
}

func MustRegister(namespace string, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

// RegisterT 以 T 的包路径和类型名作为 namespace 和 type 注册
func RegisterT[T any](fn any) error {
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

// New 根据 namespace 和 type 找到构造函数并创建对象
func New(namespace string, typ string, options any) (any, error) {
	v, ok := constructors.Load(key(namespace, typ))
	if !ok {
		return nil, fmt.Errorf("constructor not found for %s", key(namespace, typ))
	}
	return v.(*constructor).call(options)
}

// NewWithOptions 使用 TypeOptions 创建对象
func NewWithOptions(options *TypeOptions) (any, error) {
	if options == nil {
		return nil, errors.New("type options is nil")
	}
	return New(options.Namespace, options.Type, options.Options)
}

func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return zero, err
	}

	obj, err := New(namespace, typ, options)
	if err != nil {
		return zero, err
	}

	result, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("created object is not of type %T", zero)
	}
	return result, nil
}

func typeKey[T any]() (string, string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return "", "", fmt.Errorf("cannot determine package path or type name for %v", t)
	}
	return t.PkgPath(), t.Name(), nil
}
