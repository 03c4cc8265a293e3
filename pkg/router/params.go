package router

import (
	"fmt"
	"reflect"
	"strconv"
)

// Params holds the values of the ":name" segments of a matched route.
type Params map[string]string

// Get returns the value of the named parameter, or "" when absent.
func (p Params) Get(name string) string {
	if p == nil {
		return ""
	}
	return p[name]
}

// Clone returns an independent copy of p. A nil Params stays nil.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Decode copies parameters into the fields of the struct target points
// to. A field opts in with a `param:"name"` tag; fields whose parameter is
// absent keep their value. String, numeric and bool fields are supported.
//
//	var args struct {
//		ID string `param:"id"`
//	}
//	err := params.Decode(&args)
func (p Params) Decode(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("router: decode target must be a non-nil struct pointer, got %T", target)
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := sf.Tag.Get("param")
		if name == "" || !sf.IsExported() {
			continue
		}
		raw, ok := p[name]
		if !ok {
			continue
		}
		if err := assign(v.Field(i), raw); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidParam, name, err)
		}
	}
	return nil
}

func assign(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
