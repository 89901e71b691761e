package cache

import "reflect"

// isEmpty reports whether v is an absent or empty result that must not be
// cached: nil, a zero-length string, slice, map, or array, or a zero scalar or
// struct. A non-nil pointer is a present result.
func isEmpty(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	case reflect.Slice, reflect.Map:
		return rv.IsNil() || rv.Len() == 0
	case reflect.String, reflect.Array:
		return rv.Len() == 0
	default:
		return rv.IsZero()
	}
}
