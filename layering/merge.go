// Package layering folds settings snapshots, strongest first, into one value.
//
// A field is "unset" when it is a nil pointer, map, slice, func or interface,
// or an atomic value reporting IsZero. Unset fields take the value of the next
// weaker layer. Everything else in the strongest layer that sets it wins.
package layering

import "reflect"

// Zeroer is implemented by atomic values (versions, storage references) that
// decide for themselves whether they are set. They are never merged field by
// field.
type Zeroer interface {
	IsZero() bool
}

var zeroerType = reflect.TypeOf((*Zeroer)(nil)).Elem()

// MergeLayers folds layers, ordered strongest to weakest, into a fresh value.
// The inputs are not modified and share no mutable state with the result.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}
	merged := cloneValue(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = merge(reflect.ValueOf(layers[i]), merged)
	}
	if !merged.IsValid() {
		return zero
	}
	return merged.Interface().(T)
}

// Clone returns a deep copy of value. Atomic values are copied as a whole.
func Clone[T any](value T) T {
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		var zero T
		return zero
	}
	return cloned.Interface().(T)
}

// atomic reports whether values of t are merged as a whole: types that
// implement Zeroer and structs with unexported fields.
func atomic(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	if t.Implements(zeroerType) {
		return true
	}
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

// unset reports whether v should defer to a weaker layer.
func unset(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	case reflect.Struct:
		if !atomic(v.Type()) {
			return false
		}
		if z, ok := v.Interface().(Zeroer); ok {
			return z.IsZero()
		}
		return v.IsZero()
	default:
		return false
	}
}

func merge(strong, weak reflect.Value) reflect.Value {
	if unset(strong) {
		if !weak.IsValid() && strong.IsValid() {
			return reflect.Zero(strong.Type())
		}
		return cloneValue(weak)
	}
	if weak.IsValid() && weak.Type() != strong.Type() {
		weak = reflect.Value{}
	}

	switch strong.Kind() {
	case reflect.Pointer:
		var weakElem reflect.Value
		if weak.IsValid() && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		out := reflect.New(strong.Type().Elem())
		out.Elem().Set(merge(strong.Elem(), weakElem))
		return out
	case reflect.Struct:
		if atomic(strong.Type()) {
			return strong
		}
		out := reflect.New(strong.Type()).Elem()
		for i := 0; i < strong.NumField(); i++ {
			var weakField reflect.Value
			if weak.IsValid() {
				weakField = weak.Field(i)
			}
			out.Field(i).Set(merge(strong.Field(i), weakField))
		}
		return out
	case reflect.Map:
		// Keys from both layers; the stronger value wins per key.
		out := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && !weak.IsNil() {
			for iter := weak.MapRange(); iter.Next(); {
				out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
			}
		}
		for iter := strong.MapRange(); iter.Next(); {
			value := iter.Value()
			if existing := out.MapIndex(iter.Key()); existing.IsValid() {
				value = merge(value, existing)
			} else {
				value = cloneValue(value)
			}
			out.SetMapIndex(iter.Key(), value)
		}
		return out
	default:
		// Slices replace weaker slices; scalars, funcs and interfaces win as is.
		return cloneValue(strong)
	}
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	case reflect.Struct:
		if atomic(v.Type()) {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			out.Field(i).Set(cloneValue(v.Field(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		for iter := v.MapRange(); iter.Next(); {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	default:
		return v
	}
}
