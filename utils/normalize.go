package utils

import (
	"reflect"
	"strings"
)

// NormalizeDTO trims string and *string fields and rounds float64 and *float64 fields of a
// pointer-to-struct DTO. Nil pointers stay nil so PATCH semantics are preserved.
func NormalizeDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if !f.CanSet() {
			continue
		}
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				continue
			}
			f = f.Elem()
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Float64:
			f.SetFloat(Round2(f.Float()))
		}
	}
}
