package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// ApplyPtrDTO copies every non-nil pointer field of dto onto the field with the same name in
// model. Both arguments must be pointers to structs. It returns the json names of the
// fields that were applied, which is what a PATCH handler reports back or validates against.
func ApplyPtrDTO(dto any, model any) []string {
	src := reflect.ValueOf(dto)
	dst := reflect.ValueOf(model)
	if src.Kind() != reflect.Ptr || dst.Kind() != reflect.Ptr {
		return nil
	}
	src, dst = src.Elem(), dst.Elem()
	if src.Kind() != reflect.Struct || dst.Kind() != reflect.Struct {
		return nil
	}

	var applied []string
	t := src.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := src.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		target := dst.FieldByName(sf.Name)
		if !target.IsValid() || !target.CanSet() || target.Type() != fv.Elem().Type() {
			continue
		}
		target.Set(fv.Elem())
		applied = append(applied, jsonName(sf))
	}
	return applied
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" || tag == "-" {
		return sf.Name
	}
	return strings.Split(tag, ",")[0]
}

// ParseID parses a positive numeric path parameter.
func ParseID(s string) (uint, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// NilFields returns the json names of the nil pointer fields of dto (a pointer to a struct).
// PUT handlers use it to reject bodies that leave out required fields.
func NilFields(dto any) []string {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil
	}
	v = v.Elem()
	var out []string
	for i := 0; i < v.NumField(); i++ {
		fv := v.Field(i)
		if fv.Kind() == reflect.Ptr && fv.IsNil() {
			out = append(out, jsonName(v.Type().Field(i)))
		}
	}
	return out
}
