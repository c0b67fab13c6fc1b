package indexerdb

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/uptrace/bun"
)

var baseModelType = reflect.TypeOf(bun.BaseModel{})

// newModel allocates a fresh model instance for a pointer-to-struct type.
func newModel[T any]() T {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("indexerdb: model %T must be a pointer to struct", zero))
	}
	return reflect.New(typ.Elem()).Interface().(T)
}

// fieldByColumn resolves the struct field mapped to a column, descending
// into anonymous embedded structs the same way bun flattens them.
func fieldByColumn(v reflect.Value, col string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type == baseModelType {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if fv, ok := fieldByColumn(v.Field(i), col); ok {
				return fv, true
			}
			continue
		}
		if !field.IsExported() {
			continue
		}
		if columnName(field) == col {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func columnName(field reflect.StructField) string {
	tag := field.Tag.Get("bun")
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	if name != "" {
		return name
	}
	return underscore(field.Name)
}

// underscore converts a Go field name to bun's default snake_case column
// name, keeping acronym runs intact (TxHash -> tx_hash, ChainID -> chain_id).
func underscore(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rs[i-1]) || (i+1 < len(rs) && unicode.IsLower(rs[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hasColumn(model any, col string) bool {
	v := reflect.ValueOf(model)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	_, ok := fieldByColumn(v.Elem(), col)
	return ok
}

func columnValue(model any, col string) (any, error) {
	v := reflect.ValueOf(model)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, fmt.Errorf("model %T is not a non-nil pointer", model)
	}
	fv, ok := fieldByColumn(v.Elem(), col)
	if !ok {
		return nil, fmt.Errorf("model %T has no column %q", model, col)
	}
	return fv.Interface(), nil
}

func setColumnValue(model any, col string, value any) error {
	v := reflect.ValueOf(model)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("model %T is not a non-nil pointer", model)
	}
	fv, ok := fieldByColumn(v.Elem(), col)
	if !ok {
		return fmt.Errorf("model %T has no column %q", model, col)
	}
	if !fv.CanSet() {
		return fmt.Errorf("column %q of %T is not settable", col, model)
	}
	fv.Set(reflect.ValueOf(value))
	return nil
}

func boolColumn(model any, col string) (bool, error) {
	val, err := columnValue(model, col)
	if err != nil {
		return false, err
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("column %q of %T is not a bool", col, model)
	}
	return b, nil
}

// valuesEqual compares two column values for the change detection in
// UpsertWithFinalization. Timestamps compare by instant: a value loaded
// from Postgres comes back in UTC while the incoming row may carry the
// scanner's local zone.
func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Equal(bv)
		}
		return false
	case *time.Time:
		bv, ok := b.(*time.Time)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == bv
		}
		return av.Equal(*bv)
	}
	return reflect.DeepEqual(a, b)
}
