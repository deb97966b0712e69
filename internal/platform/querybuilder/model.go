package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// InsertModel inserts one row built from the struct's db tags. Fields tagged
// with the "readonly" option are selected but never written.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	fields, err := modelFields(model)
	if err != nil {
		return "", nil, err
	}

	cols := make([]string, 0, len(fields))
	vals := make([]any, 0, len(fields))
	for _, f := range fields {
		if f.readonly {
			continue
		}
		cols = append(cols, f.column)
		vals = append(vals, f.value)
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("model has no writable db columns")
	}

	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix(suffix).
		ToSQL()
}

// ColumnsOf lists the db columns of a table model in field order.
func ColumnsOf(model any) []string {
	fields, err := modelFields(model)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.column)
	}
	return out
}

type modelField struct {
	column   string
	value    any
	readonly bool
}

func modelFields(model any) ([]modelField, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	var out []modelField
	collectFields(value, &out)
	if len(out) == 0 {
		return nil, fmt.Errorf("model has no db columns")
	}
	return out, nil
}

// collectFields flattens untagged embedded structs.
func collectFields(value reflect.Value, out *[]modelField) {
	typ := value.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag, hasTag := field.Tag.Lookup("db")
		if field.Anonymous && !hasTag && field.Type.Kind() == reflect.Struct {
			collectFields(value.Field(i), out)
			continue
		}
		if !field.IsExported() {
			continue
		}

		parts := strings.Split(strings.TrimSpace(tag), ",")
		column := strings.TrimSpace(parts[0])
		if column == "" || column == "-" {
			continue
		}
		f := modelField{column: column, value: value.Field(i).Interface()}
		for _, opt := range parts[1:] {
			if strings.TrimSpace(opt) == "readonly" {
				f.readonly = true
			}
		}
		*out = append(*out, f)
	}
}
