package storage

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/schema"
)

// Textual layouts temporal values are stored with.
const (
	TimestampLayout = "2006-01-02 15:04:05.999999999"
	DateLayout      = catalog.DateLayout
)

// toDB converts a coerced filter value to its database representation.
func toDB(val any, f catalog.FieldDescriptor) any {
	if val == nil {
		return nil
	}

	kind := f.Kind
	if f.IsToOne() && f.Target != nil {
		kind = f.Target.PrimaryKey().Kind
	}

	switch kind {
	case schema.FieldTypeBool:
		if b, ok := val.(bool); ok {
			if b {
				return 1
			}
			return 0
		}
	case schema.FieldTypeTimestamp:
		if t, ok := val.(time.Time); ok {
			return t.UTC().Format(TimestampLayout)
		}
	case schema.FieldTypeDate:
		if t, ok := val.(time.Time); ok {
			return t.UTC().Format(DateLayout)
		}
	}
	return val
}

// fromDB converts a scanned database value to the Go type for the field's kind.
// Values that do not fit the kind are returned unchanged.
func fromDB(val any, kind schema.FieldType) any {
	if val == nil {
		return nil
	}
	if b, ok := val.([]byte); ok {
		val = string(b)
	}

	switch kind {
	case schema.FieldTypeInt, schema.FieldTypeRef:
		switch v := val.(type) {
		case float64:
			if v == math.Trunc(v) {
				return int64(v)
			}
		case string:
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return i
			}
		}
	case schema.FieldTypeFloat:
		switch v := val.(type) {
		case int64:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	case schema.FieldTypeBool:
		switch v := val.(type) {
		case int64:
			return v != 0
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	case schema.FieldTypeTimestamp, schema.FieldTypeDate:
		switch v := val.(type) {
		case time.Time:
			return v.UTC()
		case string:
			if t, err := parseTime(v); err == nil {
				return t
			}
		}
	case schema.FieldTypeString, schema.FieldTypeText:
		switch v := val.(type) {
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return val
}

func parseTime(s string) (time.Time, error) {
	f := catalog.FieldDescriptor{Kind: schema.FieldTypeTimestamp}
	v, err := f.Coerce(s)
	if err != nil {
		return time.Time{}, err
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("parse time %q", s)
	}
	return t, nil
}

// keyKind returns the kind of the values a to-one field holds.
func keyKind(f catalog.FieldDescriptor) schema.FieldType {
	if f.Target != nil {
		return f.Target.PrimaryKey().Kind
	}
	return schema.FieldTypeInt
}
