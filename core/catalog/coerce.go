package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/querygate/core/schema"
)

// ErrNotNullable is returned when nil is given for a non-nullable field.
var ErrNotNullable = errors.New("field is not nullable")

// Accepted textual layouts for temporal values, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// DateLayout is the textual form of date values.
const DateLayout = "2006-01-02"

// Coerce converts a caller-supplied value to the Go type matching the field's kind:
// string for string and text, int64 for int, float64 for float, bool for bool,
// time.Time (UTC) for timestamp and date. Ref fields coerce to the kind of the
// target's primary key. nil passes through for nullable fields.
func (f FieldDescriptor) Coerce(v any) (any, error) {
	if v == nil {
		if !f.Nullable {
			return nil, ErrNotNullable
		}
		return nil, nil
	}

	switch f.Kind {
	case schema.FieldTypeString, schema.FieldTypeText:
		return coerceString(v)
	case schema.FieldTypeInt:
		return coerceInt(v)
	case schema.FieldTypeFloat:
		return coerceFloat(v)
	case schema.FieldTypeBool:
		return coerceBool(v)
	case schema.FieldTypeTimestamp:
		return coerceTimestamp(v)
	case schema.FieldTypeDate:
		t, err := coerceTimestamp(v)
		if err != nil {
			return nil, err
		}
		return t.Truncate(24 * time.Hour), nil
	case schema.FieldTypeRef:
		if f.Target == nil {
			return nil, fmt.Errorf("relation target not resolved")
		}
		pk := f.Target.PrimaryKey()
		pk.Nullable = false
		return pk.Coerce(v)
	default:
		return nil, fmt.Errorf("%s fields cannot be filtered", f.Kind)
	}
}

func coerceString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case json.Number:
		return x.String(), nil
	}
	if i, ok := asInt64(v); ok {
		return strconv.FormatInt(i, 10), nil
	}
	return nil, fmt.Errorf("expected string, got %T", v)
}

func coerceInt(v any) (any, error) {
	if i, ok := asInt64(v); ok {
		return i, nil
	}
	switch x := v.(type) {
	case float64:
		return integralFloat(x)
	case float32:
		return integralFloat(float64(x))
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", x.String())
		}
		return integralFloat(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", x)
		}
		return i, nil
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

func integralFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return nil, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}

func coerceFloat(v any) (any, error) {
	if i, ok := asInt64(v); ok {
		return float64(i), nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("expected number, got %q", x.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %q", x)
		}
		return f, nil
	}
	return nil, fmt.Errorf("expected number, got %T", v)
}

func coerceBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "yes", "1":
			return true, nil
		case "false", "f", "no", "0":
			return false, nil
		}
		return nil, fmt.Errorf("expected boolean, got %q", x)
	}
	n, err := coerceInt(v)
	if err == nil {
		switch n.(int64) {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return nil, fmt.Errorf("expected boolean, got %v", v)
}

func coerceTimestamp(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("expected timestamp, got %q", x)
	}
	return time.Time{}, fmt.Errorf("expected timestamp, got %T", v)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}
