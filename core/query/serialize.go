package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/schema"
	"github.com/artpar/querygate/core/storage"
	"github.com/rs/zerolog"
)

// displaySuffix names the companion field carrying a to-one relation's display text.
const displaySuffix = "_str"

// Serializer turns fetched rows into JSON-safe records.
type Serializer struct {
	logger zerolog.Logger
}

// NewSerializer creates a serializer logging skipped fields to logger.
func NewSerializer(logger zerolog.Logger) Serializer {
	return Serializer{logger: logger}
}

// Serialize converts row into a Record holding d's serializable fields in order.
//
// Fields the row does not carry are left out. Each to-one relation produces two
// entries: the referenced key and "<field>_str" with its display text, both null
// when the relation is unset. Temporal values become RFC 3339 text (dates as
// YYYY-MM-DD) and values of other types become their text form.
func (s Serializer) Serialize(d *catalog.Descriptor, row storage.Row) (Record, error) {
	var rec Record

	for _, f := range d.SerializableFields() {
		v, err := row.Get(f.Name)
		if errors.Is(err, storage.ErrFieldUnavailable) {
			s.logger.Debug().
				Str("entity", d.Key()).
				Str("field", f.Name).
				Msg("field unavailable, skipped")
			continue
		}
		if err != nil {
			return Record{}, &SerializationError{Entity: d.Key(), Field: f.Name, Err: err}
		}

		if f.IsToOne() {
			key, display := refValues(v)
			rec.Set(f.Name, key)
			rec.Set(f.Name+displaySuffix, display)
			continue
		}

		rec.Set(f.Name, jsonValue(v, f.Kind))
	}

	return rec, nil
}

// refValues splits a to-one value into its key and display text.
func refValues(v any) (key, display any) {
	switch ref := v.(type) {
	case nil:
		return nil, nil
	case *storage.Ref:
		if ref == nil {
			return nil, nil
		}
		return jsonValue(ref.Key, ""), ref.Display
	case storage.Ref:
		return jsonValue(ref.Key, ""), ref.Display
	default:
		// A bare key with no display available
		key := jsonValue(v, "")
		return key, fmt.Sprint(key)
	}
}

// jsonValue converts a store value into one encoding/json renders losslessly:
// nil, string, bool, int64, float64 or json.Number.
func jsonValue(v any, kind schema.FieldType) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return uintValue(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return uintValue(x)
	case float32:
		return floatValue(float64(x))
	case float64:
		return floatValue(x)
	case json.Number:
		return x
	case time.Time:
		if kind == schema.FieldTypeDate {
			return x.Format(catalog.DateLayout)
		}
		return x.Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return nil
		}
		return jsonValue(*x, kind)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func uintValue(u uint64) any {
	if u > math.MaxInt64 {
		return strconv.FormatUint(u, 10)
	}
	return int64(u)
}

// floatValue keeps finite floats; NaN and infinities have no JSON form.
func floatValue(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}
