package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Numeric is a loosely typed non-negative numeric field value.
//
// Pipeline loggers are not trustworthy: execution times and word counts
// arrive as JSON numbers, quoted numbers, nulls, or plain garbage. A value
// that cannot be interpreted as a finite non-negative number is absent, not
// zero. Absent values are excluded from averages but never fail the record.
type Numeric struct {
	value float64
	valid bool
}

// NumericOf returns a present Numeric for v. Negative, NaN, and infinite
// values are rejected as absent.
func NumericOf(v float64) Numeric {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Numeric{}
	}
	return Numeric{value: v, valid: true}
}

// Value returns the numeric value and whether it is present.
func (n Numeric) Value() (float64, bool) {
	return n.value, n.valid
}

// CoerceNumeric converts a loosely typed value to a Numeric.
// Accepted inputs: Go numeric types, json.Number, and strings holding a
// decimal number. Everything else coerces to absent.
func CoerceNumeric(v any) Numeric {
	switch t := v.(type) {
	case nil:
		return Numeric{}
	case float64:
		return NumericOf(t)
	case float32:
		return NumericOf(float64(t))
	case int:
		return NumericOf(float64(t))
	case int32:
		return NumericOf(float64(t))
	case int64:
		return NumericOf(float64(t))
	case uint64:
		return NumericOf(float64(t))
	case json.Number:
		return coerceString(t.String())
	case string:
		return coerceString(t)
	default:
		return Numeric{}
	}
}

func coerceString(s string) Numeric {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Numeric{}
	}
	return NumericOf(f)
}

// MarshalJSON encodes a present value as a JSON number and an absent value
// as null, so a record round-trips without inventing zeros.
func (n Numeric) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON never returns an error: any JSON value that is not a finite
// non-negative number (directly or as a quoted string) decodes as absent.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*n = Numeric{}
		return nil
	}
	*n = CoerceNumeric(raw)
	return nil
}
