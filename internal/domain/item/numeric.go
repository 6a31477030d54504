package item

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Int is a whole number that also accepts numeric strings ("5").
// Anything else is a type error rather than a silent zero.
type Int int64

// Decimal is a float that also accepts numeric strings ("2.50").
type Decimal float64

func (n *Int) UnmarshalJSON(b []byte) error {
	raw, kind := unquote(b)

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// 5.0 is still an integer
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
			return &json.UnmarshalTypeError{Value: kind, Type: reflect.TypeOf(int64(0))}
		}
		v = int64(f)
	}

	*n = Int(v)
	return nil
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	raw, kind := unquote(b)

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return &json.UnmarshalTypeError{Value: kind, Type: reflect.TypeOf(float64(0))}
	}

	*d = Decimal(f)
	return nil
}

func unquote(b []byte) (string, string) {
	b = bytes.TrimSpace(b)

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", "string"
		}
		return strings.TrimSpace(s), "string"
	}

	switch {
	case len(b) > 0 && (b[0] == 't' || b[0] == 'f'):
		return string(b), "bool"
	case len(b) > 0 && (b[0] == '{' || b[0] == '['):
		return "", "object"
	}

	return string(b), "number"
}

func (n *Int) Int64() int64 {
	if n == nil {
		return 0
	}
	return int64(*n)
}

func (d *Decimal) Float64() float64 {
	if d == nil {
		return 0
	}
	return float64(*d)
}
