package inventory

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Int decodes a JSON number or numeric string; fractions are truncated.
type Int int64

func (n *Int) UnmarshalJSON(b []byte) error {
	s, ok, err := numberText(b)
	if err != nil || !ok {
		return err
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Int(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid integer %q", s)
	}
	*n = Int(math.Trunc(f))
	return nil
}

// Float decodes a JSON number or numeric string.
type Float float64

func (f *Float) UnmarshalJSON(b []byte) error {
	s, ok, err := numberText(b)
	if err != nil || !ok {
		return err
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid number %q", s)
	}
	*f = Float(v)
	return nil
}

// OptInt is an Int that may be absent. null and blank strings leave Set false.
type OptInt struct {
	Value Int
	Set   bool
}

func (o *OptInt) UnmarshalJSON(b []byte) error {
	return decodeOptional(b, &o.Value, &o.Set)
}

func (o OptInt) Ptr() *int64 {
	if !o.Set {
		return nil
	}
	v := int64(o.Value)
	return &v
}

// OptFloat is a Float that may be absent. null and blank strings leave Set
// false.
type OptFloat struct {
	Value Float
	Set   bool
}

func (o *OptFloat) UnmarshalJSON(b []byte) error {
	return decodeOptional(b, &o.Value, &o.Set)
}

func (o OptFloat) Ptr() *float64 {
	if !o.Set {
		return nil
	}
	v := float64(o.Value)
	return &v
}

func decodeOptional(b []byte, dst json.Unmarshaler, set *bool) error {
	if _, ok, err := numberText(b); err != nil || !ok {
		return err
	}
	if err := dst.UnmarshalJSON(b); err != nil {
		return err
	}
	*set = true
	return nil
}

// numberText unwraps a quoted number. ok is false for null and blank strings,
// which leave the target at its zero value.
func numberText(b []byte) (string, bool, error) {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return "", false, nil
	}
	if strings.HasPrefix(s, `"`) {
		u, err := strconv.Unquote(s)
		if err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(u)
		if s == "" {
			return "", false, nil
		}
	}
	return s, true, nil
}
