package rf2

import (
	"fmt"
	"strconv"
	"time"

	"github.com/TermGraph/ds"
)

const effectiveTimeLayout = "20060102"

// ParseEffectiveTime converts an RF2 effective time (yyyymmdd) to an
// instant at UTC midnight.
func ParseEffectiveTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(effectiveTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("effective time %q: %w", s, err)
	}
	return t, nil
}

// ParseActive converts an RF2 active flag ("1" or "0").
func ParseActive(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, fmt.Errorf("active flag %q is not 0 or 1", s)
}

// ParseValue converts a column of a reference set row to a field of type
// dt. Internal references are resolved by resolve.
func ParseValue(dt ds.DataType, s string, resolve func(string) (ds.Nid, error)) (ds.Field, error) {
	switch dt {
	case ds.I:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return ds.Field{}, fmt.Errorf("expected Integer got %q", s)
		}
		return ds.Int(i), nil
	case ds.F:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ds.Field{}, fmt.Errorf("expected Float got %q", s)
		}
		return ds.Float(f), nil
	case ds.Bl:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return ds.Field{}, fmt.Errorf("expected Boolean got %q", s)
		}
		return ds.Bool(b), nil
	case ds.S:
		return ds.Str(s), nil
	case ds.Nd:
		n, err := resolve(s)
		if err != nil {
			return ds.Field{}, err
		}
		return ds.NidField(n), nil
	}
	return ds.Field{}, fmt.Errorf("unsupported data type %s", dt)
}
