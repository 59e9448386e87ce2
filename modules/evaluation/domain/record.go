package domain

import (
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a flat column-name keyed view of an entity, used by the storage adapters.
type Record map[string]any

// Int64 reads an integer column, tolerating the integer widths drivers return.
func (r Record) Int64(name string) (int64, error) {
	v, ok := r[name]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("column %s: expected integer, got %T", name, v)
	}
	return n, nil
}

func (r Record) String(name string) (string, error) {
	v, ok := r[name]
	if !ok || v == nil {
		return "", nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return "", fmt.Errorf("column %s: expected string, got %T", name, v)
	}
	return rv.String(), nil
}

func (r Record) Bool(name string) (bool, error) {
	v, ok := r[name]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("column %s: expected bool, got %T", name, v)
	}
	return b, nil
}

func (r Record) Decimal(name string) (decimal.Decimal, error) {
	switch v := r[name].(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("column %s: %w", name, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		if n, ok := toInt64(v); ok {
			return decimal.NewFromInt(n), nil
		}
		return decimal.Zero, fmt.Errorf("column %s: expected decimal, got %T", name, v)
	}
}

func (r Record) Time(name string) (time.Time, error) {
	t, err := r.TimePtr(name)
	if err != nil || t == nil {
		return time.Time{}, err
	}
	return *t, nil
}

func (r Record) TimePtr(name string) (*time.Time, error) {
	switch v := r[name].(type) {
	case nil:
		return nil, nil
	case time.Time:
		t := v.UTC()
		return &t, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		t := v.UTC()
		return &t, nil
	default:
		return nil, fmt.Errorf("column %s: expected time, got %T", name, v)
	}
}

func toInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), true
	case reflect.Float64, reflect.Float32:
		f := rv.Float()
		if f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// recordReader accumulates the first column error so hydration code stays linear.
type recordReader struct {
	r   Record
	err error
}

func (rr *recordReader) int64(name string) int64 {
	v, err := rr.r.Int64(name)
	rr.keep(err)
	return v
}

func (rr *recordReader) str(name string) string {
	v, err := rr.r.String(name)
	rr.keep(err)
	return v
}

func (rr *recordReader) boolean(name string) bool {
	v, err := rr.r.Bool(name)
	rr.keep(err)
	return v
}

func (rr *recordReader) dec(name string) decimal.Decimal {
	v, err := rr.r.Decimal(name)
	rr.keep(err)
	return v
}

func (rr *recordReader) time(name string) time.Time {
	v, err := rr.r.Time(name)
	rr.keep(err)
	return v
}

func (rr *recordReader) timePtr(name string) *time.Time {
	v, err := rr.r.TimePtr(name)
	rr.keep(err)
	return v
}

func (rr *recordReader) keep(err error) {
	if rr.err == nil && err != nil {
		rr.err = err
	}
}
