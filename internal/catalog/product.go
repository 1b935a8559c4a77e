package catalog

import (
	"encoding/json"
	"math"
)

const FieldID = "id"

// RequiredFields lists the keys every new product must carry.
var RequiredFields = []string{"title", "description", "price", "thumbnail", "code", "stock"}

// Product is an open record: the known fields are validated, anything else
// the caller sends is stored and returned unchanged. Numbers loaded from
// storage are json.Number so they re-serialise to the same text.
type Product map[string]any

// ID returns the record id when it holds an integral number.
func (p Product) ID() (int64, bool) {
	return toInt64(p[FieldID])
}

// Clone returns a shallow copy.
func (p Product) Clone() Product {
	if p == nil {
		return nil
	}
	out := make(Product, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt64(n)
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func uintToInt64(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

// toFloat64 reports whether v is a JSON-compatible number.
func toFloat64(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case float64:
		f = n
	case float32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case uint:
		f = float64(n)
	default:
		i, ok := toInt64(v)
		if !ok {
			return 0, false
		}
		f = float64(i)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
