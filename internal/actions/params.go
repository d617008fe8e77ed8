package actions

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Params is the loosely typed parameter bag handed to a handler. Accessors
// coerce rather than fail so that every handler always produces a result.
type Params map[string]any

func (p Params) Has(name string) bool {
	v, ok := p[name]
	return ok && v != nil
}

// String returns the trimmed string form of name, or "".
func (p Params) String(name string) string {
	switch v := p[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// StringOr returns def when name is missing or blank.
func (p Params) StringOr(name, def string) string {
	if s := p.String(name); s != "" {
		return s
	}
	return def
}

// Number reads name as a finite float. Currency prefixes and thousands
// separators in string values are tolerated ("₹1,500", "Rs. 200").
func (p Params) Number(name string) (float64, bool) {
	var f float64
	switch v := p[name].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, ok := parseNumber(v)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (p Params) NumberOr(name string, def float64) float64 {
	if f, ok := p.Number(name); ok {
		return f
	}
	return def
}

// intBound keeps float to int conversion well defined on every platform.
const intBound = math.MaxInt32

// IntOr truncates name to an int, saturating at ±math.MaxInt32.
func (p Params) IntOr(name string, def int) int {
	f, ok := p.Number(name)
	if !ok {
		return def
	}
	return int(max(min(f, intBound), -intBound))
}

// OptionalNumber returns nil when name is missing or not numeric.
func (p Params) OptionalNumber(name string) *float64 {
	if f, ok := p.Number(name); ok {
		return &f
	}
	return nil
}

func (p Params) BoolOr(name string, def bool) bool {
	switch v := p[name].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1", "on":
			return true
		case "false", "no", "n", "0", "off":
			return false
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return def
}

// Strings reads name as a list of non-empty strings. A lone string is split
// on commas.
func (p Params) Strings(name string) []string {
	var out []string
	switch v := p[name].(type) {
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

// Map returns name as an object, or nil.
func (p Params) Map(name string) map[string]any {
	if m, ok := p[name].(map[string]any); ok {
		return m
	}
	return nil
}

// Value returns the raw value, or nil.
func (p Params) Value(name string) any {
	return p[name]
}

func parseNumber(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"₹", "rs.", "rs", "inr", "$", "usd"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// oneOf returns v when it is in allowed, def otherwise.
func oneOf(v string, allowed []string, def string) string {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	return def
}
