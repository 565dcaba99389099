package dispatch

import (
	"fmt"
	"strconv"
)

// Params carries everything a route handler may read from a request: URL
// capture groups (under their group number, "1", "2", ...), query parameters,
// and body fields, merged in that order so body and query win over captures.
type Params map[string]any

// Capture returns the nth regex capture group of the matched route pattern.
func (p Params) Capture(n int) string {
	return p.String(strconv.Itoa(n))
}

// String reads a parameter as string. Missing parameters read as "".
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Int reads a parameter as int, tolerating the JSON number and string forms.
// The bool result reports whether the parameter was present and numeric.
func (p Params) Int(key string) (int, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Bool reads a parameter as bool. Absent or malformed reads as false.
func (p Params) Bool(key string) bool {
	v, ok := p[key]
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

// Has reports whether the parameter came with the request at all.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// StringSlice reads a parameter as a list of strings.
func (p Params) StringSlice(key string) []string {
	v, ok := p[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		return []string{s}
	default:
		return nil
	}
}
