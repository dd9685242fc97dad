// Package convert turns loosely typed request argument values into the
// concrete net/http types the session needs.
package convert

import (
	"errors"
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"
)

// ErrUnsupportedType is returned when a value has a Go type the conversion
// does not accept.
var ErrUnsupportedType = errors.New("unsupported type")

func unsupported(v any) error {
	return fmt.Errorf("%w %T", ErrUnsupportedType, v)
}

// String renders a scalar value. Strings and byte slices are used as is,
// fmt.Stringer is honoured, everything else goes through fmt.Sprint.
func String(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// stringList expands v into one or more string values. Slices become one value
// per element.
func stringList(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, String(item))
		}
		return out
	case []int:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, strconv.Itoa(item))
		}
		return out
	default:
		return []string{String(v)}
	}
}

// Values converts query parameter or form values. Accepted inputs are
// url.Values, map[string]string, map[string][]string and map[string]any.
func Values(v any) (url.Values, error) {
	switch m := v.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return m, nil
	case map[string][]string:
		return url.Values(m), nil
	case map[string]string:
		out := make(url.Values, len(m))
		for k, value := range m {
			out.Set(k, value)
		}
		return out, nil
	case map[string]any:
		out := make(url.Values, len(m))
		for k, value := range m {
			for _, s := range stringList(value) {
				out.Add(k, s)
			}
		}
		return out, nil
	default:
		return nil, unsupported(v)
	}
}

// Header converts header values, canonicalising every key. Accepted inputs
// are http.Header, map[string]string, map[string][]string and
// map[string]any.
func Header(v any) (http.Header, error) {
	var raw map[string][]string
	switch m := v.(type) {
	case nil:
		return http.Header{}, nil
	case http.Header:
		raw = m
	case map[string][]string:
		raw = m
	case map[string]string:
		raw = make(map[string][]string, len(m))
		for k, value := range m {
			raw[k] = []string{value}
		}
	case map[string]any:
		raw = make(map[string][]string, len(m))
		for k, value := range m {
			raw[k] = stringList(value)
		}
	default:
		return nil, unsupported(v)
	}

	out := make(http.Header, len(raw))
	for k, values := range raw {
		key := textproto.CanonicalMIMEHeaderKey(k)
		out[key] = append(out[key], values...)
	}
	return out, nil
}

// StringMap converts a flat string mapping such as cookies or proxies.
func StringMap(v any) (map[string]string, error) {
	switch m := v.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, value := range m {
			out[k] = String(value)
		}
		return out, nil
	default:
		return nil, unsupported(v)
	}
}

// Duration converts a timeout. Numbers are seconds, strings use
// time.ParseDuration syntax.
func Duration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case int:
		return time.Duration(d) * time.Second, nil
	case int64:
		return time.Duration(d) * time.Second, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	case string:
		return time.ParseDuration(d)
	default:
		return 0, unsupported(v)
	}
}

// Bool converts a flag. Strings use strconv.ParseBool syntax.
func Bool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	default:
		return false, unsupported(v)
	}
}

// Pair converts a two element value such as a certificate and key path.
func Pair(v any) (first, second string, err error) {
	switch p := v.(type) {
	case [2]string:
		return p[0], p[1], nil
	case []string:
		if len(p) != 2 {
			return "", "", fmt.Errorf("want 2 elements, got %d", len(p))
		}
		return p[0], p[1], nil
	default:
		return "", "", unsupported(v)
	}
}
