package apiclient

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Values is an ordered set of query parameters. Unset values are skipped,
// so callers can pass optional filter fields straight through:
//
//	q := apiclient.Values{}
//	q.Set("role", filter.Role).Set("limit", filter.Limit)
//
// A value is unset when it is nil, a nil pointer, or an empty string.
// Zero numbers are kept: Modbus address 0 is a real address.
type Values struct {
	keys []string
	vals []string
}

// Set appends key=value unless value is unset. Repeated keys are appended
// as repeated parameters.
func (v *Values) Set(key string, value any) *Values {
	s, ok := formatValue(value)
	if !ok {
		return v
	}
	v.keys = append(v.keys, key)
	v.vals = append(v.vals, s)
	return v
}

// Merge appends every parameter of other.
func (v *Values) Merge(other Values) *Values {
	v.keys = append(v.keys, other.keys...)
	v.vals = append(v.vals, other.vals...)
	return v
}

// Get returns the first value for key.
func (v Values) Get(key string) (string, bool) {
	for i, k := range v.keys {
		if k == key {
			return v.vals[i], true
		}
	}
	return "", false
}

// Len returns the number of parameters.
func (v Values) Len() int {
	return len(v.keys)
}

// Encode renders the parameters in insertion order without a leading "?".
func (v Values) Encode() string {
	var b strings.Builder
	for i, k := range v.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v.vals[i]))
	}
	return b.String()
}

// String renders the parameters with a leading "?", or "" when empty.
func (v Values) String() string {
	if len(v.keys) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// BuildQuery composes a query string from a mapping of optional values.
// Keys are emitted in sorted order. It returns "" when every value is unset.
func BuildQuery(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var v Values
	for _, k := range keys {
		v.Set(k, params[k])
	}
	return v.String()
}

// Ptr returns a pointer to value. Handy for optional filter fields.
func Ptr[T any](value T) *T {
	return &value
}

func formatValue(value any) (string, bool) {
	if value == nil {
		return "", false
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		s := rv.String()
		return s, s != ""
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}

	if s, ok := rv.Interface().(fmt.Stringer); ok {
		str := s.String()
		return str, str != ""
	}
	return fmt.Sprint(rv.Interface()), true
}
