package normalize

import (
	"strconv"
	"strings"
)

// propReader resolves heterogeneous source property names against known
// aliases. Lookups are case-insensitive; the first alias with a usable
// value wins.
type propReader struct {
	props map[string]interface{}
}

func newPropReader(props map[string]interface{}) propReader {
	lowered := make(map[string]interface{}, len(props))
	for k, v := range props {
		lowered[strings.ToLower(k)] = v
	}
	return propReader{props: lowered}
}

func rowProps(row map[string]string) map[string]interface{} {
	props := make(map[string]interface{}, len(row))
	for k, v := range row {
		if v == "" {
			continue
		}
		props[k] = v
	}
	return props
}

func (p propReader) lookup(aliases []string) (interface{}, bool) {
	for _, a := range aliases {
		if v, ok := p.props[a]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// str returns the value as a string pointer, nil when absent. Numeric
// values are formatted so numeric identifiers survive normalization.
func (p propReader) str(aliases ...string) *string {
	v, ok := p.lookup(aliases)
	if !ok {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	return &s
}

func (p propReader) float(aliases ...string) *float64 {
	v, ok := p.lookup(aliases)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}

func (p propReader) int(aliases ...string) *int {
	if f := p.float(aliases...); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}

// flag coerces a categorical mode flag: absent or null is 0, any truthy
// numeric is 1. The result is always 0 or 1.
func (p propReader) flag(aliases ...string) int {
	if f := p.float(aliases...); f != nil && *f != 0 {
		return 1
	}
	return 0
}
