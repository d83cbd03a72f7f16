package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// Args wraps the argument mapping supplied by the model
type Args map[string]interface{}

// String returns a required string argument
func (a Args) String(name string) (string, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, raw)
	}
	return s, nil
}

// OptionalString returns a string argument or def when absent
func (a Args) OptionalString(name, def string) (string, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, raw)
	}
	return s, nil
}

// Bool returns a boolean argument or def when absent. Models sometimes send
// booleans as strings, so "true"/"false" are accepted too.
func (a Args) Bool(name string, def bool) (bool, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("argument %q must be a boolean, got %q", name, v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("argument %q must be a boolean, got %T", name, raw)
	}
}

// StringSlice returns an array-of-strings argument. Scalars are stringified.
func (a Args) StringSlice(name string) ([]string, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case nil:
				return nil, fmt.Errorf("argument %q contains a null element", name)
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("argument %q must be an array of strings, got %T", name, raw)
	}
}
