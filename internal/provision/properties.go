package provision

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidProperty  = errors.New("invalid server property")
	ErrReservedProperty = errors.New("disallowed property")
)

// reserved keys are written by Init itself.
var reserved = map[string]bool{
	"level-seed":  true,
	"motd":        true,
	"query.port":  true,
	"server-port": true,
	"white-list":  true,
	"level-name":  true,
}

type Property struct {
	Key   string
	Value string
}

func (p Property) String() string { return p.Key + "=" + p.Value }

// ParseProperty parses a single key=value pair.
func ParseProperty(s string) (Property, error) {
	parts := strings.Split(s, "=")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return Property{}, fmt.Errorf("%w: %q", ErrInvalidProperty, s)
	}
	return newProperty(parts[0], parts[1])
}

func newProperty(key, value string) (Property, error) {
	lower := strings.ToLower(strings.TrimSpace(key))
	if reserved[lower] {
		return Property{}, fmt.Errorf("%w: %s", ErrReservedProperty, lower)
	}
	if strings.ContainsAny(key+value, "\r\n") {
		return Property{}, fmt.Errorf("%w: %q contains a line break", ErrInvalidProperty, key)
	}
	return Property{Key: lower, Value: value}, nil
}

// MergeProperties overlays flag properties on file properties and returns the
// result sorted by key.
func MergeProperties(file map[string]string, flags []string) ([]Property, error) {
	merged := make(map[string]string, len(file)+len(flags))
	for k, v := range file {
		p, err := newProperty(k, v)
		if err != nil {
			return nil, err
		}
		merged[p.Key] = p.Value
	}
	for _, s := range flags {
		p, err := ParseProperty(s)
		if err != nil {
			return nil, err
		}
		merged[p.Key] = p.Value
	}

	out := make([]Property, 0, len(merged))
	for k, v := range merged {
		out = append(out, Property{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
