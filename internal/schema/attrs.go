package schema

import (
	"fmt"
	"math"
	"sort"
)

// AttrType is the value type of a recognized attribute.
type AttrType string

const (
	TypeString     AttrType = "string"
	TypeInt        AttrType = "int"
	TypeBool       AttrType = "bool"
	TypeFloat      AttrType = "float"
	TypeStringList AttrType = "string[]"
)

// Attr declares one recognized attribute of a kind.
type Attr struct {
	Name     string
	Type     AttrType
	Required bool
}

func required(name string, t AttrType) Attr { return Attr{Name: name, Type: t, Required: true} }
func optional(name string, t AttrType) Attr { return Attr{Name: name, Type: t} }

// Properties holds the kind-specific attributes of a node or relationship.
// Values are normalized to string, int64, bool, float64 or []string.
type Properties map[string]any

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Properties) String(name string) string {
	s, _ := p[name].(string)
	return s
}

func (p Properties) Int(name string) int64 {
	v, _ := normalize(TypeInt, p[name])
	n, _ := v.(int64)
	return n
}

func (p Properties) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

func (p Properties) Strings(name string) []string {
	v, _ := normalize(TypeStringList, p[name])
	s, _ := v.([]string)
	return s
}

// normalize coerces v to the canonical Go type of t. Values decoded from JSON
// or returned by a store (float64 numbers, []any lists) are accepted.
func normalize(t AttrType, v any) (any, error) {
	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == math.Trunc(n) {
				return int64(n), nil
			}
		}
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case TypeStringList:
		switch l := v.(type) {
		case []string:
			return l, nil
		case []any:
			out := make([]string, 0, len(l))
			for _, item := range l {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("list item %v is %T, want string", item, item)
				}
				out = append(out, s)
			}
			return out, nil
		case nil:
			return []string{}, nil
		}
	default:
		return nil, fmt.Errorf("unknown attribute type %q", t)
	}
	return nil, fmt.Errorf("value %v is %T, want %s", v, v, t)
}
