package set

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Set is an unordered collection of unique strings.
// The zero value is an empty set ready for reads; use New or Add to populate it.
type Set map[string]struct{}

// New returns a set holding the provided items.
func New(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts items into the set, allocating it when nil.
func (s *Set) Add(items ...string) {
	if *s == nil {
		*s = make(Set, len(items))
	}
	for _, item := range items {
		(*s)[item] = struct{}{}
	}
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s Set) Len() int { return len(s) }

func (s Set) IsEmpty() bool { return len(s) == 0 }

// Intersects reports whether the sets share at least one item.
func (s Set) Intersects(other Set) bool {
	small, big := s, other
	if len(small) > len(big) {
		small, big = big, small
	}
	for item := range small {
		if big.Has(item) {
			return true
		}
	}
	return false
}

// Intersection returns the shared items in sorted order.
func (s Set) Intersection(other Set) []string {
	small, big := s, other
	if len(small) > len(big) {
		small, big = big, small
	}
	var shared []string
	for item := range small {
		if big.Has(item) {
			shared = append(shared, item)
		}
	}
	slices.Sort(shared)
	return shared
}

// Union returns a new set with the items of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for item := range s {
		out[item] = struct{}{}
	}
	for item := range other {
		out[item] = struct{}{}
	}
	return out
}

// Sorted returns the items in lexical order.
func (s Set) Sorted() []string {
	items := make([]string, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	slices.Sort(items)
	return items
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode set: %w", err)
	}
	if items == nil {
		*s = nil
		return nil
	}
	*s = New(items...)
	return nil
}

func (s Set) MarshalYAML() (any, error) {
	return s.Sorted(), nil
}

func (s *Set) UnmarshalYAML(node *yaml.Node) error {
	var items []string
	if err := node.Decode(&items); err != nil {
		return fmt.Errorf("decode set: %w", err)
	}
	*s = New(items...)
	return nil
}

var setType = reflect.TypeOf(Set{})

// DecodeHook lets mapstructure decode sequences of strings into a Set.
func DecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != setType {
			return data, nil
		}

		switch v := data.(type) {
		case nil:
			return Set(nil), nil
		case Set:
			return v, nil
		case []string:
			return New(v...), nil
		case []any:
			out := make(Set, len(v))
			for _, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("set item %v is %T, not a string", item, item)
				}
				out[str] = struct{}{}
			}
			return out, nil
		default:
			return nil, fmt.Errorf("cannot decode %s into a set", from)
		}
	}
}
