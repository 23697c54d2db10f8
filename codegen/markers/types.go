package markers

import (
	"go/token"
	"reflect"
)

// TargetType describes which kind of Go construct a marker can be applied to.
type TargetType int

const (
	// DescribesType indicates that a marker is associated with a type declaration.
	DescribesType TargetType = iota
	// DescribesMethod indicates that a marker is associated with an interface method.
	DescribesMethod
)

func (t TargetType) String() string {
	switch t {
	case DescribesType:
		return "type"
	case DescribesMethod:
		return "method"
	default:
		return "unknown"
	}
}

// ArgumentType represents the type of marker arguments.
type ArgumentType int

const (
	// InvalidType represents a type that can't be parsed.
	InvalidType ArgumentType = iota
	// StringType is a string argument.
	StringType
	// SliceType is a slice of strings.
	SliceType
)

// Definition defines how to parse a specific marker.
type Definition struct {
	// Name is the marker's name (e.g., "apiclient:client").
	Name string
	// Target indicates which Go constructs this marker can be applied to.
	Target TargetType
	// OutputType is the Go type that this marker parses into.
	OutputType reflect.Type
	// Argument is the argument kind derived from OutputType.
	Argument ArgumentType
	// Repeatable markers may appear more than once on one declaration.
	Repeatable bool
	// Description provides help text for this marker.
	Description string
}

// MarkerValue represents a parsed marker with its source position.
type MarkerValue struct {
	// Name is the marker name.
	Name string `json:"name"`
	// Value is the parsed marker value.
	Value interface{} `json:"value"`
	// Target indicates what type of construct this marker describes.
	Target TargetType `json:"target"`
	// Position is the source position of the marker comment.
	Position token.Pos `json:"position"`
}

// MarkerValues maps marker names to their parsed values in source order.
type MarkerValues map[string][]MarkerValue

// Get returns the first value for the given marker name, or nil if not found.
func (v MarkerValues) Get(name string) interface{} {
	vals := v[name]
	if len(vals) == 0 {
		return nil
	}
	return vals[0].Value
}

// GetAll returns all values for the given marker name.
func (v MarkerValues) GetAll(name string) []MarkerValue {
	return v[name]
}

// Has returns true if the marker name exists (even with empty values).
func (v MarkerValues) Has(name string) bool {
	_, exists := v[name]
	return exists
}

// String returns the first value of a string marker.
func (v MarkerValues) String(name string) string {
	s, _ := v.Get(name).(string)
	return s
}

// Strings concatenates every value of a slice marker.
func (v MarkerValues) Strings(name string) []string {
	var out []string
	for _, mv := range v[name] {
		if items, ok := mv.Value.([]string); ok {
			out = append(out, items...)
		}
	}
	return out
}
