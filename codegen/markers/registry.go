package markers

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"
)

// Registry holds all registered marker definitions and provides lookup functionality.
type Registry struct {
	definitions map[string]*Definition
}

// NewRegistry creates a new marker registry.
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]*Definition),
	}
}

// Register adds a marker definition to the registry.
// name: the marker name (e.g., "apiclient:client")
// target: what the marker can be applied to (type, method)
// outputType: a value of the Go type the marker parses into (string, bool or []string)
// description: help text for the marker
func (r *Registry) Register(name string, target TargetType, outputType interface{}, description string) error {
	if _, exists := r.definitions[name]; exists {
		return fmt.Errorf("marker %s is already registered", name)
	}
	def := &Definition{
		Name:        name,
		Target:      target,
		OutputType:  reflect.TypeOf(outputType),
		Description: description,
	}
	argType, err := argumentFromType(def.OutputType)
	if err != nil {
		return fmt.Errorf("failed to analyze output type for marker %s: %w", name, err)
	}
	def.Argument = argType

	r.definitions[name] = def
	return nil
}

// Lookup finds a marker definition by name and target type.
func (r *Registry) Lookup(markerText string, target TargetType) *Definition {
	def, exists := r.definitions[extractMarkerName(markerText)]
	if !exists || def.Target != target {
		return nil
	}
	return def
}

// GetDefinition returns a marker definition by name, regardless of target type.
func (r *Registry) GetDefinition(name string) *Definition {
	return r.definitions[name]
}

// ListDefinitions returns all registered marker definitions sorted by name.
func (r *Registry) ListDefinitions() []*Definition {
	result := make([]*Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// extractMarkerName extracts the marker name from marker text.
// For example, `+apiclient:GET "/x"` -> "apiclient:GET"
func extractMarkerName(markerText string) string {
	name, _ := splitMarker(markerText)
	return name
}

// splitMarker splits a marker into name and arguments at the first "=" or
// whitespace, whichever comes first.
// Example: "apiclient:client=Placeholder" -> ("apiclient:client", "Placeholder")
func splitMarker(markerText string) (string, string) {
	markerText = strings.TrimPrefix(strings.TrimSpace(markerText), "+")
	idx := strings.IndexFunc(markerText, func(r rune) bool {
		return r == '=' || unicode.IsSpace(r)
	})
	if idx < 0 {
		return markerText, ""
	}
	return markerText[:idx], strings.TrimSpace(markerText[idx+1:])
}

// argumentFromType maps a reflect.Type to the argument kind it parses into.
func argumentFromType(typ reflect.Type) (ArgumentType, error) {
	if typ == nil {
		return InvalidType, fmt.Errorf("nil output type")
	}
	switch typ.Kind() {
	case reflect.String:
		return StringType, nil
	case reflect.Slice:
		if typ.Elem().Kind() != reflect.String {
			return InvalidType, fmt.Errorf("slice element type must be string, got %s", typ.Elem().Kind())
		}
		return SliceType, nil
	}
	return InvalidType, fmt.Errorf("unsupported type: %s", typ.Kind())
}
