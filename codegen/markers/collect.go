package markers

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"
)

// Collector extracts registered markers from doc comments. Markers outside
// its prefix are left alone so other tools can share the same comments.
type Collector struct {
	registry *Registry
	prefix   string
}

// NewCollector returns a Collector for markers named "<prefix>:...".
func NewCollector(registry *Registry, prefix string) *Collector {
	return &Collector{registry: registry, prefix: prefix + ":"}
}

// Collect parses the markers of one declaration. Unknown markers within the
// prefix, markers on the wrong target, and repeated single-use markers are errors.
func (c *Collector) Collect(fset *token.FileSet, doc *ast.CommentGroup, target TargetType) (MarkerValues, error) {
	values := make(MarkerValues)
	if doc == nil {
		return values, nil
	}
	for _, comment := range doc.List {
		if !isMarkerComment(comment.Text) {
			continue
		}
		text := extractMarkerText(comment.Text)
		name := extractMarkerName(text)
		if !strings.HasPrefix(name, c.prefix) {
			continue
		}
		pos := fset.Position(comment.Slash)

		def := c.registry.Lookup(text, target)
		if def == nil {
			if other := c.registry.GetDefinition(name); other != nil {
				return nil, fmt.Errorf("%s: marker +%s describes a %s, not a %s", pos, name, other.Target, target)
			}
			return nil, fmt.Errorf("%s: unknown marker +%s", pos, name)
		}
		if values.Has(name) && !def.Repeatable {
			return nil, fmt.Errorf("%s: marker +%s may appear only once", pos, name)
		}
		value, err := def.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%s: marker +%s: %w", pos, name, err)
		}
		values[name] = append(values[name], MarkerValue{
			Name:     name,
			Value:    value,
			Target:   target,
			Position: comment.Slash,
		})
	}
	return values, nil
}
