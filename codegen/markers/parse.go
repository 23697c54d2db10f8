package markers

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a marker text into a typed value using the definition.
func (d *Definition) Parse(markerText string) (interface{}, error) {
	name, args := splitMarker(markerText)
	if name != d.Name {
		return nil, fmt.Errorf("marker name mismatch: expected %s, got %s", d.Name, name)
	}

	switch d.Argument {
	case StringType:
		return parseString(args)
	case SliceType:
		return parseSlice(args)
	}
	return nil, fmt.Errorf("unsupported argument type: %v", d.Argument)
}

// parseString accepts bare text or a Go-quoted string.
func parseString(value string) (string, error) {
	if len(value) >= 2 && (value[0] == '"' || value[0] == '`') && value[len(value)-1] == value[0] {
		unquoted, err := strconv.Unquote(value)
		if err != nil {
			return "", fmt.Errorf("invalid quoted string: %s", value)
		}
		return unquoted, nil
	}
	return value, nil
}

// parseSlice parses a slice value like "{val1,val2,val3}", "val1,val2" or "val1;val2".
func parseSlice(value string) ([]string, error) {
	if strings.HasPrefix(value, "{") {
		if !strings.HasSuffix(value, "}") {
			return nil, fmt.Errorf("unterminated slice: %s", value)
		}
		value = value[1 : len(value)-1]
	}
	items := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		unquoted, err := parseString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, unquoted)
	}
	return out, nil
}

// isMarkerComment checks if a comment text is a marker (starts with +).
func isMarkerComment(comment string) bool {
	if len(comment) < 3 || !strings.HasPrefix(comment, "//") {
		return false
	}
	// Remove "//" prefix
	text := strings.TrimSpace(comment[2:])
	return len(text) > 0 && text[0] == '+'
}

// extractMarkerText extracts the marker text from a comment, removing "//" and whitespace.
func extractMarkerText(comment string) string {
	if len(comment) < 2 {
		return ""
	}
	return strings.TrimSpace(comment[2:])
}
