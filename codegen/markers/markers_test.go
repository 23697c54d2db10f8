package markers

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, RegisterAPIClientMarkers(registry))
	return registry
}

func TestSplitMarker(t *testing.T) {
	tests := []struct {
		text, name, args string
	}{
		{"+apiclient:client=Placeholder", "apiclient:client", "Placeholder"},
		{`+apiclient:GET "{base}/todos/{id}?a=b"`, "apiclient:GET", `"{base}/todos/{id}?a=b"`},
		{"+apiclient:header=User-Agent: {ua}", "apiclient:header", "User-Agent: {ua}"},
		{"+apiclient:flag", "apiclient:flag", ""},
	}
	for _, tt := range tests {
		name, args := splitMarker(tt.text)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.args, args)
	}
}

func TestDefinitionParse(t *testing.T) {
	registry := newRegistry(t)

	url, err := registry.GetDefinition("apiclient:GET").Parse(`+apiclient:GET "https://h/{id}"`)
	require.NoError(t, err)
	assert.Equal(t, "https://h/{id}", url)

	bare, err := registry.GetDefinition("apiclient:GET").Parse(`+apiclient:GET https://h/{id}`)
	require.NoError(t, err)
	assert.Equal(t, "https://h/{id}", bare)

	query, err := registry.GetDefinition(MarkerQuery).Parse("+apiclient:query=limit, offset;sort")
	require.NoError(t, err)
	assert.Equal(t, []string{"limit", "offset", "sort"}, query)

	braces, err := registry.GetDefinition(MarkerQuery).Parse("+apiclient:query={a,b}")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, braces)

	_, err = registry.GetDefinition(MarkerQuery).Parse("+apiclient:query={a,b")
	assert.Error(t, err)

	_, err = registry.GetDefinition(MarkerBody).Parse("+apiclient:query=x")
	assert.ErrorContains(t, err, "mismatch")
}

func TestRegistry(t *testing.T) {
	registry := newRegistry(t)
	assert.NotNil(t, registry.Lookup("+apiclient:client=X", DescribesType))
	assert.Nil(t, registry.Lookup("+apiclient:client=X", DescribesMethod))
	assert.Error(t, registry.Register(MarkerBody, DescribesMethod, "", "again"))
	assert.Error(t, registry.Register("x:bad", DescribesMethod, 42, "ints are not supported"))
	assert.ErrorContains(t, registry.Register("x:flag", DescribesMethod, true, "flags take a value"), "unsupported type: bool")
	assert.Len(t, registry.ListDefinitions(), 8+len(Verbs))
}

const collectSrc = `package p

// API is the remote API.
// +apiclient:client=Client
// +other:tool=ignored
type API interface {
	// Todo fetches one todo.
	// +apiclient:GET "{base}/todos/{id}"
	// +apiclient:header=Accept: application/json
	// +apiclient:header=X-Trace: {id}
	// +apiclient:query=a
	// +apiclient:query=b,c
	Todo()

	// +apiclient:client=Nope
	Misplaced()

	// +apiclient:POST "/a"
	// +apiclient:POST "/b"
	Twice()

	// +apiclient:frobnicate
	Unknown()
}
`

func TestCollector(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", collectSrc, parser.ParseComments)
	require.NoError(t, err)
	collector := NewCollector(newRegistry(t), Prefix)

	decl := file.Decls[0].(*ast.GenDecl)
	typeMarkers, err := collector.Collect(fset, decl.Doc, DescribesType)
	require.NoError(t, err)
	assert.Equal(t, "Client", typeMarkers.String(MarkerClient))
	assert.Len(t, typeMarkers, 1)

	methods := decl.Specs[0].(*ast.TypeSpec).Type.(*ast.InterfaceType).Methods.List
	todo, err := collector.Collect(fset, methods[0].Doc, DescribesMethod)
	require.NoError(t, err)
	assert.Equal(t, "{base}/todos/{id}", todo.String("apiclient:GET"))
	assert.Len(t, todo.GetAll(MarkerHeader), 2)
	assert.Equal(t, []string{"a", "b", "c"}, todo.Strings(MarkerQuery))

	_, err = collector.Collect(fset, methods[1].Doc, DescribesMethod)
	assert.ErrorContains(t, err, "describes a type, not a method")

	_, err = collector.Collect(fset, methods[2].Doc, DescribesMethod)
	assert.ErrorContains(t, err, "may appear only once")

	_, err = collector.Collect(fset, methods[3].Doc, DescribesMethod)
	assert.ErrorContains(t, err, "p.go:22")
	assert.ErrorContains(t, err, "unknown marker +apiclient:frobnicate")
}
