/*
Package markers parses "marker comments" from Go source, in the style of
controller-tools, tailored for apigen.

Marker comments start with `// +` and attach metadata to the declaration
they document.

# Basic Usage

	registry := markers.NewRegistry()
	markers.MustRegisterAPIClientMarkers(registry)

	collector := markers.NewCollector(registry, "apiclient")
	values, err := collector.Collect(method.Doc, markers.DescribesMethod)

# Marker Syntax

The marker name is separated from its argument by "=" or by whitespace:

	// +apiclient:client=Placeholder
	// +apiclient:GET "{baseURL}/todos/{id}"
	// +apiclient:query=limit,offset
	// +apiclient:header=User-Agent: {ua}

# Supported Argument Types

- Strings: `name=value` or `name="quoted value"`
- Booleans: `name=true`; a bare `name` means true
- Slices: `name=a,b,c`, `name=a;b;c` or `name={a,b,c}`

# Target Types

- DescribesType: the client interface declaration
- DescribesMethod: a method of the client interface
*/
package markers
