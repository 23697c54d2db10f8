// Package openapi turns an OpenAPI 3 document into +apiclient declaration
// source that the generator can consume.
package openapi

import (
	"fmt"
	"go/token"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
	"golang.org/x/tools/imports"

	"github.com/vast-data/go-api-client/codegen/markers"
)

// Options controls the emitted declaration file.
type Options struct {
	Package   string // default "api"
	Interface string // default "API"
	Client    string // generated struct name, default "Client"
	Logger    *zap.Logger
}

func (o *Options) setDefaults() {
	if o.Package == "" {
		o.Package = "api"
	}
	if o.Interface == "" {
		o.Interface = "API"
	}
	if o.Client == "" {
		o.Client = "Client"
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// LoadFile reads and validates an OpenAPI document from a JSON or YAML file.
func LoadFile(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document %s: %w", path, err)
	}
	return doc, nil
}

// LoadData parses an OpenAPI document held in memory.
func LoadData(data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	return doc, nil
}

// Import renders the declaration source for every operation of doc. URLs are
// relative to Config.BaseURL; the first server becomes DefaultBaseURL.
func Import(doc *openapi3.T, opts Options) ([]byte, error) {
	opts.setDefaults()
	if doc == nil || doc.Paths == nil {
		return nil, fmt.Errorf("OpenAPI document has no paths")
	}
	if !token.IsIdentifier(opts.Interface) || !token.IsIdentifier(opts.Client) {
		return nil, fmt.Errorf("interface %q and client %q must be Go identifiers", opts.Interface, opts.Client)
	}

	var ops []operation
	usedNames := make(map[string]bool)
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	for _, path := range keys {
		item := paths[path]
		byVerb := item.Operations()
		for _, verb := range markers.Verbs {
			op, ok := byVerb[verb]
			if !ok || op == nil {
				continue
			}
			converted := convertOperation(path, verb, item, op, usedNames)
			for _, skipped := range converted.skipped {
				opts.Logger.Warn("skipping parameter",
					zap.String("operation", converted.name),
					zap.String("parameter", skipped),
				)
			}
			ops = append(ops, converted)
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("OpenAPI document declares no operations")
	}

	src := render(doc, opts, ops)
	out, err := imports.Process(opts.Package+".go", []byte(src), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format declaration source: %w\n%s", err, src)
	}
	opts.Logger.Info("imported OpenAPI document",
		zap.String("title", infoTitle(doc)),
		zap.Int("operations", len(ops)),
	)
	return out, nil
}

type operation struct {
	name      string
	verb      string
	url       string
	summary   string
	params    []param
	body      *param
	encoding  string
	multipart bool
	result    string
	skipped   []string
}

type param struct {
	name string
	typ  string
	in   string
}

func convertOperation(path, verb string, item *openapi3.PathItem, op *openapi3.Operation, usedNames map[string]bool) operation {
	out := operation{
		name:    uniqueName(methodName(op.OperationID, verb, path), usedNames),
		verb:    verb,
		url:     path,
		summary: strings.TrimSpace(op.Summary),
	}
	taken := map[string]bool{"ctx": true, "core": true, "context": true}

	parameters := append(openapi3.Parameters{}, item.Parameters...)
	parameters = append(parameters, op.Parameters...)
	for _, ref := range parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		switch p.In {
		case openapi3.ParameterInPath:
			name := uniqueName(identifier(p.Name), taken)
			out.url = strings.ReplaceAll(out.url, "{"+p.Name+"}", "{"+name+"}")
			out.params = append(out.params, param{name: name, typ: goType(p.Schema, true), in: p.In})
		case openapi3.ParameterInQuery:
			// The parameter name is the query key, so it cannot be renamed.
			if !token.IsIdentifier(p.Name) || taken[p.Name] {
				out.skipped = append(out.skipped, p.Name)
				continue
			}
			taken[p.Name] = true
			out.params = append(out.params, param{name: p.Name, typ: goType(p.Schema, p.Required), in: p.In})
		default:
			out.skipped = append(out.skipped, p.In+":"+p.Name)
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		content := op.RequestBody.Value.Content
		body := param{name: uniqueName("body", taken), in: "body"}
		switch {
		case content.Get("application/json") != nil:
			body.typ = bodyType(content.Get("application/json").Schema)
		case content.Get("application/msgpack") != nil || content.Get("application/x-msgpack") != nil:
			body.typ = "map[string]any"
			out.encoding = "msgpack"
		case content.Get("application/x-www-form-urlencoded") != nil:
			body.typ = "map[string]string"
			out.encoding = "form"
		case content.Get("multipart/form-data") != nil:
			body.name = uniqueName("parts", taken)
			body.typ = "core.Parts"
			out.multipart = true
		default:
			body.typ = "map[string]any"
		}
		out.body = &body
	}

	out.result = resultType(op.Responses)
	return out
}

// resultType picks the Go result for the lowest 2xx response.
func resultType(responses *openapi3.Responses) string {
	if responses == nil {
		return "core.StatusCode"
	}
	var codes []int
	for code := range responses.Map() {
		if n, err := strconv.Atoi(code); err == nil && n >= 200 && n < 300 {
			codes = append(codes, n)
		}
	}
	if len(codes) == 0 {
		return "core.StatusCode"
	}
	sort.Ints(codes)
	ref := responses.Status(codes[0])
	if codes[0] == 204 || ref == nil || ref.Value == nil || len(ref.Value.Content) == 0 {
		return "core.StatusCode"
	}

	content := ref.Value.Content
	for mediaType, media := range content {
		if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
			if media == nil {
				return "map[string]any"
			}
			return bodyType(media.Schema)
		}
	}
	for mediaType := range content {
		if strings.HasPrefix(mediaType, "text/") {
			return "string"
		}
	}
	return "[]byte"
}

func bodyType(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil || ref.Value.Type == nil {
		return "map[string]any"
	}
	switch {
	case ref.Value.Type.Is(openapi3.TypeArray):
		return "[]any"
	case ref.Value.Type.Is(openapi3.TypeObject):
		return "map[string]any"
	default:
		return "any"
	}
}

// goType maps a parameter schema to a Go type. Optional scalars become
// pointers so that nil leaves them out of the query.
func goType(ref *openapi3.SchemaRef, required bool) string {
	if ref == nil || ref.Value == nil {
		return "string"
	}
	schema := ref.Value
	if schema.Type != nil && schema.Type.Is(openapi3.TypeArray) {
		return "[]" + goType(schema.Items, true)
	}
	var typ string
	switch {
	case schema.Type == nil:
		typ = "string"
	case schema.Type.Is(openapi3.TypeInteger):
		if schema.Format == "int32" {
			typ = "int32"
		} else {
			typ = "int64"
		}
	case schema.Type.Is(openapi3.TypeNumber):
		typ = "float64"
	case schema.Type.Is(openapi3.TypeBoolean):
		typ = "bool"
	default:
		typ = "string"
	}
	if !required {
		return "*" + typ
	}
	return typ
}

func render(doc *openapi3.T, opts Options, ops []operation) string {
	var b strings.Builder
	b.WriteString("package " + opts.Package + "\n\n")
	b.WriteString("import (\n\t\"context\"\n\n\t\"github.com/vast-data/go-api-client/core\"\n)\n\n")

	if len(doc.Servers) > 0 && doc.Servers[0] != nil && doc.Servers[0].URL != "" {
		b.WriteString("// DefaultBaseURL is the first server of the document.\n")
		fmt.Fprintf(&b, "const DefaultBaseURL = %s\n\n", strconv.Quote(strings.TrimSuffix(doc.Servers[0].URL, "/")))
	}

	if title := infoTitle(doc); title != "" {
		fmt.Fprintf(&b, "// %s is generated from %q.\n", opts.Interface, title)
	}
	fmt.Fprintf(&b, "// +%s=%s\n", markers.MarkerClient, opts.Client)
	fmt.Fprintf(&b, "type %s interface {\n", opts.Interface)
	for i, op := range ops {
		if i > 0 {
			b.WriteString("\n")
		}
		if op.summary != "" {
			for _, line := range strings.Split(op.summary, "\n") {
				fmt.Fprintf(&b, "\t// %s\n", strings.TrimSpace(line))
			}
		}
		fmt.Fprintf(&b, "\t// +%s %s\n", markers.VerbMarker(op.verb), strconv.Quote(op.url))

		var query []string
		for _, p := range op.params {
			if p.in == openapi3.ParameterInQuery {
				query = append(query, p.name)
			}
		}
		if len(query) > 0 {
			fmt.Fprintf(&b, "\t// +%s=%s\n", markers.MarkerQuery, strings.Join(query, ","))
		}
		if op.body != nil {
			if op.multipart {
				fmt.Fprintf(&b, "\t// +%s=%s\n", markers.MarkerMultipart, op.body.name)
				fmt.Fprintf(&b, "\t// +%s=aggregate\n", markers.MarkerMultipartMode)
			} else {
				fmt.Fprintf(&b, "\t// +%s=%s\n", markers.MarkerBody, op.body.name)
			}
			if op.encoding != "" {
				fmt.Fprintf(&b, "\t// +%s=%s\n", markers.MarkerEncoding, op.encoding)
			}
		}

		args := []string{"ctx context.Context"}
		for _, p := range op.params {
			args = append(args, p.name+" "+p.typ)
		}
		if op.body != nil {
			args = append(args, op.body.name+" "+op.body.typ)
		}
		fmt.Fprintf(&b, "\t%s(%s) (%s, error)\n", op.name, strings.Join(args, ", "), op.result)
	}
	b.WriteString("}\n")
	return b.String()
}

func infoTitle(doc *openapi3.T) string {
	if doc.Info == nil {
		return ""
	}
	return strings.TrimSpace(doc.Info.Title)
}

// methodName derives an exported method name from the operationId, or from
// the verb and path when there is none.
func methodName(operationID, verb, path string) string {
	name := exported(operationID)
	if name == "" {
		name = exported(strings.ToLower(verb) + " " + path)
	}
	if name == "" || !token.IsIdentifier(name) {
		name = "Op" + name
	}
	return name
}

func exported(s string) string {
	var b strings.Builder
	for _, word := range splitWords(s) {
		r := []rune(word)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// identifier makes a lowerCamel Go identifier out of a parameter name.
func identifier(s string) string {
	words := splitWords(s)
	if len(words) == 0 {
		return "param"
	}
	var b strings.Builder
	for i, word := range words {
		r := []rune(word)
		if i == 0 {
			r[0] = unicode.ToLower(r[0])
		} else {
			r[0] = unicode.ToUpper(r[0])
		}
		b.WriteString(string(r))
	}
	name := b.String()
	if unicode.IsDigit([]rune(name)[0]) {
		name = "p" + name
	}
	if token.IsKeyword(name) {
		name += "Param"
	}
	return name
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniqueName(name string, taken map[string]bool) string {
	candidate := name
	for i := 2; taken[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	taken[candidate] = true
	return candidate
}
