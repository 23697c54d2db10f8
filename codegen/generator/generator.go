// Package generator emits client structs and methods for parsed +apiclient
// declarations. Every declaration is validated with the same rules the
// runtime applies; an invalid package produces no output.
package generator

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/tools/imports"

	"github.com/vast-data/go-api-client/codegen/parser"
	"github.com/vast-data/go-api-client/core"
)

// reservedMethods are promoted from the embedded *core.Client.
var reservedMethods = map[string]bool{
	"Client":     true,
	"Auth":       true,
	"Config":     true,
	"HTTPClient": true,
	"Logger":     true,
}

// reservedParams are package names the generated code refers to.
var reservedParams = map[string]bool{
	"core":    true,
	"context": true,
}

// Generator renders client source files.
type Generator struct {
	logger *zap.Logger
}

// New returns a Generator. A nil logger disables logging.
func New(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// Validate checks every client of pkg and returns all violations joined.
func (g *Generator) Validate(pkg *parser.Package) error {
	var errs []error
	taken := make(map[string]string)
	claim := func(name, what string, pos fmt.Stringer) {
		if pkg.Declared[name] {
			errs = append(errs, fmt.Errorf("%s: %s %s is already declared in package %s", pos, what, name, pkg.Name))
			return
		}
		if other, ok := taken[name]; ok {
			errs = append(errs, fmt.Errorf("%s: %s %s collides with generated %s", pos, what, name, other))
			return
		}
		taken[name] = what
	}

	if len(pkg.Clients) == 0 {
		return fmt.Errorf("package %s declares no client (add +apiclient:client=<Name> to an interface)", pkg.Name)
	}
	for _, client := range pkg.Clients {
		if !core.IsIdentifier(client.Name) {
			errs = append(errs, fmt.Errorf("%s: client name %q is not a Go identifier", client.Pos, client.Name))
			continue
		}
		names := namesFor(client)
		claim(client.Name, "client struct", client.Pos)
		claim(names.constructor, "constructor", client.Pos)
		claim(names.endpoints, "endpoint list", client.Pos)

		for _, method := range client.Methods {
			if reservedMethods[method.Name] {
				errs = append(errs, fmt.Errorf("%s: method %s collides with the embedded *core.Client", method.Pos, method.Name))
			}
			claim(endpointVar(client, method), "endpoint variable", method.Pos)
			for _, p := range method.Params {
				if reservedParams[p.Name] {
					errs = append(errs, fmt.Errorf("%s: method %s: parameter %s shadows a package used by generated code", method.Pos, method.Name, p.Name))
				}
			}
			if _, err := core.DeclareEndpoint(method.EndpointSpec(pkg.ScopeNames), method.Shape); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", method.Pos, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Generate validates pkg and returns the formatted source of its clients.
// filename is only used for import resolution and messages.
func (g *Generator) Generate(pkg *parser.Package, filename string) ([]byte, error) {
	if err := g.Validate(pkg); err != nil {
		return nil, err
	}

	data := fileData{Package: pkg.Name}
	data.Imports = importsFor(pkg)
	for _, client := range pkg.Clients {
		data.Clients = append(data.Clients, clientDataFor(pkg, client))
		g.logger.Debug("rendering client",
			zap.String("client", client.Name),
			zap.String("interface", client.Interface),
			zap.Int("methods", len(client.Methods)),
		)
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", filename, err)
	}
	src, err := imports.Process(filename, buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format generated source for %s: %w\n%s", filename, err, buf.String())
	}
	return src, nil
}

// GenerateDir parses dir and writes the generated clients to output (a path
// relative to dir when not absolute). It returns the written path.
func (g *Generator) GenerateDir(dir, output string) (string, error) {
	pkg, err := parser.New().ParseDir(dir)
	if err != nil {
		return "", err
	}
	if output == "" {
		output = pkg.Name + parser.GeneratedSuffix
	}
	if !strings.HasSuffix(output, parser.GeneratedSuffix) {
		return "", fmt.Errorf("output file %s must end with %s so it is skipped on regeneration", output, parser.GeneratedSuffix)
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(dir, output)
	}
	src, err := g.Generate(pkg, output)
	if err != nil {
		return "", err
	}
	if err = os.WriteFile(output, src, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", output, err)
	}
	g.logger.Info("generated clients",
		zap.String("package", pkg.Name),
		zap.String("file", output),
		zap.Int("clients", len(pkg.Clients)),
	)
	return output, nil
}

// OutputName maps a declaration file to its generated file, api.go -> api_apigen.go.
func OutputName(declFile string) string {
	base := strings.TrimSuffix(filepath.Base(declFile), ".go")
	return base + parser.GeneratedSuffix
}

//  ######################################################
//              TEMPLATE DATA
//  ######################################################

type fileData struct {
	Package string
	Imports []importSpec
	Clients []clientData
}

type importSpec struct {
	Name string
	Path string
}

type clientData struct {
	Name        string
	Interface   string
	Receiver    string
	Constructor string
	Endpoints   string
	Doc         []string
	Methods     []methodData
}

type methodData struct {
	Name     string
	Var      string
	Result   string
	CtxName  string
	Params   []parser.Param
	Spec     string
	Doc      []string
	Receiver string
}

type clientNames struct {
	constructor string
	endpoints   string
}

func namesFor(client parser.Client) clientNames {
	if isExported(client.Name) {
		return clientNames{
			constructor: "New" + client.Name,
			endpoints:   client.Name + "Endpoints",
		}
	}
	return clientNames{
		constructor: "new" + upperFirst(client.Name),
		endpoints:   client.Name + "Endpoints",
	}
}

func endpointVar(client parser.Client, method parser.Method) string {
	return lowerFirst(client.Name) + method.Name + "Endpoint"
}

func clientDataFor(pkg *parser.Package, client parser.Client) clientData {
	names := namesFor(client)
	data := clientData{
		Name:        client.Name,
		Interface:   client.Interface,
		Receiver:    receiverFor(client),
		Constructor: names.constructor,
		Endpoints:   names.endpoints,
		Doc:         commentLines(client.Doc),
	}
	for _, method := range client.Methods {
		data.Methods = append(data.Methods, methodData{
			Name:     method.Name,
			Var:      endpointVar(client, method),
			Result:   method.Result,
			CtxName:  method.CtxName,
			Params:   method.Params,
			Spec:     specLiteral(pkg, method),
			Doc:      commentLines(method.Doc),
			Receiver: data.Receiver,
		})
	}
	return data
}

// receiverFor picks a receiver name no parameter shadows.
func receiverFor(client parser.Client) string {
	used := make(map[string]bool)
	for _, m := range client.Methods {
		used[m.CtxName] = true
		for _, p := range m.Params {
			used[p.Name] = true
		}
	}
	for _, candidate := range []string{string(unicode.ToLower([]rune(client.Name)[0])), "c", "cl", "apiClient"} {
		if !used[candidate] && !reservedParams[candidate] {
			return candidate
		}
	}
	return "generatedClient"
}

func importsFor(pkg *parser.Package) []importSpec {
	specs := []importSpec{{Path: "context"}, {Path: parser.CoreImportPath}}
	paths := make([]string, 0, len(pkg.Imports))
	for path := range pkg.Imports {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		name := pkg.Imports[path]
		if name == "_" || name == "." {
			continue
		}
		if (path == "context" && (name == "" || name == "context")) ||
			(path == parser.CoreImportPath && (name == "" || name == "core")) {
			continue
		}
		specs = append(specs, importSpec{Name: name, Path: path})
	}
	return specs
}

// specLiteral renders the core.EndpointSpec of method as Go source. Only
// scope names the templates reference are captured.
func specLiteral(pkg *parser.Package, method parser.Method) string {
	var b strings.Builder
	b.WriteString("core.EndpointSpec{\n")
	fmt.Fprintf(&b, "Name: %s,\n", strconv.Quote(method.Name))
	fmt.Fprintf(&b, "Verb: %s,\n", strconv.Quote(method.Verb))
	fmt.Fprintf(&b, "URL: %s,\n", strconv.Quote(method.URL))

	if len(method.Params) > 0 {
		b.WriteString("Params: []core.Param{\n")
		for _, p := range method.Params {
			fmt.Fprintf(&b, "core.%s(%s),\n", paramConstructor(p.Kind), strconv.Quote(p.Name))
		}
		b.WriteString("},\n")
	}

	if scope := referencedScope(pkg, method); len(scope) > 0 {
		b.WriteString("Scope: core.Scope{\n")
		for _, name := range scope {
			fmt.Fprintf(&b, "%s: %s,\n", strconv.Quote(name), name)
		}
		b.WriteString("},\n")
	}

	if len(method.Headers) > 0 {
		b.WriteString("Headers: []core.Header{\n")
		for _, h := range method.Headers {
			fmt.Fprintf(&b, "{Name: %s, Value: %s},\n", strconv.Quote(h.Name), strconv.Quote(h.Value))
		}
		b.WriteString("},\n")
	}

	switch method.Encoding {
	case core.EncodingMsgpack:
		b.WriteString("Encoding: core.EncodingMsgpack,\n")
	case core.EncodingForm:
		b.WriteString("Encoding: core.EncodingForm,\n")
	}
	if method.Multipart == core.MultipartAggregate {
		b.WriteString("Multipart: core.MultipartAggregate,\n")
	}
	if method.AvailableFrom != "" {
		fmt.Fprintf(&b, "AvailableFrom: %s,\n", strconv.Quote(method.AvailableFrom))
	}
	b.WriteString("}")
	return b.String()
}

func paramConstructor(kind core.ParamKind) string {
	switch kind {
	case core.ParamQuery:
		return "QueryParam"
	case core.ParamBody:
		return "BodyParam"
	case core.ParamMultipart:
		return "MultipartParam"
	default:
		return "PathParam"
	}
}

// referencedScope lists the package-level names used by the method's
// templates and not shadowed by a parameter.
func referencedScope(pkg *parser.Package, method parser.Method) []string {
	params := make(map[string]bool, len(method.Params))
	for _, p := range method.Params {
		params[p.Name] = true
	}
	scope := make(map[string]bool, len(pkg.ScopeNames))
	for _, name := range pkg.ScopeNames {
		scope[name] = true
	}

	templates := []string{method.URL}
	for _, h := range method.Headers {
		templates = append(templates, h.Value)
	}
	seen := make(map[string]bool)
	var out []string
	for _, raw := range templates {
		tmpl, err := core.ParseTemplate(raw)
		if err != nil {
			continue
		}
		for _, name := range tmpl.Placeholders() {
			if params[name] || !scope[name] || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func commentLines(doc string) []string {
	if strings.TrimSpace(doc) == "" {
		return nil
	}
	return strings.Split(doc, "\n")
}

func isExported(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
