// Package parser reads Go interfaces annotated with +apiclient markers and
// turns them into client declarations for the generator.
package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vast-data/go-api-client/codegen/markers"
	"github.com/vast-data/go-api-client/core"
)

// Import paths of the runtime. Generated code calls into core; the root
// package re-exports its types.
const (
	CoreImportPath = "github.com/vast-data/go-api-client/core"
	RootImportPath = "github.com/vast-data/go-api-client"
)

// GeneratedSuffix marks files written by the generator. They are skipped
// when a package is parsed.
const GeneratedSuffix = "_apigen.go"

// Package is a parsed Go package holding one or more client declarations.
type Package struct {
	Name string
	Dir  string
	// Declared holds every top-level identifier of the package.
	Declared map[string]bool
	// ScopeNames are the package-level const and var names templates may reference.
	ScopeNames []string
	// Imports are the imports of the files declaring clients, keyed by path.
	Imports map[string]string
	Clients []Client
}

// Client is one interface marked with +apiclient:client.
type Client struct {
	Name      string // generated struct name
	Interface string
	Methods   []Method
	Doc       string
	Pos       token.Position
}

// Method is one interface method with its request declaration.
type Method struct {
	Name          string
	Verb          string
	URL           string
	CtxName       string
	Params        []Param
	Result        string // result type as written in source
	Shape         core.Shape
	Headers       []core.Header
	Encoding      core.Encoding
	Multipart     core.MultipartMode
	AvailableFrom string
	Doc           string
	Pos           token.Position
}

// Param is one method parameter after the context.
type Param struct {
	Name string
	Type string
	Kind core.ParamKind
}

// EndpointSpec builds the runtime declaration of m. Scope values are
// placeholders: only their names matter for validation.
func (m Method) EndpointSpec(scopeNames []string) core.EndpointSpec {
	spec := core.EndpointSpec{
		Name:          m.Name,
		Verb:          m.Verb,
		URL:           m.URL,
		Headers:       m.Headers,
		Encoding:      m.Encoding,
		Multipart:     m.Multipart,
		AvailableFrom: m.AvailableFrom,
	}
	for _, p := range m.Params {
		spec.Params = append(spec.Params, core.Param{Name: p.Name, Kind: p.Kind})
	}
	if len(scopeNames) > 0 {
		spec.Scope = make(core.Scope, len(scopeNames))
		for _, name := range scopeNames {
			spec.Scope[name] = name
		}
	}
	return spec
}

// Parser parses client declarations.
type Parser struct {
	fset      *token.FileSet
	collector *markers.Collector
}

// New returns a Parser with the apiclient markers registered.
func New() *Parser {
	registry := markers.NewRegistry()
	markers.MustRegisterAPIClientMarkers(registry)
	return &Parser{
		fset:      token.NewFileSet(),
		collector: markers.NewCollector(registry, markers.Prefix),
	}
}

// ParseDir parses the non-test, non-generated Go files of dir.
func (p *Parser) ParseDir(dir string) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var files []*ast.File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".go" ||
			strings.HasSuffix(name, "_test.go") || strings.HasSuffix(name, GeneratedSuffix) {
			continue
		}
		fullPath := filepath.Join(dir, name)
		file, err := parser.ParseFile(p.fset, fullPath, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("failed to parse file %s: %w", fullPath, err)
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go files in %s", dir)
	}
	pkg, err := p.parseFiles(files)
	if err != nil {
		return nil, err
	}
	pkg.Dir = dir
	return pkg, nil
}

// ParseSource parses in-memory sources keyed by file name, for tests and tools.
func (p *Parser) ParseSource(sources map[string]string) (*Package, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var files []*ast.File
	for _, name := range names {
		file, err := parser.ParseFile(p.fset, name, sources[name], parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("failed to parse file %s: %w", name, err)
		}
		files = append(files, file)
	}
	return p.parseFiles(files)
}

func (p *Parser) parseFiles(files []*ast.File) (*Package, error) {
	pkg := &Package{
		Name:     files[0].Name.Name,
		Declared: make(map[string]bool),
		Imports:  make(map[string]string),
	}
	for _, file := range files {
		if file.Name.Name != pkg.Name {
			return nil, fmt.Errorf("%s: package %s, expected %s",
				p.fset.Position(file.Package), file.Name.Name, pkg.Name)
		}
		p.collectDeclared(pkg, file)
	}
	sort.Strings(pkg.ScopeNames)

	for _, file := range files {
		clients, err := p.parseFile(file)
		if err != nil {
			return nil, err
		}
		if len(clients) > 0 {
			for _, imp := range file.Imports {
				path, _ := strconv.Unquote(imp.Path.Value)
				name := ""
				if imp.Name != nil {
					name = imp.Name.Name
				}
				pkg.Imports[path] = name
			}
		}
		pkg.Clients = append(pkg.Clients, clients...)
	}
	return pkg, nil
}

// collectDeclared records top-level names; consts and vars become scope names.
func (p *Parser) collectDeclared(pkg *Package, file *ast.File) {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				pkg.Declared[d.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					pkg.Declared[s.Name.Name] = true
				case *ast.ValueSpec:
					for _, name := range s.Names {
						if name.Name == "_" {
							continue
						}
						pkg.Declared[name.Name] = true
						pkg.ScopeNames = append(pkg.ScopeNames, name.Name)
					}
				}
			}
		}
	}
}

func (p *Parser) parseFile(file *ast.File) ([]Client, error) {
	coreNames := importNames(file, map[string]string{
		CoreImportPath: "core",
		RootImportPath: "apiclient",
	})
	var clients []Client
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			typeSpec := spec.(*ast.TypeSpec)
			doc := typeSpec.Doc
			if doc == nil && len(gen.Specs) == 1 {
				doc = gen.Doc
			}
			typeMarkers, err := p.collector.Collect(p.fset, doc, markers.DescribesType)
			if err != nil {
				return nil, err
			}
			if !typeMarkers.Has(markers.MarkerClient) {
				continue
			}
			client, err := p.parseClient(typeSpec, doc, typeMarkers, coreNames)
			if err != nil {
				return nil, err
			}
			clients = append(clients, *client)
		}
	}
	return clients, nil
}

func (p *Parser) parseClient(spec *ast.TypeSpec, doc *ast.CommentGroup, typeMarkers markers.MarkerValues, coreNames map[string]bool) (*Client, error) {
	pos := p.fset.Position(spec.Pos())
	iface, ok := spec.Type.(*ast.InterfaceType)
	if !ok {
		return nil, fmt.Errorf("%s: +%s must annotate an interface, %s is not one", pos, markers.MarkerClient, spec.Name.Name)
	}
	if spec.TypeParams != nil && len(spec.TypeParams.List) > 0 {
		return nil, fmt.Errorf("%s: generic interface %s cannot declare a client", pos, spec.Name.Name)
	}

	client := &Client{
		Name:      strings.TrimSpace(typeMarkers.String(markers.MarkerClient)),
		Interface: spec.Name.Name,
		Doc:       docText(doc),
		Pos:       pos,
	}
	if client.Name == "" {
		return nil, fmt.Errorf("%s: +%s needs a struct name", pos, markers.MarkerClient)
	}

	for _, field := range iface.Methods.List {
		fieldPos := p.fset.Position(field.Pos())
		fn, ok := field.Type.(*ast.FuncType)
		if !ok || len(field.Names) == 0 {
			return nil, fmt.Errorf("%s: interface %s embeds %s; embedded interfaces are not supported",
				fieldPos, spec.Name.Name, types.ExprString(field.Type))
		}
		method, err := p.parseMethod(field.Names[0].Name, fn, field.Doc, coreNames)
		if err != nil {
			return nil, err
		}
		client.Methods = append(client.Methods, *method)
	}
	if len(client.Methods) == 0 {
		return nil, fmt.Errorf("%s: interface %s declares no methods", pos, spec.Name.Name)
	}
	return client, nil
}

func (p *Parser) parseMethod(name string, fn *ast.FuncType, doc *ast.CommentGroup, coreNames map[string]bool) (*Method, error) {
	pos := p.fset.Position(fn.Pos())
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%s: method %s: %s", pos, name, fmt.Sprintf(format, args...))
	}

	values, err := p.collector.Collect(p.fset, doc, markers.DescribesMethod)
	if err != nil {
		return nil, err
	}
	method := &Method{Name: name, Doc: docText(doc), Pos: pos}

	// Verb line
	var verbs []string
	for _, verb := range markers.Verbs {
		if values.Has(markers.VerbMarker(verb)) {
			verbs = append(verbs, verb)
		}
	}
	switch len(verbs) {
	case 0:
		return nil, fail("missing verb line (+apiclient:GET \"<url>\" or another HTTP verb)")
	case 1:
		method.Verb = verbs[0]
		method.URL = values.String(markers.VerbMarker(verbs[0]))
	default:
		return nil, fail("more than one verb line (%s)", strings.Join(verbs, ", "))
	}

	// Signature
	params := flattenParams(fn.Params)
	if len(params) == 0 || !isContext(params[0].typ) {
		return nil, fail("first parameter must be context.Context")
	}
	method.CtxName = params[0].name
	if method.CtxName == "" || method.CtxName == "_" {
		method.CtxName = "ctx"
	}
	for _, prm := range params[1:] {
		if prm.name == "" || prm.name == "_" {
			return nil, fail("every parameter after the context must be named")
		}
		if _, variadic := prm.typ.(*ast.Ellipsis); variadic {
			return nil, fail("variadic parameter %s is not supported", prm.name)
		}
		method.Params = append(method.Params, Param{
			Name: prm.name,
			Type: types.ExprString(prm.typ),
			Kind: core.ParamPath,
		})
	}
	if method.CtxName != "ctx" {
		for _, prm := range method.Params {
			if prm.Name == method.CtxName {
				return nil, fail("parameter %s shadows the context", prm.Name)
			}
		}
	}

	results := flattenParams(fn.Results)
	if len(results) != 2 || types.ExprString(results[1].typ) != "error" {
		return nil, fail("results must be (T, error)")
	}
	method.Result = types.ExprString(results[0].typ)
	method.Shape = shapeOf(results[0].typ, coreNames)

	// Parameter kinds
	assign := func(marker string, kind core.ParamKind, names ...string) error {
		for _, n := range names {
			idx := indexOf(method.Params, n)
			if idx < 0 {
				return fail("+%s names %q, which is not a parameter", marker, n)
			}
			if method.Params[idx].Kind != core.ParamPath {
				return fail("parameter %s is declared both %s and %s", n, method.Params[idx].Kind, kind)
			}
			method.Params[idx].Kind = kind
		}
		return nil
	}
	if body := values.String(markers.MarkerBody); body != "" {
		if err := assign(markers.MarkerBody, core.ParamBody, body); err != nil {
			return nil, err
		}
	}
	if err := assign(markers.MarkerMultipart, core.ParamMultipart, values.Strings(markers.MarkerMultipart)...); err != nil {
		return nil, err
	}
	if err := assign(markers.MarkerQuery, core.ParamQuery, values.Strings(markers.MarkerQuery)...); err != nil {
		return nil, err
	}

	switch mode := strings.TrimSpace(values.String(markers.MarkerMultipartMode)); mode {
	case "", "fields":
		method.Multipart = core.MultipartFields
	case "aggregate":
		method.Multipart = core.MultipartAggregate
	default:
		return nil, fail("unknown multipart mode %q (expected fields or aggregate)", mode)
	}

	if values.Has(markers.MarkerEncoding) {
		encoding, err := core.ParseEncoding(values.String(markers.MarkerEncoding))
		if err != nil {
			return nil, fail("%v", err)
		}
		method.Encoding = encoding
	}
	method.AvailableFrom = strings.TrimSpace(values.String(markers.MarkerSince))

	for _, mv := range values.GetAll(markers.MarkerHeader) {
		line, _ := mv.Value.(string)
		headerName, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fail("header line %q must look like \"Name: value\"", line)
		}
		unquoted, err := unquoteValue(strings.TrimSpace(value))
		if err != nil {
			return nil, fail("header %s: %v", headerName, err)
		}
		method.Headers = append(method.Headers, core.Header{
			Name:  normalizeHeaderName(headerName),
			Value: unquoted,
		})
	}
	return method, nil
}

type param struct {
	name string
	typ  ast.Expr
}

func flattenParams(list *ast.FieldList) []param {
	if list == nil {
		return nil
	}
	var out []param
	for _, field := range list.List {
		if len(field.Names) == 0 {
			out = append(out, param{typ: field.Type})
			continue
		}
		for _, name := range field.Names {
			out = append(out, param{name: name.Name, typ: field.Type})
		}
	}
	return out
}

func isContext(expr ast.Expr) bool {
	return types.ExprString(expr) == "context.Context"
}

// shapeOf mirrors core.ShapeOf on the syntax of the result type.
func shapeOf(expr ast.Expr, coreNames map[string]bool) core.Shape {
	switch t := expr.(type) {
	case *ast.ArrayType:
		if ident, ok := t.Elt.(*ast.Ident); ok && t.Len == nil && (ident.Name == "byte" || ident.Name == "uint8") {
			return core.ShapeRaw
		}
	case *ast.Ident:
		if t.Name == "string" {
			return core.ShapeText
		}
	case *ast.SelectorExpr:
		if pkg, ok := t.X.(*ast.Ident); ok && coreNames[pkg.Name] && t.Sel.Name == "StatusCode" {
			return core.ShapeStatus
		}
	}
	return core.ShapeDecoded
}

// importNames returns the local names under which file imports any of paths.
// paths maps an import path to its package name.
func importNames(file *ast.File, paths map[string]string) map[string]bool {
	names := make(map[string]bool)
	for _, imp := range file.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		pkgName, ok := paths[path]
		if !ok {
			continue
		}
		if imp.Name != nil {
			names[imp.Name.Name] = true
		} else {
			names[pkgName] = true
		}
	}
	return names
}

func indexOf(params []Param, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func unquoteValue(value string) (string, error) {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return strconv.Unquote(value)
	}
	return value, nil
}

// normalizeHeaderName maps USER_AGENT style names to User-Agent.
func normalizeHeaderName(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "_") && strings.ToUpper(name) == name {
		name = textproto.CanonicalMIMEHeaderKey(strings.ReplaceAll(name, "_", "-"))
	}
	return name
}

func docText(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "+") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
