package generator

import (
	"strconv"
	"strings"
	"text/template"

	"github.com/vast-data/go-api-client/codegen/parser"
)

const header = "// Code generated by apigen. DO NOT EDIT."

var fileTemplate = template.Must(template.New("file").Funcs(template.FuncMap{
	"args":   argsLiteral,
	"header": func() string { return header },
}).Parse(`{{header}}

package {{.Package}}

import (
{{- range .Imports}}
	{{if .Name}}{{.Name}} {{end}}"{{.Path}}"
{{- end}}
)
{{range $c := .Clients}}
var (
{{- range .Methods}}
	{{.Var}} = core.MustDeclare[{{.Result}}]({{.Spec}})
{{- end}}
)

// {{.Name}} implements {{.Interface}}.
{{if .Doc}}//
{{range .Doc}}// {{.}}
{{end}}{{end -}}
type {{.Name}} struct {
	*core.Client
}

var _ {{.Interface}} = (*{{.Name}})(nil)

// {{.Constructor}} validates auth and config and returns a ready {{.Name}}.
func {{.Constructor}}(auth core.Authenticator, config *core.Config) (*{{.Name}}, error) {
	client, err := core.NewClient(auth, config)
	if err != nil {
		return nil, err
	}
	return &{{.Name}}{Client: client}, nil
}

// {{.Endpoints}} lists the endpoints {{.Name}} calls, in declaration order.
func {{.Endpoints}}() []*core.Endpoint {
	return []*core.Endpoint{
{{- range .Methods}}
		{{.Var}}.Endpoint,
{{- end}}
	}
}
{{range .Methods}}
{{range .Doc}}// {{.}}
{{end -}}
func ({{.Receiver}} *{{$c.Name}}) {{.Name}}({{.CtxName}} context.Context{{range .Params}}, {{.Name}} {{.Type}}{{end}}) ({{.Result}}, error) {
	return {{.Var}}.Call({{.CtxName}}, {{.Receiver}}.Client, {{args .Params}})
}
{{end}}
{{- end}}`))

// argsLiteral renders the core.Args passed to Call.
func argsLiteral(params []parser.Param) string {
	if len(params) == 0 {
		return "nil"
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, strconv.Quote(p.Name)+": "+p.Name)
	}
	return "core.Args{" + strings.Join(parts, ", ") + "}"
}
