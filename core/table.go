package core

import (
	"fmt"
	"strings"

	"github.com/bndr/gotabulate"
)

// RenderEndpoints prints endpoints as a grid table, one row per endpoint.
func RenderEndpoints(title string, endpoints ...*Endpoint) string {
	if len(endpoints) == 0 {
		return "<>"
	}
	headers := []string{"method", "verb", "url", "params", "returns", "body", "since"}
	var rows [][]any
	for _, e := range endpoints {
		rows = append(rows, []any{
			e.Name(),
			e.Verb(),
			e.URL(),
			describeParams(e.Params()),
			e.Shape().String(),
			describeBodyKind(e),
			orDash(e.AvailableFrom()),
		})
	}
	t := gotabulate.Create(rows)
	t.SetHeaders(headers)
	t.SetAlign("left")
	t.SetWrapStrings(true)
	t.SetMaxCellSize(60)
	if title != "" {
		return fmt.Sprintf("%s:\n%s", title, t.Render("grid"))
	}
	return fmt.Sprintf("\n%s", t.Render("grid"))
}

func describeParams(params []Param) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Name+":"+p.Kind.String())
	}
	return strings.Join(parts, ", ")
}

func describeBodyKind(e *Endpoint) string {
	switch {
	case e.bodyParam != "":
		return e.encoding.String()
	case len(e.multipartParams) > 0:
		return "multipart/" + e.multipart.String()
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
