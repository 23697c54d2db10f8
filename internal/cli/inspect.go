package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vast-data/go-api-client/codegen/parser"
	"github.com/vast-data/go-api-client/core"
)

func InspectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [dir]",
		Short: "Show the endpoints declared in a package",
		Long:  "Parse and validate the +apiclient declarations in dir and print one table per client",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(app, cmd, args)
		},
	}

	return cmd
}

func runInspect(app *App, cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	pkg, err := parser.New().ParseDir(dir)
	if err != nil {
		return err
	}
	if len(pkg.Clients) == 0 {
		return fmt.Errorf("package %s in %s declares no client", pkg.Name, dir)
	}

	var errs []error
	for _, client := range pkg.Clients {
		endpoints := make([]*core.Endpoint, 0, len(client.Methods))
		for _, method := range client.Methods {
			endpoint, err := core.DeclareEndpoint(method.EndpointSpec(pkg.ScopeNames), method.Shape)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", method.Pos, err))
				continue
			}
			endpoints = append(endpoints, endpoint)
		}
		title := fmt.Sprintf("%s (%s.%s)", client.Name, pkg.Name, client.Interface)
		fmt.Fprintln(cmd.OutOrStdout(), core.RenderEndpoints(title, endpoints...))
		app.Logger.Debug("inspected client",
			zap.String("client", client.Name),
			zap.Int("endpoints", len(endpoints)),
		)
	}
	return errors.Join(errs...)
}
