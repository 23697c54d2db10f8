package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vast-data/go-api-client/codegen/generator"
	"github.com/vast-data/go-api-client/codegen/openapi"
)

func OpenAPICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "openapi <document>",
		Short: "Write +apiclient declarations for an OpenAPI 3 document",
		Long:  "Convert every operation of a JSON or YAML OpenAPI 3 document into an annotated interface method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(app, cmd, args)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Declaration file to write (default: stdout)")
	cmd.Flags().String("package", "", "Package name of the declaration file")
	cmd.Flags().String("interface", "", "Name of the declared interface")
	cmd.Flags().String("client", "", "Name of the generated client struct")
	cmd.Flags().Bool("generate", false, "Also generate the client next to --output")

	return cmd
}

func runOpenAPI(app *App, cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	generate, _ := cmd.Flags().GetBool("generate")
	if generate && output == "" {
		return fmt.Errorf("--generate needs --output")
	}

	opts := openapi.Options{
		Package:   stringFlag(cmd, "package", app.Config.OpenAPI.Package),
		Interface: stringFlag(cmd, "interface", app.Config.OpenAPI.Interface),
		Client:    stringFlag(cmd, "client", app.Config.OpenAPI.Client),
		Logger:    app.Logger,
	}

	doc, err := openapi.LoadFile(args[0])
	if err != nil {
		return err
	}
	src, err := openapi.Import(doc, opts)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = cmd.OutOrStdout().Write(src)
		return err
	}
	if err = os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(output), err)
	}
	if err = os.WriteFile(output, src, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	app.Logger.Info("wrote declarations", zap.String("file", output))

	if generate {
		written, err := generator.New(app.Logger).GenerateDir(filepath.Dir(output), generator.OutputName(output))
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), written)
	}
	return nil
}

// stringFlag prefers an explicitly set flag over the configured value.
func stringFlag(cmd *cobra.Command, name, configured string) string {
	if cmd.Flags().Changed(name) {
		value, _ := cmd.Flags().GetString(name)
		return value
	}
	return configured
}
