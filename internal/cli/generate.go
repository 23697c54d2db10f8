package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vast-data/go-api-client/codegen/generator"
)

// GenerateCmd writes <file>_apigen.go next to the declarations. Under
// go:generate the output is named after $GOFILE.
func GenerateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [dir]",
		Short: "Generate clients from +apiclient declarations",
		Long:  "Parse the Go package in dir (default: current directory) and write the generated clients",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(app, cmd, args)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file name (default: <GOFILE>_apigen.go or <package>_apigen.go)")

	return cmd
}

func runGenerate(app *App, cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = app.Config.Generate.Output
	}
	if output == "" {
		if goFile := os.Getenv("GOFILE"); goFile != "" {
			output = generator.OutputName(goFile)
		}
	}

	written, err := generator.New(app.Logger).GenerateDir(dir, output)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), written)
	return nil
}
