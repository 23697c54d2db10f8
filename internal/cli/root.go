// Package cli implements the apigen command line.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vast-data/go-api-client/core"
)

// App is the state shared by every subcommand once the root command has run
// its pre-run hook.
type App struct {
	Config *ProjectConfig
	Logger *zap.Logger

	closeLogger func()
}

// NewRootCmd builds the apigen command tree.
func NewRootCmd() *cobra.Command {
	app := &App{Config: &ProjectConfig{}, Logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:           "apigen",
		Short:         "Declarative REST client generator",
		Long:          "apigen generates typed HTTP clients from Go interfaces annotated with +apiclient markers.",
		Version:       core.ClientVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.closeLogger != nil {
				app.closeLogger()
			}
		},
	}

	rootCmd.PersistentFlags().String("config", DefaultConfigFile, "Path to the project configuration")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this rotated file")

	rootCmd.AddCommand(GenerateCmd(app))
	rootCmd.AddCommand(InspectCmd(app))
	rootCmd.AddCommand(OpenAPICmd(app))
	rootCmd.AddCommand(CallCmd(app))

	return rootCmd
}

func (a *App) init(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := ReadConfig(configPath)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if file, _ := cmd.Flags().GetString("log-file"); file != "" {
		cfg.LogFile = file
	}

	logger, closeLogger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	a.Config = cfg
	a.Logger = logger
	a.closeLogger = closeLogger
	a.Logger.Debug("configuration loaded", zap.String("path", configPath))
	return nil
}
