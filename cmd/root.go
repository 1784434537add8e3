// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/observability"
	"github.com/xkilldash9x/courier-cli/internal/service"
)

// newComponents builds the application graph. Tests replace it to avoid launching a browser.
var newComponents = service.NewComponents

// app carries the state shared by the commands of a single invocation.
type app struct {
	cfgFile string
	mgr     *config.Manager
	logger  *zap.Logger
}

// NewRootCommand creates a fresh command tree. Every call is independent, so flag
// values never leak from one execution into the next.
func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "courier",
		Short: "Courier sends paced messages through WhatsApp Web.",
		Long: `Courier drives a real browser session of WhatsApp Web and sends a queue of
messages into the chat you have open, with configurable delays, repeats,
shuffling and simulated typing.

Run without a subcommand to start the interactive menu.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd)
		},
	}
	rootCmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")
	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ~/.courier/config.yaml)")

	rootCmd.AddCommand(
		newSendCmd(a),
		newPresetsCmd(a),
		newConfigCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree under ctx. Errors other than a cancelled context
// are printed to stderr; the caller decides the exit code.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}

// initialize loads the config file and sets up the global logger.
func (a *app) initialize() error {
	path := config.DefaultPath()
	if a.cfgFile != "" {
		path = config.ExpandPath(a.cfgFile)
	}

	// 1. Problems loading the file are reported by a bootstrap logger, because the real
	// one depends on the file's contents.
	bootCfg := config.NewDefaultConfig().Logger
	bootCfg.Level = "warn"
	boot := observability.New(bootCfg, zapcore.Lock(os.Stderr))
	a.mgr = config.NewManager(path, boot)

	// 2. The configured logger.
	observability.InitializeLogger(a.mgr.Current().Logger)
	a.logger = observability.GetLogger()
	a.logger.Debug("Starting courier.", zap.String("version", Version), zap.String("config", path))
	return nil
}

// runInteractive starts the menu and tears everything down when it returns.
func (a *app) runInteractive(cmd *cobra.Command) error {
	ctx := cmd.Context()
	comps := newComponents(ctx, a.mgr, a.logger)
	defer comps.Shutdown()

	if err := a.mgr.Watch(); err != nil {
		a.logger.Warn("Config hot reload disabled.", zap.Error(err))
	}

	m := newMenu(comps.Controller, a.mgr, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
	defer m.close()
	return m.run(ctx)
}
