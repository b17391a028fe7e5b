package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds what every subcommand shares.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)

	verbose bool
	logger  *zap.Logger
}

func newRootCmd(stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) *cobra.Command {
	a := &app{
		stdout:    stdout,
		stderr:    stderr,
		lookupEnv: lookupEnv,
		logger:    zap.NewNop(),
	}

	root := &cobra.Command{
		Use:   "moviesdemo",
		Short: "DynamoDB movies demo",
		Long: `moviesdemo lists movies from an Amazon DynamoDB table.

Run "moviesdemo migrate" once per environment to create the table, then
"moviesdemo serve" to start the web server.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := a.buildLogger()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newMigrateCmd(a),
		newTablesCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)
	return root
}

// buildLogger writes production-encoded console logs to stderr, at info
// level unless --verbose is set.
func (a *app) buildLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if a.verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build(zap.WrapCore(func(zapcore.Core) zapcore.Core {
		return zapcore.NewCore(
			zapcore.NewConsoleEncoder(config.EncoderConfig),
			zapcore.AddSync(a.stderr),
			config.Level,
		)
	}))
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "moviesdemo version %s\n", version)
		},
	}
}
