package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dagocrew",
		Short: "Run crews of LLM agents over a task dependency graph",
		Long: `dagocrew runs a crew: agents with a role, a goal and a backstory, and
tasks assigned to them. Tasks run one at a time in dependency order and
receive the outputs of the tasks they depend on. With planning enabled, a
planning model may propose a better order before the run starts.

Configuration comes from the environment (LLM_PROVIDER, LLM_API_KEY,
REDIS_ADDR, ...); crews are defined in YAML or JSON files.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newRunsCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dagocrew %s (built %s)\n", Version, BuildTime)
		},
	}
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
