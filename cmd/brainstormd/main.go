// brainstormd is the Wacky Product Manager agent: a Copilot extension
// that brainstorms product feature ideas and turns the winner into a
// PRD document.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "brainstormd",
		Short: "Wacky Product Manager brainstorming agent",
		Long: `brainstormd serves the Wacky Product Manager Copilot extension.

It runs a brainstorming dialogue per user: '/feature' starts one,
'/new' asks for another idea, free text refines the current idea, and
'/done' finalizes it into a PRD document.

Available subcommands:
  serve       Run the agent HTTP server
  chat        Brainstorm locally on the terminal
  version     Print the version`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
