package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/lesson-attribution/internal/app"
	"github.com/johnquangdev/lesson-attribution/pkg/config"
)

type commandContext struct {
	actor      string
	jsonOutput bool
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// withApp loads configuration, wires dependencies and runs fn
func (c *commandContext) withApp(opts app.Options, fn func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	deps, err := app.New(cfg, logger, opts)
	if err != nil {
		return err
	}
	defer deps.Close()

	return fn(deps)
}

func (c *commandContext) reviewer() string {
	if actor := strings.TrimSpace(c.actor); actor != "" {
		return actor
	}
	return defaultActor()
}

func defaultActor() string {
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return "cli"
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
