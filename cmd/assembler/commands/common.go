// Package commands implements the assembler subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assembler/internal/config"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Project file path" default:"assembler.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd      `cmd:"" default:"withargs" help:"Assemble the output directory once"`
	Watch      WatchCmd      `cmd:"" help:"Re-assemble whenever the sources change"`
	ValidateID ValidateIDCmd `cmd:"" name:"validate-id" help:"Check a deployment identifier"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the .env files next to the project file and then the
// project file itself.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(filepath.Dir(path)); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "cannot load environment files").
			WithCode(foundationerrors.CodeInvalidConfig).
			Build()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "cannot load project file").
			WithCode(foundationerrors.CodeInvalidConfig).
			WithContext("path", path).
			WithAction("Create "+config.DefaultFileName+" or pass --config").
			Build()
	}
	return cfg, nil
}

// applyOverrides applies the flags shared by build and watch to cfg.
func applyOverrides(cfg *config.Config, output string, noClean bool) {
	if output != "" {
		cfg.Output.Directory = output
	}
	if noClean {
		clean := false
		cfg.Output.Clean = &clean
	}
}
