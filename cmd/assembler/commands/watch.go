package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/assembler/internal/logfields"
	"git.home.luguber.info/inful/assembler/internal/pipeline"
	"git.home.luguber.info/inful/assembler/internal/watch"
	"git.home.luguber.info/inful/assembler/internal/workspace"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Target   string        `short:"t" help:"Deployment target (defaults to the project file, then preview)"`
	Output   string        `short:"o" help:"Output directory, relative to the work directory"`
	NoClean  bool          `name:"no-clean" help:"Keep the previous contents of the output directory"`
	Debounce time.Duration `help:"Quiet period before a change triggers a run" default:"300ms"`
	Interval time.Duration `help:"Also re-assemble on this interval (0 disables)" default:"0s"`
}

func (w *WatchCmd) Run(ctx context.Context, _ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	applyOverrides(cfg, w.Output, w.NoClean)

	ws, err := workspace.Resolve(cfg.WorkDir, cfg.Output.Directory)
	if err != nil {
		return err
	}
	opts := watch.Options{
		Root:     ws.WorkPath,
		Ignore:   []string{ws.OutputDir},
		Debounce: w.Debounce,
		Interval: w.Interval,
	}
	argv := os.Args
	return watch.Run(ctx, opts, func(ctx context.Context, reason string) {
		slog.Info("Re-assembling", slog.String("reason", reason))
		if _, err := pipeline.Run(ctx, cfg, pipeline.Options{Target: w.Target, Argv: argv}); err != nil {
			slog.Error("Assembly failed; waiting for changes", logfields.Error(err))
		}
	})
}
