package commands

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/assembler/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Target  string `short:"t" help:"Deployment target (defaults to the project file, then preview)"`
	Output  string `short:"o" help:"Output directory, relative to the work directory"`
	NoClean bool   `name:"no-clean" help:"Keep the previous contents of the output directory"`
}

func (b *BuildCmd) Run(ctx context.Context, _ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	applyOverrides(cfg, b.Output, b.NoClean)

	report, err := pipeline.Run(ctx, cfg, pipeline.Options{Target: b.Target, Argv: os.Args})
	if report != nil {
		fmt.Printf("Assembled %s (%d routes, %d builds)\n",
			report.Workspace.OutputDir, report.RouteCount(), len(report.Builds.Builds))
	}
	return err
}
