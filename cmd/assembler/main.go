package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assembler/cmd/assembler/commands"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
	"git.home.luguber.info/inful/assembler/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cli := &commands.CLI{}
	parser := kong.Must(cli,
		kong.Name("assembler"),
		kong.Description("Assemble build output directories from a set of builders."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)
	kctx, err := parser.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	kctx.BindTo(ctx, (*context.Context)(nil))

	err = kctx.Run(&commands.Global{Logger: slog.Default()}, cli)
	return foundationerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(err)
}
