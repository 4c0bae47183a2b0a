// Package builders assembles the builder registry of a run from the
// built-in builders and the external commands declared in the project file.
package builders

import (
	"sort"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/builders/command"
	"git.home.luguber.info/inful/assembler/internal/builders/static"
	"git.home.luguber.info/inful/assembler/internal/config"
)

// NewRegistry registers one command builder per entry of commands and the
// built-in static builder unless a command already took its identifier.
func NewRegistry(commands map[string]config.CommandBuilder) (*builder.Registry, error) {
	reg := builder.NewRegistry()

	ids := make([]string, 0, len(commands))
	for id := range commands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b, err := command.New(id, commands[id])
		if err != nil {
			return nil, err
		}
		if err := reg.Register(id, b); err != nil {
			return nil, err
		}
	}

	if _, taken := reg.Lookup(static.ID); !taken {
		if err := reg.Register(static.ID, static.Builder{}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
