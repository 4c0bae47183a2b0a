package commands

import (
	"fmt"

	"git.home.luguber.info/inful/assembler/internal/deploymentid"
)

// ValidateIDCmd implements the 'validate-id' command.
type ValidateIDCmd struct {
	ID string `arg:"" help:"Deployment identifier to check"`
}

func (v *ValidateIDCmd) Run(_ *Global) error {
	if err := deploymentid.Validate(v.ID); err != nil {
		return err
	}
	fmt.Printf("deploymentId %q is valid\n", v.ID)
	return nil
}
