package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/internal/watcher"
)

func newGateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gate",
		Short: "Report whether the model artifact is present",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}

			gate := infrastructure.ModelGate(cfg)
			if !gate.Ready() {
				return fmt.Errorf("%w: %s", watcher.ErrModelMissing, strings.Join(gate.Files(), ", "))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model ready: %s\n", gate.Path())
			return nil
		},
	}
}
