package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		once     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Wait for the model artifact, then start the server",
		Long: "Polls the configured model path and, once the file exists, launches the\n" +
			"server command in a new session and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if interval <= 0 {
				interval = cfg.Watcher.IntervalDuration()
			}

			w := watcher.New(watcher.Options{
				Gate:     infrastructure.ModelGate(cfg),
				Interval: interval,
				Command:  cfg.Watcher.Command,
				LockFile: cfg.Paths.Resolve(cfg.Watcher.LockFile),
			}, logger)

			var pid int
			if once {
				pid, err = w.Once()
			} else {
				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				pid, err = w.Run(runCtx)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Server started (pid %d)\n", pid)
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Check the model a single time instead of polling")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval (defaults to the configured watcher interval)")
	return cmd
}
