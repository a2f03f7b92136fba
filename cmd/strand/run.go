package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/junchih/strand/pkg/agent"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [prompt...]",
		Short: "Run a single prompt to completion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rt, err := newRuntime(cfg, newTerminalApproval(os.Stdin, os.Stdout))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess := rt.newSession()
			outcome, err := runPrompt(ctx, rt, sess, strings.Join(args, " "), os.Stdout)
			if err != nil {
				return err
			}
			if outcome == agent.OutcomeCancelled {
				return fmt.Errorf("cancelled")
			}
			return nil
		},
	}
}
