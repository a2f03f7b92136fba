package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/junchih/strand/pkg/agent"
	"github.com/junchih/strand/pkg/config"
	"github.com/junchih/strand/pkg/session"
)

func newChatCmd() *cobra.Command {
	var resumeID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rt, err := newRuntime(cfg, newTerminalApproval(os.Stdin, os.Stdout))
			if err != nil {
				return err
			}

			var store *session.Store
			if dir, err := config.GetDefaultSessionsDir(); err == nil {
				store = session.NewStore(dir)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := resolveSession(rt, store, resumeID)
			if err != nil {
				return err
			}
			reader := bufio.NewReader(os.Stdin)

			fmt.Printf("strand (%s) - session %s - type 'exit' to quit\n", cfg.Model.ID, sess.ID)

			for {
				fmt.Print("> ")
				line, err := reader.ReadString('\n')
				if err != nil {
					fmt.Println()
					return nil
				}

				prompt := strings.TrimSpace(line)
				if prompt == "" {
					continue
				}
				if prompt == "exit" || prompt == "quit" {
					return nil
				}

				outcome, err := runPrompt(ctx, rt, sess, prompt, os.Stdout)
				if err != nil {
					fmt.Fprintln(os.Stderr, "Error:", err)
				}
				if store != nil {
					if err := store.Save(sess); err != nil {
						slog.Warn("failed to persist session", "id", sess.ID, "error", err)
					}
				}
				if outcome == agent.OutcomeCancelled {
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&resumeID, "resume", "", "resume a previously saved session by ID")
	return cmd
}

// resolveSession loads a persisted session when --resume is given,
// otherwise starts a fresh one. Tools are never persisted, so a
// resumed session gets the current runtime's tool set re-attached.
func resolveSession(rt *runtime, store *session.Store, resumeID string) (*agent.Session, error) {
	if resumeID == "" {
		return rt.newSession(), nil
	}
	if store == nil {
		return nil, fmt.Errorf("session persistence unavailable")
	}

	sess, err := store.Load(resumeID)
	if err != nil {
		return nil, err
	}
	rt.attachTools(sess)
	return sess, nil
}
