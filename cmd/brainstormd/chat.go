package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/wackypm/brainstormd/internal/config"
	"github.com/wackypm/brainstormd/internal/engine"
	"github.com/wackypm/brainstormd/internal/events"
	"github.com/wackypm/brainstormd/internal/llm"
	"github.com/wackypm/brainstormd/internal/session"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		user       string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Brainstorm locally on the terminal",
		Long: `chat runs the brainstorming dialogue against a local in-memory
session, without the HTTP server or GitHub in the loop. Useful for
trying out prompts and generator settings.

The generator credential is taken from GITHUB_TOKEN for the copilot
provider; the gemini provider uses the configured API key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, user)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&user, "user", "u", "you", "name to brainstorm as")
	return cmd
}

func runChat(ctx context.Context, cfg *config.Config, user string) error {
	generator, err := llm.New(llm.Options{
		Provider: cfg.Generator.Provider,
		Model:    cfg.Generator.Model,
		BaseURL:  cfg.Generator.BaseURL,
		APIKey:   cfg.Generator.APIKey,
	})
	if err != nil {
		return err
	}

	credential := os.Getenv("GITHUB_TOKEN")
	if cfg.Generator.Provider == "copilot" && credential == "" {
		return errors.New("GITHUB_TOKEN is required for the copilot provider")
	}

	store := session.NewMemoryStore(0)
	defer func() {
		_ = store.Close()
	}()

	eng, err := engine.New(engine.Options{
		Store:            store,
		Generator:        generator,
		GeneratorTimeout: cfg.Generator.Timeout,
	})
	if err != nil {
		return err
	}

	line := liner.NewLiner()
	defer func() {
		_ = line.Close()
	}()
	line.SetCtrlCAborts(true)

	out := &consoleEmitter{w: os.Stdout}

	fmt.Println("Wacky Product Manager. Type '/feature' to start, Ctrl-D to quit.")
	for {
		turn := engine.Turn{OwnerID: user, Credential: credential}

		if out.pendingConfirm {
			answer, err := line.Prompt("generate PRD? [y/N] ")
			if err != nil {
				break
			}
			out.pendingConfirm = false
			turn.ConfirmationState = events.ConfirmationDismissed
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
				turn.ConfirmationState = events.ConfirmationAccepted
			}
		} else {
			input, err := line.Prompt(user + "> ")
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(input) == "" {
				continue
			}
			line.AppendHistory(input)
			turn.RawText = input
		}

		if err := eng.HandleTurn(ctx, turn, out); err != nil {
			return err
		}
	}

	fmt.Println("\nBye!")
	return nil
}

// consoleEmitter renders dialogue events as plain terminal output.
type consoleEmitter struct {
	w              io.Writer
	pendingConfirm bool
}

func (c *consoleEmitter) Ack() error { return nil }

func (c *consoleEmitter) Text(content string) error {
	_, err := fmt.Fprint(c.w, content)
	return err
}

func (c *consoleEmitter) Confirm(conf events.Confirmation) error {
	c.pendingConfirm = true
	_, err := fmt.Fprintf(c.w, "\n%s\n%s\n", conf.Title, conf.Message)
	return err
}

func (c *consoleEmitter) Errors(errs ...events.Error) error {
	for _, e := range errs {
		if _, err := fmt.Fprintf(c.w, "error: %s\n", e.Message); err != nil {
			return err
		}
	}
	return nil
}

func (c *consoleEmitter) Done() error {
	_, err := fmt.Fprintln(c.w)
	return err
}
