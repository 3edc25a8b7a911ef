package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/byland-ai/byland/internal/logging"
	"github.com/byland-ai/byland/internal/presentation/tui"
	"github.com/byland-ai/byland/internal/sanitize"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/session"
)

// Conversation is the onboarding surface the chat loop drives.
type Conversation interface {
	Turn(ctx context.Context, userID, input string) (*session.TurnResult, error)
	Load(ctx context.Context, userID string) (*domain.Session, error)
}

// ChatOptions configures RunChat.
type ChatOptions struct {
	UserID string
	In     io.Reader
	Out    io.Writer

	// Interactive prints the banner, prompts and status lines.
	Interactive bool
	// JSON switches to NDJSON: one turn diff per line.
	JSON bool
	// Render formats system messages. Nil prints them verbatim.
	Render func(string) (string, error)

	MaxInputSize int
	Logger       *slog.Logger
}

// RunChat runs the onboarding conversation for opts.UserID until the profile is
// confirmed, the input ends or ctx is cancelled. A fresh session is greeted
// with the intro message before the first prompt.
func RunChat(ctx context.Context, conv Conversation, opts ChatOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	sanitizer := sanitize.New(opts.MaxInputSize)
	c := &chat{conv: conv, opts: opts, logger: logger}

	if opts.Interactive && !opts.JSON {
		tui.PrintBanner(opts.Out)
	}

	existing, err := conv.Load(ctx, opts.UserID)
	switch {
	case err == nil:
		c.status("Resuming at '%s' state...", existing.CurrentState)
		if n := len(existing.Transcript); n > 0 {
			c.say(existing.Transcript[n-1].Content)
		}
	case errors.Is(err, domain.ErrSessionNotFound):
		c.status("Session '%s' active.", opts.UserID)
		if done, err := c.turn(ctx, ""); err != nil || done {
			return handleExecutionError(err)
		}
	default:
		return err
	}

	scanner := bufio.NewScanner(opts.In)
	for {
		if opts.Interactive && !opts.JSON {
			fmt.Fprint(opts.Out, "> ")
		}
		if !scanner.Scan() {
			return handleExecutionError(scanner.Err())
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "exit" || line == "quit" {
			c.status("Bye!")
			return nil
		}

		input, err := sanitizer.Clean(line)
		if err != nil {
			logger.Warn("Input rejected", "error", err, "size", len(line))
			c.status("Input rejected: %v", err)
			continue
		}

		done, err := c.turn(ctx, input)
		if err != nil {
			return handleExecutionError(err)
		}
		if done {
			return nil
		}
	}
}

type chat struct {
	conv   Conversation
	opts   ChatOptions
	logger *slog.Logger
}

// turn runs one turn and reports whether the profile was confirmed.
func (c *chat) turn(ctx context.Context, input string) (bool, error) {
	res, err := c.conv.Turn(ctx, c.opts.UserID, input)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			c.logger.Error("Turn not stored", "user_id", c.opts.UserID, "error", err)
			c.say(domain.GenericFailureReply)
			return false, nil
		}
		return false, err
	}

	if c.opts.JSON {
		data, err := json.Marshal(res.Diff)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(c.opts.Out, string(data))
	} else {
		for _, m := range res.Diff.Appended {
			c.say(m.Content)
		}
	}

	done := res.Session.ProfileComplete
	if done {
		c.status("Profile complete.")
	}
	return done, nil
}

func (c *chat) say(text string) {
	if c.opts.JSON {
		return
	}
	if c.opts.Render != nil {
		if out, err := c.opts.Render(text); err == nil {
			text = out
		}
	}
	fmt.Fprintln(c.opts.Out, text)
}

// status prints a standardized system line in interactive mode.
func (c *chat) status(format string, args ...any) {
	if !c.opts.Interactive || c.opts.JSON {
		return
	}
	fmt.Fprintf(c.opts.Out, ">>> %s\n", fmt.Sprintf(format, args...))
}

func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil // Exit 0 for interruptions
	}
	return err
}
