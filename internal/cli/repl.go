// Package cli runs the interactive weather agent loop on a terminal.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"weather-agent/internal/agent"
)

// Asker answers one user line per call.
type Asker interface {
	Ask(ctx context.Context, input string) (agent.State, error)
}

var (
	promptColor = color.New(color.Bold)
	agentColor  = color.New(color.FgCyan, color.Bold)
	errorColor  = color.New(color.FgRed)
	faintColor  = color.New(color.Faint)
)

// REPL reads user lines from in and writes agent replies to out until the
// input ends or the context is cancelled.
type REPL struct {
	asker  Asker
	in     io.Reader
	out    io.Writer
	logger zerolog.Logger
}

func New(asker Asker, in io.Reader, out io.Writer, logger zerolog.Logger) *REPL {
	return &REPL{
		asker:  asker,
		in:     in,
		out:    out,
		logger: logger.With().Str("component", "cli").Logger(),
	}
}

// Run blocks until EOF or ctx is done. Errors from individual turns are
// printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	fmt.Fprintln(r.out, "Weather Agent started!")
	for {
		promptColor.Fprint(r.out, "User: ")

		select {
		case <-ctx.Done():
			r.exit()
			return nil
		case line, ok := <-lines:
			if !ok {
				r.exit()
				select {
				case err := <-readErr:
					return errors.Wrap(err, "read input")
				default:
					return nil
				}
			}
			r.turn(ctx, strings.TrimSpace(line))
		}
	}
}

func (r *REPL) turn(ctx context.Context, line string) {
	reply, err := r.ask(ctx, line)
	if ctx.Err() != nil {
		// Interrupted mid-turn; Run prints Exiting...
		return
	}
	if err != nil {
		r.logger.Debug().Err(err).Msg("Turn failed")
		errorColor.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	if reply == "" {
		return
	}
	agentColor.Fprint(r.out, "Agent: ")
	fmt.Fprintln(r.out, reply)
}

func (r *REPL) ask(ctx context.Context, line string) (reply string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("panic: %v", p)
		}
	}()

	state, err := r.asker.Ask(ctx, line)
	if err != nil {
		return "", err
	}
	if last, ok := state.Last(); ok {
		reply = last.Content
	}
	return reply, nil
}

func (r *REPL) exit() {
	fmt.Fprintln(r.out)
	faintColor.Fprintln(r.out, "Exiting...")
}
