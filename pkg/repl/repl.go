// Package repl implements the interactive command loop: parsing operator
// input, dispatching commands against a session and rendering the results.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/ethpandaops/t8n-repl/pkg/common"
	"github.com/ethpandaops/t8n-repl/pkg/session"
	"github.com/sirupsen/logrus"
)

// LineReader reads operator input one line at a time. *readline.Instance
// satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

type REPL struct {
	log        logrus.FieldLogger
	reader     LineReader
	out        io.Writer
	session    *session.Session
	dispatcher *Dispatcher
}

func New(log logrus.FieldLogger, reader LineReader, out io.Writer, sess *session.Session) *REPL {
	return &REPL{
		log:        log.WithField("component", "repl"),
		reader:     reader,
		out:        out,
		session:    sess,
		dispatcher: NewDispatcher(log, sess, out),
	}
}

// Run prints the welcome banner and processes lines until exit, end of input
// or interrupt.
func (r *REPL) Run(ctx context.Context) error {
	cfg := r.session.Config()

	fmt.Fprintf(r.out, "Welcome to t8n-repl\n")
	fmt.Fprintf(r.out, "Default working directory %s\n", cfg.WorkDir)
	fmt.Fprintf(r.out, "t8n tool: %s %s\n", cfg.T8n, cfg.EVM)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.reader.SetPrompt(r.prompt())

		line, err := r.reader.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				fmt.Fprintf(r.out, "Bye!\n")

				return nil
			}

			return fmt.Errorf("failed to read input: %w", err)
		}

		if r.Execute(ctx, line) {
			return nil
		}
	}
}

// Execute parses and dispatches a single line, printing any error. It
// reports whether the loop should terminate.
func (r *REPL) Execute(ctx context.Context, line string) bool {
	cmd, err := Parse(line)
	if err != nil {
		common.CommandsTotal.WithLabelValues("unknown", "error").Inc()
		fmt.Fprintf(r.out, "Error: %v\n", err)

		return false
	}

	if cmd == nil {
		return false
	}

	exit, err := r.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		common.CommandsTotal.WithLabelValues(cmd.Name(), "error").Inc()
		r.log.WithError(err).WithField("command", cmd.Name()).Debug("Command failed")
		fmt.Fprintf(r.out, "Error: %v\n", err)

		return false
	}

	common.CommandsTotal.WithLabelValues(cmd.Name(), "ok").Inc()

	return exit
}

func (r *REPL) prompt() string {
	return r.session.Config().HardFork + " > "
}
