// Package cli is the interactive operator shell. Each input line is dispatched
// through a cobra command tree; the shell owns the playtime timer between lines.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/service"
	"github.com/spf13/cobra"
)

// ListenerControl toggles listeners by name; *eventbus.Registry implements it.
type ListenerControl interface {
	Names() []string
	Start(name string) error
	Stop(name string) error
	Status() map[string]bool
}

// AuditReader reads the consume log.
type AuditReader interface {
	List(ctx context.Context, limit int) ([]domain.ConsumeLog, error)
}

// Shell reads commands line by line. It never stops on a command error.
type Shell struct {
	svc       *service.PlayerService
	listeners ListenerControl
	audit     AuditReader
	out       io.Writer
	errOut    io.Writer

	root  *cobra.Command
	timer domain.PlaytimeTimer
	quit  bool
}

// New creates a Shell writing results to out and errors to errOut.
func New(svc *service.PlayerService, listeners ListenerControl, audit AuditReader, out, errOut io.Writer) *Shell {
	s := &Shell{
		svc:       svc,
		listeners: listeners,
		audit:     audit,
		out:       out,
		errOut:    errOut,
	}
	s.root = s.commands()
	return s
}

// Timer returns the current playtime timer state.
func (s *Shell) Timer() domain.PlaytimeTimer {
	return s.timer
}

// Run reads lines from in until EOF, an exit command or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	s.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if s.Exec(ctx, scanner.Text()) {
			fmt.Fprintln(s.out, "bye")
			return nil
		}
		s.prompt()
	}
	return scanner.Err()
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	s.root.SetArgs(fields)
	cmd, err := s.root.ExecuteContextC(ctx)
	if err != nil {
		s.report(cmd, err)
	}

	quit := s.quit
	s.quit = false
	return quit
}

func (s *Shell) report(cmd *cobra.Command, err error) {
	var appErr *domain.AppError
	var usage usageError
	switch {
	case errors.As(err, &usage) && cmd != nil:
		fmt.Fprintf(s.errOut, "Usage: %s\n", cmd.UseLine())
	case errors.As(err, &appErr):
		fmt.Fprintf(s.errOut, "%s: %s\n", appErr.Code, appErr.Message)
	case strings.HasPrefix(err.Error(), "unknown command"):
		fmt.Fprintln(s.errOut, "Invalid option, type 'help' for the list of commands.")
	default:
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
}

func (s *Shell) prompt() {
	if s.timer.Running() {
		fmt.Fprintf(s.out, "[playtime player=%d game=%d] > ", s.timer.PlayerID(), s.timer.GameID())
		return
	}
	fmt.Fprint(s.out, "> ")
}

type usageError struct {
	want int
	got  int
}

func (e usageError) Error() string {
	return fmt.Sprintf("expected at least %d arguments, got %d", e.want, e.got)
}

func minArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return usageError{want: n, got: len(args)}
		}
		return nil
	}
}
