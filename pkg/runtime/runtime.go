// Package runtime binds one evaluator.Machine to a sequence of top-level
// evaluations and reports their errors the way the imp driver does.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imp-lang/imp/pkg/ast"
	"github.com/imp-lang/imp/pkg/diagnostics"
	"github.com/imp-lang/imp/pkg/evaluator"
	"github.com/imp-lang/imp/pkg/formatter"
	"github.com/imp-lang/imp/pkg/parser"
)

// ErrorPrefix starts every reported runtime error line.
const ErrorPrefix = "Error: "

// Report summarizes a run of several top-level units.
type Report struct {
	Units  int
	Errors int
	Halted bool
}

// Session evaluates top-level units one at a time against a single machine.
// An error ends the unit that raised it and is printed to the output sink;
// the session carries on with the next unit. exit() ends the session.
type Session struct {
	id       string
	in       evaluator.LineReader
	out      io.Writer
	log      zerolog.Logger
	budget   evaluator.Budget
	errorFmt func(line string) string

	machine *evaluator.Machine
	halted  bool
}

// Option is a functional option for configuring the Session.
type Option func(*Session)

// WithLogger sets the logger. The session adds its id to every entry.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithInput sets the source read_int/read_word/read_line pull from.
func WithInput(in evaluator.LineReader) Option {
	return func(s *Session) {
		s.in = in
	}
}

// WithOutput sets the sink for write() and for error reports.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithMaxIterations caps loop iterations per top-level unit. Zero means no cap.
func WithMaxIterations(n int64) Option {
	return func(s *Session) {
		s.budget.MaxIterations = n
	}
}

// WithRunID overrides the generated session id.
func WithRunID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithErrorFormatter decorates each reported error line, e.g. with color.
func WithErrorFormatter(fn func(line string) string) Option {
	return func(s *Session) {
		s.errorFmt = fn
	}
}

// NewSession creates a session. By default input is empty, output is
// discarded and logging is disabled.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:  uuid.NewString(),
		in:  evaluator.NoInput,
		out: io.Discard,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", s.id).Logger()
	s.machine = evaluator.NewMachine(s.in, s.out)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Machine exposes the session's machine, e.g. for listing variables.
func (s *Session) Machine() *evaluator.Machine { return s.machine }

// Halted reports whether exit() has run.
func (s *Session) Halted() bool { return s.halted }

// Reset forgets all variables and clears the halt flag. Buffered input is
// kept.
func (s *Session) Reset() {
	s.machine.Reset()
	s.halted = false
	s.log.Debug().Msg("session reset")
}

// Exec evaluates one top-level command. A runtime error is reported to the
// output sink, the operand stack is cut back to where the unit started, and
// the error is returned. Once halted, Exec does nothing.
func (s *Session) Exec(ctx context.Context, cmd *ast.Command) (evaluator.Outcome, error) {
	if s.halted {
		return evaluator.Halt, nil
	}

	depth := s.machine.Depth()
	start := time.Now()
	outcome, err := evaluator.Evaluate(ctx, cmd, s.machine, evaluator.Options{
		Logger: s.log,
		Budget: s.budget,
	})

	s.log.Debug().
		Str("kind", unitKind(cmd)).
		Int("depth", s.machine.Depth()).
		Dur("took", time.Since(start)).
		Stringer("outcome", outcome).
		Msg("unit evaluated")

	if err != nil {
		s.machine.Truncate(depth)
		s.report(err)
		return evaluator.Continue, err
	}
	if outcome == evaluator.Halt {
		s.halted = true
		s.log.Debug().Msg("halted")
	}
	return outcome, nil
}

// Run evaluates every command of list in order until one halts.
func (s *Session) Run(ctx context.Context, list *ast.CommandList) Report {
	var rep Report
	if list == nil {
		return rep
	}
	for _, cmd := range list.Commands {
		if s.halted {
			break
		}
		rep.Units++
		if _, err := s.Exec(ctx, cmd); err != nil {
			rep.Errors++
		}
	}
	rep.Halted = s.halted
	return rep
}

// RunSource parses source and runs it. Parse failures are returned as a
// *DiagnosticError and nothing is evaluated.
func (s *Session) RunSource(ctx context.Context, source, filename string) (Report, error) {
	list, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return Report{}, &DiagnosticError{Diagnostics: diags}
	}
	return s.Run(ctx, list), nil
}

func (s *Session) report(err error) {
	line := ErrorPrefix + err.Error()
	if s.errorFmt != nil {
		line = s.errorFmt(line)
	}
	fmt.Fprintln(s.out, line)

	ev := s.log.Info().Str("code", evaluator.ErrorCode(err)).Str("error", err.Error())
	var rte *evaluator.RuntimeError
	if errors.As(err, &rte) && rte.Span != nil {
		ev = ev.Int("line", rte.Span.StartLine).Int("col", rte.Span.StartCol)
	}
	ev.Msg("runtime error")
}

func unitKind(cmd *ast.Command) string {
	if cmd == nil || cmd.Stmt == nil {
		return "Empty"
	}
	if _, ok := cmd.Block(); ok {
		return "Block"
	}
	return cmd.Stmt.Kind()
}

// Check parses an imp program without executing it.
func Check(source, filename string) []diagnostics.Diagnostic {
	_, diags := parser.Parse(source, filename)
	return diags
}

// Format parses and formats an imp program.
func Format(source, filename string) (string, error) {
	list, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(list), nil
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Incomplete reports whether the error only says the input stopped early.
func (e *DiagnosticError) Incomplete() bool {
	return diagnostics.Incomplete(e.Diagnostics)
}
