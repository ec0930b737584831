package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/imp-lang/imp/pkg/config"
	"github.com/imp-lang/imp/pkg/diagnostics"
	"github.com/imp-lang/imp/pkg/evaluator"
	"github.com/imp-lang/imp/pkg/help"
	"github.com/imp-lang/imp/pkg/parser"
	"github.com/imp-lang/imp/pkg/runtime"
)

const banner = "Hello, You are in interaction version of interpreter. Just enter commands like in python interpreter."

// prompter is the part of *liner.State the REPL needs.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// repl is one interactive session: a line editor feeding a persistent
// runtime.Session.
type repl struct {
	cfg     config.REPLConfig
	ln      prompter
	out     io.Writer
	session *runtime.Session
	color   bool
	last    string // last evaluated entry, for :fmt
}

func cmdRepl(args []string) int {
	var lf logFlags
	for i := 0; i < len(args); i++ {
		if next, ok := lf.parseLogFlag(args, i); ok {
			i = next
			continue
		}
		fmt.Fprintln(os.Stderr, "usage: imp repl [--log-level L] [--log-json]")
		return 1
	}

	cfg := loadConfig()
	logger, err := newLogger(os.Stderr, cfg.Log, lf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := cfg.REPL.HistoryFile
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	r := newREPL(cfg, ln, os.Stdout, logger, colorEnabled(cfg.REPL.Color))
	if cfg.REPL.Banner {
		fmt.Fprintln(os.Stdout, banner)
	}
	r.loop(func(entry string) {
		ln.AppendHistory(strings.ReplaceAll(entry, "\n", " "))
	})

	if histPath != "" {
		if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err == nil {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}
	}
	return 0
}

func newREPL(cfg config.Config, ln prompter, out io.Writer, logger zerolog.Logger, color bool) *repl {
	r := &repl{cfg: cfg.REPL, ln: ln, out: out, color: color}
	opts := []runtime.Option{
		runtime.WithLogger(logger),
		runtime.WithOutput(out),
		runtime.WithMaxIterations(cfg.Limits.MaxIterations),
		// read_* pull from the same line editor as the program text
		runtime.WithInput(evaluator.LineReaderFunc(func() (string, error) {
			return ln.Prompt(cfg.REPL.InputPrompt)
		})),
	}
	if color {
		opts = append(opts, runtime.WithErrorFormatter(colorize(termenv.ANSIBrightRed)))
	}
	r.session = runtime.NewSession(opts...)
	return r
}

// loop reads entries until end of input, :quit or exit(). remember is called
// with every entry worth keeping in history.
func (r *repl) loop(remember func(string)) {
	for {
		code, ok := readByParseProbe(r.ln, r.cfg.Prompt, r.cfg.ContinuePrompt)
		if !ok {
			fmt.Fprintln(r.out)
			return
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if done := r.handleCommand(trimmed); done {
				return
			}
			remember(trimmed)
			continue
		}

		remember(code)
		r.eval(code, "<repl>")
		if r.session.Halted() {
			return
		}
	}
}

// eval parses and runs one entry. Parse errors are printed with the same
// "Error: " prefix as runtime errors.
func (r *repl) eval(code, filename string) {
	list, diags := parser.Parse(code, filename)
	if len(diags) > 0 {
		r.printError(diags[0].Message)
		return
	}
	r.last = code

	for _, cmd := range list.Commands {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		_, _ = r.session.Exec(ctx, cmd)
		stop()
		if r.session.Halted() {
			return
		}
	}
}

func (r *repl) printError(msg string) {
	line := runtime.ErrorPrefix + msg
	if r.color {
		line = colorize(termenv.ANSIBrightRed)(line)
	}
	fmt.Fprintln(r.out, line)
}

// handleCommand handles :help, :quit, :vars, :reset, :fmt and :load.
func (r *repl) handleCommand(line string) (exit bool) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case ":help":
		if len(fields) < 2 {
			fmt.Fprint(r.out, help.Topics["repl"])
			return false
		}
		_, content, err := help.MatchTopic(fields[1])
		if err != nil {
			fmt.Fprintln(r.out, err)
			return false
		}
		fmt.Fprint(r.out, content)

	case ":quit", ":exit":
		return true

	case ":vars":
		vars := r.session.Machine().Vars()
		if len(vars) == 0 {
			fmt.Fprintln(r.out, "no variables")
			return false
		}
		for _, b := range vars {
			fmt.Fprintf(r.out, "%s %s = %s\n", b.Value.Kind, b.Name, b.Value.Quoted())
		}

	case ":reset":
		r.session.Reset()
		r.last = ""
		fmt.Fprintln(r.out, "session reset.")

	case ":fmt":
		if r.last == "" {
			fmt.Fprintln(r.out, "nothing to format")
			return false
		}
		formatted, err := runtime.Format(r.last, "<repl>")
		if err != nil {
			r.printError(err.Error())
			return false
		}
		fmt.Fprint(r.out, formatted)

	case ":load":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, "usage: :load <file>")
			return false
		}
		src, err := os.ReadFile(fields[1])
		if err != nil {
			fmt.Fprintf(r.out, "cannot read %s: %v\n", fields[1], err)
			return false
		}
		r.eval(string(src), fields[1])
		return r.session.Halted()

	default:
		fmt.Fprintln(r.out, "unknown command. Type :help for help.")
	}
	return false
}

// readByParseProbe reads lines until the parser accepts the buffer or reports
// a real error. It returns false on end of input; Ctrl-C discards the
// pending entry.
func readByParseProbe(ln prompter, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				// hand the partial entry over so its error gets reported
				return b.String(), true
			}
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		_, diags := parser.Parse(src, "<repl>")
		if diagnostics.Incomplete(diags) {
			continue
		}
		return src, true
	}
}

// colorEnabled resolves a color mode against the terminal on stdout.
func colorEnabled(mode string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	return termenv.NewOutput(os.Stdout).Profile != termenv.Ascii
}

func colorize(color termenv.Color) func(string) string {
	start := termenv.CSI + color.Sequence(false) + "m"
	reset := termenv.CSI + termenv.ResetSeq + "m"
	return func(s string) string {
		return start + s + reset
	}
}
