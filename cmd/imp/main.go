// Command imp is the imp interpreter CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/imp-lang/imp/pkg/config"
	"github.com/imp-lang/imp/pkg/diagnostics"
	"github.com/imp-lang/imp/pkg/evaluator"
	"github.com/imp-lang/imp/pkg/formatter"
	"github.com/imp-lang/imp/pkg/help"
	"github.com/imp-lang/imp/pkg/runtime"
)

const usage = `usage: imp <command> [options]
       imp <file> [<input-file>]
commands: run, check, fmt, repl, trace, config, help`

func main() {
	os.Exit(dispatch(os.Args[1:]))
}

func dispatch(args []string) int {
	if len(args) == 0 {
		return cmdRepl(nil)
	}

	cmd := args[0]
	switch cmd {
	case "run":
		return cmdRun(args[1:])
	case "check":
		return cmdCheck(args[1:])
	case "fmt":
		return cmdFmt(args[1:])
	case "repl":
		return cmdRepl(args[1:])
	case "trace":
		return cmdTrace(args[1:])
	case "config":
		return cmdConfig(args[1:])
	case "help", "--help", "-h":
		return cmdHelp(args[1:])
	}

	// imp <file> [<input-file>]
	if !strings.HasPrefix(cmd, "-") {
		if _, err := os.Stat(cmd); err == nil {
			legacy := []string{cmd}
			if len(args) > 1 {
				legacy = append(legacy, "--input", args[1])
			}
			return cmdRun(legacy)
		}
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n%s\n", cmd, usage)
	return 1
}

// logFlags are shared by every command that evaluates code.
type logFlags struct {
	level string
	json  bool
}

// parseLogFlag consumes a logging flag at args[i], returning the new index
// and whether the flag was recognized.
func (lf *logFlags) parseLogFlag(args []string, i int) (int, bool) {
	switch args[i] {
	case "--log-level":
		if i+1 < len(args) {
			i++
			lf.level = args[i]
		}
		return i, true
	case "--log-json":
		lf.json = true
		return i, true
	}
	return i, false
}

func cmdRun(args []string) int {
	var file, inputPath string
	pretty := false
	maxIter := int64(-1)
	var lf logFlags

	for i := 0; i < len(args); i++ {
		if next, ok := lf.parseLogFlag(args, i); ok {
			i = next
			continue
		}
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--input":
			if i+1 < len(args) {
				i++
				inputPath = args[i]
			}
		case "--max-iterations":
			if i+1 < len(args) {
				i++
				n, err := strconv.ParseInt(args[i], 10, 64)
				if err != nil || n < 0 {
					fmt.Fprintf(os.Stderr, "invalid --max-iterations: %s\n", args[i])
					return 1
				}
				maxIter = n
			}
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: imp run <file> [--input <file>] [--pretty] [--max-iterations N] [--log-level L] [--log-json]")
		return 1
	}

	cfg := loadConfig()
	logger, err := newLogger(os.Stderr, cfg.Log, lf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if maxIter >= 0 {
		cfg.Limits.MaxIterations = maxIter
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	var in evaluator.LineReader
	switch {
	case inputPath != "":
		f, err := os.Open(inputPath)
		if err != nil {
			printIOError(fmt.Sprintf("cannot read file: %s", inputPath), pretty)
			return 1
		}
		defer f.Close()
		in = evaluator.NewReaderLines(f)
	case file == "-":
		// stdin already holds the program
		in = evaluator.NoInput
	default:
		in = evaluator.NewReaderLines(os.Stdin)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session := runtime.NewSession(
		runtime.WithLogger(logger),
		runtime.WithInput(in),
		runtime.WithOutput(os.Stdout),
		runtime.WithMaxIterations(cfg.Limits.MaxIterations),
	)
	logger.Debug().Str("session", session.ID()).Str("file", filename).Msg("run started")

	rep, err := session.RunSource(ctx, source, filename)
	if err != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(err, &diagErr) {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, pretty))
			return 2
		}
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	logger.Debug().
		Str("session", session.ID()).
		Int("units", rep.Units).
		Int("errors", rep.Errors).
		Bool("halted", rep.Halted).
		Msg("run finished")
	return 0
}

func cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: imp check <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	diags := runtime.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	// Valid program
	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: imp fmt <file> [--write]")
		return 1
	}

	sourceBytes, err := os.ReadFile(file)
	if err != nil {
		printIOError(fmt.Sprintf("cannot read file: %s", file), false)
		return 1
	}
	source := string(sourceBytes)

	formatted, fmtErr := runtime.Format(source, file)
	if fmtErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(fmtErr, &diagErr) {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, false))
			return 2
		}
		fmt.Fprintln(os.Stderr, fmtErr.Error())
		return 2
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return 1
		}
	} else {
		fmt.Print(formatted)
	}

	return 0
}

func cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "errors" {
			fmt.Fprintln(os.Stderr, "error: --index is only supported for the errors topic (imp help errors --index)")
			return 1
		}
		fmt.Print(help.ErrorIndex())
		return 0
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Print(content)
	return 0
}

// cmdConfig prints the effective configuration and where it came from.
func cmdConfig(args []string) int {
	cwd, _ := os.Getwd()
	cfg, path, err := config.Load(cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if path == "" {
		fmt.Println("# no config file found; built-in defaults")
	} else {
		fmt.Printf("# loaded from %s\n", path)
	}
	data, err := config.Encode(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(string(data))
	return 0
}

// loadConfig loads the layered configuration, falling back to defaults with a
// warning when a file is broken.
func loadConfig() config.Config {
	cwd, _ := os.Getwd()
	cfg, _, err := config.Load(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s; using defaults\n", err)
		return config.Default()
	}
	return cfg
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		printIOError(fmt.Sprintf("cannot read file: %s", file), pretty)
		return "", "", 1
	}
	return string(source), file, 0
}

func printIOError(msg string, pretty bool) {
	diag := diagnostics.MakeDiag(diagnostics.EIO, msg, nil, "")
	fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
}
