package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imp-lang/imp/pkg/config"
)

// scriptedPrompter replays lines and then reports end of input.
type scriptedPrompter struct {
	lines   []string
	prompts []string
}

func (p *scriptedPrompter) Prompt(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	if line == "^C" {
		return "", liner.ErrPromptAborted
	}
	return line, nil
}

func runREPL(t *testing.T, lines ...string) (string, *scriptedPrompter) {
	t.Helper()
	p := &scriptedPrompter{lines: lines}
	var out bytes.Buffer
	cfg := config.Default()
	r := newREPL(cfg, p, &out, zerolog.Nop(), false)
	r.loop(func(string) {})
	return out.String(), p
}

func TestReadByParseProbeJoinsContinuationLines(t *testing.T) {
	p := &scriptedPrompter{lines: []string{"while (x < 3) {", "x = x + 1;", "}", "write(x);"}}

	code, ok := readByParseProbe(p, ">>>  ", "... ")
	require.True(t, ok)
	assert.Equal(t, "while (x < 3) {\nx = x + 1;\n}", code)
	assert.Equal(t, []string{">>>  ", "... ", "... "}, p.prompts)

	code, ok = readByParseProbe(p, ">>>  ", "... ")
	require.True(t, ok)
	assert.Equal(t, "write(x);", code)

	_, ok = readByParseProbe(p, ">>>  ", "... ")
	assert.False(t, ok)
}

func TestReadByParseProbeStopsOnRealError(t *testing.T) {
	p := &scriptedPrompter{lines: []string{"int = 5;", "write(1);"}}
	code, ok := readByParseProbe(p, "> ", ". ")
	require.True(t, ok)
	assert.Equal(t, "int = 5;", code)
}

func TestReadByParseProbeCtrlCDiscardsEntry(t *testing.T) {
	p := &scriptedPrompter{lines: []string{"if (1)", "^C", "write(2);"}}
	code, ok := readByParseProbe(p, "> ", ". ")
	require.True(t, ok)
	assert.Equal(t, "", code)

	code, ok = readByParseProbe(p, "> ", ". ")
	require.True(t, ok)
	assert.Equal(t, "write(2);", code)
}

func TestREPLStatePersistsAcrossEntries(t *testing.T) {
	out, _ := runREPL(t,
		"int x = 1;",
		"while (x < 3) {",
		"  x = x + 1;",
		"}",
		"write(x);",
		":vars",
		"exit();",
		"write(5);",
	)
	assert.Equal(t, "3\nint x = 3\n", out)
}

func TestREPLReadsProgramInputFromSameEditor(t *testing.T) {
	out, p := runREPL(t, "int n = read_int();", "7", "write(n * 2);")
	assert.Equal(t, "14\n\n", out)
	assert.Contains(t, p.prompts, "")
}

func TestREPLReportsErrorsAndContinues(t *testing.T) {
	out, _ := runREPL(t, "write(y);", "int y;", "write(y);", "int y;", "write(1 +);")
	want := heredoc.Doc(`
		Error: No variable y
		0
		Error: Redefinition of variable y
	`)
	require.True(t, strings.HasPrefix(out, want), "got %q", out)
	assert.Contains(t, out[len(want):], "Error: ")
}

func TestREPLCommands(t *testing.T) {
	out, _ := runREPL(t,
		":vars",
		"string s = \"hi\";",
		":vars",
		":fmt",
		":reset",
		":vars",
		":bogus",
		":quit",
		"write(1);",
	)
	want := heredoc.Doc(`
		no variables
		string s = "hi"
		string s = "hi";
		session reset.
		no variables
		unknown command. Type :help for help.
	`)
	assert.Equal(t, want, out)
}

func TestREPLHelpTopic(t *testing.T) {
	out, _ := runREPL(t, ":help sco")
	assert.Contains(t, out, "SCOPES")
}

func TestColorizeWrapsInSGR(t *testing.T) {
	red := colorize(termenv.ANSIBrightRed)
	assert.Equal(t, "\x1b[91mError: x\x1b[0m", red("Error: x"))
	assert.True(t, colorEnabled(config.ColorAlways))
	assert.False(t, colorEnabled(config.ColorNever))
}

func TestComputeTraceSummary(t *testing.T) {
	log := heredoc.Doc(`
		{"level":"debug","session":"s-1","time":"2026-01-02T10:00:00Z","message":"run started"}
		{"level":"debug","session":"s-1","kind":"Decl","depth":0,"outcome":"continue","time":"2026-01-02T10:00:00Z","message":"unit evaluated"}
		{"level":"info","session":"s-1","code":"E_UNDEFINED","error":"No variable y","time":"2026-01-02T10:00:01Z","message":"runtime error"}
		{"level":"debug","session":"s-1","kind":"Write","depth":0,"outcome":"continue","time":"2026-01-02T10:00:01Z","message":"unit evaluated"}
		not json at all
		{"level":"debug","session":"s-1","kind":"Exit","depth":0,"outcome":"halt","time":"2026-01-02T10:00:02Z","message":"unit evaluated"}
		{"level":"debug","session":"s-1","time":"2026-01-02T10:00:02Z","message":"halted"}
	`)

	s := computeTraceSummary(strings.NewReader(log))
	assert.Equal(t, "s-1", s.SessionID)
	assert.Equal(t, 6, s.TotalEvents)
	assert.Equal(t, 3, s.Units)
	assert.Equal(t, map[string]int{"Decl": 1, "Write": 1, "Exit": 1}, s.UnitsByKind)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, map[string]int{"E_UNDEFINED": 1}, s.ErrorsByCode)
	assert.True(t, s.Halted)
	assert.Equal(t, float64(2000), s.DurationMs)

	var buf bytes.Buffer
	printTraceSummaryText(&buf, s)
	assert.Contains(t, buf.String(), "Session: s-1\n")
	assert.Contains(t, buf.String(), "  E_UNDEFINED: 1\n")
	assert.Contains(t, buf.String(), "Duration: 2000ms\n")
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LogConfig{Level: "warn"}, logFlags{level: "debug", json: true})
	require.NoError(t, err)
	logger.Debug().Str("session", "abc").Msg("unit evaluated")
	assert.Contains(t, buf.String(), `"message":"unit evaluated"`)

	_, err = newLogger(&buf, config.LogConfig{Level: "loud"}, logFlags{})
	assert.Error(t, err)
}

func TestLogFlagParsing(t *testing.T) {
	var lf logFlags
	args := []string{"--log-level", "info", "--log-json", "prog.imp"}
	i, ok := lf.parseLogFlag(args, 0)
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = lf.parseLogFlag(args, 2)
	assert.True(t, ok)
	_, ok = lf.parseLogFlag(args, 3)
	assert.False(t, ok)
	assert.Equal(t, logFlags{level: "info", json: true}, lf)
}

func TestDispatchUnknownCommand(t *testing.T) {
	assert.Equal(t, 1, dispatch([]string{"--nope"}))
	assert.Equal(t, 1, dispatch([]string{"no-such-file.imp"}))
}
