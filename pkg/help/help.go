// Package help holds the imp quick reference and topic pages shown by
// `imp help` and the REPL's :help command.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MakeNowJust/heredoc"

	"github.com/imp-lang/imp/pkg/diagnostics"
)

// Version is the language reference version printed in QUICKREF.
const Version = "v0.3"

// TopicList is the display order of the help topics.
var TopicList = []string{"syntax", "types", "io", "scopes", "errors", "repl"}

// QUICKREF is printed by `imp help` with no topic.
var QUICKREF = heredoc.Docf(`
	imp %s quick reference

	  int x = 5;                 declare with initializer
	  string s;                  declare (zero value "")
	  x = x + 1;                 assign (types must match)
	  if (x > 3) write(x); else write(0);
	  while (x < 10) { x = x + 1; }
	  for (x = 0; x < 3; x = x + 1) write(x);
	  write(read_int());         read and echo an int
	  exit();                    stop the program

	Commands:
	  imp run <file> [--input <file>]   run a program
	  imp check <file>                  parse only
	  imp fmt <file> [--write]          reformat source
	  imp repl                          interactive session
	  imp trace <log.jsonl> [--text]    summarize a --log-json session log
	  imp config                        print the effective configuration
	  imp help <topic>                  show a topic
	  imp help errors --index           list error codes

	Topics: %s
`, Version, strings.Join(TopicList, ", "))

// Topics maps topic names to their pages.
var Topics = map[string]string{
	"syntax": heredoc.Doc(`
		SYNTAX

		A program is a sequence of commands. Every simple statement ends with ';'.
		A lone ';' is an empty command. Comments run from // to end of line.

		  { ... }                        block; opens a scope
		  if (cond) cmd [else cmd]       else binds to the nearest if
		  while (cond) cmd
		  for (init; cond; after) cmd    init/after: declaration, assignment,
		                                 write or expression; empty cond is true

		Operators, lowest to highest precedence:
		  ||   &&   == !=   < > <= >=   + -   * /   unary ! -

		Both operands of && and || are always evaluated.
	`),
	"types": heredoc.Doc(`
		TYPES

		int      64-bit signed integer, zero value 0
		string   text, zero value ""

		There is no boolean type. Conditions and the logical operators take ints;
		any nonzero int is true, and they produce 0 or 1.

		Arithmetic, comparison and logic are defined only on ints. Assignment and
		initialization require the variable and the value to have the same type.
		Integer division truncates toward zero; dividing by zero is an error.
	`),
	"io": heredoc.Doc(`
		INPUT AND OUTPUT

		write(expr)     prints the value followed by a newline
		read_int()      next integer token (optional sign, decimal digits)
		read_word()     next whitespace-delimited token as a string
		read_line()     rest of the current input line, or the next line

		Input is read a line at a time. Tokens are taken from the buffered line
		and a new line is read only when the buffer is used up. If the next token
		is not an integer, read_int fails and leaves the token in place.
		Once input is exhausted every further read fails.
	`),
	"scopes": heredoc.Doc(`
		SCOPES

		Every braced block opens a scope; names declared in it are freed when the
		block exits. Names live in one flat table, so a name cannot be declared
		while any enclosing block still holds it:

		  int a = 1;
		  { int a = 2; }     error: Redefinition of variable a

		After the owning block exits the name can be declared again anywhere.
		A for loop does not open a scope; its init declaration belongs to the
		enclosing block.
	`),
	"errors": heredoc.Doc(`
		ERRORS

		A runtime error stops the current top-level statement and is printed as
		"Error: <message>". Effects that already happened are kept, and the
		program continues with the next top-level statement. exit() stops the
		whole program.

		Use "imp help errors --index" for the list of error codes.
	`),
	"repl": heredoc.Doc(`
		REPL

		Enter statements as in a source file. Input that ends mid-statement is
		continued on the next line. Variables persist between entries.

		  :help [topic]   show help
		  :vars           list declared variables
		  :fmt            reformat the last entry
		  :reset          forget all variables
		  :load <file>    run a file in this session
		  :quit           leave (also Ctrl-D or exit();)
	`),
}

var errorCodes = map[string]string{
	diagnostics.ELex:            "invalid character or malformed literal",
	diagnostics.EParse:          "syntax error",
	diagnostics.EIncomplete:     "input ended in the middle of a statement",
	diagnostics.EIO:             "file or output failure",
	diagnostics.ERedefinition:   "name already declared in an active scope",
	diagnostics.EUndefined:      "no variable with that name",
	diagnostics.EStackUnderflow: "operand stack exhausted",
	diagnostics.ENotInt:         "arithmetic on a non-int",
	diagnostics.ENotBoolInt:     "condition or logic on a non-int",
	diagnostics.ETypeMismatch:   "variable and value types differ",
	diagnostics.EDivZero:        "division by zero",
	diagnostics.ECannotRead:     "input token missing or malformed",
	diagnostics.EBudget:         "loop iteration limit reached",
}

// ErrorIndex lists every diagnostic code with a one-line description.
func ErrorIndex() string {
	codes := make([]string, 0, len(errorCodes))
	for code := range errorCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var b strings.Builder
	b.WriteString("ERROR CODES\n\n")
	for _, code := range codes {
		fmt.Fprintf(&b, "  %-18s %s\n", code, errorCodes[code])
	}
	fmt.Fprintf(&b, "\nTotal: %d codes\n", len(codes))
	return b.String()
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	case 1:
		return matches[0], Topics[matches[0]], nil
	default:
		return "", "", fmt.Errorf("ambiguous help topic %q (matches %s)", query, strings.Join(matches, ", "))
	}
}
