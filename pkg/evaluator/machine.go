package evaluator

import (
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/imp-lang/imp/pkg/ast"
	"github.com/imp-lang/imp/pkg/diagnostics"
)

// Machine owns the operand stack, the variable table and the scope frames, and
// performs all buffered I/O. The variable table is flat: a name can be active
// only once regardless of how many frames are open.
type Machine struct {
	vars   map[string]*Value
	frames [][]string
	stack  []Value

	in  LineReader
	buf string // remainder of the last input line
	eof bool
	out io.Writer
}

// Binding is a snapshot of one active variable.
type Binding struct {
	Name  string
	Value Value
}

// NewMachine creates a machine reading from in and writing to out. A nil in
// behaves as empty input; a nil out discards output. The outermost frame is
// open for the machine's lifetime.
func NewMachine(in LineReader, out io.Writer) *Machine {
	if in == nil {
		in = NoInput
	}
	if out == nil {
		out = io.Discard
	}
	return &Machine{
		vars:   make(map[string]*Value),
		frames: [][]string{nil},
		in:     in,
		out:    out,
	}
}

// --- Variables and scopes ---

// Declare binds name to the zero value of kind in the innermost frame.
func (m *Machine) Declare(kind ast.Type, name string) error {
	if _, ok := m.vars[name]; ok {
		return errRedefinition(name)
	}
	v := Zero(kind)
	m.vars[name] = &v
	top := len(m.frames) - 1
	m.frames[top] = append(m.frames[top], name)
	return nil
}

// EnterScope opens a new frame.
func (m *Machine) EnterScope() {
	m.frames = append(m.frames, nil)
}

// LeaveScope closes the innermost frame and frees every name declared in it.
// The outermost frame is never closed.
func (m *Machine) LeaveScope() {
	if len(m.frames) <= 1 {
		return
	}
	top := len(m.frames) - 1
	for _, name := range m.frames[top] {
		delete(m.vars, name)
	}
	m.frames = m.frames[:top]
}

// ScopeDepth is the number of open frames, including the outermost one.
func (m *Machine) ScopeDepth() int {
	return len(m.frames)
}

// Lookup returns the storage of an active variable.
func (m *Machine) Lookup(name string) (*Value, error) {
	v, ok := m.vars[name]
	if !ok {
		return nil, errUndefined(name)
	}
	return v, nil
}

// Vars lists the active variables sorted by name.
func (m *Machine) Vars() []Binding {
	out := make([]Binding, 0, len(m.vars))
	for name, v := range m.vars {
		out = append(out, Binding{Name: name, Value: *v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset drops every variable, frame and stack slot. Buffered input is kept.
func (m *Machine) Reset() {
	m.vars = make(map[string]*Value)
	m.frames = [][]string{nil}
	m.stack = m.stack[:0]
}

// --- Operand stack ---

// Push places a copy of v on top of the stack.
func (m *Machine) Push(v Value) {
	m.stack = append(m.stack, v)
}

// PushZero pushes the zero value of kind.
func (m *Machine) PushZero(kind ast.Type) {
	m.stack = append(m.stack, Zero(kind))
}

// Top addresses the k-th slot from the top; k=0 is the top.
func (m *Machine) Top(k int) (*Value, error) {
	if k < 0 || k >= len(m.stack) {
		return nil, errStackUnderflow()
	}
	return &m.stack[len(m.stack)-1-k], nil
}

// Pop removes and returns the top value.
func (m *Machine) Pop() (Value, error) {
	if len(m.stack) == 0 {
		return Value{}, errStackUnderflow()
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

// Depth is the current operand stack size.
func (m *Machine) Depth() int {
	return len(m.stack)
}

// Truncate shrinks the stack to depth n. Used to discard the partial results
// of a statement that failed.
func (m *Machine) Truncate(n int) {
	if n >= 0 && n < len(m.stack) {
		m.stack = m.stack[:n]
	}
}

// --- Input ---

// refill replaces the buffer with the next input line. End of input is
// sticky; other reader errors only fail the current read.
func (m *Machine) refill() error {
	if m.eof {
		return errCannotRead()
	}
	line, err := m.in.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			m.eof = true
		}
		return errCannotRead()
	}
	m.buf = line
	return nil
}

// nextToken skips whitespace, refilling across exhausted lines, and returns
// the buffer positioned at the first non-space byte.
func (m *Machine) nextToken() error {
	for {
		m.buf = strings.TrimLeftFunc(m.buf, unicode.IsSpace)
		if m.buf != "" {
			return nil
		}
		if err := m.refill(); err != nil {
			return err
		}
	}
}

// ReadInt extracts an optional sign and decimal digits and pushes the int.
// Anything after the digits stays buffered. A token that is not an int is left
// in place and the read fails.
func (m *Machine) ReadInt() error {
	if err := m.nextToken(); err != nil {
		return err
	}
	end := 0
	if m.buf[0] == '+' || m.buf[0] == '-' {
		end = 1
	}
	digits := end
	for end < len(m.buf) && m.buf[end] >= '0' && m.buf[end] <= '9' {
		end++
	}
	if end == digits {
		return errCannotRead()
	}
	n, err := strconv.ParseInt(m.buf[:end], 10, 64)
	if err != nil {
		return errCannotRead()
	}
	m.buf = m.buf[end:]
	m.Push(IntValue(n))
	return nil
}

// ReadWord pushes the next whitespace-delimited token as a string.
func (m *Machine) ReadWord() error {
	if err := m.nextToken(); err != nil {
		return err
	}
	end := strings.IndexFunc(m.buf, unicode.IsSpace)
	if end < 0 {
		end = len(m.buf)
	}
	m.Push(StringValue(m.buf[:end]))
	m.buf = m.buf[end:]
	return nil
}

// ReadLine pushes the rest of the buffered line, or the next full line when
// only whitespace remains.
func (m *Machine) ReadLine() error {
	rest := strings.TrimLeftFunc(m.buf, unicode.IsSpace)
	if rest == "" {
		if err := m.refill(); err != nil {
			return err
		}
		rest = m.buf
	}
	m.buf = ""
	m.Push(StringValue(rest))
	return nil
}

// --- Output ---

// Write pops the top value and emits it followed by a newline.
func (m *Machine) Write() error {
	v, err := m.Pop()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(m.out, v.String()+"\n"); err != nil {
		return &RuntimeError{Code: diagnostics.EIO, Message: "write failed: " + err.Error()}
	}
	return nil
}
