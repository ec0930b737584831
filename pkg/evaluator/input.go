package evaluator

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// LineReader supplies input one line at a time. ReadLine returns the line
// without its terminator, and io.EOF once the source is exhausted.
type LineReader interface {
	ReadLine() (string, error)
}

// LineReaderFunc adapts a function to LineReader.
type LineReaderFunc func() (string, error)

func (f LineReaderFunc) ReadLine() (string, error) { return f() }

type readerLines struct {
	r *bufio.Reader
}

// NewReaderLines reads lines from r. A final line without a newline is still
// returned before io.EOF.
func NewReaderLines(r io.Reader) LineReader {
	return &readerLines{r: bufio.NewReader(r)}
}

func (l *readerLines) ReadLine() (string, error) {
	line, err := l.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return trimEOL(line), nil
		}
		return "", err
	}
	return trimEOL(line), nil
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// NoInput is a LineReader that is already at end of input.
var NoInput LineReader = LineReaderFunc(func() (string, error) { return "", io.EOF })
