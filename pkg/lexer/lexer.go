// Package lexer implements the imp language tokenizer.
package lexer

import (
	"fmt"
	"strings"

	"github.com/imp-lang/imp/pkg/ast"
	"github.com/imp-lang/imp/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokInt TokenType = iota
	TokString
	TokIf
	TokElse
	TokWhile
	TokFor
	TokWrite
	TokExit
	TokReadInt
	TokReadWord
	TokReadLine

	// Literals
	TokIntLit
	TokStringLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace    // {
	TokRBrace    // }
	TokLParen    // (
	TokRParen    // )
	TokSemicolon // ;
	TokEquals    // =

	// Comparison operators
	TokGtEq   // >=
	TokLtEq   // <=
	TokEqEq   // ==
	TokBangEq // !=
	TokGt     // >
	TokLt     // <

	// Logical operators
	TokAndAnd // &&
	TokOrOr   // ||
	TokBang   // !

	// Arithmetic operators
	TokPlus  // +
	TokMinus // -
	TokStar  // *
	TokSlash // /

	// Special
	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"int":       TokInt,
	"string":    TokString,
	"if":        TokIf,
	"else":      TokElse,
	"while":     TokWhile,
	"for":       TokFor,
	"write":     TokWrite,
	"exit":      TokExit,
	"read_int":  TokReadInt,
	"read_word": TokReadWord,
	"read_line": TokReadLine,
}

// IsKeyword reports whether t is a reserved word.
func IsKeyword(t TokenType) bool {
	return t >= TokInt && t <= TokReadLine
}

// operators lists every punctuation spelling. Two-byte spellings come first
// so the longest match wins.
var operators = []struct {
	text string
	typ  TokenType
}{
	{"==", TokEqEq}, {"!=", TokBangEq}, {"<=", TokLtEq}, {">=", TokGtEq},
	{"&&", TokAndAnd}, {"||", TokOrOr},
	{"{", TokLBrace}, {"}", TokRBrace}, {"(", TokLParen}, {")", TokRParen},
	{";", TokSemicolon}, {"=", TokEquals}, {"!", TokBang},
	{"<", TokLt}, {">", TokGt},
	{"+", TokPlus}, {"-", TokMinus}, {"*", TokStar}, {"/", TokSlash},
}

var escapes = map[byte]byte{'"': '"', '\\': '\\', 'n': '\n', 'r': '\r', 't': '\t'}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// lexer walks the source byte by byte. mark* record where the current token
// started.
type lexer struct {
	src  string
	file string

	off, line, col int

	mark, markLine, markCol int
}

func (lx *lexer) done() bool { return lx.off >= len(lx.src) }

// at returns the byte i positions ahead, or 0 past the end.
func (lx *lexer) at(i int) byte {
	if lx.off+i >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+i]
}

func (lx *lexer) step(n int) {
	for ; n > 0 && !lx.done(); n-- {
		if lx.src[lx.off] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.off++
	}
}

func (lx *lexer) begin() {
	lx.mark, lx.markLine, lx.markCol = lx.off, lx.line, lx.col
}

func (lx *lexer) token(typ TokenType, value string) Token {
	return Token{
		Type:  typ,
		Value: value,
		Span: ast.Span{
			File:      lx.file,
			StartLine: lx.markLine,
			StartCol:  lx.markCol,
			EndLine:   lx.line,
			EndCol:    lx.col,
		},
	}
}

func (lx *lexer) fail(format string, args ...any) error {
	span := &ast.Span{
		File:      lx.file,
		StartLine: lx.markLine,
		StartCol:  lx.markCol,
		EndLine:   lx.markLine,
		EndCol:    lx.markCol + 1,
	}
	return &LexError{Diag: diagnostics.MakeDiag(diagnostics.ELex, fmt.Sprintf(format, args...), span, "")}
}

// skipTrivia drops whitespace and // comments.
func (lx *lexer) skipTrivia() {
	for !lx.done() {
		switch c := lx.at(0); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			lx.step(1)
		case c == '/' && lx.at(1) == '/':
			for !lx.done() && lx.at(0) != '\n' {
				lx.step(1)
			}
		default:
			return
		}
	}
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

// take consumes bytes while ok holds and returns the consumed text.
func (lx *lexer) take(ok func(byte) bool) string {
	for !lx.done() && ok(lx.at(0)) {
		lx.step(1)
	}
	return lx.src[lx.mark:lx.off]
}

func (lx *lexer) stringLit() (Token, error) {
	lx.step(1)
	var b strings.Builder
	for !lx.done() {
		c := lx.at(0)
		switch c {
		case '"':
			lx.step(1)
			return lx.token(TokStringLit, b.String()), nil
		case '\n':
			return Token{}, lx.fail("unterminated string literal")
		case '\\':
			if lx.off+1 >= len(lx.src) {
				return Token{}, lx.fail("unterminated string escape")
			}
			esc, ok := escapes[lx.at(1)]
			if !ok {
				return Token{}, lx.fail("invalid escape character: \\%c", lx.at(1))
			}
			b.WriteByte(esc)
			lx.step(2)
		default:
			b.WriteByte(c)
			lx.step(1)
		}
	}
	return Token{}, lx.fail("unterminated string literal")
}

func (lx *lexer) next() (Token, error) {
	lx.skipTrivia()
	lx.begin()
	if lx.done() {
		return lx.token(TokEOF, ""), nil
	}

	c := lx.at(0)
	switch {
	case c == '"':
		return lx.stringLit()
	case isDigit(c):
		return lx.token(TokIntLit, lx.take(isDigit)), nil
	case isIdentStart(c):
		word := lx.take(isIdentPart)
		if typ, ok := keywords[word]; ok {
			return lx.token(typ, word), nil
		}
		return lx.token(TokIdent, word), nil
	}

	rest := lx.src[lx.off:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			lx.step(len(op.text))
			return lx.token(op.typ, op.text), nil
		}
	}

	lx.step(1)
	switch c {
	case '&':
		return Token{}, lx.fail("unexpected character '&', did you mean '&&'?")
	case '|':
		return Token{}, lx.fail("unexpected character '|', did you mean '||'?")
	}
	return Token{}, lx.fail("unexpected character '%c'", c)
}

// Tokenize splits source into tokens, ending with a TokEOF token. The first
// lex error stops scanning.
func Tokenize(source, filename string) ([]Token, error) {
	lx := &lexer{src: source, file: filename, line: 1, col: 1}
	var tokens []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			return tokens, nil
		}
	}
}
