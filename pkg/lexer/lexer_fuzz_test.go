package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
// The lexer should never panic; invalid input must surface as an error.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		// Keywords
		`int string if else while for`,
		`write exit read_int read_word read_line`,
		// Literals
		`42 0 -1 007`,
		`"hello" "with\nescape" "quote\""`,
		// Operators
		`+ - * / == != < > <= >= && || !`,
		// Delimiters
		`{ } ( ) ; =`,
		// Comments
		`// this is a comment`,
		// Mixed
		`int x = 5; write(x);`,
		`while (i < 3) { write(i); i = i + 1; }`,
		// Edge cases
		``,
		`   `,
		"\t\n\r",
		`"unterminated`,
		`"""`,
		`@#$^&`,
		`\x00`,
		`&`,
		`|`,
		`/`,
		`"\`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			Tokenize(input, "fuzz.imp")
		}()
	})
}
