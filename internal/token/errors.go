package token

import (
	"errors"
	"fmt"
)

// LexError reports an ill-formed byte stream: an unknown character, an
// unterminated comment or string, or an integer constant out of range.
type LexError struct {
	Line   int
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Reason)
}

var (
	errUnterminatedString  = errors.New("unterminated string constant")
	errUnterminatedComment = errors.New("unterminated comment")
)

func errUnexpectedChar(r rune) error {
	return fmt.Errorf("unexpected character %q", r)
}

func errIntOverflow(text string) error {
	return fmt.Errorf("integer constant %q exceeds %d", text, MaxInt)
}

// lexErrorAt wraps a plain reason error produced by matchToken with the
// line it occurred on, so callers always see a *LexError.
func lexErrorAt(line int, reason error) *LexError {
	return &LexError{Line: line, Reason: reason.Error()}
}
