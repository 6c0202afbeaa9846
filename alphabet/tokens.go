package alphabet

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrEmptyToken is returned when one of the tokens is the empty string.
var ErrEmptyToken = errors.New("tokens must not be empty strings")

// Tokens is an alphabet whose symbols are arbitrary strings, for example
// dictionary words. Tokens are deduplicated and sorted lexicographically.
type Tokens struct {
	symbols
}

// NewTokens builds an alphabet from the given tokens.
func NewTokens(tokens []string) (*Tokens, error) {
	if len(tokens) == 0 {
		return nil, ErrEmpty
	}
	elements := slices.Clone(tokens)
	if slices.Contains(elements, "") {
		return nil, ErrEmptyToken
	}
	slices.Sort(elements)
	elements = slices.Compact(elements)

	return &Tokens{symbols: newSymbols(elements)}, nil
}

// Parse greedily matches tokens from the left, trying them in sorted order.
//
// The result is only guaranteed to be correct when no token is a prefix of
// another one; otherwise Parse may pick the wrong split or fail on a string
// that BuildString produced.
func (a *Tokens) Parse(s string) ([]int, error) {
	value := make([]int, 0)
	rest := s
next:
	for rest != "" {
		for i, token := range a.elements {
			if strings.HasPrefix(rest, token) {
				rest = rest[len(token):]
				value = append(value, i)
				continue next
			}
		}
		return nil, fmt.Errorf("%w: no token matches at byte %d of %q", ErrUnparsable, len(s)-len(rest), s)
	}
	return reverse(value), nil
}
