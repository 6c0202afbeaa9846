// Package alphabet provides the ordered, immutable symbol sets that candidate
// passwords are built from.
//
// An Alphabet maps symbol ordinals in [0, Size()) to their string rendering
// and back. Candidate values handled by BuildString and Parse are bijective
// numerals: slot 0 holds the least significant symbol and the rendered
// password lists the active slots from the most significant one down, so
// that candidates sort the way they are enumerated.
//
// Two variants are provided:
//   - Characters: single characters drawn from built-in classes plus extras
//   - Tokens: arbitrary, possibly multi-character strings such as words
//
// Example usage:
//
//	abc, _ := alphabet.NewCharacters(alphabet.Digits, "")
//	password, _ := abc.BuildString([]int{1, 0, alphabet.Unused}) // "01"
//	value, _ := abc.Parse(password)                              // [1 0]
package alphabet

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Unused marks a slot of a candidate value that is not part of the password.
// All slots after the first Unused slot must also be Unused.
const Unused = -1

var (
	// ErrEmpty is returned when an alphabet would contain no symbols.
	ErrEmpty = errors.New("alphabet cannot be empty")
	// ErrInvalidIndex is returned when a candidate value holds an index
	// outside [0, Size()) or has a gap in its active slots.
	ErrInvalidIndex = errors.New("illegal symbol index in value")
	// ErrUnparsable is returned when a string cannot be decomposed into
	// symbols of the alphabet.
	ErrUnparsable = errors.New("value cannot be decomposed into alphabet symbols")
)

// Alphabet is an ordered finite set of symbols.
type Alphabet interface {
	// Size returns the number of symbols.
	Size() int
	// SizeBig returns the number of symbols as a big.Int.
	SizeBig() *big.Int
	// Element returns the symbol at ordinal i. It panics if i is out of range.
	Element(i int) string
	// BuildString renders a candidate value into its password.
	BuildString(value []int) (string, error)
	// Parse is the inverse of BuildString. The returned value has exactly
	// one slot per symbol and no Unused tail.
	Parse(s string) ([]int, error)
}

// symbols is the shared implementation of both alphabet variants.
type symbols struct {
	elements []string
	size     *big.Int
}

func newSymbols(elements []string) symbols {
	return symbols{
		elements: elements,
		size:     big.NewInt(int64(len(elements))),
	}
}

func (s *symbols) Size() int {
	return len(s.elements)
}

func (s *symbols) SizeBig() *big.Int {
	return new(big.Int).Set(s.size)
}

func (s *symbols) Element(i int) string {
	if i < 0 || i >= len(s.elements) {
		panic(fmt.Sprintf("alphabet: element index %d out of range [0, %d)", i, len(s.elements)))
	}
	return s.elements[i]
}

// ActiveLength returns the number of slots before the first Unused slot.
func ActiveLength(value []int) int {
	for i, d := range value {
		if d == Unused {
			return i
		}
	}
	return len(value)
}

func (s *symbols) BuildString(value []int) (string, error) {
	n := ActiveLength(value)
	for i := n; i < len(value); i++ {
		if value[i] != Unused {
			return "", fmt.Errorf("%w: slot %d follows an unused slot", ErrInvalidIndex, i)
		}
	}

	var sb strings.Builder
	for i := n - 1; i >= 0; i-- {
		d := value[i]
		if d < 0 || d >= len(s.elements) {
			return "", fmt.Errorf("%w: %d at slot %d", ErrInvalidIndex, d, i)
		}
		sb.WriteString(s.elements[d])
	}
	return sb.String(), nil
}

// reverse turns symbol ordinals listed in password order into slot order.
func reverse(indices []int) []int {
	for i, j := 0, len(indices)-1; i < j; i, j = i+1, j-1 {
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices
}
