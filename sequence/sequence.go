// Package sequence enumerates password candidates over an alphabet in a
// well-defined, resumable order.
//
// A candidate is a bijective base-K numeral of fixed width maxLength, where K
// is the alphabet size. Every digit ranges over {Unused} ∪ {0, …, K-1} and is
// valued one higher than its symbol index, so short and long candidates never
// collide and every candidate has a unique, exactly computable index:
//
//	raw(v) = Σ (v[i] + 1) · K^i   over the active slots i
//
// Candidates are produced in strictly increasing raw order, starting at a
// configurable start value and ending with the all-(K-1) value of length
// maxLength. All sizes and indices are arbitrary precision.
//
// Two ordering policies are supported:
//   - Simple: every numeral is a candidate (symbols may repeat)
//   - Permutations: numerals with a repeated symbol index are skipped
//
// Example usage:
//
//	abc, _ := alphabet.NewCharacters(0, "ab")
//	seq, _ := sequence.New(abc, sequence.Simple, 1, 2, nil)
//	it := seq.Iterator()
//	for {
//	    v, ok := it.Next()
//	    if !ok {
//	        break
//	    }
//	    password, _ := seq.Render(v) // a, b, aa, ab, ba, bb
//	}
package sequence

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/lanrat/passcracker/alphabet"
)

var (
	// ErrLength is returned for invalid length bounds.
	ErrLength = errors.New("illegal minimum and/or maximum length")
	// ErrAlphabetTooSmall is returned when permutations without repetition
	// are requested with a maximum length above the alphabet size.
	ErrAlphabetTooSmall = errors.New("impossible to create permutations without repetitions: maximum length is greater than the size of alphabet")
	// ErrStartValue is returned for a start value outside the sequence.
	ErrStartValue = errors.New("illegal start value")
	// ErrValue is returned for a value that is not a candidate of the
	// sequence.
	ErrValue = errors.New("value is not a candidate of the sequence")
	// ErrPolicy is returned by operations the ordering policy does not support.
	ErrPolicy = errors.New("operation not supported by this ordering policy")
)

// Policy selects how candidates are ordered and filtered.
type Policy int

const (
	// Simple yields every numeral, symbols may repeat.
	Simple Policy = iota
	// Permutations yields only numerals whose active symbols are distinct.
	Permutations
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case Simple:
		return "simple"
	case Permutations:
		return "permutations"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name as produced by Policy.String.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "simple":
		return Simple, nil
	case "permutations":
		return Permutations, nil
	default:
		return 0, fmt.Errorf("sequence type %q is not supported", name)
	}
}

// Sequence is an immutable, finite candidate space. It is safe for
// concurrent use; each traversal gets its own Iterator.
type Sequence struct {
	alphabet  alphabet.Alphabet
	policy    Policy
	minLength int
	maxLength int

	base  *big.Int
	start Value

	// raw valuations
	minRaw   *big.Int // all-zero value of length minLength
	maxRaw   *big.Int // all-(K-1) value of length maxLength
	startRaw *big.Int

	size *big.Int
}

// New creates a sequence over a for candidates of minLength to maxLength
// symbols. A nil start begins at the all-zero value of length minLength.
//
// Returns an error if:
//   - minLength < 0 or minLength > maxLength (ErrLength)
//   - policy is Permutations and maxLength > a.Size() (ErrAlphabetTooSmall)
//   - start has a length outside the bounds, a gap, or an index outside
//     the alphabet (ErrStartValue)
func New(a alphabet.Alphabet, policy Policy, minLength, maxLength int, start Value) (*Sequence, error) {
	if a == nil || a.Size() == 0 {
		return nil, alphabet.ErrEmpty
	}
	if minLength < 0 || maxLength < minLength {
		return nil, fmt.Errorf("%w: min %d, max %d", ErrLength, minLength, maxLength)
	}
	switch policy {
	case Simple:
	case Permutations:
		if maxLength > a.Size() {
			return nil, fmt.Errorf("%w (%d > %d)", ErrAlphabetTooSmall, maxLength, a.Size())
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrPolicy, policy)
	}

	s := &Sequence{
		alphabet:  a,
		policy:    policy,
		minLength: minLength,
		maxLength: maxLength,
		base:      a.SizeBig(),
	}

	if start == nil {
		s.start = filled(maxLength, minLength, 0)
	} else {
		v, err := s.normalize(start)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStartValue, err)
		}
		s.start = v
	}

	s.minRaw = s.raw(filled(maxLength, minLength, 0))
	s.maxRaw = s.raw(filled(maxLength, maxLength, a.Size()-1))
	s.startRaw = s.raw(s.start)

	switch policy {
	case Simple:
		s.size = s.Span()
	case Permutations:
		s.size = fallingFactorialSum(a.Size(), minLength, maxLength)
	}
	return s, nil
}

// filled returns a value of the given width whose first n slots hold digit.
func filled(width, n, digit int) Value {
	v := make(Value, width)
	for i := range v {
		if i < n {
			v[i] = digit
		} else {
			v[i] = Unused
		}
	}
	return v
}

// normalize validates v against the sequence bounds and returns a copy of
// width maxLength.
func (s *Sequence) normalize(v Value) (Value, error) {
	n := v.Len()
	for i := n; i < len(v); i++ {
		if v[i] != Unused {
			return nil, fmt.Errorf("slot %d follows an unused slot", i)
		}
	}
	if n < s.minLength || n > s.maxLength {
		return nil, fmt.Errorf("length %d outside [%d, %d]", n, s.minLength, s.maxLength)
	}
	k := s.alphabet.Size()
	out := filled(s.maxLength, 0, 0)
	for i := 0; i < n; i++ {
		if v[i] < 0 || v[i] >= k {
			return nil, fmt.Errorf("symbol index %d at slot %d outside [0, %d)", v[i], i, k)
		}
		out[i] = v[i]
	}
	return out, nil
}

// raw returns the bijective base-K valuation of v.
func (s *Sequence) raw(v Value) *big.Int {
	index := new(big.Int)
	power := big.NewInt(1)
	digit := new(big.Int)
	for i := 0; i < len(v) && v[i] != Unused; i++ {
		digit.SetInt64(int64(v[i]) + 1)
		index.Add(index, digit.Mul(digit, power))
		power.Mul(power, s.base)
	}
	return index
}

// fallingFactorialSum returns Σ_{L=min}^{max} k·(k-1)·…·(k-L+1).
func fallingFactorialSum(k, minLength, maxLength int) *big.Int {
	sum := new(big.Int)
	term := big.NewInt(1) // k falling 0
	for l := 0; l <= maxLength; l++ {
		if l > 0 {
			term.Mul(term, big.NewInt(int64(k-l+1)))
		}
		if l >= minLength {
			sum.Add(sum, term)
		}
	}
	return sum
}

// Alphabet returns the alphabet the sequence is built on.
func (s *Sequence) Alphabet() alphabet.Alphabet {
	return s.alphabet
}

// Policy returns the ordering policy.
func (s *Sequence) Policy() Policy {
	return s.policy
}

// MinLength returns the minimum candidate length in symbols.
func (s *Sequence) MinLength() int {
	return s.minLength
}

// MaxLength returns the maximum candidate length in symbols, which is also
// the width of every Value of this sequence.
func (s *Sequence) MaxLength() int {
	return s.maxLength
}

// Start returns a copy of the configured start value.
func (s *Sequence) Start() Value {
	return s.start.Clone()
}

// Size returns the exact number of candidates between the all-zero value of
// length minLength and the all-(K-1) value of length maxLength. For
// Permutations this is the falling factorial sum, not the numeral span.
func (s *Sequence) Size() *big.Int {
	return new(big.Int).Set(s.size)
}

// Span returns the number of numerals between the all-zero value of length
// minLength and the all-(K-1) value of length maxLength, repeated symbols
// included. It equals Size for Simple sequences.
func (s *Sequence) Span() *big.Int {
	span := new(big.Int).Sub(s.maxRaw, s.minRaw)
	return span.Add(span, big.NewInt(1))
}

// Offset returns the numeral position of the start value within Span.
// It is zero unless the sequence was resumed from a start value.
func (s *Sequence) Offset() *big.Int {
	return new(big.Int).Sub(s.startRaw, s.minRaw)
}

// Remaining returns the number of numerals from the start value to the end
// of the sequence, inclusive.
func (s *Sequence) Remaining() *big.Int {
	rem := new(big.Int).Sub(s.maxRaw, s.startRaw)
	return rem.Add(rem, big.NewInt(1))
}

// IndexOf returns the index of v relative to the start value, so the first
// produced candidate has index 0.
//
// For Permutations the index is computed with numeral arithmetic and is
// therefore only an approximate rank within the filtered sequence.
func (s *Sequence) IndexOf(v Value) (*big.Int, error) {
	n, err := s.normalize(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValue, err)
	}
	index := s.raw(n)
	return index.Sub(index, s.startRaw), nil
}

// IndexOfString parses password with the sequence alphabet and returns its
// index.
func (s *Sequence) IndexOfString(password string) (*big.Int, error) {
	v, err := s.Parse(password)
	if err != nil {
		return nil, err
	}
	return s.IndexOf(v)
}

// ValueAt returns the candidate at index, counted from the start value. It
// is the inverse of IndexOf and only defined for Simple sequences.
func (s *Sequence) ValueAt(index *big.Int) (Value, error) {
	if s.policy != Simple {
		return nil, ErrPolicy
	}
	if index.Sign() < 0 || index.Cmp(s.Remaining()) >= 0 {
		return nil, fmt.Errorf("index %s outside [0, %s)", index, s.Remaining())
	}

	n := new(big.Int).Add(s.startRaw, index)
	v := filled(s.maxLength, 0, 0)
	digit := new(big.Int)
	one := big.NewInt(1)
	for i := 0; n.Sign() > 0; i++ {
		n.Sub(n, one)
		n.DivMod(n, s.base, digit)
		v[i] = int(digit.Int64())
	}
	return v, nil
}

// Render builds the password for v.
func (s *Sequence) Render(v Value) (string, error) {
	return s.alphabet.BuildString(v)
}

// Parse converts a password into a Value of this sequence's width.
func (s *Sequence) Parse(password string) (Value, error) {
	digits, err := s.alphabet.Parse(password)
	if err != nil {
		return nil, err
	}
	if len(digits) > s.maxLength {
		return nil, fmt.Errorf("%w: %q has %d symbols, maximum is %d", ErrValue, password, len(digits), s.maxLength)
	}
	v := filled(s.maxLength, 0, 0)
	copy(v, digits)
	return v, nil
}

// Iterator returns a new iterator positioned at the start value.
func (s *Sequence) Iterator() *Iterator {
	return newIterator(s)
}
