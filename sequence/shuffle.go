package sequence

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync/atomic"
)

// Shuffle is a bijection of [0, size) onto itself computed as
// (a·x + c) mod size with gcd(a, size) = 1. It visits every index exactly
// once in an order that differs between instances, using O(1) memory.
//
// Shuffle does not provide cryptographic unpredictability; a and c are only
// drawn with crypto/rand so that separate runs do not collide.
type Shuffle struct {
	size *big.Int
	a    *big.Int
	c    *big.Int
}

// NewShuffle creates a random permutation of [0, size).
func NewShuffle(size *big.Int) (*Shuffle, error) {
	if size.Sign() < 0 {
		return nil, fmt.Errorf("shuffle size %s cannot be negative", size)
	}
	s := &Shuffle{
		size: new(big.Int).Set(size),
		a:    big.NewInt(1),
		c:    new(big.Int),
	}
	if size.Cmp(big.NewInt(2)) < 0 {
		return s, nil
	}

	var err error
	s.c, err = rand.Int(rand.Reader, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random increment: %w", err)
	}

	// Draw multipliers until one is coprime with size. Half of all integers
	// are odd, so for any size this converges quickly in practice.
	gcd := new(big.Int)
	for {
		a, err := rand.Int(rand.Reader, size)
		if err != nil {
			return nil, fmt.Errorf("failed to generate random multiplier: %w", err)
		}
		if a.Sign() == 0 {
			continue
		}
		if gcd.GCD(nil, nil, a, size).Cmp(big.NewInt(1)) == 0 {
			s.a = a
			return s, nil
		}
	}
}

// Size returns the number of elements in the permutation.
func (s *Shuffle) Size() *big.Int {
	return new(big.Int).Set(s.size)
}

// At returns the permuted position of index, which must be in [0, size).
// At is stateless and safe for concurrent use.
func (s *Shuffle) At(index *big.Int) *big.Int {
	if s.size.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(index, s.a)
	out.Add(out, s.c)
	return out.Mod(out, s.size)
}

// ShuffledIterator yields the remaining candidates of a Simple sequence in a
// random order. It is safe for concurrent use: an atomic counter hands every
// caller a distinct position.
type ShuffledIterator struct {
	seq     *Sequence
	shuffle *Shuffle
	index   atomic.Uint64
}

// Shuffled returns an iterator over the same candidates as Iterator, in a
// random order. Only Simple sequences support random access.
func (s *Sequence) Shuffled() (*ShuffledIterator, error) {
	if s.policy != Simple {
		return nil, ErrPolicy
	}
	shuffle, err := NewShuffle(s.Remaining())
	if err != nil {
		return nil, err
	}
	return &ShuffledIterator{seq: s, shuffle: shuffle}, nil
}

// Next returns the next candidate and its index relative to the start value,
// or false once every candidate has been handed out.
func (it *ShuffledIterator) Next() (Value, *big.Int, bool) {
	position := new(big.Int).SetUint64(it.index.Add(1) - 1)
	if position.Cmp(it.shuffle.size) >= 0 {
		return nil, nil, false
	}
	index := it.shuffle.At(position)
	v, err := it.seq.ValueAt(index)
	if err != nil {
		// index is always below Remaining
		panic(err)
	}
	return v, index, true
}

// Size returns the number of candidates the iterator produces.
func (it *ShuffledIterator) Size() *big.Int {
	return it.shuffle.Size()
}
