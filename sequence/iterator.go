package sequence

import "iter"

// Iterator walks a Sequence in increasing index order. An Iterator is not
// safe for concurrent use; share candidates through a channel instead.
//
// Example usage:
//
//	it := seq.Iterator()
//	for v := range it.All() {
//	    password, _ := seq.Render(v)
//	    // test password
//	}
type Iterator struct {
	seq     *Sequence
	current Value
	done    bool
}

func newIterator(s *Sequence) *Iterator {
	it := &Iterator{
		seq:     s,
		current: s.start.Clone(),
	}
	if s.policy == Permutations {
		it.skipRepeats()
	}
	return it
}

// Next returns the current candidate and advances past it. The returned
// Value is owned by the caller. Once the all-(K-1) value of maximum length
// has been returned, Next reports false.
func (it *Iterator) Next() (Value, bool) {
	if it.done {
		return nil, false
	}
	out := it.current.Clone()
	it.advance()
	if it.seq.policy == Permutations {
		it.skipRepeats()
	}
	return out, true
}

// HasNext reports whether another call to Next will produce a candidate.
func (it *Iterator) HasNext() bool {
	return !it.done
}

// All returns a single-use iterator over the remaining candidates.
func (it *Iterator) All() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// advance increments the bijective numeral by one, carrying into the next
// slot on overflow and claiming a new slot when an Unused one is reached.
func (it *Iterator) advance() {
	k := it.seq.alphabet.Size()
	v := it.current
	for i := 0; ; i++ {
		if i == len(v) {
			it.done = true
			return
		}
		if v[i] == Unused {
			v[i] = 0
			return
		}
		v[i]++
		if v[i] < k {
			return
		}
		v[i] = 0
	}
}

// skipRepeats advances until the current value holds distinct symbols.
func (it *Iterator) skipRepeats() {
	seen := make([]bool, it.seq.alphabet.Size())
	for !it.done && hasRepeat(it.current, seen) {
		it.advance()
	}
}

// hasRepeat reports whether any symbol index occurs twice in v. seen is
// scratch space of alphabet size.
func hasRepeat(v Value, seen []bool) bool {
	clear(seen)
	for i := 0; i < len(v) && v[i] != Unused; i++ {
		if seen[v[i]] {
			return true
		}
		seen[v[i]] = true
	}
	return false
}
