package sequence

import (
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanrat/passcracker/alphabet"
)

func chars(t testing.TB, extra string) alphabet.Alphabet {
	t.Helper()
	a, err := alphabet.NewCharacters(0, extra)
	require.NoError(t, err)
	return a
}

func assertInt(t testing.TB, want int64, got *big.Int) {
	t.Helper()
	assert.Equal(t, big.NewInt(want).String(), got.String())
}

// passwords renders every candidate the iterator produces.
func passwords(t testing.TB, s *Sequence) []string {
	t.Helper()
	var out []string
	for v := range s.Iterator().All() {
		p, err := s.Render(v)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	ab := chars(t, "ab")

	testCases := []struct {
		name     string
		policy   Policy
		min, max int
		start    string
		wantErr  error
	}{
		{"negative min", Simple, -1, 2, "", ErrLength},
		{"min above max", Simple, 3, 2, "", ErrLength},
		{"permutations too long", Permutations, 1, 3, "", ErrAlphabetTooSmall},
		{"start too short", Simple, 2, 3, "[0]", ErrStartValue},
		{"start index outside alphabet", Simple, 1, 2, "[5]", ErrStartValue},
		{"valid", Simple, 1, 2, "[1]", nil},
		{"valid permutations", Permutations, 2, 2, "", nil},
		{"zero length", Simple, 0, 0, "", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var start Value
			if tc.start != "" {
				var err error
				start, err = ParseValue(tc.start, max(tc.max, 0))
				require.NoError(t, err)
			}
			_, err := New(ab, tc.policy, tc.min, tc.max, start)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSimpleOrder(t *testing.T) {
	t.Parallel()
	s, err := New(chars(t, "ab"), Simple, 1, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "aa", "ab", "ba", "bb"}, passwords(t, s))
	assertInt(t, 6, s.Size())
	assertInt(t, 6, s.Span())
	assertInt(t, 0, s.Offset())

	index, err := s.IndexOfString("ab")
	require.NoError(t, err)
	assertInt(t, 3, index)
}

func TestZeroLength(t *testing.T) {
	t.Parallel()

	s, err := New(chars(t, "ab"), Simple, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, passwords(t, s))
	assertInt(t, 1, s.Size())

	s, err = New(chars(t, "ab"), Simple, 0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "a", "b"}, passwords(t, s))
	assertInt(t, 3, s.Size())
}

func TestPermutations(t *testing.T) {
	t.Parallel()
	s, err := New(chars(t, "abc"), Permutations, 2, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"ab", "ac", "ba", "bc", "ca", "cb"}, passwords(t, s))
	assertInt(t, 6, s.Size())
	assertInt(t, 9, s.Span())
}

func TestPermutationsSize(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		extra    string
		min, max int
		want     int64
	}{
		{"abc", 1, 3, 3 + 6 + 6},
		{"abcd", 0, 2, 1 + 4 + 12},
		{"abcde", 5, 5, 120},
	}
	for _, tc := range testCases {
		s, err := New(chars(t, tc.extra), Permutations, tc.min, tc.max, nil)
		require.NoError(t, err)
		assertInt(t, tc.want, s.Size())
		assert.Len(t, passwords(t, s), int(tc.want))
	}
}

func TestPermutationsSkipStart(t *testing.T) {
	t.Parallel()
	start, err := ParseValue("[1,1]", 2)
	require.NoError(t, err)
	s, err := New(chars(t, "abc"), Permutations, 2, 2, start)
	require.NoError(t, err)

	assert.Equal(t, []string{"bc", "ca", "cb"}, passwords(t, s))
}

func TestResume(t *testing.T) {
	t.Parallel()
	ab := chars(t, "ab")
	start, err := ParseValue("[0,1]", 2)
	require.NoError(t, err)

	s, err := New(ab, Simple, 1, 2, start)
	require.NoError(t, err)

	assert.Equal(t, []string{"ab", "ba", "bb"}, passwords(t, s))
	assertInt(t, 6, s.Size())
	assertInt(t, 3, s.Offset())
	assertInt(t, 3, s.Remaining())

	index, err := s.IndexOfString("ab")
	require.NoError(t, err)
	assertInt(t, 0, index)
	index, err = s.IndexOfString("bb")
	require.NoError(t, err)
	assertInt(t, 2, index)
}

func TestIndexOfAndValueAtAreInverse(t *testing.T) {
	t.Parallel()
	s, err := New(chars(t, "xyz"), Simple, 1, 4, nil)
	require.NoError(t, err)

	var i int64
	for v := range s.Iterator().All() {
		index, err := s.IndexOf(v)
		require.NoError(t, err)
		require.Zero(t, big.NewInt(i).Cmp(index), "value %s: index %s", v, index)

		at, err := s.ValueAt(big.NewInt(i))
		require.NoError(t, err)
		require.True(t, v.Equal(at), "ValueAt(%d) = %s, want %s", i, at, v)
		i++
	}
	assert.Equal(t, s.Size().Int64(), i)

	_, err = s.ValueAt(big.NewInt(i))
	require.Error(t, err)
	_, err = s.ValueAt(big.NewInt(-1))
	require.Error(t, err)
}

func TestIndexOfRejectsForeignValues(t *testing.T) {
	t.Parallel()
	s, err := New(chars(t, "ab"), Simple, 2, 3, nil)
	require.NoError(t, err)

	for _, v := range []Value{
		{0, Unused, Unused},
		{0, Unused, 1},
		{0, 2, Unused},
	} {
		_, err := s.IndexOf(v)
		require.ErrorIs(t, err, ErrValue, "value %v", []int(v))
		assert.NotErrorIs(t, err, ErrStartValue)
	}

	_, err = s.IndexOfString("abab")
	require.ErrorIs(t, err, ErrValue)
}

func TestValueAtPermutations(t *testing.T) {
	t.Parallel()
	s, err := New(chars(t, "abc"), Permutations, 1, 2, nil)
	require.NoError(t, err)
	_, err = s.ValueAt(big.NewInt(0))
	require.ErrorIs(t, err, ErrPolicy)
}

func TestLargeSize(t *testing.T) {
	t.Parallel()
	a, err := alphabet.NewCharacters(alphabet.Latin, "")
	require.NoError(t, err)
	s, err := New(a, Simple, 1, 20, nil)
	require.NoError(t, err)

	want := new(big.Int)
	power := big.NewInt(1)
	for l := 1; l <= 20; l++ {
		power.Mul(power, big.NewInt(52))
		want.Add(want, power)
	}
	assert.Zero(t, want.Cmp(s.Size()))
	assert.False(t, s.Size().IsInt64())

	last, err := s.ValueAt(new(big.Int).Sub(want, big.NewInt(1)))
	require.NoError(t, err)
	p, err := s.Render(last)
	require.NoError(t, err)
	assert.Equal(t, "zzzzzzzzzzzzzzzzzzzz", p)
}

func TestCheckpointLiteral(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		literal string
		want    string
		wantErr error
	}{
		{"[0,1]", "[0,1]", nil},
		{"[ 3, 0, 12 ]", "[3,0,12]", nil},
		{"[]", "[]", nil},
		{"[0,1,-1,-1]", "[0,1]", nil},
		{"  [2]\n", "[2]", nil},
		{"[-1,0]", "", ErrStartValue},
		{"[0,-3]", "", ErrStartValue},
		{"[0,1,2,3,4]", "", ErrStartValue},
		{"[3 ,0]", "", ErrCheckpointSyntax},
		{"0,1", "", ErrCheckpointSyntax},
		{"[a]", "", ErrCheckpointSyntax},
	}

	for _, tc := range testCases {
		t.Run(tc.literal, func(t *testing.T) {
			t.Parallel()
			v, err := ParseValue(tc.literal, 4)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, v, 4)
			assert.Equal(t, tc.want, v.String())
		})
	}
}

func TestCheckpointRendersLikePassword(t *testing.T) {
	t.Parallel()
	s, err := New(chars(t, "ab"), Simple, 1, 2, nil)
	require.NoError(t, err)

	v, err := s.Parse("ab")
	require.NoError(t, err)
	assert.Equal(t, "[0,1]", v.String())
	assert.Equal(t, []int{0, 1}, v.Indices())

	text, err := v.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "[0,1]", string(text))
}

func TestReadStart(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint")
	require.NoError(t, os.WriteFile(path, []byte("[1,0]\nignored\n"), 0o600))

	v, err := ReadStart(path, 3)
	require.NoError(t, err)
	assert.Equal(t, "[1,0]", v.String())

	v, err = ReadStart("[1]", 3)
	require.NoError(t, err)
	assert.Equal(t, "[1]", v.String())

	_, err = ReadStart(filepath.Join(dir, "missing"), 3)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = ReadStart(empty, 3)
	require.ErrorIs(t, err, ErrCheckpointSyntax)

	// a literal with the right syntax but wrong width is not retried as a path
	_, err = ReadStart("[0,0,0,0]", 3)
	require.ErrorIs(t, err, ErrStartValue)
}

func TestIteratorOwnership(t *testing.T) {
	t.Parallel()
	s, err := New(chars(t, "ab"), Simple, 1, 2, nil)
	require.NoError(t, err)

	it := s.Iterator()
	first, ok := it.Next()
	require.True(t, ok)
	first[0] = 1
	second, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "[1]", second.String())
	assert.Equal(t, "[0]", s.Start().String())

	for it.HasNext() {
		_, ok = it.Next()
		require.True(t, ok)
	}
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestShuffledVisitsEveryCandidateOnce(t *testing.T) {
	t.Parallel()
	s, err := New(chars(t, "abc"), Simple, 1, 3, nil)
	require.NoError(t, err)

	want := make(map[string]bool)
	for _, p := range passwords(t, s) {
		want[p] = true
	}

	it, err := s.Shuffled()
	require.NoError(t, err)
	require.Zero(t, s.Remaining().Cmp(it.Size()))

	var (
		mu  sync.Mutex
		got = make(map[string]bool)
		wg  sync.WaitGroup
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, index, ok := it.Next()
				if !ok {
					return
				}
				p, err := s.Render(v)
				if !assert.NoError(t, err) {
					return
				}
				at, err := s.IndexOf(v)
				if !assert.NoError(t, err) {
					return
				}
				assert.Zero(t, index.Cmp(at))

				mu.Lock()
				assert.False(t, got[p], "duplicate %q", p)
				got[p] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, want, got)
}

func TestShuffledPermutationsUnsupported(t *testing.T) {
	t.Parallel()
	s, err := New(chars(t, "abc"), Permutations, 1, 2, nil)
	require.NoError(t, err)
	_, err = s.Shuffled()
	require.ErrorIs(t, err, ErrPolicy)
}

func TestShuffleIsBijective(t *testing.T) {
	t.Parallel()
	for _, n := range []int64{0, 1, 2, 12, 97, 256, 1000} {
		sh, err := NewShuffle(big.NewInt(n))
		require.NoError(t, err)
		seen := make(map[int64]bool, n)
		for i := int64(0); i < n; i++ {
			out := sh.At(big.NewInt(i)).Int64()
			require.GreaterOrEqual(t, out, int64(0))
			require.Less(t, out, n)
			require.False(t, seen[out], "size %d: %d produced twice", n, out)
			seen[out] = true
		}
	}

	_, err := NewShuffle(big.NewInt(-1))
	require.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()
	for _, p := range []Policy{Simple, Permutations} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePolicy("random")
	require.Error(t, err)
}

func BenchmarkIteratorNext(b *testing.B) {
	a, err := alphabet.NewCharacters(alphabet.Digits|alphabet.Latin, "")
	require.NoError(b, err)
	s, err := New(a, Simple, 1, 8, nil)
	require.NoError(b, err)
	it := s.Iterator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := it.Next(); !ok {
			b.Fatal("sequence exhausted")
		}
	}
}

func BenchmarkPermutationsNext(b *testing.B) {
	a, err := alphabet.NewCharacters(alphabet.Latin, "")
	require.NoError(b, err)
	s, err := New(a, Permutations, 1, 8, nil)
	require.NoError(b, err)
	it := s.Iterator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := it.Next(); !ok {
			b.Fatal("sequence exhausted")
		}
	}
}
