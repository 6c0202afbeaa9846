package passcracker

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanrat/passcracker/alphabet"
	"github.com/lanrat/passcracker/sequence"
)

func TestMeasure(t *testing.T) {
	t.Parallel()
	seq := newSequence(t, "ab", 1, 2)
	last, err := seq.Parse("ab")
	require.NoError(t, err)

	p := Measure(seq, last, 3*time.Second)
	assert.Equal(t, "3", p.Index.String())
	assert.Equal(t, "3", p.Position.String())
	assert.Equal(t, "6", p.Span.String())
	assert.Equal(t, "50.00", p.Percent())
	assert.Equal(t, "00:00:03", p.ETA())
	assert.Equal(t, "Progress: 50.00% [00:00:03, 00:00:03 left]", p.String())
}

func TestMeasureResumed(t *testing.T) {
	t.Parallel()
	a, err := alphabet.NewCharacters(0, "ab")
	require.NoError(t, err)
	start, err := sequence.ParseValue("[0,1]", 2)
	require.NoError(t, err)
	seq, err := sequence.New(a, sequence.Simple, 1, 2, start)
	require.NoError(t, err)

	last, err := seq.Parse("bb")
	require.NoError(t, err)

	p := Measure(seq, last, 2*time.Second)
	assert.Equal(t, "2", p.Index.String())
	assert.Equal(t, "5", p.Position.String())
	assert.Equal(t, "83.33", p.Percent())
	// one numeral left at one per second
	assert.Equal(t, "00:00:01", p.ETA())
}

func TestMeasurePermutationsStaysBelowHundred(t *testing.T) {
	t.Parallel()
	a, err := alphabet.NewCharacters(0, "abc")
	require.NoError(t, err)
	seq, err := sequence.New(a, sequence.Permutations, 2, 2, nil)
	require.NoError(t, err)

	// 6 candidates but a span of 9 numerals
	last, err := seq.Parse("cb")
	require.NoError(t, err)
	p := Measure(seq, last, time.Second)
	assert.Equal(t, "6", seq.Size().String())
	assert.Equal(t, "9", p.Span.String())
	assert.Equal(t, "77.78", p.Percent())
}

func TestMeasureUndefined(t *testing.T) {
	t.Parallel()
	seq := newSequence(t, "ab", 1, 2)

	p := Measure(seq, nil, time.Minute)
	assert.Equal(t, "0.00", p.Percent())
	assert.Equal(t, Undefined, p.ETA())

	last, err := seq.Parse("b")
	require.NoError(t, err)
	p = Measure(seq, last, 0)
	assert.Equal(t, Undefined, p.ETA())
	_, ok := p.Left()
	assert.False(t, ok)
}

func TestFormatSeconds(t *testing.T) {
	t.Parallel()
	const day = 24 * 60 * 60
	testCases := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{-5, "00:00:00"},
		{59, "00:00:59"},
		{3661, "01:01:01"},
		{day + 5, "1 days 00:00:05"},
		{2*365*day + 3*day + 59, "2 years 3 days 00:00:59"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, FormatSeconds(big.NewInt(tc.seconds)), "%d seconds", tc.seconds)
	}

	huge, ok := new(big.Int).SetString("1000000000000000000000000000000", 10)
	require.True(t, ok)
	assert.Contains(t, FormatSeconds(huge), " years ")
}

func TestMonitorReportsPeriodically(t *testing.T) {
	t.Parallel()
	seq := newSequence(t, "ab", 1, 2)
	search, err := NewSearch(seq, OracleFunc(never), Options{Workers: 1})
	require.NoError(t, err)

	reports := make(chan Progress, 100)
	m := NewMonitor(time.Millisecond, func(p Progress) {
		select {
		case reports <- p:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- m.Observe(ctx, search) }()

	require.Eventually(t, func() bool { return len(reports) >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
