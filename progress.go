package passcracker

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/lanrat/passcracker/sequence"
)

// Undefined is reported as the time left while no rate can be estimated.
const Undefined = "undefined"

var (
	secondsPerMinute = big.NewInt(60)
	secondsPerHour   = big.NewInt(60 * 60)
	secondsPerDay    = big.NewInt(24 * 60 * 60)
	secondsPerYear   = big.NewInt(365 * 24 * 60 * 60)
	nanosPerSecond   = big.NewInt(int64(time.Second))
)

// Progress is a best-effort snapshot of how far a search got. It is derived
// from the last tested candidate, which workers overwrite in no particular
// order, so successive snapshots may move backwards slightly.
type Progress struct {
	// Index of the last tested candidate relative to the start value.
	Index *big.Int
	// Position of the last tested candidate within Span, resumed work
	// included.
	Position *big.Int
	Span     *big.Int
	Elapsed  time.Duration
}

// Measure computes the progress of a search over seq whose last tested
// candidate is last.
func Measure(seq *sequence.Sequence, last sequence.Value, elapsed time.Duration) Progress {
	index := new(big.Int)
	if last != nil {
		if i, err := seq.IndexOf(last); err == nil {
			index = i
		}
	}
	return Progress{
		Index:    index,
		Position: new(big.Int).Add(seq.Offset(), index),
		Span:     seq.Span(),
		Elapsed:  elapsed,
	}
}

// Percent returns Position as a percentage of Span with two decimals.
// Both are numeral positions, so candidates skipped by a resumed start value
// count as done, and for Permutations the result is an approximation that
// never exceeds 100.
func (p Progress) Percent() string {
	if p.Span.Sign() == 0 {
		return "0.00"
	}
	num := new(big.Int).Mul(p.Position, big.NewInt(100))
	return new(big.Rat).SetFrac(num, p.Span).FloatString(2)
}

// Left estimates the remaining time in whole seconds for the rest of Span,
// from the rate observed in this run. ok is false while nothing was tested or no time has elapsed.
func (p Progress) Left() (seconds *big.Int, ok bool) {
	if p.Index.Sign() <= 0 || p.Elapsed <= 0 {
		return nil, false
	}
	left := new(big.Int).Sub(p.Span, p.Position)
	if left.Sign() < 0 {
		left.SetInt64(0)
	}
	left.Mul(left, big.NewInt(int64(p.Elapsed)))
	left.Quo(left, p.Index)
	return left.Quo(left, nanosPerSecond), true
}

// ETA formats Left, or returns Undefined.
func (p Progress) ETA() string {
	left, ok := p.Left()
	if !ok {
		return Undefined
	}
	return FormatSeconds(left)
}

// String renders the progress line, for example
// "Progress: 12.34% [00:01:02, 00:10:00 left]".
func (p Progress) String() string {
	elapsed := FormatSeconds(big.NewInt(int64(p.Elapsed / time.Second)))
	return fmt.Sprintf("Progress: %s%% [%s, %s left]", p.Percent(), elapsed, p.ETA())
}

// FormatSeconds renders a possibly astronomical number of seconds as
// "[N years ][N days ]HH:MM:SS".
func FormatSeconds(seconds *big.Int) string {
	rest := new(big.Int).Set(seconds)
	if rest.Sign() < 0 {
		rest.SetInt64(0)
	}
	split := func(unit *big.Int) *big.Int {
		q, r := new(big.Int).QuoRem(rest, unit, new(big.Int))
		rest = r
		return q
	}
	years := split(secondsPerYear)
	days := split(secondsPerDay)
	hours := split(secondsPerHour)
	minutes := split(secondsPerMinute)

	clock := fmt.Sprintf("%02d:%02d:%02d", hours.Int64(), minutes.Int64(), rest.Int64())
	switch {
	case years.Sign() > 0:
		return fmt.Sprintf("%s years %s days %s", years, days, clock)
	case days.Sign() > 0:
		return fmt.Sprintf("%s days %s", days, clock)
	default:
		return clock
	}
}

// Monitor reports the progress of a search at a fixed interval and once
// more when the search stops.
type Monitor struct {
	interval time.Duration
	report   func(Progress)
}

// NewMonitor creates a Monitor calling report every interval.
func NewMonitor(interval time.Duration, report func(Progress)) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{interval: interval, report: report}
}

// Observe implements Observer.
func (m *Monitor) Observe(ctx context.Context, s *Search) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.report(s.Progress())
			return nil
		case <-ticker.C:
			m.report(s.Progress())
		}
	}
}
