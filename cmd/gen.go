package main

import (
	"bufio"
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/lanrat/passcracker/sequence"
)

func newGenCmd() *cobra.Command {
	var (
		job     jobFlags
		shuffle bool
		limit   uint64
	)
	cmd := &cobra.Command{
		Use:   "gen [flags]",
		Short: "Print the candidates of a sequence",
		Long: "Print every candidate of the configured sequence as \"index/maxIndex:<tab>password\".\n" +
			"Indices count from the start value. For permutations they count the printed\n" +
			"candidates and maxIndex is the size of the whole sequence minus one.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := job.resolve(cmd.Flags())
			if err != nil {
				return withCode(exitIllegalArgs, err)
			}
			seq, err := j.BuildSequence()
			if err != nil {
				return withCode(exitIllegalArgs, err)
			}
			if shuffle && seq.Policy() != sequence.Simple {
				return withCode(exitIllegalArgs, fmt.Errorf("--shuffle needs a %s sequence", sequence.Simple))
			}
			if err := generate(cmd.OutOrStdout(), seq, shuffle, limit); err != nil {
				return withCode(exitError, err)
			}
			return nil
		},
	}
	job.register(cmd.Flags())
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "print the candidates in random order, simple sequences only")
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 0, "stop after this many candidates, 0 for all")
	return cmd
}

// generate writes the candidates of seq to out.
func generate(out io.Writer, seq *sequence.Sequence, shuffle bool, limit uint64) error {
	w := bufio.NewWriter(out)
	maxIndex := new(big.Int).Sub(seq.Remaining(), big.NewInt(1))
	if seq.Policy() == sequence.Permutations {
		// Remaining counts numerals, repeats included
		maxIndex.Sub(seq.Size(), big.NewInt(1))
	}

	next, err := candidates(seq, shuffle)
	if err != nil {
		return err
	}
	for n := uint64(0); limit == 0 || n < limit; n++ {
		v, index, ok := next()
		if !ok {
			break
		}
		password, err := seq.Render(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s/%s:\t%s\n", index, maxIndex, password); err != nil {
			return err
		}
	}
	return w.Flush()
}

// candidates returns a generator over seq yielding each value with its index
// relative to the start value.
func candidates(seq *sequence.Sequence, shuffle bool) (func() (sequence.Value, *big.Int, bool), error) {
	if shuffle {
		it, err := seq.Shuffled()
		if err != nil {
			return nil, fmt.Errorf("--shuffle: %w", err)
		}
		return it.Next, nil
	}
	it := seq.Iterator()
	if seq.Policy() == sequence.Permutations {
		ordinal := new(big.Int)
		one := big.NewInt(1)
		return func() (sequence.Value, *big.Int, bool) {
			v, ok := it.Next()
			if !ok {
				return nil, nil, false
			}
			index := new(big.Int).Set(ordinal)
			ordinal.Add(ordinal, one)
			return v, index, true
		}, nil
	}
	return func() (sequence.Value, *big.Int, bool) {
		v, ok := it.Next()
		if !ok {
			return nil, nil, false
		}
		index, err := seq.IndexOf(v)
		if err != nil {
			// values come from the sequence itself
			panic(err)
		}
		return v, index, true
	}, nil
}
