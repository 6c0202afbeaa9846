package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanrat/passcracker/alphabet"
	"github.com/lanrat/passcracker/config"
	"github.com/lanrat/passcracker/sequence"
)

func hashFile(t *testing.T, password string) string {
	t.Helper()
	sum := sha256.Sum256([]byte(password))
	path := filepath.Join(t.TempDir(), "hash.txt")
	require.NoError(t, os.WriteFile(path, []byte("sha256:"+hex.EncodeToString(sum[:])+"\n"), 0o600))
	return path
}

func TestGenerate(t *testing.T) {
	seq, err := sequence.New(mustChars(t, "ab"), sequence.Simple, 1, 2, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, generate(&out, seq, false, 0))
	assert.Equal(t, "0/5:\ta\n1/5:\tb\n2/5:\taa\n3/5:\tab\n4/5:\tba\n5/5:\tbb\n", out.String())

	out.Reset()
	require.NoError(t, generate(&out, seq, false, 2))
	assert.Equal(t, "0/5:\ta\n1/5:\tb\n", out.String())
}

func TestGeneratePermutations(t *testing.T) {
	seq, err := sequence.New(mustChars(t, "abc"), sequence.Permutations, 2, 2, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, generate(&out, seq, false, 0))
	assert.Equal(t, "0/5:\tab\n1/5:\tac\n2/5:\tba\n3/5:\tbc\n4/5:\tca\n5/5:\tcb\n", out.String())
}

func TestGenerateShuffled(t *testing.T) {
	seq, err := sequence.New(mustChars(t, "ab"), sequence.Simple, 1, 2, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, generate(&out, seq, true, 0))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)

	want := map[string]bool{
		"0/5:\ta": true, "1/5:\tb": true, "2/5:\taa": true,
		"3/5:\tab": true, "4/5:\tba": true, "5/5:\tbb": true,
	}
	for _, line := range lines {
		assert.True(t, want[line], line)
		delete(want, line)
	}
	assert.Empty(t, want)
}

func mustChars(t *testing.T, chars string) alphabet.Alphabet {
	t.Helper()
	a, err := alphabet.NewCharacters(0, chars)
	require.NoError(t, err)
	return a
}

func TestRunExitCodes(t *testing.T) {
	found := hashFile(t, "ba")
	missing := hashFile(t, "zz")
	png := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"), 0o600))

	common := []string{"--pretty=false", "--chars", "ab", "--max-length", "2", "--progress-interval", "0", "--workers", "2"}
	testCases := []struct {
		name string
		args []string
		want int
	}{
		{"found", append([]string{"crack", found}, common...), exitFound},
		{"not found", append([]string{"crack", missing}, common...), exitNotFound},
		{"no file", append([]string{"crack"}, common...), exitIllegalArgs},
		{"unknown flag", []string{"crack", found, "--bogus"}, exitIllegalArgs},
		{"no alphabet", []string{"crack", found, "--max-length", "2"}, exitIllegalArgs},
		{"bad start", append([]string{"crack", found, "--start-from", "[0,"}, common...), exitIllegalArgs},
		{"unsupported file", append([]string{"crack", png}, common...), exitIllegalArgs},
		{"shuffle permutations", []string{"gen", "--chars", "ab", "-m", "2", "--sequence-type", "permutations", "--shuffle"}, exitIllegalArgs},
		{"version", []string{"version"}, exitFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, run(tc.args))
		})
	}
}

func TestCrackWritesCheckpoint(t *testing.T) {
	checkpoint := filepath.Join(t.TempDir(), "checkpoint")
	code := run([]string{
		"crack", hashFile(t, "zz"),
		"--pretty=false", "--chars", "ab", "-m", "2",
		"--progress-interval", "0", "--workers", "1", "--checkpoint", checkpoint,
	})
	require.Equal(t, exitNotFound, code)

	data, err := os.ReadFile(checkpoint)
	require.NoError(t, err)
	assert.Equal(t, "[1,1]\n", string(data))
}

func TestJobFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.ini")
	require.NoError(t, os.WriteFile(path, []byte("[Alphabet]\nCharacterSets = digits\n[Sequence]\nMaxLength = 4\nMinLength = 2\n"), 0o600))

	var f jobFlags
	fs := pflag.NewFlagSet("gen", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse([]string{"--job", path, "-m", "3", "--tokens", "x,y", "--tokens", "z"}))

	job, err := f.resolve(fs)
	require.NoError(t, err)

	assert.Equal(t, 2, job.Sequence.MinLength)
	assert.Equal(t, 3, job.Sequence.MaxLength)
	assert.Equal(t, config.AlphabetTokens, job.Alphabet.Type)
	assert.Equal(t, []string{"x", "y", "z"}, job.Alphabet.Tokens)
}
