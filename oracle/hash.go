package oracle

import (
	"bufio"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/bcrypt"
)

// ErrHashFormat is returned for a hash line that cannot be understood.
var ErrHashFormat = errors.New("malformed hash")

func init() {
	Register("text/plain", OpenHash)
}

var digests = map[string]func([]byte) []byte{
	"md5":    func(b []byte) []byte { s := md5.Sum(b); return s[:] },
	"sha1":   func(b []byte) []byte { s := sha1.Sum(b); return s[:] },
	"sha256": func(b []byte) []byte { s := sha256.Sum256(b); return s[:] },
	"sha512": func(b []byte) []byte { s := sha512.Sum512(b); return s[:] },
	"blake3": func(b []byte) []byte { s := blake3.Sum256(b); return s[:] },
}

// HashAlgorithms lists the "<algo>:<hex>" algorithms Hash understands,
// besides bcrypt.
func HashAlgorithms() []string {
	out := make([]string, 0, len(digests))
	for name := range digests {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Hash tests passwords against a stored password hash: either a bcrypt hash
// ("$2a$", "$2b$" or "$2y$") or "<algo>:<hex digest>" of the raw password.
type Hash struct {
	algorithm string
	digest    []byte
	sum       func([]byte) []byte
}

// NewHash parses a hash line.
func NewHash(line string) (*Hash, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "$2a$") || strings.HasPrefix(line, "$2b$") || strings.HasPrefix(line, "$2y$") {
		if _, err := bcrypt.Cost([]byte(line)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHashFormat, err)
		}
		return &Hash{algorithm: "bcrypt", digest: []byte(line)}, nil
	}

	algorithm, encoded, ok := strings.Cut(line, ":")
	if !ok {
		return nil, fmt.Errorf("%w: expected bcrypt or <algorithm>:<hex>", ErrHashFormat)
	}
	algorithm = strings.ToLower(algorithm)
	sum, ok := digests[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrHashFormat, algorithm)
	}
	digest, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHashFormat, err)
	}
	if want := len(sum(nil)); len(digest) != want {
		return nil, fmt.Errorf("%w: %s digest has %d bytes, want %d", ErrHashFormat, algorithm, len(digest), want)
	}
	return &Hash{algorithm: algorithm, digest: digest, sum: sum}, nil
}

// OpenHash reads the first line of the file at path as a hash.
func OpenHash(path string) (Oracle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s is empty", ErrHashFormat, path)
	}
	return NewHash(scanner.Text())
}

// Algorithm returns the hash algorithm name.
func (h *Hash) Algorithm() string {
	return h.algorithm
}

// Test implements Oracle.
func (h *Hash) Test(_ context.Context, password string) (bool, error) {
	if h.sum == nil {
		err := bcrypt.CompareHashAndPassword(h.digest, []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		case errors.Is(err, bcrypt.ErrPasswordTooLong):
			// bcrypt cannot hash it, so it cannot be the password
			return false, nil
		default:
			return false, err
		}
	}
	return subtle.ConstantTimeCompare(h.sum([]byte(password)), h.digest) == 1, nil
}
