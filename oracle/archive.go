package oracle

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// listTimeout bounds the archive listing done while preparing. Listing very
// large archives can stall after all output was produced.
const listTimeout = 6 * time.Second

func init() {
	Register("application/x-rar-compressed", NewRar)
	Register("application/x-7z-compressed", NewSevenZip)
	Register("application/zip", NewZip)
}

// Rar tests passwords with unrar. When file names are not encrypted only
// the smallest file of the archive is tested.
//
// unrar exit statuses: 0 and 1 mean the password is correct (1 is a non
// fatal warning), 3, 10 and 11 mean it is wrong depending on the archive
// version and whether names are encrypted. Anything else is an error.
type Rar struct {
	Command
	path     string
	smallest string
}

// NewRar creates a rar oracle for the archive at path.
func NewRar(path string) (Oracle, error) {
	r := &Rar{path: path}
	r.Command = Command{
		Tool:     "unrar",
		Match:    []int{0, 1},
		Mismatch: []int{3, 10, 11},
		Dir:      absDir(path),
		Args:     r.args,
	}
	return r, nil
}

func (r *Rar) args(password string) []string {
	// "-p" alone would prompt, "-p-" means no password
	flag := "-p-"
	if password != "" {
		flag = "-p" + password
	}
	args := []string{"t", "-y", "-idq", flag, "--", filepath.Base(r.path)}
	if r.smallest != "" {
		args = append(args, r.smallest)
	}
	return args
}

// Prepare lists the archive without a password to find its smallest file.
// Archives with encrypted names list nothing and are tested as a whole.
func (r *Rar) Prepare(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	_, out, err := run(ctx, r.Dir, r.Tool, "lt", "-p-", "--", filepath.Base(r.path))
	if err != nil {
		return err
	}
	r.smallest = smallestFile(out)
	return nil
}

// smallestFile parses the technical listing of unrar ("unrar lt") and
// returns the name of the smallest non-empty regular file, or "".
func smallestFile(listing []byte) string {
	var (
		best     string
		bestSize int64 = -1
		name     string
		isFile   bool
	)
	scanner := bufio.NewScanner(bytes.NewReader(listing))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Name":
			name, isFile = value, false
		case "Type":
			isFile = value == "File"
		case "Size":
			size, err := strconv.ParseInt(value, 10, 64)
			if err != nil || !isFile || name == "" || size <= 0 {
				continue
			}
			if bestSize < 0 || size < bestSize {
				best, bestSize = name, size
			}
		}
	}
	return best
}

// NewSevenZip creates an oracle testing 7z archives with the 7z tool. 7z
// exits with 0 on success and 2 when the password is wrong.
func NewSevenZip(path string) (Oracle, error) {
	name := filepath.Base(path)
	return &Command{
		Tool:     "7z",
		Match:    []int{0},
		Mismatch: []int{2},
		Dir:      absDir(path),
		Args: func(password string) []string {
			args := []string{"t", "-y", "-bso0", "-bsp0"}
			if password != "" {
				args = append(args, "-p"+password)
			}
			return append(args, "--", name)
		},
	}, nil
}

// NewZip creates an oracle testing zip archives with unzip. unzip exits
// with 82 when no file could be decrypted.
func NewZip(path string) (Oracle, error) {
	name := filepath.Base(path)
	return &Command{
		Tool:     "unzip",
		Match:    []int{0},
		Mismatch: []int{82},
		Dir:      absDir(path),
		Args: func(password string) []string {
			return []string{"-tqq", "-P", password, name}
		},
	}, nil
}
