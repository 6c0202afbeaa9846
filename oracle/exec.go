package oracle

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
)

// Command is an oracle that runs an external tool once per password and
// decides from its exit status.
type Command struct {
	// Tool is the executable looked up in PATH.
	Tool string
	// Args builds the argument list for one password.
	Args func(password string) []string
	// Match and Mismatch list the exit statuses meaning a correct and a
	// wrong password. Any other status is an error.
	Match    []int
	Mismatch []int
	// Dir is the working directory of the tool.
	Dir string
}

// CheckEnvironment verifies that the tool is installed.
func (c *Command) CheckEnvironment(context.Context) error {
	if _, err := exec.LookPath(c.Tool); err != nil {
		return fmt.Errorf("%s not found: %w", c.Tool, err)
	}
	return nil
}

// Test runs the tool with the password.
func (c *Command) Test(ctx context.Context, password string) (bool, error) {
	status, out, err := run(ctx, c.Dir, c.Tool, c.Args(password)...)
	if err != nil {
		return false, err
	}
	switch {
	case slices.Contains(c.Match, status):
		return true, nil
	case slices.Contains(c.Mismatch, status):
		return false, nil
	default:
		return false, fmt.Errorf("%s exited with status %d: %s", c.Tool, status, firstLine(out))
	}
}

// run executes name and returns its exit status and combined output. A
// non-zero exit is not an error; failing to start the process is. Stdin is
// empty so that a tool prompting for a password fails instead of hanging.
func run(ctx context.Context, dir, name string, args ...string) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), out, nil
	}
	if err != nil {
		return -1, out, fmt.Errorf("running %s: %w", name, err)
	}
	return 0, out, nil
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}

// absDir returns the directory holding path, absolute when possible.
func absDir(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Dir(abs)
	}
	return filepath.Dir(path)
}
