// Package oracle provides password oracles for encrypted files and a
// registry that selects one by the detected media type of a file.
//
// Implementations register a Factory for a MIME type from an init function.
// ForFile detects the type of a file, walks up the type hierarchy until a
// registered factory is found and runs the oracle lifecycle: construction,
// environment check and preparation.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrUnsupportedType is returned when no oracle is registered for the
	// media type of a file.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEnvironment is returned when an oracle cannot run on this machine,
	// for example because an external tool is missing.
	ErrEnvironment = errors.New("oracle environment check failed")
)

// Oracle tests passwords against one file. Test must be safe for concurrent
// use. An error means the oracle could not tell, not that the password is
// wrong.
type Oracle interface {
	Test(ctx context.Context, password string) (bool, error)
}

// EnvironmentChecker is implemented by oracles that depend on something
// outside the process.
type EnvironmentChecker interface {
	CheckEnvironment(ctx context.Context) error
}

// Preparer is implemented by oracles that inspect the file once before the
// search starts.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Factory creates an oracle for the file at path.
type Factory func(path string) (Oracle, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a factory available for a MIME type. It panics if the type
// is registered twice or factory is nil.
func Register(mimeType string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("oracle: Register factory is nil")
	}
	if _, dup := registry[mimeType]; dup {
		panic("oracle: Register called twice for " + mimeType)
	}
	registry[mimeType] = factory
}

// Types returns the registered MIME types in sorted order.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Lookup returns the factory registered for mime or one of its parents,
// together with the registered type it matched.
func Lookup(mime *mimetype.MIME) (Factory, string, bool) {
	types := Types()
	registryMu.RLock()
	defer registryMu.RUnlock()
	for m := mime; m != nil; m = m.Parent() {
		for _, t := range types {
			if m.Is(t) {
				return registry[t], t, true
			}
		}
	}
	return nil, "", false
}

// ForFile detects the media type of the file at path and returns a ready
// oracle for it along with the matched MIME type.
func ForFile(ctx context.Context, path string) (Oracle, string, error) {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("detecting type of %s: %w", path, err)
	}
	factory, matched, ok := Lookup(mime)
	if !ok {
		return nil, mime.String(), fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, mime, path)
	}

	o, err := factory(path)
	if err != nil {
		return nil, matched, err
	}
	if c, ok := o.(EnvironmentChecker); ok {
		if err := c.CheckEnvironment(ctx); err != nil {
			return nil, matched, fmt.Errorf("%w: %v", ErrEnvironment, err)
		}
	}
	if p, ok := o.(Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			return nil, matched, fmt.Errorf("preparing %s oracle: %w", matched, err)
		}
	}
	return o, matched, nil
}
