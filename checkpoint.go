package passcracker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lanrat/passcracker/sequence"
)

// Checkpoint is one sample handed to a CheckpointStore.
type Checkpoint struct {
	Value    sequence.Value
	Progress Progress
	Time     time.Time
}

// CheckpointStore persists checkpoints. A CheckpointWriter calls Save from a
// single goroutine.
type CheckpointStore interface {
	Save(c Checkpoint) error
}

// FileCheckpoint keeps the latest checkpoint literal in a single file,
// replacing it atomically on every save. The file can be passed back as the
// start value of a new sequence.
type FileCheckpoint struct {
	path string
}

// NewFileCheckpoint creates a store writing to path.
func NewFileCheckpoint(path string) *FileCheckpoint {
	return &FileCheckpoint{path: path}
}

// Path returns the checkpoint file path.
func (f *FileCheckpoint) Path() string {
	return f.path
}

// Save writes c.Value to a temporary file next to the checkpoint and renames
// it over the previous one.
func (f *FileCheckpoint) Save(c Checkpoint) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := fmt.Fprintln(tmp, c.Value.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Load reads the checkpoint back as a value of width maxLength.
func (f *FileCheckpoint) Load(maxLength int) (sequence.Value, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	return sequence.ParseValue(string(data), maxLength)
}

// ProgressLog appends a human readable line per checkpoint:
//
//	[2006-01-02 15:04:05] [12.34%] [Last tested: [0,1]]
type ProgressLog struct {
	mu   sync.Mutex
	path string
}

// NewProgressLog creates a store appending to path.
func NewProgressLog(path string) *ProgressLog {
	return &ProgressLog{path: path}
}

// Save implements CheckpointStore.
func (l *ProgressLog) Save(c Checkpoint) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open progress log: %w", err)
	}
	_, err = fmt.Fprintf(f, "[%s] [%s%%] [Last tested: %s]\n",
		c.Time.Format(time.DateTime), c.Progress.Percent(), c.Value)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to append progress log: %w", err)
	}
	return nil
}

// CheckpointWriter periodically saves the last tested candidate of a search
// to its stores, and once more when the search stops. Failures are logged
// and never stop the search.
type CheckpointWriter struct {
	interval time.Duration
	stores   []CheckpointStore
	metrics  *Metrics
	now      func() time.Time

	// saved holds the value each store last accepted.
	saved []sequence.Value
}

// NewCheckpointWriter creates a writer saving to stores every interval.
// metrics may be nil.
func NewCheckpointWriter(interval time.Duration, metrics *Metrics, stores ...CheckpointStore) *CheckpointWriter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CheckpointWriter{
		interval: interval,
		stores:   stores,
		metrics:  metrics,
		now:      time.Now,
		saved:    make([]sequence.Value, len(stores)),
	}
}

// Observe implements Observer.
func (w *CheckpointWriter) Observe(ctx context.Context, s *Search) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.flush(s)
			return nil
		case <-ticker.C:
			w.flush(s)
		}
	}
}

// flush saves the last tested value to every store that has not accepted it
// yet. A store that failed is retried on the next call.
func (w *CheckpointWriter) flush(s *Search) {
	v := s.LastTested()
	if v == nil {
		return
	}
	c := Checkpoint{
		Value:    v,
		Progress: Measure(s.Sequence(), v, s.Elapsed()),
		Time:     w.now(),
	}
	log := s.Logger().With().
		Str(FieldCandidate, v.String()).
		Str(FieldIndex, c.Progress.Index.String()).
		Logger()
	for i, store := range w.stores {
		if w.saved[i] != nil && v.Equal(w.saved[i]) {
			continue
		}
		err := store.Save(c)
		w.metrics.observeCheckpoint(err)
		if err != nil {
			log.Warn().Err(err).Msg("checkpoint failed")
			continue
		}
		w.saved[i] = v
		log.Debug().Msg("checkpoint saved")
	}
}
