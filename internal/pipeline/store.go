package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alnah/go-videochunk/internal/transcript"
)

// SkippedLogName is the per-category file listing rejected transcripts.
const SkippedLogName = "skipped.log"

// Store persists records as indented JSON, one file per transcript.
type Store struct {
	mu  sync.Mutex
	now func() time.Time
}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Exists reports whether a record is already at path.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads the record at path.
func (s *Store) Load(path string) (transcript.Record, error) {
	return transcript.LoadRecord(path)
}

// Save writes rec to path through a temp file and rename, so a crash never
// leaves a half-written record that would later be skipped as done.
func (s *Store) Save(path string, rec transcript.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil { // #nosec G301 -- output dir
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".record-*.json")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// LogSkip appends one line to dir/skipped.log. Safe for concurrent use.
func (s *Store) LogSkip(dir, item, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o750); err != nil { // #nosec G301 -- output dir
		return fmt.Errorf("create output dir: %w", err)
	}
	// #nosec G302 G304 -- log file in the output dir
	f, err := os.OpenFile(filepath.Join(dir, SkippedLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open skip log: %w", err)
	}
	_, werr := fmt.Fprintf(f, "%s\t%s\t%s\n", s.now().UTC().Format(time.RFC3339), item, reason)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("write skip log: %w", werr)
	}
	return nil
}

// Copy duplicates the file at src into dir under the same name.
func (s *Store) Copy(src, dir string) (err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil { // #nosec G301 -- output dir
		return fmt.Errorf("create dir: %w", err)
	}
	in, err := os.Open(src) // #nosec G304 -- record path chosen by the caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", src, transcript.ErrInputMissing)
		}
		return err
	}
	defer func() { _ = in.Close() }()

	dst := filepath.Join(dir, filepath.Base(src))
	out, err := os.Create(dst) // #nosec G304 -- dir chosen by the caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
