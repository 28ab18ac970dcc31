// Package journal implements the append-only ledgers that make a curation run
// resumable. Each ledger is a plain text file with one entry per line; every
// append is flushed before it returns so an interrupted run loses at most the
// entry being written.
package journal

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/biocad/anbase/pkg/errors"
)

// Journal is a single append-only line log. It is safe for concurrent use,
// although the pipeline only writes from its coordinating goroutine.
type Journal struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// Open opens path for appending, creating parent directories as needed. With
// truncate the previous content is discarded.
func Open(path string, truncate bool) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeJournal, "failed to create journal directory")
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeJournal, "failed to open journal")
	}
	return &Journal{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the file backing the journal.
func (j *Journal) Path() string { return j.path }

// Append writes line followed by a newline and flushes it. Embedded line
// breaks are folded into spaces so one call is always one entry.
func (j *Journal) Append(line string) error {
	line = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(line)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New(errors.ErrCodeJournal, "journal is closed").WithDetail(j.path)
	}
	if _, err := j.w.WriteString(line + "\n"); err != nil {
		return errors.Wrap(err, errors.ErrCodeJournal, "failed to append to journal")
	}
	if err := j.w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeJournal, "failed to flush journal")
	}
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.w.Flush(); err != nil {
		j.f.Close()
		return errors.Wrap(err, errors.ErrCodeJournal, "failed to flush journal")
	}
	if err := j.f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeJournal, "failed to close journal")
	}
	return nil
}

// Replay calls fn for every non-blank line of path, in order, with
// surrounding whitespace removed. A missing file replays nothing. Replay
// stops at the first error returned by fn.
func Replay(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeJournal, "failed to open journal for replay")
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.New(errors.ErrCodeJournal, "failed to read journal").WithDetail(path).WithCause(err)
	}
	return nil
}

//Personal.AI order the ending
