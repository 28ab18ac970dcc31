package journal

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Ledger file names. The run id keeps concurrent runs in one directory apart.
const (
	processedFile    = "processed_%s.log"
	notProcessedFile = "not_processed_%s.log"
	obsoleteFile     = "obsolete_%s.log"
)

// failureSeparator separates a complex name from its reason in the
// not-processed ledger.
const failureSeparator = ": "

// Counts summarizes a ledger set.
type Counts struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Obsolete  int `json:"obsolete"`
}

// Ledgers groups the processed, not-processed and obsolete journals of a run.
//
// The processed and not-processed ledgers are replayed only when resuming;
// otherwise they start empty. The obsolete ledger caches metadata lookups and
// is always replayed and appended to.
type Ledgers struct {
	processed *Journal
	failed    *Journal
	obsolete  *Journal
	logger    logging.Logger

	mu        sync.RWMutex
	done      map[string]bool
	failures  map[string]string
	obsoletes map[string]bool
}

// OpenLedgers opens the ledgers of runID under dir.
func OpenLedgers(dir, runID string, resume bool, log logging.Logger) (*Ledgers, error) {
	l := &Ledgers{
		logger:    log,
		done:      make(map[string]bool),
		failures:  make(map[string]string),
		obsoletes: make(map[string]bool),
	}

	processedPath := filepath.Join(dir, fmt.Sprintf(processedFile, runID))
	failedPath := filepath.Join(dir, fmt.Sprintf(notProcessedFile, runID))
	obsoletePath := filepath.Join(dir, fmt.Sprintf(obsoleteFile, runID))

	if resume {
		if err := Replay(processedPath, func(line string) error {
			l.done[line] = true
			return nil
		}); err != nil {
			return nil, err
		}
		if err := Replay(failedPath, func(line string) error {
			name, reason := splitFailure(line)
			l.failures[name] = reason
			return nil
		}); err != nil {
			return nil, err
		}
	}
	if err := Replay(obsoletePath, func(line string) error {
		id, flag, ok := strings.Cut(line, ",")
		if !ok || (flag != "0" && flag != "1") {
			log.Warn("Skipping malformed obsolete ledger line", logging.String("line", line))
			return nil
		}
		l.obsoletes[strings.ToUpper(strings.TrimSpace(id))] = flag == "1"
		return nil
	}); err != nil {
		return nil, err
	}

	var err error
	if l.processed, err = Open(processedPath, !resume); err != nil {
		return nil, err
	}
	if l.failed, err = Open(failedPath, !resume); err != nil {
		l.processed.Close()
		return nil, err
	}
	if l.obsolete, err = Open(obsoletePath, false); err != nil {
		l.processed.Close()
		l.failed.Close()
		return nil, err
	}

	log.Info("Ledgers opened",
		logging.String("dir", dir),
		logging.String("run_id", runID),
		logging.Bool("resume", resume),
		logging.Int("processed", len(l.done)),
		logging.Int("failed", len(l.failures)),
		logging.Int("obsolete_known", len(l.obsoletes)),
	)
	return l, nil
}

func splitFailure(line string) (name, reason string) {
	name, reason, ok := strings.Cut(line, failureSeparator)
	if !ok {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(reason)
}

// Done reports whether name was already processed or recorded as failed.
func (l *Ledgers) Done(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.done[name] {
		return true
	}
	_, failed := l.failures[name]
	return failed
}

// MarkProcessed records a successfully processed complex.
func (l *Ledgers) MarkProcessed(name string) error {
	if err := l.processed.Append(name); err != nil {
		return err
	}
	l.mu.Lock()
	l.done[name] = true
	l.mu.Unlock()
	return nil
}

// MarkFailed records a complex that could not be processed together with the
// reason, written as "name: reason".
func (l *Ledgers) MarkFailed(name string, reason error) error {
	msg := errors.Reason(reason)
	if err := l.failed.Append(name + failureSeparator + msg); err != nil {
		return err
	}
	l.mu.Lock()
	l.failures[name] = msg
	l.mu.Unlock()
	return nil
}

// Failure returns the recorded reason for a failed complex.
func (l *Ledgers) Failure(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.failures[name]
	return r, ok
}

// Obsolete returns the cached obsolescence of an entry. known is false when
// the entry has not been looked up yet.
func (l *Ledgers) Obsolete(pdbID string) (obsolete, known bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	obsolete, known = l.obsoletes[strings.ToUpper(pdbID)]
	return obsolete, known
}

// RecordObsolete caches the obsolescence of an entry as "id,1" or "id,0".
func (l *Ledgers) RecordObsolete(pdbID string, obsolete bool) error {
	id := strings.ToUpper(pdbID)
	flag := "0"
	if obsolete {
		flag = "1"
	}
	if err := l.obsolete.Append(id + "," + flag); err != nil {
		return err
	}
	l.mu.Lock()
	l.obsoletes[id] = obsolete
	l.mu.Unlock()
	return nil
}

// Counts returns the current ledger sizes.
func (l *Ledgers) Counts() Counts {
	l.mu.RLock()
	defer l.mu.RUnlock()
	obs := 0
	for _, v := range l.obsoletes {
		if v {
			obs++
		}
	}
	return Counts{Processed: len(l.done), Failed: len(l.failures), Obsolete: obs}
}

// Close closes all three journals and returns the first error.
func (l *Ledgers) Close() error {
	var first error
	for _, j := range []*Journal{l.processed, l.failed, l.obsolete} {
		if err := j.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

//Personal.AI order the ending
