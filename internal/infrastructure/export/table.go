// Package export reads and writes the CSV tables produced by the curation
// stages: the candidates table, the per-pairing metadata table, the gap
// statistics, the duplicates, the summary and the alternatives.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/biocad/anbase/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Table
// ─────────────────────────────────────────────────────────────────────────────

// Table is an append-only CSV file with a fixed header. The first keyCols
// columns of a row form its key; a row whose key is already present is not
// written again, which lets a resumed stage skip finished work.
type Table struct {
	mu      sync.Mutex
	path    string
	header  []string
	keyCols int
	f       *os.File
	w       *csv.Writer
	keys    map[string]bool
	rows    int
	closed  bool
}

// OpenTable opens the table at path. With resume an existing file with the
// same header is kept and its keys are loaded; otherwise the file is
// truncated and the header written.
func OpenTable(path string, header []string, keyCols int, resume bool) (*Table, error) {
	if keyCols <= 0 || keyCols > len(header) {
		keyCols = len(header)
	}
	t := &Table{
		path:    path,
		header:  append([]string(nil), header...),
		keyCols: keyCols,
		keys:    make(map[string]bool),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExport, "failed to create export directory")
	}

	keep := false
	if resume {
		existing, rows, err := ReadTable(path)
		switch {
		case err == nil && existing == nil:
		case err == nil && sameHeader(existing, header):
			keep = true
			for _, r := range rows {
				t.keys[t.key(r)] = true
			}
			t.rows = len(rows)
		case err == nil:
			return nil, errors.Newf(errors.ErrCodeExport, "existing table has header %v", existing).WithDetail(path)
		case !errors.IsCode(err, errors.ErrCodeNotFound):
			return nil, err
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !keep {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExport, "failed to open table")
	}
	t.f = f
	t.w = csv.NewWriter(f)

	if !keep {
		if err := t.write(header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return t, nil
}

func sameHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (t *Table) key(row []string) string {
	n := t.keyCols
	if n > len(row) {
		n = len(row)
	}
	return strings.Join(row[:n], "\x00")
}

func (t *Table) write(row []string) error {
	if err := t.w.Write(row); err != nil {
		return errors.Wrap(err, errors.ErrCodeExport, "failed to write row")
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeExport, "failed to flush row")
	}
	return nil
}

// Path returns the file backing the table.
func (t *Table) Path() string { return t.path }

// Header returns a copy of the column names.
func (t *Table) Header() []string { return append([]string(nil), t.header...) }

// Has reports whether a row with the given key columns was written.
func (t *Table) Has(key ...string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.keys[strings.Join(key, "\x00")]
}

// Append writes row and flushes it. It reports false, without writing, when
// a row with the same key exists.
func (t *Table) Append(row []string) (bool, error) {
	if len(row) != len(t.header) {
		return false, errors.Newf(errors.ErrCodeExport, "row has %d columns, table has %d", len(row), len(t.header)).
			WithDetail(t.path)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false, errors.New(errors.ErrCodeExport, "table is closed").WithDetail(t.path)
	}
	k := t.key(row)
	if t.keys[k] {
		return false, nil
	}
	if err := t.write(row); err != nil {
		return false, err
	}
	t.keys[k] = true
	t.rows++
	return true, nil
}

// Rows returns the number of data rows in the table.
func (t *Table) Rows() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rows
}

// Close flushes and closes the file. Closing twice is a no-op.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.w.Flush()
	werr := t.w.Error()
	if err := t.f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeExport, "failed to close table")
	}
	if werr != nil {
		return errors.Wrap(werr, errors.ErrCodeExport, "failed to flush table")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reading
// ─────────────────────────────────────────────────────────────────────────────

// ReadTable loads a whole CSV file. A missing file yields an error with code
// ErrCodeNotFound; an empty file yields no header and no rows.
func ReadTable(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil, errors.New(errors.ErrCodeNotFound, "table does not exist").WithDetail(path)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeExport, "failed to open table")
	}
	defer f.Close()
	return readCSV(f, path)
}

func readCSV(r io.Reader, path string) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errors.New(errors.ErrCodeExport, "failed to read table header").WithDetail(path).WithCause(err)
	}
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return header, rows, errors.New(errors.ErrCodeExport, "failed to read table row").WithDetail(path).WithCause(err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// Index maps column names onto positions.
func Index(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, h := range header {
		out[h] = i
	}
	return out
}

//Personal.AI order the ending
