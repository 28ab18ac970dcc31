package sequence

import (
	"io"

	"github.com/TuftsBCB/io/fasta"
	"github.com/TuftsBCB/seq"

	"github.com/biocad/anbase/pkg/errors"
)

// Record is one FASTA entry.
type Record struct {
	Header   string
	Sequence string
}

// ReadFasta reads every entry of a FASTA stream. Sequence letters are
// upper-cased; blank lines are ignored. Malformed input yields an
// ErrCodeFastaParse error naming the offending line.
func ReadFasta(r io.Reader) ([]Record, error) {
	entries, err := fasta.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFastaParse, "malformed fasta")
	}
	out := make([]Record, len(entries))
	for i, e := range entries {
		res := make([]byte, len(e.Residues))
		for j, r := range e.Residues {
			res[j] = byte(r)
		}
		out[i] = Record{Header: e.Name, Sequence: string(res)}
	}
	return out, nil
}

// WriteFasta writes records wrapped at cols columns; cols <= 0 disables
// wrapping.
func WriteFasta(w io.Writer, cols int, records ...Record) error {
	fw := fasta.NewWriter(w)
	fw.Columns = cols
	entries := make([]seq.Sequence, len(records))
	for i, rec := range records {
		entries[i] = seq.NewSequenceString(rec.Header, rec.Sequence)
	}
	if err := fw.WriteAll(entries); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to write fasta")
	}
	return nil
}

//Personal.AI order the ending
