package curation

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/sequence"
	"github.com/biocad/anbase/internal/domain/structure"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// fastaColumns is the line width of written FASTA files.
const fastaColumns = 80

// loadStructure returns the parsed coordinates of pdbID, downloading them into
// the structure cache on first use.
func (p *Pipeline) loadStructure(ctx context.Context, pdbID string) (*structure.Structure, error) {
	path, err := p.remote.StructurePath(ctx, pdbID, p.layout.Structures())
	if err != nil {
		return nil, err
	}
	return structure.ReadFile(path, strings.ToUpper(pdbID))
}

// entryInfo returns the metadata of pdbID, with the unknown placeholders when
// the lookup fails.
func (p *Pipeline) entryInfo(ctx context.Context, pdbID string) abag.EntryInfo {
	info, err := p.remote.FetchEntryInfo(ctx, pdbID)
	if err != nil {
		p.logger.Warn("Entry metadata unavailable", logging.PDBID(pdbID), logging.Reason(errors.Reason(err)))
		return abag.UnknownEntry(pdbID)
	}
	return info
}

// sequenceHeader names a chain in the bound FASTA file.
func sequenceHeader(pdbID, chainID string) string {
	return strings.ToUpper(pdbID) + ":" + chainID
}

// writeSequences stores the resolved sequences of c, antibody chains first.
func (p *Pipeline) writeSequences(c *abag.Complex) error {
	path := p.layout.SequenceFile(c.Name, c.PDBID)
	ids := append(append([]string{}, c.Antibody...), c.Antigen...)
	recs := make([]sequence.Record, len(ids))
	for i, id := range ids {
		recs[i] = sequence.Record{Header: sequenceHeader(c.PDBID, id), Sequence: c.Sequence(id)}
	}
	return writeFile(path, func(f *os.File) error { return sequence.WriteFasta(f, fastaColumns, recs...) })
}

// readSequences loads the file written by writeSequences as chain id to
// sequence.
func (p *Pipeline) readSequences(comp, pdbID string) (map[string]string, error) {
	path := p.layout.SequenceFile(comp, pdbID)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeUnfetchedSequence, "bound sequences not collected").WithDetail(comp)
		}
		return nil, errors.Wrap(err, errors.ErrCodeExport, "failed to open sequences")
	}
	defer f.Close()
	recs, err := sequence.ReadFasta(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFastaParse, "failed to read sequences")
	}
	out := make(map[string]string, len(recs))
	prefix := strings.ToUpper(pdbID) + ":"
	for _, r := range recs {
		out[strings.TrimPrefix(r.Header, prefix)] = r.Sequence
	}
	return out, nil
}

// writeGroup writes s twice: as-is under the aligned directory and without
// HETATM records under the stripped one.
func (p *Pipeline) writeGroup(comp, candidateID, name string, s *structure.Structure) error {
	if err := writeStructure(filepath.Join(p.layout.Aligned(comp, candidateID), name), s); err != nil {
		return err
	}
	return writeStructure(filepath.Join(p.layout.Stripped(comp, candidateID), name), s, structure.SkipHetero())
}

func writeStructure(path string, s *structure.Structure, opts ...structure.WriteOption) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "failed to create structure dir")
	}
	return structure.WriteFile(path, s, opts...)
}

func writeFile(path string, fn func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeExport, "failed to create dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExport, "failed to create file")
	}
	if err := fn(f); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrCodeExport, "failed to write file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeExport, "failed to close file")
	}
	return nil
}
