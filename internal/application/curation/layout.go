package curation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/biocad/anbase/internal/config"
)

// Per-complex directories under DataDir.
const (
	structuresDir = "structures"
	sequencesDir  = "seqs"
	alignedDir    = "aligned"
	strippedDir   = "hetatms_deleted"
	constraintDir = "constraints"
)

// Layout places the files of a run. Tables and ledgers go to OutDir; raw
// structures and per-complex artifacts go to DataDir.
type Layout struct {
	DataDir string
	OutDir  string
	RunID   string
}

// NewLayout derives the layout of cfg.
func NewLayout(cfg config.PipelineConfig) Layout {
	return Layout{DataDir: cfg.DataDir, OutDir: cfg.OutDir, RunID: cfg.RunID}
}

func (l Layout) Candidates() string {
	return filepath.Join(l.OutDir, fmt.Sprintf("unbound_data_%s.csv", l.RunID))
}

func (l Layout) DBInfo() string       { return filepath.Join(l.OutDir, "db_info.csv") }
func (l Layout) GapsBound() string    { return filepath.Join(l.OutDir, "gap_stats_b.csv") }
func (l Layout) GapsUnbound() string  { return filepath.Join(l.OutDir, "gap_stats_u.csv") }
func (l Layout) Duplicates() string   { return filepath.Join(l.OutDir, "duplicates.csv") }
func (l Layout) Summary() string      { return filepath.Join(l.OutDir, "summary.csv") }
func (l Layout) Alternatives() string { return filepath.Join(l.OutDir, "alternatives.csv") }

// Tables lists every output table, in stage order.
func (l Layout) Tables() []string {
	return []string{
		l.Candidates(), l.DBInfo(), l.GapsBound(), l.GapsUnbound(),
		l.Duplicates(), l.Summary(), l.Alternatives(),
	}
}

// Structures is the download cache of raw coordinate files.
func (l Layout) Structures() string { return filepath.Join(l.DataDir, structuresDir) }

// ComplexDir holds the artifacts of one complex.
func (l Layout) ComplexDir(comp string) string { return filepath.Join(l.DataDir, comp) }

// SequenceFile is the FASTA of the bound chains of comp.
func (l Layout) SequenceFile(comp, pdbID string) string {
	return filepath.Join(l.ComplexDir(comp), sequencesDir, strings.ToUpper(pdbID)+".fasta")
}

// Aligned is the directory of superposed structures; candidateID "" names the
// bound structures.
func (l Layout) Aligned(comp, candidateID string) string {
	return filepath.Join(l.ComplexDir(comp), alignedDir, candidateID)
}

// Stripped mirrors Aligned with HETATM records removed.
func (l Layout) Stripped(comp, candidateID string) string {
	return filepath.Join(l.ComplexDir(comp), strippedDir, candidateID)
}

// ConstraintFile is the docking restraint file of comp.
func (l Layout) ConstraintFile(comp string) string {
	return filepath.Join(l.OutDir, constraintDir, comp+".txt")
}

// structureFile names a group file such as 1ABC_ab_u.pdb.
func structureFile(pdbID, group, state string) string {
	return strings.ToUpper(pdbID) + "_" + group + "_" + state + ".pdb"
}
