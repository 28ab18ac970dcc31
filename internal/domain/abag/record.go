package abag

import (
	"github.com/biocad/anbase/internal/domain/gaps"
	"github.com/biocad/anbase/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Small-molecule severity
// ─────────────────────────────────────────────────────────────────────────────

// Severity grades the hetero groups found in a candidate's chains.
type Severity int

const (
	// SeverityNone means no ligand is present.
	SeverityNone Severity = iota
	// SeverityWarning means ligands are present but away from the interface.
	SeverityWarning
	// SeverityError means a ligand sits at the interface.
	SeverityError
)

// NoMessage is written in place of an empty small-molecule message.
const NoMessage = "NA"

// Message is the persisted representation.
func (s Severity) Message() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return NoMessage
}

func (s Severity) String() string { return s.Message() }

// ParseSeverity reads a persisted small-molecule message.
func ParseSeverity(msg string) (Severity, error) {
	switch msg {
	case "", NoMessage:
		return SeverityNone, nil
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityNone, errors.Newf(errors.ErrCodeBadRow, "unknown small molecules message %q", msg)
}

// ─────────────────────────────────────────────────────────────────────────────
// Entry metadata
// ─────────────────────────────────────────────────────────────────────────────

const (
	// UnknownResolution sorts entries without a reported resolution last.
	UnknownResolution = 100.0
	// UnknownMethod is used when no experimental method is reported.
	UnknownMethod = "UNKNOWN"
)

// EntryInfo is the metadata kept for a structure entry.
type EntryInfo struct {
	PDBID      string   `json:"pdb_id"`
	Resolution float64  `json:"resolution"`
	Method     string   `json:"method"`
	Obsolete   bool     `json:"obsolete"`
	Names      []string `json:"names,omitempty"`
}

// UnknownEntry is the fallback metadata for an entry the service knows
// nothing about.
func UnknownEntry(pdbID string) EntryInfo {
	return EntryInfo{PDBID: pdbID, Resolution: UnknownResolution, Method: UnknownMethod}
}

// ─────────────────────────────────────────────────────────────────────────────
// Record
// ─────────────────────────────────────────────────────────────────────────────

// Side describes one group of a scored pairing.
type Side struct {
	PDBID      string
	Resolution float64
	Method     string
	ChainIDs   []string
}

// Record is the scored outcome of one pairing of a complex.
type Record struct {
	ComplexName string
	Type        PairingType
	CandidateID string

	BoundPDBID      string
	BoundResolution float64
	BoundMethod     string
	BoundAntibody   []string
	BoundAntigen    []string

	Antibody Side
	Antigen  Side

	AntibodyMismatches int
	AntigenMismatches  int
	SmallMolecules     Severity

	GapsBound   gaps.Stats
	GapsUnbound gaps.Stats
}

// Name identifies the record among all records: "{complex}_{candidate}".
func (r Record) Name() string { return r.ComplexName + "_" + r.CandidateID }

// Mismatches is the total of both groups.
func (r Record) Mismatches() int { return r.AntibodyMismatches + r.AntigenMismatches }

//Personal.AI order the ending
