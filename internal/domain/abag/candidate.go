package abag

import (
	"strconv"
	"strings"

	"github.com/biocad/anbase/pkg/errors"
)

// GroupKind tells which chain group of a complex a candidate replaces.
type GroupKind string

const (
	KindAntibody GroupKind = "AB"
	KindAntigen  GroupKind = "AG"
)

// Candidate is an unbound structure whose chains, in order, stand in for the
// chains of one group of a bound complex.
type Candidate struct {
	PDBID    string
	ChainIDs []string
	Kind     GroupKind
}

// NewCandidate checks that the chain list matches the query group one to one.
func NewCandidate(pdbID string, chainIDs []string, kind GroupKind, groupLen int) (Candidate, error) {
	if len(chainIDs) != groupLen {
		return Candidate{}, errors.Newf(errors.CodeInvalidParam,
			"candidate %s has %d chains for a group of %d", pdbID, len(chainIDs), groupLen)
	}
	seen := make(map[string]bool, len(chainIDs))
	for _, id := range chainIDs {
		if seen[id] {
			return Candidate{}, errors.Newf(errors.CodeInvalidParam, "candidate %s reuses chain %s", pdbID, id)
		}
		seen[id] = true
	}
	return Candidate{PDBID: pdbID, ChainIDs: append([]string(nil), chainIDs...), Kind: kind}, nil
}

// ChainList renders the chain ids the way the candidates table stores them.
func (c Candidate) ChainList() string { return strings.Join(c.ChainIDs, ":") }

// Key identifies the candidate within its group.
func (c Candidate) Key() string { return c.PDBID + ":" + c.ChainList() }

// ParseChainList is the inverse of ChainList.
func ParseChainList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ":")
}

// ─────────────────────────────────────────────────────────────────────────────
// Pairings
// ─────────────────────────────────────────────────────────────────────────────

// PairingType records which groups of a scored pairing come from unbound
// structures: the antibody side first, then the antigen side.
type PairingType string

const (
	PairingUU PairingType = "U:U"
	PairingUB PairingType = "U:B"
	PairingBU PairingType = "B:U"
)

// Pairing is one scored combination of antibody and antigen conformations.
// A nil side keeps the bound chains of the complex.
type Pairing struct {
	ID       string
	Type     PairingType
	Antibody *Candidate
	Antigen  *Candidate
}

// Pairings enumerates all pairings of the candidates of a complex. With
// onlyUU, pairings that keep a bound group are skipped. IDs are assigned in
// enumeration order starting at "0".
func Pairings(antibody, antigen []Candidate, onlyUU bool) []Pairing {
	var out []Pairing
	add := func(t PairingType, ab, ag *Candidate) {
		out = append(out, Pairing{ID: strconv.Itoa(len(out)), Type: t, Antibody: ab, Antigen: ag})
	}
	for i := range antibody {
		for j := range antigen {
			add(PairingUU, &antibody[i], &antigen[j])
		}
	}
	if onlyUU {
		return out
	}
	for i := range antibody {
		add(PairingUB, &antibody[i], nil)
	}
	for j := range antigen {
		add(PairingBU, nil, &antigen[j])
	}
	return out
}

//Personal.AI order the ending
