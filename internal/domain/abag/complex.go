// Package abag models bound antibody–antigen complexes, their unbound
// candidates and the per-pairing records the curation pipeline persists.
package abag

import (
	"fmt"
	"strings"

	"github.com/biocad/anbase/pkg/errors"
)

// ChainSeparator joins chain identifiers inside a complex name.
const ChainSeparator = "+"

// ─────────────────────────────────────────────────────────────────────────────
// Complex
// ─────────────────────────────────────────────────────────────────────────────

// Complex is a bound antibody–antigen entry. Antibody holds the heavy chain
// and, unless the antibody is a single-domain one, the light chain. Sequences
// maps every declared chain onto its resolved canonical window.
type Complex struct {
	PDBID     string
	Name      string
	Antibody  []string
	Antigen   []string
	sequences map[string]string
}

// NewComplex validates the chain declaration and freezes the sequences.
func NewComplex(pdbID string, antibody, antigen []string, seqs map[string]string) (*Complex, error) {
	if pdbID == "" {
		return nil, errors.New(errors.CodeInvalidParam, "empty pdb id")
	}
	if len(antibody) == 0 || len(antibody) > 2 || len(antigen) == 0 {
		return nil, errors.Newf(errors.ErrCodeImpossibleChainSpec,
			"antibody %v antigen %v", antibody, antigen).WithDetail(pdbID)
	}
	own := make(map[string]string, len(antibody)+len(antigen))
	for _, id := range append(append([]string{}, antibody...), antigen...) {
		s := seqs[id]
		if s == "" {
			return nil, errors.New(errors.ErrCodeUnfetchedSequence, "has unfetched sequences").
				WithDetail(pdbID + ":" + id)
		}
		own[id] = s
	}
	return &Complex{
		PDBID:     pdbID,
		Name:      FormName(pdbID, antibody, antigen),
		Antibody:  append([]string(nil), antibody...),
		Antigen:   append([]string(nil), antigen...),
		sequences: own,
	}, nil
}

// Sequence returns the resolved sequence of a declared chain.
func (c *Complex) Sequence(chainID string) string { return c.sequences[chainID] }

// Sequences returns the resolved sequences of ids, in order.
func (c *Complex) Sequences(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = c.sequences[id]
	}
	return out
}

// AntibodySeqs returns the antibody sequences in role order.
func (c *Complex) AntibodySeqs() []string { return c.Sequences(c.Antibody) }

// AntigenSeqs returns the antigen sequences in declaration order.
func (c *Complex) AntigenSeqs() []string { return c.Sequences(c.Antigen) }

// SequenceMap returns a copy of every declared chain's sequence.
func (c *Complex) SequenceMap() map[string]string {
	out := make(map[string]string, len(c.sequences))
	for k, v := range c.sequences {
		out[k] = v
	}
	return out
}

// IsSingleDomain reports whether the antibody has a heavy chain only.
func (c *Complex) IsSingleDomain() bool { return len(c.Antibody) == 1 }

// FormName builds "{pdb}_{H[+L]}-{A[+B…]}".
func FormName(pdbID string, antibody, antigen []string) string {
	return pdbID + "_" + strings.Join(antibody, ChainSeparator) + "-" + strings.Join(antigen, ChainSeparator)
}

// ParseName splits a complex name produced by FormName.
func ParseName(name string) (pdbID string, antibody, antigen []string, err error) {
	us := strings.IndexByte(name, '_')
	if us <= 0 {
		return "", nil, nil, errors.Newf(errors.ErrCodeBadRow, "malformed complex name %q", name)
	}
	chains := name[us+1:]
	dash := strings.IndexByte(chains, '-')
	if dash <= 0 || dash == len(chains)-1 {
		return "", nil, nil, errors.Newf(errors.ErrCodeBadRow, "malformed complex name %q", name)
	}
	return name[:us], strings.Split(chains[:dash], ChainSeparator),
		strings.Split(chains[dash+1:], ChainSeparator), nil
}

// String implements fmt.Stringer.
func (c *Complex) String() string {
	return fmt.Sprintf("%s(ab=%v ag=%v)", c.Name, c.Antibody, c.Antigen)
}

//Personal.AI order the ending
