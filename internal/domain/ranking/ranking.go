// Package ranking selects the reported unbound pairing of every complex and
// collapses near-identical complexes into one representative.
package ranking

import (
	"sort"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────────────────────

// IsPerfect reports whether a record has no interface gaps on the unbound side
// and no small molecules.
func IsPerfect(r abag.Record) bool {
	return r.GapsUnbound.InBetween == 0 &&
		r.GapsUnbound.OneSide == 0 &&
		r.SmallMolecules == abag.SeverityNone
}

// Less orders non-perfect records by, in decreasing precedence: unbound
// in-between gaps, unbound one-side gaps, summed mismatches, small-molecule
// severity and finally record name.
func Less(a, b abag.Record) bool {
	if a.GapsUnbound.InBetween != b.GapsUnbound.InBetween {
		return a.GapsUnbound.InBetween < b.GapsUnbound.InBetween
	}
	if a.GapsUnbound.OneSide != b.GapsUnbound.OneSide {
		return a.GapsUnbound.OneSide < b.GapsUnbound.OneSide
	}
	if ma, mb := a.Mismatches(), b.Mismatches(); ma != mb {
		return ma < mb
	}
	if a.SmallMolecules != b.SmallMolecules {
		return a.SmallMolecules < b.SmallMolecules
	}
	return a.Name() < b.Name()
}

// Sort orders records in place by Less.
func Sort(rs []abag.Record) {
	sort.SliceStable(rs, func(i, j int) bool { return Less(rs[i], rs[j]) })
}

// Result is the outcome of Finalize for one complex.
type Result struct {
	ComplexName  string
	Chosen       abag.Record
	IsPerfect    bool
	Alternatives []abag.Record
}

// Finalize picks the record reported for complexName out of pool. A perfect
// record always wins over imperfect ones, and among several perfect records
// the best by Less is chosen; without any, the best record by Less is. The
// remaining records follow as alternatives in Less order. pool is not
// modified.
func Finalize(complexName string, pool []abag.Record) (Result, error) {
	if len(pool) == 0 {
		return Result{}, errors.New(errors.ErrCodeNoCandidates, "no candidates to rank").WithDetail(complexName)
	}

	var perfect, rest []abag.Record
	for _, r := range pool {
		if IsPerfect(r) {
			perfect = append(perfect, r)
		} else {
			rest = append(rest, r)
		}
	}
	if len(perfect) == 0 {
		Sort(rest)
		return Result{ComplexName: complexName, Chosen: rest[0], IsPerfect: false, Alternatives: rest[1:]}, nil
	}

	Sort(perfect)
	alts := append(perfect[1:len(perfect):len(perfect)], rest...)
	Sort(alts)
	return Result{ComplexName: complexName, Chosen: perfect[0], IsPerfect: true, Alternatives: alts}, nil
}

//Personal.AI order the ending
