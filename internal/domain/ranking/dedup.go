package ranking

import (
	"sort"

	"github.com/biocad/anbase/internal/domain/sequence"
)

// Group is the sequence fingerprint of a complex used for deduplication.
type Group struct {
	Name     string
	Antibody []string
	Antigen  []string
}

// Similarity decides whether two sequences are the same chain.
type Similarity interface {
	IsSubsequenceOf(short, long string) bool
}

var _ Similarity = (*sequence.Comparator)(nil)

// Similar reports whether a and b describe the same complex. Two-chain
// antibodies match under either full pairing of their chains; antigen chains
// are compared position by position. The relation is symmetric whenever sim
// is.
func Similar(a, b Group, sim Similarity) bool {
	if len(a.Antibody) != len(b.Antibody) || len(a.Antigen) != len(b.Antigen) || len(a.Antibody) == 0 {
		return false
	}
	same := sim.IsSubsequenceOf

	var abSimilar bool
	if len(a.Antibody) == 2 {
		abSimilar = (same(a.Antibody[0], b.Antibody[0]) && same(a.Antibody[1], b.Antibody[1])) ||
			(same(a.Antibody[0], b.Antibody[1]) && same(a.Antibody[1], b.Antibody[0]))
	} else {
		abSimilar = same(a.Antibody[0], b.Antibody[0])
	}
	if !abSimilar {
		return false
	}
	for i := range a.Antigen {
		if !same(a.Antigen[i], b.Antigen[i]) {
			return false
		}
	}
	return true
}

// Duplicate is one row of the duplicates table.
type Duplicate struct {
	Name      string
	Duplicate string
}

// Collapse assigns every complex to a representative. Names are visited in
// sorted order; a name that is not yet absorbed becomes a representative and
// absorbs its listed duplicates. The result maps each representative onto the
// duplicates merged into it, sorted.
func Collapse(names []string, dups []Duplicate) map[string][]string {
	of := map[string][]string{}
	for _, d := range dups {
		of[d.Name] = append(of[d.Name], d.Duplicate)
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	absorbed := map[string]bool{}
	out := make(map[string][]string)
	for _, n := range sorted {
		if absorbed[n] {
			continue
		}
		if _, dup := out[n]; dup {
			continue
		}
		var merged []string
		for _, d := range of[n] {
			if d == n || absorbed[d] {
				continue
			}
			if _, isRep := out[d]; isRep {
				continue
			}
			absorbed[d] = true
			merged = append(merged, d)
		}
		sort.Strings(merged)
		out[n] = merged
	}
	return out
}
