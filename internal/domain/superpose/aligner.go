package superpose

import (
	"github.com/biocad/anbase/internal/domain/gaps"
	"github.com/biocad/anbase/internal/domain/sequence"
	"github.com/biocad/anbase/internal/domain/structure"
)

// canonicalScoring aligns the canonical sequences of two chains.
var canonicalScoring = sequence.Symmetric(sequence.Blosum62{}, 10, 1)

// ChainPair names a bound chain and the unbound chain to be fitted onto it.
// The Full sequences are the canonical sequences of the chains; when empty,
// the resolved sequence stands in. A non-empty Interface restricts the fit to
// those bound residues.
type ChainPair struct {
	Bound       *structure.Chain
	BoundFull   string
	Unbound     *structure.Chain
	UnboundFull string
	Interface   gaps.ResidueSet
}

// Pair links a resolved residue index of the bound chain with one of the
// unbound chain.
type Pair struct {
	Bound, Unbound int
}

// Correspond derives residue pairs by placing both resolved sequences onto
// their canonical sequences and aligning the canonical sequences to each
// other. Only residues resolved on both sides are returned.
func Correspond(p ChainPair) []Pair {
	bseq, useq := p.Bound.Sequence(), p.Unbound.Sequence()
	bfull, ufull := p.BoundFull, p.UnboundFull
	if bfull == "" {
		bfull = bseq
	}
	if ufull == "" {
		ufull = useq
	}

	bres := invert(sequence.Place(bseq, bfull), len(bfull))
	ures := invert(sequence.Place(useq, ufull), len(ufull))

	al := sequence.Align(bfull, ufull, canonicalScoring, sequence.Overlap)
	var out []Pair
	i, j := 0, 0
	for k := 0; k < len(al.A); k++ {
		ca, cb := al.A[k], al.B[k]
		if ca != sequence.Gap && cb != sequence.Gap {
			if bres[i] >= 0 && ures[j] >= 0 {
				out = append(out, Pair{Bound: bres[i], Unbound: ures[j]})
			}
		}
		if ca != sequence.Gap {
			i++
		}
		if cb != sequence.Gap {
			j++
		}
	}
	return out
}

// invert turns a resolved→canonical placement into a canonical→resolved
// lookup of length n.
func invert(place []int, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	for r, c := range place {
		if c >= 0 {
			out[c] = r
		}
	}
	return out
}

// Result is a fitted superposition.
type Result struct {
	Transform     Transform
	RMSD          float64
	FitPoints     int
	InterfaceOnly bool
}

// Apply returns a copy of s moved into the bound frame.
func (r Result) Apply(s *structure.Structure) *structure.Structure {
	return s.Transformed(r.Transform.Apply)
}

// Superpose fits the unbound chains of pairs onto their bound partners with a
// single rigid motion. Interface-restricted points are used when at least
// MinFitPoints of them exist; otherwise every corresponding pair is fitted.
func Superpose(pairs []ChainPair) (Result, error) {
	var allB, allU, ifB, ifU []structure.Vec3
	restricted := false
	for _, p := range pairs {
		bca, uca := p.Bound.CAs(), p.Unbound.CAs()
		useIface := len(p.Interface) > 0
		restricted = restricted || useIface
		for _, c := range Correspond(p) {
			allB = append(allB, bca[c.Bound])
			allU = append(allU, uca[c.Unbound])
			if useIface && p.Interface.Has(c.Bound) {
				ifB = append(ifB, bca[c.Bound])
				ifU = append(ifU, uca[c.Unbound])
			}
		}
	}

	mobile, target, ifaceOnly := allU, allB, false
	if restricted && len(ifB) >= MinFitPoints {
		mobile, target, ifaceOnly = ifU, ifB, true
	}
	t, rmsd, err := Kabsch(mobile, target)
	if err != nil {
		return Result{}, err
	}
	return Result{Transform: t, RMSD: rmsd, FitPoints: len(mobile), InterfaceOnly: ifaceOnly}, nil
}

//Personal.AI order the ending
