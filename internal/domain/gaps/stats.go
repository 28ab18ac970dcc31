package gaps

import (
	"github.com/biocad/anbase/internal/domain/sequence"
	"github.com/biocad/anbase/internal/domain/structure"
)

// DefaultLongGap is the largest gap length that is not flagged as long.
const DefaultLongGap = 15

// gapScoring opens structure-side gaps at a cost of one and extends them for
// free, so unmodelled loops come out as single runs.
var gapScoring = sequence.Symmetric(sequence.IdentityMatrix{}, 1, 0)

// Gap is a maximal run of alignment columns in which the structure has no
// residue. Left and Right are the indices of the flanking resolved residues;
// -1 marks a chain terminus.
type Gap struct {
	Left   int
	Right  int
	Length int
}

// Stats counts gaps by class. InBetween and OneSide are disjoint, so their
// sum never exceeds Total.
type Stats struct {
	InBetween int `json:"in_between"`
	OneSide   int `json:"one_side"`
	Long      int `json:"long"`
	Total     int `json:"total"`
}

// Add returns the component-wise sum.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		InBetween: s.InBetween + o.InBetween,
		OneSide:   s.OneSide + o.OneSide,
		Long:      s.Long + o.Long,
		Total:     s.Total + o.Total,
	}
}

// FindGaps aligns the resolved sequence of a chain onto its full sequence and
// returns the unmodelled runs in order.
func FindGaps(resolved, full string) []Gap {
	if resolved == "" || full == "" {
		return nil
	}
	al := sequence.Align(resolved, full, gapScoring, sequence.Overlap)

	var out []Gap
	ind, start, left := -1, -1, -1
	for k := 0; k < len(al.A); k++ {
		if al.A[k] != sequence.Gap {
			if start >= 0 {
				out = append(out, Gap{Left: left, Right: ind + 1, Length: k - start})
				start = -1
			}
			ind++
			continue
		}
		if start < 0 {
			start, left = k, ind
		}
	}
	if start >= 0 {
		out = append(out, Gap{Left: left, Right: -1, Length: len(al.A) - start})
	}
	return out
}

// Classify counts gaps against the interface residue set of their chain.
func Classify(gs []Gap, iface ResidueSet, longGap int) Stats {
	var st Stats
	for _, g := range gs {
		l := g.Left >= 0 && iface.Has(g.Left)
		r := g.Right >= 0 && iface.Has(g.Right)
		switch {
		case l && r:
			st.InBetween++
		case l || r:
			st.OneSide++
		}
		if g.Length > longGap {
			st.Long++
		}
		st.Total++
	}
	return st
}

// ChainStats is Classify over the gaps of chain against its full sequence.
func ChainStats(full string, chain *structure.Chain, iface ResidueSet, longGap int) Stats {
	return Classify(FindGaps(chain.Sequence(), full), iface, longGap)
}

// GroupStats sums ChainStats over chains. full maps a chain id onto its full
// sequence; chains without one are skipped.
func GroupStats(full map[string]string, chains []structure.Chain, iface Interface, longGap int) Stats {
	var st Stats
	for i := range chains {
		seq, ok := full[chains[i].ID]
		if !ok {
			continue
		}
		st = st.Add(ChainStats(seq, &chains[i], iface.Chain(chains[i].ID), longGap))
	}
	return st
}

//Personal.AI order the ending
