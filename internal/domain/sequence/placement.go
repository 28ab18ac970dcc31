package sequence

import "strings"

// PlacementScoring places a resolved structure sequence onto its canonical
// sequence: gaps in the resolved sequence open at a cost of one and extend for
// free, gaps in the canonical sequence are effectively forbidden.
var PlacementScoring = Scoring{Matrix: IdentityMatrix{}, OpenA: 1, ExtA: 0, OpenB: 100, ExtB: 100}

// Place maps every position of resolved onto the position of full it aligns
// to, or -1 when it falls outside the local alignment or opposite a gap.
func Place(resolved, full string) []int {
	out := make([]int, len(resolved))
	for i := range out {
		out[i] = -1
	}
	al := Align(resolved, full, PlacementScoring, Local)
	i, j := al.StartA, al.StartB
	for k := 0; k < len(al.A); k++ {
		ca, cb := al.A[k], al.B[k]
		if ca != Gap && cb != Gap {
			out[i] = j
		}
		if ca != Gap {
			i++
		}
		if cb != Gap {
			j++
		}
	}
	return out
}

// ResolvedWindow returns the stretch of full between the first and last
// residue that matches resolved, or ok=false when nothing matches.
func ResolvedWindow(resolved, full string) (window string, ok bool) {
	al := Align(resolved, full, PlacementScoring, Local)
	first, last, ok := al.MatchSpan()
	if !ok {
		return "", false
	}
	return strings.ReplaceAll(al.B[first:last+1], string(Gap), ""), true
}
