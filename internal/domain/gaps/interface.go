// Package gaps finds interface residues of a bound complex and classifies the
// unmodelled stretches of each chain relative to that interface.
package gaps

import (
	"sort"

	"github.com/biocad/anbase/internal/domain/structure"
)

// ResidueSet holds indices into a chain's resolved residues.
type ResidueSet map[int]struct{}

// Has reports whether i is in the set.
func (s ResidueSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}

// Sorted returns the members in ascending order.
func (s ResidueSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Interface maps a chain identifier to its interface residues.
type Interface map[string]ResidueSet

// Chain returns the residue set of id, never nil.
func (f Interface) Chain(id string) ResidueSet {
	if s, ok := f[id]; ok {
		return s
	}
	return ResidueSet{}
}

// Size returns the total number of interface residues.
func (f Interface) Size() int {
	n := 0
	for _, s := range f {
		n += len(s)
	}
	return n
}

// InterfaceResidues marks every resolved residue of a and of b whose alpha
// carbon lies strictly closer than cutoff to an alpha carbon on the other side.
// Every chain of a and b gets an entry, empty when it has no contacts.
func InterfaceResidues(a, b []structure.Chain, cutoff float64) (Interface, Interface) {
	ia, ib := Interface{}, Interface{}
	cas := func(chains []structure.Chain, into Interface) [][]structure.Vec3 {
		out := make([][]structure.Vec3, len(chains))
		for i := range chains {
			out[i] = chains[i].CAs()
			into[chains[i].ID] = ResidueSet{}
		}
		return out
	}
	caA, caB := cas(a, ia), cas(b, ib)

	for ci := range a {
		for cj := range b {
			for i, p := range caA[ci] {
				for j, q := range caB[cj] {
					if p.Dist(q) < cutoff {
						ia[a[ci].ID][i] = struct{}{}
						ib[b[cj].ID][j] = struct{}{}
					}
				}
			}
		}
	}
	return ia, ib
}

// ContactResidues returns, per chain of target, the ids of amino acids with
// any heavy atom strictly closer than cutoff to any heavy atom of partner. Ids
// keep their insertion code and are sorted and unique.
func ContactResidues(target, partner []structure.Chain, cutoff float64) map[string][]structure.ResidueID {
	var partnerAtoms []structure.Vec3
	for _, c := range partner {
		for _, r := range c.Residues {
			if !r.IsAmino() {
				continue
			}
			for _, at := range r.Atoms {
				if !at.IsHydrogen() {
					partnerAtoms = append(partnerAtoms, at.Coord)
				}
			}
		}
	}

	out := make(map[string][]structure.ResidueID, len(target))
	for _, c := range target {
		seen := map[structure.ResidueID]bool{}
		ids := []structure.ResidueID{}
		for ri := range c.Residues {
			r := &c.Residues[ri]
			id := r.ID()
			if !r.IsAmino() || seen[id] {
				continue
			}
			var coords []structure.Vec3
			for _, at := range r.Atoms {
				if !at.IsHydrogen() {
					coords = append(coords, at.Coord)
				}
			}
			if AnyWithin(coords, partnerAtoms, cutoff) {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
		out[c.ID] = ids
	}
	return out
}

// AnyWithin reports whether some point of a lies strictly closer than cutoff
// to some point of b.
func AnyWithin(a, b []structure.Vec3, cutoff float64) bool {
	c2 := cutoff * cutoff
	for _, p := range a {
		for _, q := range b {
			d := p.Sub(q)
			if d.Dot(d) < c2 {
				return true
			}
		}
	}
	return false
}

// InterfaceCAs returns the alpha-carbon coordinates of the interface residues
// of chains.
func InterfaceCAs(chains []structure.Chain, iface Interface) []structure.Vec3 {
	var out []structure.Vec3
	for i := range chains {
		set := iface.Chain(chains[i].ID)
		for k, p := range chains[i].CAs() {
			if set.Has(k) {
				out = append(out, p)
			}
		}
	}
	return out
}
