// Package structure holds the in-memory model of a macromolecular coordinate
// file together with a PDB-format reader and writer. Values are treated as
// immutable: every filtering or transforming operation returns a copy.
package structure

import (
	"strings"

	"github.com/biocad/anbase/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Chain
// ─────────────────────────────────────────────────────────────────────────────

// Chain is one polymer chain in file order, including its hetero groups.
type Chain struct {
	ID       string
	Residues []Residue
}

// ResolvedResidues returns the residues that contribute to Sequence, in order.
func (c *Chain) ResolvedResidues() []Residue {
	out := make([]Residue, 0, len(c.Residues))
	for _, r := range c.Residues {
		if r.Resolved() {
			out = append(out, r)
		}
	}
	return out
}

// Sequence returns the one-letter sequence of the chain's resolved residues.
// Unmodelled stretches are simply absent, so the result may be shorter than
// the canonical sequence of the entity.
func (c *Chain) Sequence() string {
	var b strings.Builder
	for _, r := range c.Residues {
		if r.Resolved() {
			b.WriteByte(r.Letter())
		}
	}
	return b.String()
}

// CAs returns the alpha-carbon coordinates of the resolved residues, index
// aligned with Sequence.
func (c *Chain) CAs() []Vec3 {
	res := c.ResolvedResidues()
	out := make([]Vec3, len(res))
	for i := range res {
		ca, _ := res[i].CA()
		out[i] = ca.Coord
	}
	return out
}

// Ligands returns the non-water hetero groups attached to the chain.
func (c *Chain) Ligands() []Residue {
	var out []Residue
	for _, r := range c.Residues {
		if r.IsLigand() {
			out = append(out, r)
		}
	}
	return out
}

func (c Chain) clone() Chain {
	out := Chain{ID: c.ID, Residues: make([]Residue, len(c.Residues))}
	for i, r := range c.Residues {
		out.Residues[i] = r.clone()
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Structure
// ─────────────────────────────────────────────────────────────────────────────

// Structure is the first model of a coordinate entry.
type Structure struct {
	ID     string
	Chains []Chain
}

// Chain returns the chain with the given identifier.
func (s *Structure) Chain(id string) (*Chain, bool) {
	for i := range s.Chains {
		if s.Chains[i].ID == id {
			return &s.Chains[i], true
		}
	}
	return nil, false
}

// ChainIDs lists the chain identifiers in file order.
func (s *Structure) ChainIDs() []string {
	ids := make([]string, len(s.Chains))
	for i, c := range s.Chains {
		ids[i] = c.ID
	}
	return ids
}

// Select returns a copy holding only the named chains, in the order given.
func (s *Structure) Select(ids ...string) (*Structure, error) {
	out := &Structure{ID: s.ID, Chains: make([]Chain, 0, len(ids))}
	for _, id := range ids {
		c, ok := s.Chain(id)
		if !ok {
			return nil, errors.New(errors.ErrCodeStructureMissingChain,
				"chain not found").WithDetail(s.ID + ":" + id)
		}
		out.Chains = append(out.Chains, c.clone())
	}
	return out, nil
}

// Transformed returns a copy with f applied to every atom coordinate.
func (s *Structure) Transformed(f func(Vec3) Vec3) *Structure {
	out := s.Clone()
	for ci := range out.Chains {
		for ri := range out.Chains[ci].Residues {
			atoms := out.Chains[ci].Residues[ri].Atoms
			for ai := range atoms {
				atoms[ai].Coord = f(atoms[ai].Coord)
			}
		}
	}
	return out
}

// WithoutHetero returns a copy without water and ligand groups. Modified
// polymer residues such as MSE are kept.
func (s *Structure) WithoutHetero() *Structure {
	out := &Structure{ID: s.ID, Chains: make([]Chain, 0, len(s.Chains))}
	for _, c := range s.Chains {
		nc := Chain{ID: c.ID}
		for _, r := range c.Residues {
			if r.Hetero && !r.IsAmino() {
				continue
			}
			nc.Residues = append(nc.Residues, r.clone())
		}
		out.Chains = append(out.Chains, nc)
	}
	return out
}

// Clone returns a deep copy.
func (s *Structure) Clone() *Structure {
	out := &Structure{ID: s.ID, Chains: make([]Chain, len(s.Chains))}
	for i, c := range s.Chains {
		out.Chains[i] = c.clone()
	}
	return out
}

// Ligands returns every non-water hetero group of the structure.
func (s *Structure) Ligands() []Residue {
	var out []Residue
	for i := range s.Chains {
		out = append(out, s.Chains[i].Ligands()...)
	}
	return out
}

// Coords returns every atom coordinate, optionally skipping hydrogens.
func (s *Structure) Coords(heavyOnly bool) []Vec3 {
	var out []Vec3
	for _, c := range s.Chains {
		for _, r := range c.Residues {
			for _, a := range r.Atoms {
				if heavyOnly && a.IsHydrogen() {
					continue
				}
				out = append(out, a.Coord)
			}
		}
	}
	return out
}

// NumAtoms returns the total atom count.
func (s *Structure) NumAtoms() int {
	n := 0
	for _, c := range s.Chains {
		for _, r := range c.Residues {
			n += len(r.Atoms)
		}
	}
	return n
}

//Personal.AI order the ending
