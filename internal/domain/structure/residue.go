package structure

import "strconv"

// ─────────────────────────────────────────────────────────────────────────────
// Residue naming
// ─────────────────────────────────────────────────────────────────────────────

// AminoThreeToOne maps the three-letter code of every residue that contributes
// to a chain's polymer sequence onto its one-letter code. Selenomethionine is
// read as methionine.
var AminoThreeToOne = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLU": 'E', "GLN": 'Q', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
	"MSE": 'M',
}

var waterNames = map[string]bool{"HOH": true, "WAT": true, "DOD": true, "H2O": true}

// Atom is one coordinate record.
type Atom struct {
	Serial     int
	Name       string
	AltLoc     byte
	Element    string
	Coord      Vec3
	Occupancy  float64
	TempFactor float64
}

// IsHydrogen reports whether the atom is a hydrogen or deuterium.
func (a Atom) IsHydrogen() bool {
	return a.Element == "H" || a.Element == "D"
}

// Residue is a group of atoms sharing chain, sequence number and insertion
// code.
type Residue struct {
	Name   string
	Seq    int
	ICode  byte
	Hetero bool
	Atoms  []Atom
}

// ResidueID is a residue number with its insertion code, blank when absent.
type ResidueID struct {
	Seq   int
	ICode byte
}

// ID returns the number and insertion code of r.
func (r *Residue) ID() ResidueID { return ResidueID{Seq: r.Seq, ICode: blank(r.ICode)} }

// Inserted reports whether id carries an insertion code.
func (id ResidueID) Inserted() bool { return id.ICode != ' ' && id.ICode != 0 }

// String renders id the way PDB files print it, e.g. "52" or "52A".
func (id ResidueID) String() string {
	if id.Inserted() {
		return strconv.Itoa(id.Seq) + string(id.ICode)
	}
	return strconv.Itoa(id.Seq)
}

// Less orders by number, then insertion code; a blank code sorts first.
func (id ResidueID) Less(o ResidueID) bool {
	if id.Seq != o.Seq {
		return id.Seq < o.Seq
	}
	return blank(id.ICode) < blank(o.ICode)
}

// Atom returns the atom with the given name, if present.
func (r *Residue) Atom(name string) (Atom, bool) {
	for _, a := range r.Atoms {
		if a.Name == name {
			return a, true
		}
	}
	return Atom{}, false
}

// CA returns the alpha carbon of the residue.
func (r *Residue) CA() (Atom, bool) { return r.Atom("CA") }

// Letter returns the one-letter amino-acid code, or 0 for anything that is not
// a polymer amino acid.
func (r *Residue) Letter() byte { return AminoThreeToOne[r.Name] }

// IsAmino reports whether the residue is a standard amino acid (or MSE).
func (r *Residue) IsAmino() bool { return r.Letter() != 0 }

// IsWater reports whether the residue is a water molecule.
func (r *Residue) IsWater() bool { return waterNames[r.Name] }

// IsLigand reports whether the residue is a hetero group that is neither
// water nor part of the polymer.
func (r *Residue) IsLigand() bool { return r.Hetero && !r.IsWater() && !r.IsAmino() }

// Resolved reports whether the residue contributes to the chain sequence:
// an amino acid with a modelled alpha carbon.
func (r *Residue) Resolved() bool {
	if !r.IsAmino() {
		return false
	}
	_, ok := r.CA()
	return ok
}

func (r Residue) clone() Residue {
	out := r
	out.Atoms = append([]Atom(nil), r.Atoms...)
	return out
}
