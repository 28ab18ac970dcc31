package structure

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	chem "github.com/rmera/gochem"
	v3 "github.com/rmera/gochem/v3"

	"github.com/biocad/anbase/pkg/errors"
)

// gochem reads and writes the coordinate records. Its atoms carry no
// insertion code, so column 27 travels beside the molecule in record order.

const iCodeColumn = 26

// ─────────────────────────────────────────────────────────────────────────────
// Reading
// ─────────────────────────────────────────────────────────────────────────────

// ReadFile parses a PDB file from disk.
func ReadFile(path, id string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureParse, "open structure")
	}
	defer f.Close()
	return Parse(f, id)
}

// recordMeta is what the converter keeps per coordinate record besides the
// gochem atom.
type recordMeta struct {
	iCode   byte
	element string
}

// Parse reads the first model of a PDB-format stream. ATOM and HETATM records
// are grouped into residues by (chain, resSeq, iCode, resName); only the first
// alternate location of every atom is kept.
func Parse(r io.Reader, id string) (*Structure, error) {
	records, meta, err := firstModel(r, id)
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, errors.New(errors.ErrCodeStructureParse, "no coordinate records").WithDetail(id)
	}
	mol, err := chem.PDBRead(bytes.NewReader(records))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureParse, "bad coordinate records in "+id)
	}
	if mol.Len() != len(meta) || len(mol.Coords) == 0 {
		return nil, errors.Newf(errors.ErrCodeStructureParse, "read %d of %d coordinate records", mol.Len(), len(meta)).WithDetail(id)
	}
	return fromMolecule(mol, meta, id), nil
}

// firstModel copies the ATOM and HETATM records up to the first ENDMDL or END
// with the insertion code column blanked, and returns the per-record metadata.
func firstModel(r io.Reader, id string) ([]byte, []recordMeta, error) {
	var (
		buf  bytes.Buffer
		meta []recordMeta
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		rec := strings.TrimSpace(col(line, 0, 6))
		if rec == "ENDMDL" || rec == "END" {
			break
		}
		if rec != "ATOM" && rec != "HETATM" {
			continue
		}
		if len(line) < 54 {
			return nil, nil, errors.New(errors.ErrCodeStructureParse, "truncated coordinate record").
				WithDetail(fmt.Sprintf("%s line %d", id, lineNo))
		}
		meta = append(meta, recordMeta{
			iCode:   byteAt(line, iCodeColumn),
			element: element(col(line, 76, 78), strings.TrimSpace(col(line, 12, 16))),
		})
		b := []byte(line)
		b[iCodeColumn] = ' '
		buf.Write(b)
		buf.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeStructureParse, "read structure")
	}
	buf.WriteString("END\n")
	return buf.Bytes(), meta, nil
}

// fromMolecule converts the first frame of mol.
func fromMolecule(mol *chem.Molecule, meta []recordMeta, id string) *Structure {
	s := &Structure{ID: id}
	index := map[string]int{}
	coords := mol.Coords[0]
	var bfactors []float64
	if len(mol.Bfactors) > 0 {
		bfactors = mol.Bfactors[0]
	}

	for i := 0; i < mol.Len(); i++ {
		at := mol.Atom(i)
		atom := Atom{
			Serial:    at.ID,
			Name:      at.Name,
			AltLoc:    at.Char16,
			Element:   meta[i].element,
			Coord:     Vec3{coords.At(i, 0), coords.At(i, 1), coords.At(i, 2)},
			Occupancy: at.Occupancy,
		}
		if i < len(bfactors) {
			atom.TempFactor = bfactors[i]
		}

		chainID := strings.TrimSpace(at.Chain)
		if chainID == "" {
			chainID = "_"
		}
		ci, ok := index[chainID]
		if !ok {
			ci = len(s.Chains)
			index[chainID] = ci
			s.Chains = append(s.Chains, Chain{ID: chainID})
		}
		chain := &s.Chains[ci]

		resName := strings.TrimSpace(at.MolName)
		iCode := meta[i].iCode
		if n := len(chain.Residues); n > 0 {
			last := &chain.Residues[n-1]
			if last.Seq == at.MolID && last.ICode == iCode && last.Name == resName {
				if atom.AltLoc != ' ' {
					if _, dup := last.Atom(atom.Name); dup {
						continue
					}
				}
				last.Atoms = append(last.Atoms, atom)
				continue
			}
		}
		chain.Residues = append(chain.Residues, Residue{
			Name:   resName,
			Seq:    at.MolID,
			ICode:  iCode,
			Hetero: at.Het,
			Atoms:  []Atom{atom},
		})
	}
	return s
}

func col(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from:to]
}

func byteAt(line string, i int) byte {
	if i >= len(line) {
		return ' '
	}
	return line[i]
}

// element returns the element symbol of the record, falling back to the first
// letter of the atom name when columns 77-78 are blank.
func element(field, name string) string {
	if e := strings.TrimSpace(field); e != "" {
		return strings.ToUpper(e)
	}
	for _, r := range name {
		if unicode.IsLetter(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return ""
}

// ─────────────────────────────────────────────────────────────────────────────
// Writing
// ─────────────────────────────────────────────────────────────────────────────

type writeOptions struct {
	skipHetero bool
}

// WriteOption adjusts Write.
type WriteOption func(*writeOptions)

// SkipHetero omits water and ligand groups from the output.
func SkipHetero() WriteOption {
	return func(o *writeOptions) { o.skipHetero = true }
}

// WriteFile writes s to path in PDB format.
func WriteFile(path string, s *Structure, opts ...WriteOption) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "create structure file")
	}
	if err := Write(f, s, opts...); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "close structure file")
	}
	return nil
}

// Write serializes s as PDB ATOM/HETATM records, atoms renumbered from 1.
func Write(w io.Writer, s *Structure, opts ...WriteOption) error {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}

	top, coords, bfactors, iCodes := toMolecule(s, o)
	if len(iCodes) == 0 {
		_, err := io.WriteString(w, "END\n")
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "write structure")
	}
	var buf bytes.Buffer
	if err := chem.PDBWrite(&buf, coords, top, bfactors); err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "write structure")
	}
	if _, err := w.Write(restoreICodes(buf.Bytes(), iCodes)); err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "write structure")
	}
	return nil
}

// toMolecule builds the gochem topology and coordinates of s, plus the
// insertion code of every atom in order.
func toMolecule(s *Structure, o writeOptions) (*chem.Topology, *v3.Matrix, []float64, []byte) {
	top := chem.NewTopology(0, 1)
	var (
		pts      []Vec3
		bfactors []float64
		iCodes   []byte
	)
	serial := 0
	for _, c := range s.Chains {
		chainID := c.ID
		if chainID == "_" || chainID == "" {
			chainID = " "
		}
		chainID = chainID[:1]
		for ri := range c.Residues {
			r := &c.Residues[ri]
			if o.skipHetero && r.Hetero && !r.IsAmino() {
				continue
			}
			for _, a := range r.Atoms {
				serial++
				top.AppendAtom(&chem.Atom{
					Name:      a.Name,
					ID:        serial,
					MolName:   r.Name,
					MolName1:  r.Letter(),
					Char16:    blank(a.AltLoc),
					MolID:     r.Seq,
					Chain:     chainID,
					Occupancy: a.Occupancy,
					Symbol:    a.Element,
					Het:       r.Hetero,
				})
				pts = append(pts, a.Coord)
				bfactors = append(bfactors, a.TempFactor)
				iCodes = append(iCodes, blank(r.ICode))
			}
		}
	}
	if len(pts) == 0 {
		return top, nil, nil, nil
	}
	coords := v3.Zeros(len(pts))
	for i, p := range pts {
		coords.Set(i, 0, p.X)
		coords.Set(i, 1, p.Y)
		coords.Set(i, 2, p.Z)
	}
	return top, coords, bfactors, iCodes
}

// restoreICodes writes iCodes, in order, into column 27 of the ATOM and
// HETATM records of out.
func restoreICodes(out []byte, iCodes []byte) []byte {
	lines := bytes.SplitAfter(out, []byte("\n"))
	k := 0
	for _, line := range lines {
		if k >= len(iCodes) {
			break
		}
		if !bytes.HasPrefix(line, []byte("ATOM")) && !bytes.HasPrefix(line, []byte("HETATM")) {
			continue
		}
		if len(line) > iCodeColumn {
			line[iCodeColumn] = iCodes[k]
		}
		k++
	}
	return bytes.Join(lines, nil)
}

func blank(b byte) byte {
	if b == 0 {
		return ' '
	}
	return b
}

//Personal.AI order the ending
