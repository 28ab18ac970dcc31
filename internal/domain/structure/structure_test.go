package structure

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocad/anbase/pkg/errors"
)

const samplePDB = `HEADER    IMMUNE SYSTEM                           01-JAN-00   1ABC
ATOM      1  N   GLU H   1      10.000  10.000  10.000  1.00 20.00           N
ATOM      2  CA  GLU H   1      11.000  10.000  10.000  1.00 20.00           C
ATOM      3  C   GLU H   1      12.000  10.000  10.000  1.00 20.00           C
ATOM      4  N   VAL H   2      13.000  10.000  10.000  1.00 20.00           N
ATOM      5  CA AVAL H   2      14.000  10.000  10.000  0.50 20.00           C
ATOM      6  CA BVAL H   2      14.500  10.000  10.000  0.50 20.00           C
ATOM      7  N   GLN H   3      15.000  10.000  10.000  1.00 20.00           N
HETATM    8  N   MSE H   4      16.000  10.000  10.000  1.00 20.00           N
HETATM    9  CA  MSE H   4      17.000  10.000  10.000  1.00 20.00           C
TER      10      MSE H   4
ATOM     11  CA  LYS A  10       0.000   0.000   0.000  1.00 20.00           C
ATOM     12  CA  PHE A  10A      1.000   0.000   0.000  1.00 20.00           C
HETATM   13  C1  NAG A 501       2.000   0.000   0.000  1.00 20.00           C
HETATM   14  O   HOH A 601       3.000   0.000   0.000  1.00 20.00           O
ENDMDL
MODEL        2
ATOM     15  CA  GLY Z   1       0.000   0.000   0.000  1.00 20.00           C
ENDMDL
`

func parseSample(t *testing.T) *Structure {
	t.Helper()
	s, err := Parse(strings.NewReader(samplePDB), "1ABC")
	require.NoError(t, err)
	return s
}

func TestParse_FirstModelOnly(t *testing.T) {
	s := parseSample(t)
	assert.Equal(t, []string{"H", "A"}, s.ChainIDs())
	_, ok := s.Chain("Z")
	assert.False(t, ok)
}

func TestParse_ResiduesAndAltLocs(t *testing.T) {
	s := parseSample(t)
	h, ok := s.Chain("H")
	require.True(t, ok)
	require.Len(t, h.Residues, 4)

	val := h.Residues[1]
	assert.Equal(t, "VAL", val.Name)
	require.Len(t, val.Atoms, 2)
	ca, ok := val.CA()
	require.True(t, ok)
	assert.Equal(t, 14.0, ca.Coord.X)
	assert.Equal(t, byte('A'), ca.AltLoc)

	a, _ := s.Chain("A")
	require.Len(t, a.Residues, 4)
	assert.Equal(t, byte('A'), a.Residues[1].ICode)
	assert.True(t, a.Residues[2].Hetero)
}

func TestChain_Sequence(t *testing.T) {
	s := parseSample(t)
	h, _ := s.Chain("H")
	// GLN has no CA; MSE reads as M.
	assert.Equal(t, "EVM", h.Sequence())
	assert.Len(t, h.CAs(), 3)

	a, _ := s.Chain("A")
	assert.Equal(t, "KF", a.Sequence())
	ligs := a.Ligands()
	require.Len(t, ligs, 1)
	assert.Equal(t, "NAG", ligs[0].Name)
	assert.Len(t, s.Ligands(), 1)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader("HEADER nothing\n"), "X")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureParse))

	bad := "ATOM      1  CA  GLY A   1      xx.000   0.000   0.000  1.00 20.00           C\n"
	_, err = Parse(strings.NewReader(bad), "X")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureParse))
}

func TestSelect(t *testing.T) {
	s := parseSample(t)
	sel, err := s.Select("A", "H")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "H"}, sel.ChainIDs())

	sel.Chains[0].Residues[0].Atoms[0].Coord.X = 99
	a, _ := s.Chain("A")
	assert.Equal(t, 0.0, a.Residues[0].Atoms[0].Coord.X)

	_, err = s.Select("Q")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureMissingChain))
}

func TestTransformed_IsCopy(t *testing.T) {
	s := parseSample(t)
	shift := Vec3{1, 2, 3}
	moved := s.Transformed(func(v Vec3) Vec3 { return v.Add(shift) })

	a0, _ := s.Chain("A")
	a1, _ := moved.Chain("A")
	assert.Equal(t, Vec3{0, 0, 0}, a0.Residues[0].Atoms[0].Coord)
	assert.Equal(t, Vec3{1, 2, 3}, a1.Residues[0].Atoms[0].Coord)
	assert.Equal(t, s.NumAtoms(), moved.NumAtoms())
}

func TestWithoutHetero(t *testing.T) {
	s := parseSample(t)
	clean := s.WithoutHetero()
	assert.Empty(t, clean.Ligands())
	h, _ := clean.Chain("H")
	assert.Equal(t, "EVM", h.Sequence())
	a, _ := clean.Chain("A")
	assert.Len(t, a.Residues, 2)
	assert.Equal(t, 13, s.NumAtoms()) // altloc B dropped at parse time
}

func TestWrite_RoundTrip(t *testing.T) {
	s := parseSample(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s, SkipHetero()))

	out := buf.String()
	assert.Contains(t, out, "HETATM")
	assert.NotContains(t, out, "NAG")
	assert.NotContains(t, out, "HOH")

	back, err := Parse(strings.NewReader(out), "1ABC")
	require.NoError(t, err)
	assert.Equal(t, []string{"H", "A"}, back.ChainIDs())
	h, _ := back.Chain("H")
	assert.Equal(t, "EVM", h.Sequence())
	assert.True(t, h.Residues[3].Hetero)
	glu, _ := h.Residues[0].CA()
	assert.InDelta(t, 11.0, glu.Coord.X, 1e-3)
	assert.Equal(t, "C", glu.Element)
	assert.InDelta(t, 20.0, glu.TempFactor, 1e-6)

	a, _ := back.Chain("A")
	require.Len(t, a.Residues, 2)
	assert.Equal(t, 10, a.Residues[1].Seq)
	assert.Equal(t, byte('A'), a.Residues[1].ICode)
	assert.Equal(t, "PHE", a.Residues[1].Name)
}

func TestParse_InsertionCodesSplitResidues(t *testing.T) {
	in := "ATOM      1  CA  GLY B 100       0.000   0.000   0.000  1.00 10.00           C\n" +
		"ATOM      2  CA  GLY B 100A      1.000   0.000   0.000  1.00 10.00           C\n" +
		"ATOM      3  CA  GLY B 100B      2.000   0.000   0.000  1.00 10.00           C\n" +
		"ATOM      4  CA  SER B 101       3.000   0.000   0.000  1.00 10.00           C\n"
	s, err := Parse(strings.NewReader(in), "9XYZ")
	require.NoError(t, err)
	b, ok := s.Chain("B")
	require.True(t, ok)
	require.Len(t, b.Residues, 4)
	assert.Equal(t, []byte{' ', 'A', 'B', ' '},
		[]byte{b.Residues[0].ICode, b.Residues[1].ICode, b.Residues[2].ICode, b.Residues[3].ICode})
	assert.Equal(t, "GGGS", b.Sequence())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s))
	back, err := Parse(&buf, "9XYZ")
	require.NoError(t, err)
	bb, _ := back.Chain("B")
	require.Len(t, bb.Residues, 4)
	assert.Equal(t, byte('B'), bb.Residues[2].ICode)
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &Structure{ID: "NONE"}))
	assert.Equal(t, "END\n", buf.String())
}

func TestVec3(t *testing.T) {
	a := Vec3{1, 2, 2}
	assert.InDelta(t, 3.0, a.Norm(), 1e-12)
	assert.InDelta(t, 3.0, a.Dist(Vec3{}), 1e-12)
	assert.Equal(t, Vec3{0.5, 1, 1}, a.Scale(0.5))
	assert.Equal(t, Vec3{2, 1, 1}, Centroid([]Vec3{{1, 0, 0}, {3, 2, 2}}))
	assert.Equal(t, Vec3{}, Centroid(nil))
}
