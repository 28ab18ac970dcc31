package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/gaps"
	"github.com/biocad/anbase/internal/domain/ranking"
	"github.com/biocad/anbase/pkg/errors"
)

func sampleRecord() abag.Record {
	return abag.Record{
		ComplexName:        "1AHW_B+A-C",
		Type:               abag.PairingUU,
		CandidateID:        "0",
		BoundPDBID:         "1AHW",
		BoundResolution:    3,
		BoundMethod:        "X-RAY DIFFRACTION",
		BoundAntibody:      []string{"B", "A"},
		BoundAntigen:       []string{"C"},
		Antibody:           abag.Side{PDBID: "1FGN", Resolution: 2.5, Method: "X-RAY DIFFRACTION", ChainIDs: []string{"H", "L"}},
		Antigen:            abag.Side{PDBID: "1TFH", Resolution: abag.UnknownResolution, Method: abag.UnknownMethod, ChainIDs: []string{"A"}},
		AntibodyMismatches: 1,
		AntigenMismatches:  2,
		SmallMolecules:     abag.SeverityWarning,
		GapsBound:          gaps.Stats{InBetween: 1, OneSide: 0, Long: 0, Total: 3},
		GapsUnbound:        gaps.Stats{InBetween: 0, OneSide: 2, Long: 1, Total: 4},
	}
}

func TestTable_AppendSkipsExistingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "gap_stats_u.csv")
	tb, err := OpenTable(path, GapsUnboundHeader, GapsUnboundKey, false)
	require.NoError(t, err)

	ok, err := tb.Append(GapsUnboundCells("X_H-A", "0", gaps.Stats{Total: 1}))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = tb.Append(GapsUnboundCells("X_H-A", "0", gaps.Stats{Total: 9}))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, tb.Has("X_H-A", "0"))
	assert.False(t, tb.Has("X_H-A", "1"))

	_, err = tb.Append([]string{"short"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeExport))
	require.NoError(t, tb.Close())
	require.NoError(t, tb.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "comp_name,candidate_id,in_between,one_side,long,total\nX_H-A,0,0,0,0,1\n", string(data))
}

func TestTable_ResumeLoadsKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dups.csv")
	tb, err := OpenTable(path, DuplicatesHeader, DuplicatesKey, false)
	require.NoError(t, err)
	_, err = tb.Append(DuplicateCells(ranking.Duplicate{Name: "A", Duplicate: "B"}))
	require.NoError(t, err)
	require.NoError(t, tb.Close())

	tb, err = OpenTable(path, DuplicatesHeader, DuplicatesKey, true)
	require.NoError(t, err)
	assert.Equal(t, 1, tb.Rows())
	ok, err := tb.Append(DuplicateCells(ranking.Duplicate{Name: "A", Duplicate: "B"}))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = tb.Append(DuplicateCells(ranking.Duplicate{Name: "A", Duplicate: "C"}))
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tb.Close())

	header, rows, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, DuplicatesHeader, header)
	assert.Equal(t, []ranking.Duplicate{{Name: "A", Duplicate: "B"}, {Name: "A", Duplicate: "C"}}, ParseDuplicates(header, rows))

	// Overwrite starts from scratch.
	tb, err = OpenTable(path, DuplicatesHeader, DuplicatesKey, false)
	require.NoError(t, err)
	assert.Equal(t, 0, tb.Rows())
	require.NoError(t, tb.Close())
}

func TestTable_ResumeRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))
	_, err := OpenTable(path, DuplicatesHeader, DuplicatesKey, true)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExport))
}

func TestReadTable_Missing(t *testing.T) {
	_, _, err := ReadTable(filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, errors.IsNotFound(err))
}

func TestHeaders(t *testing.T) {
	assert.Len(t, SummaryHeader, 27)
	assert.Equal(t, "is_perfect", SummaryHeader[26])
	assert.Len(t, AlternativesHeader, 26)
	assert.Equal(t, "candidate_name", AlternativesHeader[0])
	assert.Equal(t, "total_gaps_u", AlternativesHeader[25])
	assert.Len(t, DBInfoHeader, 19)
}

func TestCandidateRows(t *testing.T) {
	c := CandidateRow{ComplexName: "1AHW_B+A-C", Candidate: abag.Candidate{PDBID: "1FGN", ChainIDs: []string{"H", "L"}, Kind: abag.KindAntibody}}
	cells := c.Cells()
	assert.Equal(t, []string{"1AHW", "1AHW_B+A-C", "AB", "1FGN", "H:L"}, cells)

	back, err := ParseCandidates(CandidatesHeader, [][]string{cells})
	require.NoError(t, err)
	assert.Equal(t, []CandidateRow{c}, back)

	_, err = ParseCandidates(CandidatesHeader, [][]string{{"1AHW", "1AHW_B+A-C", "XX", "1FGN", "H"}})
	assert.Error(t, err)
}

func TestDBInfo(t *testing.T) {
	r := sampleRecord()
	cells := DBInfoCells(r)
	assert.Equal(t, "B+A", cells[6])
	assert.Equal(t, "100", cells[13])
	assert.Equal(t, "warning", cells[18])

	back, err := ParseDBInfo(DBInfoHeader, [][]string{cells})
	require.NoError(t, err)
	require.Len(t, back, 1)
	want := r
	want.GapsBound, want.GapsUnbound = gaps.Stats{}, gaps.Stats{}
	assert.Equal(t, want, back[0])

	bad := append([]string(nil), cells...)
	bad[16] = "many"
	_, err = ParseDBInfo(DBInfoHeader, [][]string{bad})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRow))
}

func TestGapTables(t *testing.T) {
	b, err := ParseGapsBound(GapsBoundHeader, [][]string{
		GapsBoundCells("A_H-X", gaps.Stats{InBetween: 1, Total: 2}),
		GapsBoundCells("A_H-X", gaps.Stats{Total: 7}),
	})
	require.NoError(t, err)
	assert.Equal(t, gaps.Stats{InBetween: 1, Total: 2}, b["A_H-X"])

	u, err := ParseGapsUnbound(GapsUnboundHeader, [][]string{GapsUnboundCells("A_H-X", "3", gaps.Stats{OneSide: 1, Total: 1})})
	require.NoError(t, err)
	assert.Equal(t, gaps.Stats{OneSide: 1, Total: 1}, u["A_H-X_3"])
}

func TestSummaryAndAlternatives(t *testing.T) {
	r := sampleRecord()
	res := ranking.Result{ComplexName: r.ComplexName, Chosen: r, IsPerfect: false}
	cells := SummaryCells(res)
	require.Len(t, cells, len(SummaryHeader))
	assert.Equal(t, "1AHW_B+A-C", cells[0])
	assert.Equal(t, "B:A", cells[5])
	assert.Equal(t, "H:L", cells[10])
	assert.Equal(t, "False", cells[26])

	back, err := ParseSummary(SummaryHeader, [][]string{cells})
	require.NoError(t, err)
	require.Len(t, back, 1)
	want := r
	want.CandidateID = ""
	assert.Equal(t, want, back[0].Record)
	assert.False(t, back[0].IsPerfect)

	alt := AlternativeCells(r)
	require.Len(t, alt, len(AlternativesHeader))
	assert.Equal(t, "1AHW_B+A-C_0", alt[0])
	assert.Equal(t, cells[1:26], alt[1:])
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "2.5", FormatResolution(2.5))
	assert.Equal(t, "3", FormatResolution(3))
	assert.Equal(t, 100.0, ParseResolution("NA"))
	assert.Equal(t, 100.0, ParseResolution("n/a"))
	assert.Equal(t, 1.9, ParseResolution(" 1.9 "))
	assert.True(t, ParseBool("True"))
	assert.False(t, ParseBool("False"))
}
