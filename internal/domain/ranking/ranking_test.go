package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/gaps"
	"github.com/biocad/anbase/internal/domain/sequence"
	"github.com/biocad/anbase/pkg/errors"
)

func rec(id string, inBetween, oneSide, abMM, agMM int, sev abag.Severity) abag.Record {
	return abag.Record{
		ComplexName:        "1AHW_B+A-C",
		CandidateID:        id,
		Type:               abag.PairingUU,
		AntibodyMismatches: abMM,
		AntigenMismatches:  agMM,
		SmallMolecules:     sev,
		GapsUnbound:        gaps.Stats{InBetween: inBetween, OneSide: oneSide, Total: inBetween + oneSide},
	}
}

func names(rs []abag.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.CandidateID
	}
	return out
}

func TestIsPerfect(t *testing.T) {
	assert.True(t, IsPerfect(rec("0", 0, 0, 5, 5, abag.SeverityNone)))
	assert.False(t, IsPerfect(rec("0", 1, 0, 0, 0, abag.SeverityNone)))
	assert.False(t, IsPerfect(rec("0", 0, 1, 0, 0, abag.SeverityNone)))
	assert.False(t, IsPerfect(rec("0", 0, 0, 0, 0, abag.SeverityWarning)))
}

func TestFinalize_PerfectSinglePairing(t *testing.T) {
	// One antibody hit with no mismatches and one antigen hit with a single
	// mismatch and no interface gaps.
	only := rec("0", 0, 0, 0, 1, abag.SeverityNone)
	res, err := Finalize("1AHW_B+A-C", []abag.Record{only})
	require.NoError(t, err)
	assert.True(t, res.IsPerfect)
	assert.Equal(t, only, res.Chosen)
	assert.Empty(t, res.Alternatives)
}

func TestFinalize_PerfectWinsOutright(t *testing.T) {
	pool := []abag.Record{
		rec("0", 1, 0, 0, 0, abag.SeverityNone),
		rec("1", 0, 0, 9, 9, abag.SeverityNone),
		rec("2", 1, 1, 0, 0, abag.SeverityWarning),
	}
	res, err := Finalize("c", pool)
	require.NoError(t, err)
	assert.True(t, res.IsPerfect)
	assert.Equal(t, "1", res.Chosen.CandidateID)
	assert.Equal(t, []string{"0", "2"}, names(res.Alternatives))
	assert.Equal(t, []string{"0", "1", "2"}, names(pool))
}

func TestFinalize_BestOfSeveralPerfect(t *testing.T) {
	pool := []abag.Record{
		rec("0", 1, 0, 0, 0, abag.SeverityNone),
		rec("1", 0, 0, 9, 9, abag.SeverityNone),
		rec("2", 0, 0, 0, 1, abag.SeverityNone),
		rec("3", 0, 0, 0, 0, abag.SeverityNone),
	}
	res, err := Finalize("c", pool)
	require.NoError(t, err)
	assert.True(t, res.IsPerfect)
	assert.Equal(t, "3", res.Chosen.CandidateID, "fewest mismatches among perfect records")
	assert.Equal(t, []string{"2", "1", "0"}, names(res.Alternatives))
	assert.Equal(t, []string{"0", "1", "2", "3"}, names(pool))

	reversed := []abag.Record{pool[3], pool[2], pool[1], pool[0]}
	again, err := Finalize("c", reversed)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestFinalize_NonPerfectPrecedence(t *testing.T) {
	pool := []abag.Record{
		rec("a", 2, 0, 0, 0, abag.SeverityNone),
		rec("b", 1, 3, 0, 0, abag.SeverityNone),
		rec("c", 1, 1, 7, 0, abag.SeverityNone),
		rec("d", 1, 1, 3, 3, abag.SeverityError),
		rec("e", 1, 1, 3, 3, abag.SeverityWarning),
		rec("f", 1, 1, 3, 3, abag.SeverityWarning),
	}
	res, err := Finalize("c", pool)
	require.NoError(t, err)
	assert.False(t, res.IsPerfect)
	assert.Equal(t, "e", res.Chosen.CandidateID)
	assert.Equal(t, []string{"f", "d", "c", "b", "a"}, names(res.Alternatives))
}

func TestFinalize_Deterministic(t *testing.T) {
	pool := []abag.Record{
		rec("3", 1, 0, 1, 0, abag.SeverityNone),
		rec("1", 1, 0, 1, 0, abag.SeverityNone),
		rec("2", 1, 0, 0, 1, abag.SeverityNone),
	}
	reversed := []abag.Record{pool[2], pool[1], pool[0]}

	r1, err := Finalize("c", pool)
	require.NoError(t, err)
	r2, err := Finalize("c", reversed)
	require.NoError(t, err)
	assert.Equal(t, r1.Chosen, r2.Chosen)
	assert.Equal(t, r1.Alternatives, r2.Alternatives)
	assert.Equal(t, "1", r1.Chosen.CandidateID)
}

func TestFinalize_Empty(t *testing.T) {
	_, err := Finalize("c", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoCandidates))
}

// ── Deduplication ──

const (
	heavy   = "EVQLVESGGGLVQPGGSLRLSCAASGFTFSSYAMSWVRQAPGKGLEWVSAISGSGGSTYYADSVKGRFTISRDNSKNTLYLQMNSLRAEDTAVYYCAK"
	light   = "DIQMTQSPSSLSASVGDRVTITCRASQSISSYLNWYQQKPGKAPKLLIYAASSLQSGVPSRFSGSGSGTDFTLTISSLQPEDFATYYCQQSYSTPLTF"
	antigen = "KVFGRCELAAAMKRHGLDNYRGYSLGNWVCAAKFESNFNTQATNRNTDGSTDYGILQINSRWWCNDGRTPGSRNLCNIPCSALLSSDITASVNCAKKIV"
	other   = "MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQAPILSRVGDGTQDNLSGAEKAVQVKVKALPDAQFEVVHSLAKWKRQTLGQHDFSAGEGLYTHMKALR"
)

func TestSimilar(t *testing.T) {
	cmp := sequence.NewComparator()
	a := Group{Name: "1AAA_H+L-A", Antibody: []string{heavy, light}, Antigen: []string{antigen}}
	swapped := Group{Name: "2BBB_L+H-A", Antibody: []string{light, heavy}, Antigen: []string{antigen}}
	truncated := Group{Name: "3CCC_H+L-A", Antibody: []string{heavy[2:], light}, Antigen: []string{antigen[:len(antigen)-3]}}
	different := Group{Name: "4DDD_H+L-A", Antibody: []string{heavy, light}, Antigen: []string{other}}
	vhh := Group{Name: "5EEE_H-A", Antibody: []string{heavy}, Antigen: []string{antigen}}

	assert.True(t, Similar(a, swapped, cmp))
	assert.True(t, Similar(a, truncated, cmp))
	assert.False(t, Similar(a, different, cmp))
	assert.False(t, Similar(a, vhh, cmp))
	assert.True(t, Similar(vhh, Group{Antibody: []string{heavy[1:]}, Antigen: []string{antigen}}, cmp))

	// Symmetry.
	gs := []Group{a, swapped, truncated, different, vhh}
	for _, x := range gs {
		for _, y := range gs {
			assert.Equal(t, Similar(x, y, cmp), Similar(y, x, cmp), "%s vs %s", x.Name, y.Name)
		}
	}
}

func TestSimilar_BothPairingsRequired(t *testing.T) {
	cmp := sequence.NewComparator()
	// Both chains of a match the heavy chain of b, but light has no partner.
	a := Group{Antibody: []string{heavy, heavy}, Antigen: []string{antigen}}
	b := Group{Antibody: []string{heavy, light}, Antigen: []string{antigen}}
	assert.False(t, Similar(a, b, cmp))
	assert.False(t, Similar(b, a, cmp))
}

func TestCollapse(t *testing.T) {
	names := []string{"c", "a", "b", "d"}
	dups := []Duplicate{
		{"a", "b"}, {"b", "a"},
		{"b", "c"}, {"c", "b"},
		{"d", "d"},
	}
	got := Collapse(names, dups)
	assert.Equal(t, map[string][]string{
		"a": {"b"},
		"c": nil,
		"d": nil,
	}, got)
}
