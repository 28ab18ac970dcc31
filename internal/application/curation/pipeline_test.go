package curation

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocad/anbase/internal/config"
	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/gaps"
	"github.com/biocad/anbase/internal/domain/ranking"
	"github.com/biocad/anbase/internal/domain/structure"
	"github.com/biocad/anbase/internal/infrastructure/export"
	"github.com/biocad/anbase/internal/infrastructure/journal"
	"github.com/biocad/anbase/internal/infrastructure/rcsb"
	"github.com/biocad/anbase/internal/infrastructure/storage/minio"
	"github.com/biocad/anbase/internal/testutil"
	"github.com/biocad/anbase/pkg/errors"
)

type spyPublisher struct {
	mu      sync.Mutex
	calls   int
	results []ranking.Result
	err     error
}

func (s *spyPublisher) Finalized(_ context.Context, results ...ranking.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.results = append(s.results, results...)
	return s.err
}

type spyUploader struct {
	runID  string
	paths  []string
	listed int
	drop   string // base name left out of List
}

func (s *spyUploader) UploadAll(_ context.Context, runID string, paths []string) ([]*minio.UploadResult, error) {
	s.runID, s.paths = runID, paths
	out := make([]*minio.UploadResult, len(paths))
	for i, p := range paths {
		out[i] = &minio.UploadResult{ObjectKey: runID + "/" + filepath.Base(p), Size: int64(i)}
	}
	return out, nil
}

func (s *spyUploader) List(_ context.Context, runID string) ([]*minio.ObjectMetadata, error) {
	s.listed++
	var out []*minio.ObjectMetadata
	for i, p := range s.paths {
		if filepath.Base(p) == s.drop {
			continue
		}
		out = append(out, &minio.ObjectMetadata{ObjectKey: runID + "/" + filepath.Base(p), Size: int64(i)})
	}
	return out, nil
}

type spyLease struct {
	acquired, released int
}

func (l *spyLease) Acquire(context.Context) error { l.acquired++; return nil }
func (l *spyLease) Release(context.Context) error { l.released++; return nil }

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	_, rows, err := export.ReadTable(path)
	require.NoError(t, err)
	return rows
}

// ─────────────────────────────────────────────────────────────────────────────
// End to end
// ─────────────────────────────────────────────────────────────────────────────

func TestRun_PerfectUnboundPair(t *testing.T) {
	cfg := testConfig(t)
	w := newWorld(t, false)
	log := testutil.NewMockLogger()
	pub, up, lease := &spyPublisher{}, &spyUploader{}, &spyLease{}

	p := New(cfg, w, log, WithPublisher(pub), WithUploader(up), WithLease(lease))
	defer p.Close()
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 1, lease.acquired)
	assert.Equal(t, 1, lease.released)
	assert.Equal(t, journal.Counts{Processed: 1, Failed: 1, Obsolete: 1}, p.Progress())

	// Candidate rows: the antigen group first, then the antibody group.
	cands := readRows(t, p.Layout().Candidates())
	require.Len(t, cands, 2)
	assert.Equal(t, []string{"1ABC", boundName, "AG", "7LYZ", "A"}, cands[0])
	assert.Equal(t, []string{"1ABC", boundName, "AB", "2XYZ", "A:B"}, cands[1])

	// Only the U:U pairing is scored.
	header, rows, err := export.ReadTable(p.Layout().DBInfo())
	require.NoError(t, err)
	recs, err := export.ParseDBInfo(header, rows)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, abag.PairingUU, recs[0].Type)
	assert.Equal(t, 0, recs[0].AntibodyMismatches)
	assert.Equal(t, 0, recs[0].AntigenMismatches)
	assert.Equal(t, abag.SeverityNone, recs[0].SmallMolecules)

	for _, f := range []string{
		filepath.Join(p.Layout().Aligned(boundName, ""), "1ABC_ab_b.pdb"),
		filepath.Join(p.Layout().Aligned(boundName, ""), "1ABC_ag_b.pdb"),
		filepath.Join(p.Layout().Aligned(boundName, "0"), "2XYZ_ab_u.pdb"),
		filepath.Join(p.Layout().Aligned(boundName, "0"), "7LYZ_ag_u.pdb"),
		filepath.Join(p.Layout().Stripped(boundName, "0"), "7LYZ_ag_u.pdb"),
		p.Layout().SequenceFile(boundName, "1ABC"),
	} {
		assert.FileExists(t, f)
	}

	// The superposed antigen lands back on the bound antigen.
	moved, err := structure.ReadFile(filepath.Join(p.Layout().Aligned(boundName, "0"), "7LYZ_ag_u.pdb"), "7LYZ")
	require.NoError(t, err)
	orig := boundStructure().Chains[2].CAs()
	got := moved.Chains[0].CAs()
	require.Len(t, got, len(orig))
	for i := range orig {
		assert.InDelta(t, 0, got[i].Dist(orig[i]), 0.01)
	}

	sum := readRows(t, p.Layout().Summary())
	require.Len(t, sum, 1)
	assert.Empty(t, readRows(t, p.Layout().Alternatives()))

	require.Len(t, pub.results, 1)
	res := pub.results[0]
	assert.Equal(t, boundName, res.ComplexName)
	assert.True(t, res.IsPerfect)
	assert.Equal(t, boundName+"_0", res.Chosen.Name())
	assert.Equal(t, "2XYZ", res.Chosen.Antibody.PDBID)
	assert.Equal(t, []string{"A", "B"}, res.Chosen.Antibody.ChainIDs)
	assert.Equal(t, "7LYZ", res.Chosen.Antigen.PDBID)
	assert.Equal(t, gaps.Stats{}, res.Chosen.GapsUnbound)

	assert.Equal(t, cfg.RunID, up.runID)
	assert.Equal(t, p.Layout().Tables(), up.paths)
	assert.Equal(t, 1, up.listed)
	assert.False(t, log.HasMessage("warn", "Export not stored"))

	data, err := os.ReadFile(p.Layout().ConstraintFile(boundName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, ">C:attraction", lines[0])
	assert.Regexp(t, regexp.MustCompile(`^\d+(-\d+)?(,\d+(-\d+)?)*$`), lines[1])

	assert.True(t, log.HasMessage("warn", "Complex not processed"))
	assert.Zero(t, log.Count("error"))
}

func TestRun_PointMutationStaysPerfect(t *testing.T) {
	w := newWorld(t, false)
	mutated := w.mutateAntigen(16, 'A')
	require.NotEqual(t, antigenSeq, mutated)
	pub := &spyPublisher{}

	p := New(testConfig(t), w, testutil.NewMockLogger(), WithPublisher(pub))
	defer p.Close()
	require.NoError(t, p.Run(context.Background()))

	header, rows, err := export.ReadTable(p.Layout().DBInfo())
	require.NoError(t, err)
	recs, err := export.ParseDBInfo(header, rows)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 0, recs[0].AntibodyMismatches)
	assert.Equal(t, 1, recs[0].AntigenMismatches)

	require.Len(t, pub.results, 1)
	res := pub.results[0]
	assert.True(t, res.IsPerfect, "mismatches do not count against perfection")
	assert.Equal(t, "7LYZ", res.Chosen.Antigen.PDBID)
	assert.Equal(t, 1, res.Chosen.AntigenMismatches)
	assert.Equal(t, 1, res.Chosen.Mismatches())
}

func TestRun_LigandAtInterfacePrefersBoundAntigen(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pairing = config.PairingAll
	pub := &spyPublisher{}

	p := New(cfg, newWorld(t, true), testutil.NewMockLogger(), WithPublisher(pub))
	defer p.Close()
	require.NoError(t, p.Run(context.Background()))

	header, rows, err := export.ReadTable(p.Layout().DBInfo())
	require.NoError(t, err)
	recs, err := export.ParseDBInfo(header, rows)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	types := map[string]abag.PairingType{}
	sev := map[string]abag.Severity{}
	for _, r := range recs {
		types[r.CandidateID], sev[r.CandidateID] = r.Type, r.SmallMolecules
	}
	assert.Equal(t, map[string]abag.PairingType{"0": abag.PairingUU, "1": abag.PairingUB, "2": abag.PairingBU}, types)
	assert.Equal(t, abag.SeverityError, sev["0"])
	assert.Equal(t, abag.SeverityNone, sev["1"])
	assert.Equal(t, abag.SeverityError, sev["2"])

	require.Len(t, pub.results, 1)
	res := pub.results[0]
	assert.True(t, res.IsPerfect)
	assert.Equal(t, boundName+"_1", res.Chosen.Name())
	assert.Equal(t, "1ABC", res.Chosen.Antigen.PDBID)
	assert.Equal(t, []string{"C"}, res.Chosen.Antigen.ChainIDs)
	require.Len(t, res.Alternatives, 2)
	assert.Equal(t, boundName+"_0", res.Alternatives[0].Name())
	assert.Equal(t, boundName+"_2", res.Alternatives[1].Name())
	assert.Len(t, readRows(t, p.Layout().Alternatives()), 2)

	// The kept bound antigen is written as the unbound file of its pairing.
	assert.FileExists(t, filepath.Join(p.Layout().Aligned(boundName, "1"), "1ABC_ag_u.pdb"))
}

func TestRun_ContinueSkipsDoneComplexes(t *testing.T) {
	cfg := testConfig(t)
	first := New(cfg, newWorld(t, false), testutil.NewMockLogger())
	require.NoError(t, first.Run(context.Background()))
	require.NoError(t, first.Close())

	// Without search hits a re-collected complex would fail.
	w := newWorld(t, false)
	w.hits = nil
	cfg.Continue = true
	log := testutil.NewMockLogger()
	second := New(cfg, w, log)
	defer second.Close()
	require.NoError(t, second.Run(context.Background()))

	assert.Equal(t, journal.Counts{Processed: 1, Failed: 1, Obsolete: 1}, second.Progress())
	assert.Len(t, readRows(t, second.Layout().Candidates()), 2)
	assert.Len(t, readRows(t, second.Layout().DBInfo()), 1)
	assert.Len(t, readRows(t, second.Layout().GapsBound()), 1)
	assert.Len(t, readRows(t, second.Layout().Summary()), 1)
	assert.False(t, log.HasMessage("warn", "Complex not processed"))
	assert.Empty(t, w.fetched)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lease := &spyLease{}
	p := New(testConfig(t), newWorld(t, false), testutil.NewMockLogger(), WithLease(lease))
	defer p.Close()

	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
	assert.Equal(t, 1, lease.released)
}

func TestCollect_InterruptedSearchStaysPending(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The search gives up once the run is cancelled and reports it the way a
	// remote deadline would.
	w := newWorld(t, false)
	w.onSearch = func(context.Context, string) ([]rcsb.Hit, error) {
		cancel()
		return nil, errors.New(errors.ErrCodeRemoteTimeout, "search call timed out")
	}
	log := testutil.NewMockLogger()
	p := New(cfg, w, log)
	assert.ErrorIs(t, p.Collect(ctx), context.Canceled)
	assert.Equal(t, journal.Counts{}, p.Progress())
	assert.False(t, log.HasMessage("warn", "Complex not processed"))
	assert.True(t, log.HasMessage("warn", "Collect interrupted"))
	require.NoError(t, p.Close())

	cfg.Continue = true
	resumed := New(cfg, newWorld(t, false), testutil.NewMockLogger())
	defer resumed.Close()
	require.NoError(t, resumed.Collect(context.Background()))
	assert.Equal(t, journal.Counts{Processed: 1, Failed: 1, Obsolete: 1}, resumed.Progress())
	assert.Len(t, readRows(t, resumed.Layout().Candidates()), 2)
}

func TestCollect_NoCandidates(t *testing.T) {
	w := newWorld(t, false)
	delete(w.hits, antigenSeq)
	p := New(testConfig(t), w, testutil.NewMockLogger())
	defer p.Close()

	require.NoError(t, p.Collect(context.Background()))
	assert.Equal(t, journal.Counts{Failed: 2, Obsolete: 1}, p.Progress())
	assert.Empty(t, readRows(t, p.Layout().Candidates()))
}

// ─────────────────────────────────────────────────────────────────────────────
// Summary
// ─────────────────────────────────────────────────────────────────────────────

func writeTable(t *testing.T, path string, header []string, key int, rows ...[]string) {
	t.Helper()
	tab, err := export.OpenTable(path, header, key, false)
	require.NoError(t, err)
	for _, r := range rows {
		_, err := tab.Append(r)
		require.NoError(t, err)
	}
	require.NoError(t, tab.Close())
}

func scoredRecord(comp, pdb string) abag.Record {
	return abag.Record{
		ComplexName: comp, Type: abag.PairingUU, CandidateID: "0",
		BoundPDBID: pdb, BoundResolution: 2, BoundMethod: "X-RAY DIFFRACTION",
		BoundAntibody: []string{"H", "L"}, BoundAntigen: []string{"C"},
		Antibody: abag.Side{PDBID: "2XYZ", Resolution: 1.8, Method: "X-RAY DIFFRACTION", ChainIDs: []string{"A", "B"}},
		Antigen:  abag.Side{PDBID: "7LYZ", Resolution: 1.2, Method: "X-RAY DIFFRACTION", ChainIDs: []string{"A"}},
	}
}

func TestSummary_MergesDuplicates(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, newWorld(t, false), testutil.NewMockLogger())
	defer p.Close()
	l := p.Layout()

	a, b := "1ABC_H+L-C", "2DEF_H+L-C"
	writeTable(t, l.DBInfo(), export.DBInfoHeader, export.DBInfoKey,
		export.DBInfoCells(scoredRecord(a, "1ABC")), export.DBInfoCells(scoredRecord(b, "2DEF")))
	writeTable(t, l.GapsBound(), export.GapsBoundHeader, export.GapsBoundKey,
		export.GapsBoundCells(a, gaps.Stats{}), export.GapsBoundCells(b, gaps.Stats{}))
	writeTable(t, l.GapsUnbound(), export.GapsUnboundHeader, export.GapsUnboundKey,
		export.GapsUnboundCells(a, "0", gaps.Stats{InBetween: 1, Total: 1}),
		export.GapsUnboundCells(b, "0", gaps.Stats{}))
	writeTable(t, l.Duplicates(), export.DuplicatesHeader, export.DuplicatesKey,
		export.DuplicateCells(ranking.Duplicate{Name: a, Duplicate: b}),
		export.DuplicateCells(ranking.Duplicate{Name: b, Duplicate: a}))

	results, err := p.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, a, results[0].ComplexName)
	assert.True(t, results[0].IsPerfect)
	assert.Equal(t, b, results[0].Chosen.ComplexName)
	require.Len(t, results[0].Alternatives, 1)
	assert.Equal(t, a+"_0", results[0].Alternatives[0].Name())

	assert.Len(t, readRows(t, l.Summary()), 1)
	assert.Len(t, readRows(t, l.Alternatives()), 1)
}

func TestSummary_WithoutDuplicatesTable(t *testing.T) {
	p := New(testConfig(t), newWorld(t, false), testutil.NewMockLogger())
	defer p.Close()
	l := p.Layout()

	a := "1ABC_H+L-C"
	writeTable(t, l.DBInfo(), export.DBInfoHeader, export.DBInfoKey, export.DBInfoCells(scoredRecord(a, "1ABC")))
	writeTable(t, l.GapsBound(), export.GapsBoundHeader, export.GapsBoundKey, export.GapsBoundCells(a, gaps.Stats{}))
	writeTable(t, l.GapsUnbound(), export.GapsUnboundHeader, export.GapsUnboundKey,
		export.GapsUnboundCells(a, "0", gaps.Stats{OneSide: 2, Total: 2}))

	results, err := p.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsPerfect)
	assert.Equal(t, 2, results[0].Chosen.GapsUnbound.OneSide)
}

func TestSummary_PublishesOneBatchAndVerifiesUploads(t *testing.T) {
	log := testutil.NewMockLogger()
	pub := &spyPublisher{err: errors.New(errors.ErrCodeEvent, "broker down")}
	up := &spyUploader{drop: "summary.csv"}
	p := New(testConfig(t), newWorld(t, false), log, WithPublisher(pub), WithUploader(up))
	defer p.Close()
	l := p.Layout()

	a, b := "1ABC_H+L-C", "2DEF_H+L-C"
	writeTable(t, l.DBInfo(), export.DBInfoHeader, export.DBInfoKey,
		export.DBInfoCells(scoredRecord(a, "1ABC")), export.DBInfoCells(scoredRecord(b, "2DEF")))
	writeTable(t, l.GapsBound(), export.GapsBoundHeader, export.GapsBoundKey,
		export.GapsBoundCells(a, gaps.Stats{}), export.GapsBoundCells(b, gaps.Stats{}))
	writeTable(t, l.GapsUnbound(), export.GapsUnboundHeader, export.GapsUnboundKey,
		export.GapsUnboundCells(a, "0", gaps.Stats{}), export.GapsUnboundCells(b, "0", gaps.Stats{}))

	results, err := p.Summary(context.Background())
	require.NoError(t, err, "publish and upload failures do not fail the summary")
	require.Len(t, results, 2)

	assert.Equal(t, 1, pub.calls)
	assert.Len(t, pub.results, 2)
	assert.True(t, log.HasMessage("warn", "Ranking events not published"))

	assert.Equal(t, 1, up.listed)
	assert.True(t, log.HasMessage("warn", "Export not stored"))
	assert.True(t, log.HasMessage("info", "Exports uploaded"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// resIDs parses "52" or "52A" style residue ids.
func resIDs(names ...string) []structure.ResidueID {
	out := make([]structure.ResidueID, len(names))
	for i, n := range names {
		id := structure.ResidueID{ICode: ' '}
		if last := n[len(n)-1]; last < '0' || last > '9' {
			id.ICode, n = last, n[:len(n)-1]
		}
		id.Seq, _ = strconv.Atoi(n)
		out[i] = id
	}
	return out
}

func TestFormatRanges(t *testing.T) {
	tests := []struct {
		in   []structure.ResidueID
		want string
	}{
		{nil, ""},
		{resIDs("4"), "4"},
		{resIDs("1", "2", "3", "5"), "1-3,5"},
		{resIDs("1", "3", "4", "7", "8", "9"), "1,3-4,7-9"},
		{resIDs("50", "51", "52", "52A", "52B", "53", "54"), "50-52,52A,52B,53-54"},
		{resIDs("100A", "101"), "100A,101"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRanges(tt.in))
	}
}

func TestSmallMolecules(t *testing.T) {
	iface := []structure.Vec3{{X: 0}, {X: 4}}
	lig := func(x float64) structure.Residue {
		return structure.Residue{Name: "NAG", Hetero: true, Atoms: []structure.Atom{{Name: "C1", Element: "C", Coord: structure.Vec3{X: x}}}}
	}
	assert.Equal(t, abag.SeverityNone, SmallMolecules(nil, iface, 10))
	assert.Equal(t, abag.SeverityWarning, SmallMolecules([]structure.Residue{lig(40)}, iface, 10))
	assert.Equal(t, abag.SeverityError, SmallMolecules([]structure.Residue{lig(40), lig(12)}, iface, 10))
}

func TestLayout(t *testing.T) {
	l := NewLayout(config.PipelineConfig{DataDir: "/d", OutDir: "/o", RunID: "r1"})
	assert.Equal(t, "/o/unbound_data_r1.csv", l.Candidates())
	assert.Equal(t, "/d/1ABC_H+L-C/seqs/1ABC.fasta", l.SequenceFile("1ABC_H+L-C", "1abc"))
	assert.Equal(t, "/d/1ABC_H+L-C/aligned/3", l.Aligned("1ABC_H+L-C", "3"))
	assert.Equal(t, "/d/1ABC_H+L-C/hetatms_deleted/3", l.Stripped("1ABC_H+L-C", "3"))
	assert.Equal(t, "/o/constraints/1ABC_H+L-C.txt", l.ConstraintFile("1ABC_H+L-C"))
	assert.Equal(t, "1ABC_ab_u.pdb", structureFile("1ABC", groupAntibody, stateUnbound))
	assert.Len(t, l.Tables(), 7)
}
