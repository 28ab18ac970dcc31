package discovery

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/infrastructure/rcsb"
	"github.com/biocad/anbase/internal/testutil"
	"github.com/biocad/anbase/pkg/errors"
)

const (
	heavySeq = "EVQLVESGGGLVQPGGSLRLSCAAS"
	lightSeq = "DIQMTQSPSSLSASVGDRVTITCRA"
)

// fakeRemote serves canned search hits and entries.
type fakeRemote struct {
	mu        sync.Mutex
	hits      map[string][]rcsb.Hit
	entries   map[string]rcsb.Entry
	infos     map[string]abag.EntryInfo
	searchErr error
	searched  []string
}

func (f *fakeRemote) Search(_ context.Context, seq string) ([]rcsb.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, seq)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits[seq], nil
}

func (f *fakeRemote) FetchEntity(ctx context.Context, pdbID, entityID string) (rcsb.Entity, error) {
	entry, err := f.FetchEntry(ctx, pdbID)
	if err != nil {
		return rcsb.Entity{}, err
	}
	ent, ok := entry.Entity(entityID)
	if !ok {
		return rcsb.Entity{}, errors.New(errors.ErrCodeRemoteNotFound, "no entity")
	}
	return ent, nil
}

func (f *fakeRemote) FetchEntry(_ context.Context, pdbID string) (rcsb.Entry, error) {
	e, ok := f.entries[pdbID]
	if !ok {
		return rcsb.Entry{}, errors.New(errors.ErrCodeRemoteNotFound, "fasta not found").WithDetail(pdbID)
	}
	return e, nil
}

func (f *fakeRemote) FetchEntryInfo(_ context.Context, pdbID string) (abag.EntryInfo, error) {
	if info, ok := f.infos[pdbID]; ok {
		return info, nil
	}
	return abag.UnknownEntry(pdbID), nil
}

type exactMatcher struct{}

func (exactMatcher) Matches(q, t string) bool { return q != "" && q == t }

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) Candidate(role, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[role+"/"+outcome]++
}

func antibodyEntry(id string, heavy, light []string, lightSeq string) rcsb.Entry {
	return rcsb.Entry{PDBID: id, Entities: []rcsb.Entity{
		{ID: "1", Chains: heavy, Name: "FAB HEAVY CHAIN", Sequence: heavySeq},
		{ID: "2", Chains: light, Name: "FAB LIGHT CHAIN", Sequence: lightSeq},
	}}
}

func newAntibodyRemote() *fakeRemote {
	hit := func(id, entity string) rcsb.Hit { return rcsb.Hit{PDBID: id, EntityID: entity} }
	return &fakeRemote{
		hits: map[string][]rcsb.Hit{
			heavySeq: {hit("1ABC", "1"), hit("2XYZ", "1"), hit("3DEF", "1"), hit("4GHI", "1"), hit("5BAD", "1"), hit("6REU", "1")},
			lightSeq: {hit("1ABC", "2"), hit("2XYZ", "2"), hit("3DEF", "2"), hit("4GHI", "2"), hit("6REU", "2")},
		},
		entries: map[string]rcsb.Entry{
			"1ABC": antibodyEntry("1ABC", []string{"H"}, []string{"L"}, lightSeq),
			"2XYZ": antibodyEntry("2XYZ", []string{"A"}, []string{"B"}, lightSeq),
			"3DEF": antibodyEntry("3DEF", []string{"H", "K"}, []string{"L", "M"}, lightSeq),
			"4GHI": func() rcsb.Entry {
				e := antibodyEntry("4GHI", []string{"A"}, []string{"B"}, lightSeq)
				e.Entities = append(e.Entities, rcsb.Entity{ID: "3", Chains: []string{"B"}, Name: "FAB LIGHT CHAIN", Sequence: "DIQXTQ"})
				return e
			}(),
			"5BAD": antibodyEntry("5BAD", []string{"A"}, []string{"B"}, "MKV"),
			"6REU": antibodyEntry("6REU", []string{"A"}, []string{"A"}, lightSeq),
		},
		infos: map[string]abag.EntryInfo{
			"2XYZ": {PDBID: "2XYZ", Resolution: 2.0, Method: "X-RAY DIFFRACTION"},
			"3DEF": {PDBID: "3DEF", Resolution: 1.5, Method: "X-RAY DIFFRACTION"},
		},
	}
}

func newFinder(remote Remote, rec Recorder) *Finder {
	return NewFinder(remote, exactMatcher{}, Options{MaxCandidates: 50, TopCandidates: 5, Workers: 2},
		testutil.NewMockLogger(), rec)
}

func TestFind_FormsAndValidatesChainSets(t *testing.T) {
	f := newFinder(newAntibodyRemote(), nil)

	got, err := f.Find(context.Background(), "1abc", []string{"H", "L"}, []string{heavySeq, lightSeq}, abag.KindAntibody)
	require.NoError(t, err)

	keys := make([]string, len(got))
	for i, c := range got {
		keys[i] = c.Key()
		assert.Equal(t, abag.KindAntibody, c.Kind)
	}
	// 1ABC is the query, 4GHI carries an ambiguous light chain, 5BAD has no
	// light hit and 6REU reuses one chain for both roles.
	assert.Equal(t, []string{"2XYZ:A:B", "3DEF:H:L", "3DEF:K:M"}, keys)
}

func TestFind_ChainWithoutHitsYieldsEmpty(t *testing.T) {
	remote := newAntibodyRemote()
	delete(remote.hits, lightSeq)
	f := newFinder(remote, nil)

	got, err := f.Find(context.Background(), "1ABC", []string{"H", "L"}, []string{heavySeq, lightSeq}, abag.KindAntibody)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFind_SearchTimeoutCountsAsNoHits(t *testing.T) {
	remote := newAntibodyRemote()
	remote.searchErr = errors.New(errors.ErrCodeRemoteTimeout, "remote call timed out")
	f := newFinder(remote, nil)

	got, err := f.Find(context.Background(), "1ABC", []string{"H"}, []string{heavySeq}, abag.KindAntibody)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFind_OtherSearchErrorsPropagate(t *testing.T) {
	remote := newAntibodyRemote()
	remote.searchErr = errors.New(errors.ErrCodeRemoteMalformed, "failed to decode search response")
	f := newFinder(remote, nil)

	_, err := f.Find(context.Background(), "1ABC", []string{"H"}, []string{heavySeq}, abag.KindAntibody)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRemoteMalformed))
}

func TestFind_MismatchedGroup(t *testing.T) {
	f := newFinder(newAntibodyRemote(), nil)
	_, err := f.Find(context.Background(), "1ABC", []string{"H", "L"}, []string{heavySeq}, abag.KindAntibody)
	assert.Error(t, err)
}

func TestFind_NeverReturnsQueryID(t *testing.T) {
	f := newFinder(newAntibodyRemote(), nil)
	got, err := f.Find(context.Background(), "2XYZ", []string{"H", "L"}, []string{heavySeq, lightSeq}, abag.KindAntibody)
	require.NoError(t, err)
	for _, c := range got {
		assert.NotEqual(t, "2XYZ", c.PDBID)
	}
}

func TestRank_ResolutionThenIDAndDedup(t *testing.T) {
	f := newFinder(newAntibodyRemote(), nil)
	cands := []abag.Candidate{
		{PDBID: "2XYZ", ChainIDs: []string{"A", "B"}},
		{PDBID: "3DEF", ChainIDs: []string{"H", "L"}},
		{PDBID: "3DEF", ChainIDs: []string{"K", "M"}},
		{PDBID: "9ZZZ", ChainIDs: []string{"A", "B"}},
		{PDBID: "8YYY", ChainIDs: []string{"A", "B"}},
	}
	got := f.Rank(context.Background(), cands)

	keys := make([]string, len(got))
	for i, c := range got {
		keys[i] = c.Key()
	}
	// Unknown resolutions sort last, by id.
	assert.Equal(t, []string{"3DEF:H:L", "2XYZ:A:B", "8YYY:A:B", "9ZZZ:A:B"}, keys)
}

func TestRank_KeepsTop(t *testing.T) {
	res := map[string]float64{"A": 3, "B": 1, "C": 2}
	cands := []abag.Candidate{{PDBID: "A"}, {PDBID: "B"}, {PDBID: "C"}}
	got := rankByResolution(cands, res, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].PDBID)
	assert.Equal(t, "C", got[1].PDBID)
}

func TestConformations_SearchesAntigenFirst(t *testing.T) {
	const antigenSeq = "KVFGRCELAAAMKRHGLDNYRGYSLGNWVCAAK"
	remote := newAntibodyRemote()
	remote.hits[antigenSeq] = []rcsb.Hit{{PDBID: "1ABC", EntityID: "3"}, {PDBID: "7LYZ", EntityID: "1"}}
	remote.entries["7LYZ"] = rcsb.Entry{PDBID: "7LYZ", Entities: []rcsb.Entity{
		{ID: "1", Chains: []string{"A"}, Name: "LYSOZYME C", Sequence: antigenSeq},
	}}
	rec := &countingRecorder{}
	f := newFinder(remote, rec)

	c, err := abag.NewComplex("1ABC", []string{"H", "L"}, []string{"C"},
		map[string]string{"H": heavySeq, "L": lightSeq, "C": antigenSeq})
	require.NoError(t, err)

	ag, ab, err := f.Conformations(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, ag, 1)
	assert.Equal(t, "7LYZ", ag[0].PDBID)
	assert.Equal(t, abag.KindAntigen, ag[0].Kind)
	assert.Len(t, ab, 2)

	require.NotEmpty(t, remote.searched)
	assert.Equal(t, antigenSeq, remote.searched[0])
	assert.Equal(t, 1, rec.counts["AG/accepted"])
	assert.Equal(t, 2, rec.counts["AB/accepted"])
	assert.Positive(t, rec.counts["AB/rejected"])
}

func TestIntersect(t *testing.T) {
	perChain := []map[string][]string{
		{"3AAA": {"A"}, "1AAA": {"A"}, "2AAA": {"A"}, "SELF": {"A"}},
		{"3AAA": {"B"}, "1AAA": {"B"}, "SELF": {"B"}},
	}
	assert.Equal(t, []string{"1AAA", "3AAA"}, Intersect(perChain, "self", 0))
	assert.Equal(t, []string{"1AAA"}, Intersect(perChain, "self", 1))
	assert.Nil(t, Intersect(nil, "x", 5))
}

func TestChainSets(t *testing.T) {
	got := ChainSets([][]string{{"H", "K", "X"}, {"L", "M"}})
	assert.Equal(t, [][]string{{"H", "L"}, {"K", "M"}}, got)
	assert.Nil(t, ChainSets(nil))
}
