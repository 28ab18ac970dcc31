// Package discovery finds unbound structures that can stand in for the
// antibody and antigen groups of a bound complex.
//
// A group is searched chain by chain: every homolog-search hit is verified
// locally against the query chain, the structures that cover every chain of
// the group are kept, and chain sets taken from them are validated before
// being ranked by resolution.
package discovery

import (
	"context"
	"sort"
	"strings"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/infrastructure/batch"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/internal/infrastructure/rcsb"
	"github.com/biocad/anbase/pkg/errors"
)

// Default limits.
const (
	DefaultMaxCandidates = 50
	DefaultTopCandidates = 5
	DefaultWorkers       = 3
)

// Remote is the subset of *rcsb.Client the finder uses.
type Remote interface {
	Search(ctx context.Context, seq string) ([]rcsb.Hit, error)
	FetchEntity(ctx context.Context, pdbID, entityID string) (rcsb.Entity, error)
	FetchEntry(ctx context.Context, pdbID string) (rcsb.Entry, error)
	FetchEntryInfo(ctx context.Context, pdbID string) (abag.EntryInfo, error)
}

var _ Remote = (*rcsb.Client)(nil)

// Matcher verifies a hit sequence against a query sequence.
type Matcher interface {
	Matches(query, target string) bool
}

// Recorder counts candidates by role and outcome.
type Recorder interface {
	Candidate(role, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Candidate(string, string) {}

// Options bounds the search.
type Options struct {
	// MaxCandidates caps the structures examined per group.
	MaxCandidates int
	// TopCandidates caps the candidates kept per group.
	TopCandidates int
	// Workers bounds concurrent hit verification.
	Workers int
}

// Finder searches unbound candidates. It is safe for concurrent use.
type Finder struct {
	remote   Remote
	matcher  Matcher
	opts     Options
	logger   logging.Logger
	recorder Recorder
	verify   *batch.Processor[rcsb.Hit, []string]
}

// NewFinder builds a Finder. recorder may be nil.
func NewFinder(remote Remote, matcher Matcher, opts Options, log logging.Logger, recorder Recorder) *Finder {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	if opts.TopCandidates <= 0 {
		opts.TopCandidates = DefaultTopCandidates
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	log = log.Named("discovery")
	return &Finder{
		remote:   remote,
		matcher:  matcher,
		opts:     opts,
		logger:   log,
		recorder: recorder,
		verify: batch.NewProcessor[rcsb.Hit, []string](
			batch.WithMaxConcurrency(opts.Workers),
			batch.WithLogger(log),
			batch.WithName("hit-verification"),
		),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Conformations
// ─────────────────────────────────────────────────────────────────────────────

// Conformations returns the ranked unbound candidates of both groups of c.
// The antigen group is searched first.
func (f *Finder) Conformations(ctx context.Context, c *abag.Complex) (antigen, antibody []abag.Candidate, err error) {
	found, err := f.Find(ctx, c.PDBID, c.Antigen, c.AntigenSeqs(), abag.KindAntigen)
	if err != nil {
		return nil, nil, err
	}
	antigen = f.Rank(ctx, found)
	f.logger.Info("Unbound antigen candidates",
		logging.ComplexName(c.Name), logging.Int("found", len(found)), logging.Int("kept", len(antigen)))

	found, err = f.Find(ctx, c.PDBID, c.Antibody, c.AntibodySeqs(), abag.KindAntibody)
	if err != nil {
		return nil, nil, err
	}
	antibody = f.Rank(ctx, found)
	f.logger.Info("Unbound antibody candidates",
		logging.ComplexName(c.Name), logging.Int("found", len(found)), logging.Int("kept", len(antibody)))

	for range antigen {
		f.recorder.Candidate(string(abag.KindAntigen), "accepted")
	}
	for range antibody {
		f.recorder.Candidate(string(abag.KindAntibody), "accepted")
	}
	return antigen, antibody, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Find
// ─────────────────────────────────────────────────────────────────────────────

// Find returns every validated candidate of one chain group of the bound
// entry queryID. chainIDs and seqs are parallel. A chain without verified
// hits yields an empty result, not an error.
func (f *Finder) Find(ctx context.Context, queryID string, chainIDs, seqs []string, kind abag.GroupKind) ([]abag.Candidate, error) {
	if len(chainIDs) == 0 || len(chainIDs) != len(seqs) {
		return nil, errors.Newf(errors.CodeInvalidParam, "group of %d chains with %d sequences", len(chainIDs), len(seqs)).
			WithDetail(queryID)
	}

	perChain := make([]map[string][]string, len(seqs))
	for i, seq := range seqs {
		matched, err := f.matchedChains(ctx, seq)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			f.logger.Debug("Query chain has no unbound homologs",
				logging.PDBID(queryID), logging.String("chain", chainIDs[i]))
			return []abag.Candidate{}, nil
		}
		perChain[i] = matched
	}

	ids := Intersect(perChain, queryID, f.opts.MaxCandidates)
	var out []abag.Candidate
	for _, id := range ids {
		lists := make([][]string, len(perChain))
		for i, m := range perChain {
			lists[i] = m[id]
		}
		for _, set := range ChainSets(lists) {
			cand, err := abag.NewCandidate(id, set, kind, len(chainIDs))
			if err != nil {
				f.logger.Debug("Skipping chain set", logging.PDBID(id), logging.Reason(errors.Reason(err)))
				continue
			}
			if f.Validate(ctx, cand, seqs) {
				out = append(out, cand)
			}
		}
	}
	return out, nil
}

// matchedChains searches seq and verifies every hit, returning the chains of
// each structure whose entity matches seq, in hit order. A timed out search
// counts as no hits.
func (f *Finder) matchedChains(ctx context.Context, seq string) (map[string][]string, error) {
	hits, err := f.remote.Search(ctx, seq)
	if err != nil {
		if errors.IsTimeout(err) {
			f.logger.Warn("Homolog search timed out", logging.Reason(errors.Reason(err)))
			return nil, nil
		}
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	res, err := f.verify.Process(ctx, hits, func(ctx context.Context, h rcsb.Hit) ([]string, error) {
		ent, err := f.remote.FetchEntity(ctx, h.PDBID, h.EntityID)
		if err != nil {
			return nil, err
		}
		if !f.matcher.Matches(seq, ent.Sequence) {
			return nil, nil
		}
		return ent.Chains, nil
	})
	if err != nil {
		return nil, err
	}

	out := map[string][]string{}
	for _, r := range res.Results {
		h := hits[r.Index]
		if r.Error != nil {
			f.logger.Debug("Skipping unverifiable hit",
				logging.PDBID(h.PDBID), logging.String("entity", h.EntityID), logging.Reason(errors.Reason(r.Error)))
			continue
		}
		for _, ch := range r.Result {
			if !contains(out[h.PDBID], ch) {
				out[h.PDBID] = append(out[h.PDBID], ch)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Intersect returns the structure ids present in every map, without self,
// sorted and capped to limit.
func Intersect(perChain []map[string][]string, self string, limit int) []string {
	if len(perChain) == 0 {
		return nil
	}
	var ids []string
	for id := range perChain[0] {
		if strings.EqualFold(id, self) {
			continue
		}
		inAll := true
		for _, m := range perChain[1:] {
			if _, ok := m[id]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// ChainSets forms the i-th chain set by taking the i-th matched chain of every
// query chain. As many sets are formed as the shortest list allows.
func ChainSets(lists [][]string) [][]string {
	if len(lists) == 0 {
		return nil
	}
	n := len(lists[0])
	for _, l := range lists[1:] {
		if len(l) < n {
			n = len(l)
		}
	}
	out := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		set := make([]string, len(lists))
		for k, l := range lists {
			set[k] = l[i]
		}
		out = append(out, set)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Rank
// ─────────────────────────────────────────────────────────────────────────────

// Rank orders cands by resolution, best first, with ties broken by structure
// id, keeps the first candidate of every structure and returns at most
// TopCandidates of them.
func (f *Finder) Rank(ctx context.Context, cands []abag.Candidate) []abag.Candidate {
	res := map[string]float64{}
	for _, c := range cands {
		if _, ok := res[c.PDBID]; ok {
			continue
		}
		info, err := f.remote.FetchEntryInfo(ctx, c.PDBID)
		if err != nil {
			f.logger.Warn("Resolution unavailable",
				logging.PDBID(c.PDBID), logging.Reason(errors.Reason(err)))
			info = abag.UnknownEntry(c.PDBID)
		}
		res[c.PDBID] = info.Resolution
	}
	return rankByResolution(cands, res, f.opts.TopCandidates)
}

func rankByResolution(cands []abag.Candidate, res map[string]float64, top int) []abag.Candidate {
	sorted := append([]abag.Candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := res[sorted[i].PDBID], res[sorted[j].PDBID]
		if ri != rj {
			return ri < rj
		}
		return sorted[i].PDBID < sorted[j].PDBID
	})
	taken := map[string]bool{}
	out := make([]abag.Candidate, 0, top)
	for _, c := range sorted {
		if taken[c.PDBID] {
			continue
		}
		taken[c.PDBID] = true
		out = append(out, c)
		if len(out) == top {
			break
		}
	}
	return out
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
