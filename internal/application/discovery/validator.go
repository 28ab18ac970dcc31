package discovery

import (
	"context"
	"strings"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// ambiguousResidue marks an unknown amino acid in a canonical sequence.
const ambiguousResidue = "X"

// Validate reports whether cand can stand in for the query group whose
// sequences, in chain order, are querySeqs. A rejected candidate is not an
// error: remote failures while validating reject the candidate and are
// logged.
func (f *Finder) Validate(ctx context.Context, cand abag.Candidate, querySeqs []string) bool {
	if len(cand.ChainIDs) != len(querySeqs) {
		return false
	}
	entry, err := f.remote.FetchEntry(ctx, cand.PDBID)
	if err != nil {
		f.logger.Warn("Candidate entry unavailable",
			logging.PDBID(cand.PDBID), logging.Reason(errors.Reason(err)))
		return false
	}
	seqs := entry.Sequences()
	for i, id := range cand.ChainIDs {
		s, ok := seqs[id]
		if !ok {
			f.reject(cand, "chain "+id+" missing from entry")
			return false
		}
		if strings.Contains(s, ambiguousResidue) {
			f.reject(cand, "ambiguous residues in chain "+id)
			return false
		}
		if !f.matcher.Matches(querySeqs[i], s) {
			f.reject(cand, "chain "+id+" does not match its query chain")
			return false
		}
	}
	if !CheckNames(entry.Names()) {
		f.reject(cand, "molecule names disagree")
		return false
	}
	return true
}

func (f *Finder) reject(cand abag.Candidate, reason string) {
	f.recorder.Candidate(string(cand.Kind), "rejected")
	f.logger.Debug("Candidate rejected",
		logging.PDBID(cand.PDBID),
		logging.String("chains", cand.ChainList()),
		logging.Reason(reason))
}

// CheckNames decides whether the molecule names of an entry describe a single
// kind of molecule. Identical names pass. Otherwise every name must have the
// same number of words, and exactly two words may differ between them, each
// naming a HEAVY or LIGHT chain.
func CheckNames(names []string) bool {
	if len(names) == 0 {
		return false
	}
	distinct := map[string]bool{}
	for _, n := range names {
		distinct[n] = true
	}
	if len(distinct) == 1 {
		return true
	}

	tokens := make([][]string, len(names))
	for i, n := range names {
		tokens[i] = strings.Fields(strings.ToUpper(n))
		if len(tokens[i]) != len(tokens[0]) {
			return false
		}
	}

	common := map[string]bool{}
	for _, t := range tokens[0] {
		common[t] = true
	}
	for _, ts := range tokens[1:] {
		in := map[string]bool{}
		for _, t := range ts {
			in[t] = true
		}
		for t := range common {
			if !in[t] {
				delete(common, t)
			}
		}
	}

	uncommon := map[string]bool{}
	for _, ts := range tokens {
		for _, t := range ts {
			if !common[t] {
				uncommon[t] = true
			}
		}
	}
	for t := range uncommon {
		if !strings.Contains(t, "HEAVY") && !strings.Contains(t, "LIGHT") {
			return false
		}
	}
	return len(uncommon) == 2
}
