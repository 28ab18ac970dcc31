package curation

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/ranking"
	"github.com/biocad/anbase/internal/infrastructure/export"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Duplicates compares the bound sequences of every scored complex with every
// other one and writes the similar pairs to the duplicates table. Each complex
// is compared on its own task, at most DupWorkers at a time.
func (p *Pipeline) Duplicates(ctx context.Context) error {
	defer p.timeStage(StageDuplicates)()

	names, err := p.scoredComplexes()
	if err != nil {
		return err
	}
	groups := p.sequenceGroups(names)

	found := make([][]string, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	limit := p.cfg.DupWorkers
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i := range groups {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := range groups {
				if i != j && ranking.Similar(groups[i], groups[j], p.comparator) {
					found[i] = append(found[i], groups[j].Name)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	table, err := export.OpenTable(p.layout.Duplicates(), export.DuplicatesHeader, export.DuplicatesKey, p.cfg.Continue)
	if err != nil {
		return err
	}
	defer table.Close()

	n := 0
	for i, dups := range found {
		for _, d := range dups {
			added, err := table.Append(export.DuplicateCells(ranking.Duplicate{Name: groups[i].Name, Duplicate: d}))
			if err != nil {
				return err
			}
			if added {
				n++
			}
		}
		if len(dups) > 0 {
			p.logger.Debug("Duplicates found", logging.ComplexName(groups[i].Name), logging.Strings("duplicates", dups))
		}
	}
	p.metrics.Duplicates(n)
	p.logger.Info("Duplicate search finished", logging.Int("complexes", len(groups)), logging.Int("pairs", n))
	return nil
}

// scoredComplexes returns the sorted names of the complexes in the metadata
// table. When only unbound pairings are scored, complexes need at least one.
func (p *Pipeline) scoredComplexes() ([]string, error) {
	header, rows, err := export.ReadTable(p.layout.DBInfo())
	if err != nil {
		return nil, err
	}
	recs, err := export.ParseDBInfo(header, rows)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	for _, r := range recs {
		if seen[r.ComplexName] || (p.onlyUU() && r.Type != abag.PairingUU) {
			continue
		}
		seen[r.ComplexName] = true
		names = append(names, r.ComplexName)
	}
	sort.Strings(names)
	return names, nil
}

// sequenceGroups loads the bound sequences of names. Complexes whose
// sequences cannot be read are left out.
func (p *Pipeline) sequenceGroups(names []string) []ranking.Group {
	out := make([]ranking.Group, 0, len(names))
	for _, name := range names {
		pdbID, ab, ag, err := abag.ParseName(name)
		if err == nil {
			var seqs map[string]string
			if seqs, err = p.readSequences(name, pdbID); err == nil {
				out = append(out, ranking.Group{Name: name, Antibody: pick(seqs, ab), Antigen: pick(seqs, ag)})
				continue
			}
		}
		p.logger.Warn("Skipping complex in duplicate search", logging.ComplexName(name), logging.Reason(errors.Reason(err)))
	}
	return out
}

func pick(seqs map[string]string, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = seqs[id]
	}
	return out
}
