package curation

import (
	"context"
	"sort"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/ranking"
	"github.com/biocad/anbase/internal/infrastructure/export"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Summary joins the metadata and gap tables, merges duplicate complexes into
// their representative and finalizes every representative. The chosen records
// go to the summary table and the rest to the alternatives table; both are
// rewritten on every call. Events and uploads are best-effort.
func (p *Pipeline) Summary(ctx context.Context) ([]ranking.Result, error) {
	defer p.timeStage(StageSummary)()

	pools, err := p.scoredPools()
	if err != nil {
		return nil, err
	}
	dups, err := p.readDuplicates()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pools))
	for name := range pools {
		names = append(names, name)
	}
	reps := ranking.Collapse(names, dups)
	repNames := make([]string, 0, len(reps))
	for name := range reps {
		repNames = append(repNames, name)
	}
	sort.Strings(repNames)

	summary, err := export.OpenTable(p.layout.Summary(), export.SummaryHeader, export.SummaryKey, false)
	if err != nil {
		return nil, err
	}
	defer summary.Close()
	alternatives, err := export.OpenTable(p.layout.Alternatives(), export.AlternativesHeader, export.AlternativesKey, false)
	if err != nil {
		return nil, err
	}
	defer alternatives.Close()

	results := make([]ranking.Result, 0, len(repNames))
	perfect := 0
	for _, rep := range repNames {
		pool := append([]abag.Record(nil), pools[rep]...)
		for _, d := range reps[rep] {
			pool = append(pool, pools[d]...)
		}
		res, err := ranking.Finalize(rep, pool)
		if err != nil {
			p.logger.Warn("Complex not finalized", logging.ComplexName(rep), logging.Reason(errors.Reason(err)))
			p.metrics.Complex(StageSummary, "failed")
			continue
		}
		if _, err := summary.Append(export.SummaryCells(res)); err != nil {
			return results, err
		}
		for _, alt := range res.Alternatives {
			if _, err := alternatives.Append(export.AlternativeCells(alt)); err != nil {
				return results, err
			}
		}
		p.metrics.Finalized(res.IsPerfect)
		p.metrics.Complex(StageSummary, "processed")
		if res.IsPerfect {
			perfect++
		}
		results = append(results, res)
	}
	if err := summary.Close(); err != nil {
		return results, err
	}
	if err := alternatives.Close(); err != nil {
		return results, err
	}
	p.logger.Info("Summary written", logging.Int("complexes", len(results)), logging.Int("perfect", perfect),
		logging.Int("merged", len(names)-len(repNames)))

	p.publish(ctx, results)
	p.upload(ctx)
	return results, nil
}

// scoredPools returns the scored records of every complex that finished the
// process stage, with their gap statistics attached, in table order.
func (p *Pipeline) scoredPools() (map[string][]abag.Record, error) {
	header, rows, err := export.ReadTable(p.layout.DBInfo())
	if err != nil {
		return nil, err
	}
	recs, err := export.ParseDBInfo(header, rows)
	if err != nil {
		return nil, err
	}
	header, rows, err = export.ReadTable(p.layout.GapsBound())
	if err != nil {
		return nil, err
	}
	bound, err := export.ParseGapsBound(header, rows)
	if err != nil {
		return nil, err
	}
	header, rows, err = export.ReadTable(p.layout.GapsUnbound())
	if err != nil {
		return nil, err
	}
	unbound, err := export.ParseGapsUnbound(header, rows)
	if err != nil {
		return nil, err
	}

	pools := map[string][]abag.Record{}
	for _, r := range recs {
		if p.onlyUU() && r.Type != abag.PairingUU {
			continue
		}
		gb, ok := bound[r.ComplexName]
		if !ok {
			continue
		}
		gu, ok := unbound[r.Name()]
		if !ok {
			p.logger.Debug("Record without unbound gap statistics", logging.String("candidate", r.Name()))
			continue
		}
		r.GapsBound, r.GapsUnbound = gb, gu
		pools[r.ComplexName] = append(pools[r.ComplexName], r)
	}
	return pools, nil
}

// readDuplicates returns the duplicates table, empty when the duplicates
// stage was not run.
func (p *Pipeline) readDuplicates() ([]ranking.Duplicate, error) {
	header, rows, err := export.ReadTable(p.layout.Duplicates())
	if err != nil {
		if errors.IsNotFound(err) {
			p.logger.Info("No duplicates table, complexes are not merged")
			return nil, nil
		}
		return nil, err
	}
	return export.ParseDuplicates(header, rows), nil
}

// publish announces every finalized complex in one batch. A failure is
// logged; the summary tables are already written.
func (p *Pipeline) publish(ctx context.Context, results []ranking.Result) {
	if p.publisher == nil || len(results) == 0 {
		return
	}
	if err := p.publisher.Finalized(ctx, results...); err != nil {
		p.logger.Warn("Ranking events not published", logging.Int("complexes", len(results)), logging.Reason(errors.Reason(err)))
	}
}

func (p *Pipeline) upload(ctx context.Context) {
	if p.uploader == nil {
		return
	}
	res, err := p.uploader.UploadAll(ctx, p.cfg.RunID, p.layout.Tables())
	if err != nil {
		p.logger.Warn("Export upload failed", logging.Reason(errors.Reason(err)))
		return
	}
	stored, err := p.uploader.List(ctx, p.cfg.RunID)
	if err != nil {
		p.logger.Warn("Exports not verified", logging.Reason(errors.Reason(err)))
		return
	}
	listed := make(map[string]int64, len(stored))
	for _, obj := range stored {
		listed[obj.ObjectKey] = obj.Size
	}
	missing := 0
	for _, r := range res {
		if size, ok := listed[r.ObjectKey]; !ok || size != r.Size {
			p.logger.Warn("Export not stored", logging.String("key", r.ObjectKey))
			missing++
		}
	}
	p.logger.Info("Exports uploaded", logging.Int("objects", len(res)), logging.Int("missing", missing))
}
