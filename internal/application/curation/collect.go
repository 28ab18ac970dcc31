package curation

import (
	"context"
	"os"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/sequence"
	"github.com/biocad/anbase/internal/infrastructure/batch"
	"github.com/biocad/anbase/internal/infrastructure/export"
	"github.com/biocad/anbase/internal/infrastructure/journal"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// collected is the outcome of collecting one source row. err is set when the
// complex could not be collected; obsolete is meaningful when looked is set.
type collected struct {
	row      abag.SummaryRow
	complex  *abag.Complex
	antigen  []abag.Candidate
	antibody []abag.Candidate

	looked   bool
	obsolete bool
	err      error
}

// Collect reads the source table, builds every complex in range that is not
// yet done and searches its unbound candidates. Found candidates are appended
// to the candidates table and every complex ends up in the processed or the
// not-processed ledger.
//
// Complexes are collected in rounds of Workers. Ledger and table writes happen
// between rounds; a cancelled context stops the stage and leaves the round in
// flight pending.
func (p *Pipeline) Collect(ctx context.Context) error {
	defer p.timeStage(StageCollect)()

	rows, err := p.readSource()
	if err != nil {
		return err
	}
	ledgers, err := p.openLedgers()
	if err != nil {
		return err
	}
	table, err := export.OpenTable(p.layout.Candidates(), export.CandidatesHeader, export.CandidatesKey, p.cfg.Continue)
	if err != nil {
		return err
	}
	defer table.Close()

	pending := p.pendingRows(rows, ledgers)
	p.logger.Info("Collecting complexes", logging.Int("rows", len(rows)), logging.Int("pending", len(pending)))

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	proc := batch.NewProcessor[abag.SummaryRow, *collected](
		batch.WithMaxConcurrency(workers),
		batch.WithLogger(p.logger),
		batch.WithName("collect"),
	)
	for start := 0; start < len(pending); start += workers {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("Collect interrupted", logging.Int("remaining", len(pending)-start))
			return err
		}
		end := start + workers
		if end > len(pending) {
			end = len(pending)
		}
		round := pending[start:end]
		res, err := proc.Process(ctx, round, p.collectOne)
		if err != nil {
			return err
		}
		// A round that saw the context end may hold failures caused by the
		// interruption; all of it stays pending for the next run.
		if err := ctx.Err(); err != nil {
			p.logger.Warn("Collect interrupted", logging.Int("remaining", len(pending)-start))
			return err
		}
		for _, r := range res.Results {
			out := r.Result
			if out == nil {
				out = &collected{row: round[r.Index], err: r.Error}
			}
			if errors.Is(out.err, context.Canceled) {
				continue
			}
			if err := p.record(ledgers, table, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) readSource() ([]abag.SummaryRow, error) {
	f, err := os.Open(p.cfg.SummaryPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "failed to open source table")
	}
	defer f.Close()
	rows, rejected, err := abag.ReadSummary(f)
	if err != nil {
		return nil, err
	}
	for _, re := range rejected {
		p.logger.Warn("Skipping malformed source row",
			logging.Int("row", re.Index), logging.PDBID(re.PDBID), logging.Reason(errors.Reason(re.Err)))
	}
	return rows, nil
}

// pendingRows filters rows down to the valid, in-range complexes that are not
// done yet. Repeated complex names are kept once.
func (p *Pipeline) pendingRows(rows []abag.SummaryRow, ledgers *journal.Ledgers) []abag.SummaryRow {
	seen := map[string]bool{}
	var out []abag.SummaryRow
	for _, r := range rows {
		if !r.InRange(p.cfg.RangeStart, p.cfg.RangeEnd) {
			continue
		}
		if err := r.Validate(p.cfg.AntigenTypes); err != nil {
			p.logger.Debug("Skipping source row", logging.Int("row", r.Index), logging.PDBID(r.PDBID),
				logging.Reason(errors.Reason(err)))
			p.metrics.Complex(StageCollect, "skipped")
			continue
		}
		name := r.Name()
		if seen[name] || ledgers.Done(name) {
			continue
		}
		seen[name] = true
		out = append(out, r)
	}
	return out
}

// collectOne builds the complex of row and finds its unbound candidates. It
// runs on a worker and never writes ledgers or tables; failures travel in the
// result.
func (p *Pipeline) collectOne(ctx context.Context, row abag.SummaryRow) (*collected, error) {
	out := &collected{row: row}

	ledgers, err := p.openLedgers()
	if err != nil {
		out.err = err
		return out, nil
	}
	obsolete, known := ledgers.Obsolete(row.PDBID)
	if !known {
		info, err := p.remote.FetchEntryInfo(ctx, row.PDBID)
		if err == nil {
			out.looked, out.obsolete = true, info.Obsolete
			obsolete = info.Obsolete
		} else {
			p.logger.Warn("Obsolescence unknown", logging.PDBID(row.PDBID), logging.Reason(errors.Reason(err)))
		}
	}
	if obsolete {
		out.err = errors.New(errors.ErrCodeObsoleteEntry, "entry is obsolete").WithDetail(row.PDBID)
		return out, nil
	}

	c, err := p.buildComplex(ctx, row)
	if err != nil {
		out.err = err
		return out, nil
	}
	out.complex = c

	out.antigen, out.antibody, err = p.finder.Conformations(ctx, c)
	if err != nil {
		out.err = err
		return out, nil
	}
	if len(abag.Pairings(out.antibody, out.antigen, p.onlyUU())) == 0 {
		out.err = errors.New(errors.ErrCodeNoCandidates, "no unbound candidates").WithDetail(c.Name)
	}
	return out, nil
}

// buildComplex derives the resolved sequence of every declared chain of row
// by placing the structure sequence onto the canonical one.
func (p *Pipeline) buildComplex(ctx context.Context, row abag.SummaryRow) (*abag.Complex, error) {
	s, err := p.loadStructure(ctx, row.PDBID)
	if err != nil {
		return nil, err
	}
	entry, err := p.remote.FetchEntry(ctx, row.PDBID)
	if err != nil {
		return nil, err
	}
	full := entry.Sequences()

	antibody := row.AntibodyChains()
	seqs := map[string]string{}
	for _, id := range append(append([]string{}, antibody...), row.AntigenChains...) {
		ch, ok := s.Chain(id)
		if !ok {
			return nil, errors.New(errors.ErrCodeStructureMissingChain, "chain not found").WithDetail(row.PDBID + ":" + id)
		}
		canonical, ok := full[id]
		if !ok {
			return nil, errors.New(errors.ErrCodeUnfetchedSequence, "has unfetched sequences").WithDetail(row.PDBID + ":" + id)
		}
		if w, ok := sequence.ResolvedWindow(ch.Sequence(), canonical); ok {
			seqs[id] = w
		}
	}
	return abag.NewComplex(row.PDBID, antibody, row.AntigenChains, seqs)
}

// record persists the outcome of one row. It runs on the coordinating
// goroutine.
func (p *Pipeline) record(ledgers *journal.Ledgers, table *export.Table, out *collected) error {
	if out.looked {
		if err := ledgers.RecordObsolete(out.row.PDBID, out.obsolete); err != nil {
			return err
		}
	}
	name := out.row.Name()

	if out.err == nil {
		out.err = p.writeCollected(table, out)
	}
	if out.err != nil {
		p.logger.Warn("Complex not processed", logging.ComplexName(name), logging.Reason(errors.Reason(out.err)))
		p.metrics.Complex(StageCollect, "failed")
		return ledgers.MarkFailed(name, out.err)
	}
	p.logger.Info("Complex collected", logging.ComplexName(name),
		logging.Int("antigen_candidates", len(out.antigen)), logging.Int("antibody_candidates", len(out.antibody)))
	p.metrics.Complex(StageCollect, "processed")
	return ledgers.MarkProcessed(name)
}

// writeCollected stores the bound sequences and the candidate rows, antigen
// candidates first.
func (p *Pipeline) writeCollected(table *export.Table, out *collected) error {
	if err := p.writeSequences(out.complex); err != nil {
		return err
	}
	for _, group := range [][]abag.Candidate{out.antigen, out.antibody} {
		for _, cand := range group {
			row := export.CandidateRow{ComplexName: out.complex.Name, Candidate: cand}
			if _, err := table.Append(row.Cells()); err != nil {
				return err
			}
		}
	}
	return nil
}
