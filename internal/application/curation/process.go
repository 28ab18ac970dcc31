package curation

import (
	"context"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/gaps"
	"github.com/biocad/anbase/internal/domain/sequence"
	"github.com/biocad/anbase/internal/domain/structure"
	"github.com/biocad/anbase/internal/domain/superpose"
	"github.com/biocad/anbase/internal/infrastructure/export"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Group file tags.
const (
	groupAntibody = "ab"
	groupAntigen  = "ag"
	stateBound    = "b"
	stateUnbound  = "u"
)

// candidateGroups holds the collected candidates of one complex.
type candidateGroups struct {
	antibody []abag.Candidate
	antigen  []abag.Candidate
}

// processTables are the outputs of the process stage.
type processTables struct {
	dbInfo      *export.Table
	gapsBound   *export.Table
	gapsUnbound *export.Table
}

func (t processTables) close() error {
	var first error
	for _, tb := range []*export.Table{t.dbInfo, t.gapsBound, t.gapsUnbound} {
		if tb == nil {
			continue
		}
		if err := tb.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// boundComplex is the bound reference every pairing of a complex is scored
// against.
type boundComplex struct {
	name     string
	pdbID    string
	info     abag.EntryInfo
	antibody *structure.Structure
	antigen  *structure.Structure
	seqs     map[string]string

	// fit interface, per group, at the structural cutoff
	fitAntibody gaps.Interface
	fitAntigen  gaps.Interface
	// alpha carbons of the fit interface, searched for nearby small molecules
	interfaceCAs []structure.Vec3

	stats gaps.Stats
}

// placedGroup is one side of a pairing moved into the bound frame.
type placedGroup struct {
	side       abag.Side
	structure  *structure.Structure
	full       map[string]string
	mismatches int
	ligands    []structure.Residue
}

// Process scores every pairing of the collected candidates. For each complex
// it writes one metadata row and one unbound gap row per scored pairing and,
// last, the bound gap row that marks the complex complete. Complete complexes
// are skipped when the run is resumed.
func (p *Pipeline) Process(ctx context.Context) error {
	defer p.timeStage(StageProcess)()

	order, groups, err := p.readCandidates()
	if err != nil {
		return err
	}
	tables, err := p.openProcessTables()
	if err != nil {
		return err
	}
	defer tables.close()

	for _, comp := range order {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("Process interrupted", logging.ComplexName(comp))
			return err
		}
		if tables.gapsBound.Has(comp) {
			continue
		}
		if err := p.processComplex(ctx, comp, groups[comp], tables); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Warn("Complex not scored", logging.ComplexName(comp), logging.Reason(errors.Reason(err)))
			p.metrics.Complex(StageProcess, "failed")
			continue
		}
		p.metrics.Complex(StageProcess, "processed")
	}
	return nil
}

// readCandidates groups the candidates table by complex, in table order.
func (p *Pipeline) readCandidates() ([]string, map[string]*candidateGroups, error) {
	header, rows, err := export.ReadTable(p.layout.Candidates())
	if err != nil {
		return nil, nil, err
	}
	cands, err := export.ParseCandidates(header, rows)
	if err != nil {
		return nil, nil, err
	}
	var order []string
	groups := map[string]*candidateGroups{}
	for _, c := range cands {
		g, ok := groups[c.ComplexName]
		if !ok {
			g = &candidateGroups{}
			groups[c.ComplexName] = g
			order = append(order, c.ComplexName)
		}
		if c.Candidate.Kind == abag.KindAntibody {
			g.antibody = append(g.antibody, c.Candidate)
		} else {
			g.antigen = append(g.antigen, c.Candidate)
		}
	}
	return order, groups, nil
}

func (p *Pipeline) openProcessTables() (processTables, error) {
	var t processTables
	var err error
	if t.dbInfo, err = export.OpenTable(p.layout.DBInfo(), export.DBInfoHeader, export.DBInfoKey, p.cfg.Continue); err != nil {
		return t, err
	}
	if t.gapsBound, err = export.OpenTable(p.layout.GapsBound(), export.GapsBoundHeader, export.GapsBoundKey, p.cfg.Continue); err != nil {
		t.close()
		return t, err
	}
	if t.gapsUnbound, err = export.OpenTable(p.layout.GapsUnbound(), export.GapsUnboundHeader, export.GapsUnboundKey, p.cfg.Continue); err != nil {
		t.close()
		return t, err
	}
	return t, nil
}

// processComplex scores the pairings of comp. It fails only when no pairing
// could be scored.
func (p *Pipeline) processComplex(ctx context.Context, comp string, g *candidateGroups, tables processTables) error {
	b, err := p.loadBound(ctx, comp)
	if err != nil {
		return err
	}
	if err := p.writeGroup(comp, "", structureFile(b.pdbID, groupAntibody, stateBound), b.antibody); err != nil {
		return err
	}
	if err := p.writeGroup(comp, "", structureFile(b.pdbID, groupAntigen, stateBound), b.antigen); err != nil {
		return err
	}

	pairings := abag.Pairings(g.antibody, g.antigen, p.onlyUU())
	if len(pairings) == 0 {
		return errors.New(errors.ErrCodeNoCandidates, "no pairings to score").WithDetail(comp)
	}

	cache := map[string]*structure.Structure{}
	scored := 0
	for _, pr := range pairings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tables.dbInfo.Has(comp, string(pr.Type), pr.ID) && tables.gapsUnbound.Has(comp, pr.ID) {
			scored++
			continue
		}
		rec, err := p.scorePairing(ctx, b, pr, cache)
		if err != nil {
			p.logger.Warn("Pairing not scored", logging.ComplexName(comp),
				logging.String("candidate_id", pr.ID), logging.String("type", string(pr.Type)),
				logging.Reason(errors.Reason(err)))
			p.metrics.Pairing(string(pr.Type), "failed")
			continue
		}
		if _, err := tables.dbInfo.Append(export.DBInfoCells(rec)); err != nil {
			return err
		}
		if _, err := tables.gapsUnbound.Append(export.GapsUnboundCells(comp, pr.ID, rec.GapsUnbound)); err != nil {
			return err
		}
		p.metrics.Pairing(string(pr.Type), "scored")
		scored++
	}
	if scored == 0 {
		return errors.New(errors.ErrCodeNoCandidates, "no pairing could be scored").WithDetail(comp)
	}
	_, err = tables.gapsBound.Append(export.GapsBoundCells(comp, b.stats))
	if err == nil {
		p.logger.Info("Complex scored", logging.ComplexName(comp),
			logging.Int("pairings", len(pairings)), logging.Int("scored", scored))
	}
	return err
}

// loadBound reads the bound structure and sequences of comp and derives its
// interfaces and gap statistics.
func (p *Pipeline) loadBound(ctx context.Context, comp string) (*boundComplex, error) {
	pdbID, abIDs, agIDs, err := abag.ParseName(comp)
	if err != nil {
		return nil, err
	}
	seqs, err := p.readSequences(comp, pdbID)
	if err != nil {
		return nil, err
	}
	s, err := p.loadStructure(ctx, pdbID)
	if err != nil {
		return nil, err
	}
	ab, err := s.Select(abIDs...)
	if err != nil {
		return nil, err
	}
	ag, err := s.Select(agIDs...)
	if err != nil {
		return nil, err
	}

	b := &boundComplex{
		name:     comp,
		pdbID:    pdbID,
		info:     p.entryInfo(ctx, pdbID),
		antibody: ab,
		antigen:  ag,
		seqs:     seqs,
	}
	b.fitAntibody, b.fitAntigen = gaps.InterfaceResidues(ab.Chains, ag.Chains, p.cfg.InterfaceCutoff)
	b.interfaceCAs = append(gaps.InterfaceCAs(ab.Chains, b.fitAntibody), gaps.InterfaceCAs(ag.Chains, b.fitAntigen)...)
	b.stats = p.gapStats(seqs, seqs, ab, ag)
	return b, nil
}

// gapStats sums the gap statistics of both groups against their mutual
// interface at the gap cutoff.
func (p *Pipeline) gapStats(abFull, agFull map[string]string, ab, ag *structure.Structure) gaps.Stats {
	ifAB, ifAG := gaps.InterfaceResidues(ab.Chains, ag.Chains, p.cfg.InterfaceCutoff+p.cfg.GapCutoffExtension)
	return gaps.GroupStats(abFull, ab.Chains, ifAB, p.cfg.LongGapLength).
		Add(gaps.GroupStats(agFull, ag.Chains, ifAG, p.cfg.LongGapLength))
}

// ─────────────────────────────────────────────────────────────────────────────
// Pairing scoring
// ─────────────────────────────────────────────────────────────────────────────

// scorePairing superposes the unbound sides of pr onto b, writes the aligned
// groups and returns the scored record.
func (p *Pipeline) scorePairing(ctx context.Context, b *boundComplex, pr abag.Pairing, cache map[string]*structure.Structure) (abag.Record, error) {
	ab, err := p.placeGroup(ctx, b, pr.Antibody, b.antibody, b.fitAntibody, groupAntibody, cache)
	if err != nil {
		return abag.Record{}, err
	}
	ag, err := p.placeGroup(ctx, b, pr.Antigen, b.antigen, b.fitAntigen, groupAntigen, cache)
	if err != nil {
		return abag.Record{}, err
	}

	ligands := append(append([]structure.Residue{}, ab.ligands...), ag.ligands...)
	rec := abag.Record{
		ComplexName:        b.name,
		Type:               pr.Type,
		CandidateID:        pr.ID,
		BoundPDBID:         b.pdbID,
		BoundResolution:    b.info.Resolution,
		BoundMethod:        b.info.Method,
		BoundAntibody:      b.antibody.ChainIDs(),
		BoundAntigen:       b.antigen.ChainIDs(),
		Antibody:           ab.side,
		Antigen:            ag.side,
		AntibodyMismatches: ab.mismatches,
		AntigenMismatches:  ag.mismatches,
		SmallMolecules:     SmallMolecules(ligands, b.interfaceCAs, p.cfg.InterfaceCutoff),
		GapsBound:          b.stats,
		GapsUnbound:        p.gapStats(ab.full, ag.full, ab.structure, ag.structure),
	}

	if err := p.writeGroup(b.name, pr.ID, structureFile(ab.side.PDBID, groupAntibody, stateUnbound), ab.structure); err != nil {
		return abag.Record{}, err
	}
	if err := p.writeGroup(b.name, pr.ID, structureFile(ag.side.PDBID, groupAntigen, stateUnbound), ag.structure); err != nil {
		return abag.Record{}, err
	}
	return rec, nil
}

// placeGroup returns one side of a pairing. A nil candidate keeps the bound
// group as it is; otherwise the candidate chains are superposed onto bound,
// restricted to the fit interface.
func (p *Pipeline) placeGroup(ctx context.Context, b *boundComplex, cand *abag.Candidate, bound *structure.Structure,
	fit gaps.Interface, role string, cache map[string]*structure.Structure) (*placedGroup, error) {
	if cand == nil {
		return &placedGroup{
			side: abag.Side{
				PDBID:      b.pdbID,
				Resolution: b.info.Resolution,
				Method:     b.info.Method,
				ChainIDs:   bound.ChainIDs(),
			},
			structure: bound,
			full:      b.seqs,
		}, nil
	}
	if len(cand.ChainIDs) != len(bound.Chains) {
		return nil, errors.Newf(errors.CodeInvalidParam, "candidate has %d chains, group has %d",
			len(cand.ChainIDs), len(bound.Chains)).WithDetail(cand.Key())
	}

	s, ok := cache[cand.PDBID]
	if !ok {
		var err error
		if s, err = p.loadStructure(ctx, cand.PDBID); err != nil {
			return nil, err
		}
		cache[cand.PDBID] = s
	}
	u, err := s.Select(cand.ChainIDs...)
	if err != nil {
		return nil, err
	}
	entry, err := p.remote.FetchEntry(ctx, cand.PDBID)
	if err != nil {
		return nil, err
	}
	canonical := entry.Sequences()

	full := make(map[string]string, len(cand.ChainIDs))
	pairs := make([]superpose.ChainPair, len(cand.ChainIDs))
	mismatches := 0
	for i, id := range cand.ChainIDs {
		uc := &u.Chains[i]
		bc := &bound.Chains[i]
		w, ok := sequence.ResolvedWindow(uc.Sequence(), canonical[id])
		if !ok {
			return nil, errors.New(errors.ErrCodeUnfetchedSequence, "no resolved window").WithDetail(cand.PDBID + ":" + id)
		}
		full[id] = w
		mismatches += p.comparator.MismatchCount(b.seqs[bc.ID], w)
		pairs[i] = superpose.ChainPair{
			Bound:       bc,
			BoundFull:   b.seqs[bc.ID],
			Unbound:     uc,
			UnboundFull: w,
			Interface:   fit.Chain(bc.ID),
		}
	}

	fitted, err := superpose.Superpose(pairs)
	if err != nil {
		return nil, err
	}
	p.metrics.Superposed(role, fitted.RMSD)
	p.logger.Debug("Group superposed", logging.ComplexName(b.name), logging.String("group", role),
		logging.String("candidate", cand.Key()), logging.Float64("rmsd", fitted.RMSD),
		logging.Int("points", fitted.FitPoints), logging.Bool("interface_only", fitted.InterfaceOnly))

	moved := fitted.Apply(u)
	info := p.entryInfo(ctx, cand.PDBID)
	return &placedGroup{
		side: abag.Side{
			PDBID:      cand.PDBID,
			Resolution: info.Resolution,
			Method:     info.Method,
			ChainIDs:   append([]string(nil), cand.ChainIDs...),
		},
		structure:  moved,
		full:       full,
		mismatches: mismatches,
		ligands:    moved.Ligands(),
	}, nil
}

// SmallMolecules grades the ligands carried by unbound chains: none when there
// are none, an error when any ligand atom lies closer than cutoff to an
// interface alpha carbon, a warning otherwise.
func SmallMolecules(ligands []structure.Residue, interfaceCAs []structure.Vec3, cutoff float64) abag.Severity {
	if len(ligands) == 0 {
		return abag.SeverityNone
	}
	for _, l := range ligands {
		coords := make([]structure.Vec3, len(l.Atoms))
		for i, a := range l.Atoms {
			coords[i] = a.Coord
		}
		if gaps.AnyWithin(coords, interfaceCAs, cutoff) {
			return abag.SeverityError
		}
	}
	return abag.SeverityWarning
}
