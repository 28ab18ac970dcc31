package curation

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/biocad/anbase/internal/domain/gaps"
	"github.com/biocad/anbase/internal/domain/structure"
	"github.com/biocad/anbase/internal/infrastructure/export"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Constraints writes a docking restraint file for every summary row: per
// antigen chain, the bound epitope residues as ranges under an
// ">{chain}:attraction" header. It returns the number of files written.
func (p *Pipeline) Constraints(ctx context.Context) (int, error) {
	defer p.timeStage(StageConstraints)()

	header, rows, err := export.ReadTable(p.layout.Summary())
	if err != nil {
		return 0, err
	}
	summary, err := export.ParseSummary(header, rows)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, row := range summary {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		rec := row.Record
		if err := p.writeConstraints(ctx, rec.ComplexName, rec.BoundPDBID, rec.BoundAntibody, rec.BoundAntigen); err != nil {
			p.logger.Warn("Constraints not written", logging.ComplexName(rec.ComplexName), logging.Reason(errors.Reason(err)))
			p.metrics.Complex(StageConstraints, "failed")
			continue
		}
		p.metrics.Complex(StageConstraints, "processed")
		written++
	}
	p.logger.Info("Constraints written", logging.Int("files", written))
	return written, nil
}

func (p *Pipeline) writeConstraints(ctx context.Context, comp, pdbID string, antibody, antigen []string) error {
	s, err := p.loadStructure(ctx, pdbID)
	if err != nil {
		return err
	}
	ab, err := s.Select(antibody...)
	if err != nil {
		return err
	}
	ag, err := s.Select(antigen...)
	if err != nil {
		return err
	}
	epitope := gaps.ContactResidues(ag.Chains, ab.Chains, p.cfg.EpitopeCutoff)

	return writeFile(p.layout.ConstraintFile(comp), func(f *os.File) error {
		for _, id := range antigen {
			if _, err := fmt.Fprintf(f, ">%s:attraction\n%s\n", id, FormatRanges(epitope[id])); err != nil {
				return err
			}
		}
		return nil
	})
}

// FormatRanges joins sorted residue ids into comma-separated "a" or "a-b"
// entries. Only consecutive numbers without insertion codes form a run;
// inserted residues such as "52A" always stand alone.
func FormatRanges(ids []structure.ResidueID) string {
	var parts []string
	for i := 0; i < len(ids); {
		j := i
		for !ids[j].Inserted() && j+1 < len(ids) && !ids[j+1].Inserted() && ids[j+1].Seq == ids[j].Seq+1 {
			j++
		}
		if i == j {
			parts = append(parts, ids[i].String())
		} else {
			parts = append(parts, ids[i].String()+"-"+ids[j].String())
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

//Personal.AI order the ending
