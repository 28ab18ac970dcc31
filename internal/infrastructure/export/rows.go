package export

import (
	"strconv"
	"strings"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/gaps"
	"github.com/biocad/anbase/internal/domain/ranking"
	"github.com/biocad/anbase/pkg/errors"
)

// NA is written for missing values.
const NA = "NA"

// Table headers.
var (
	CandidatesHeader = []string{"pdb_id", "comp_name", "candidate_type", "candidate_pdb_id", "candidate_chain_ids"}

	DBInfoHeader = []string{
		"comp_name", "candidate_type", "candidate_id",
		"pdb_id_b", "resolution_b", "resolution_method_b", "ab_chain_ids_b", "ag_chain_ids_b",
		"ab_pdb_id_u", "ab_resolution_u", "ab_resolution_method_u", "ab_chain_ids_u",
		"ag_pdb_id_u", "ag_resolution_u", "ag_resolution_method_u", "ag_chain_ids_u",
		"ab_mismatches_cnt", "ag_mismatches_cnt", "small_molecules_message",
	}

	GapsBoundHeader   = []string{"comp_name", "in_between", "one_side", "long", "total"}
	GapsUnboundHeader = []string{"comp_name", "candidate_id", "in_between", "one_side", "long", "total"}

	DuplicatesHeader = []string{"comp_name", "duplicate_name"}

	SummaryHeader = []string{
		"comp_name", "type",
		"pdb_id_b", "resolution_b", "resolution_method_b", "ab_chain_ids_b", "ag_chain_ids_b",
		"ab_pdb_id_u", "ab_resolution_u", "ab_resolution_method_u", "ab_chain_ids_u",
		"ag_pdb_id_u", "ag_resolution_u", "ag_resolution_method_u", "ag_chain_ids_u",
		"ab_mismatches_cnt", "ag_mismatches_cnt", "small_molecules_message",
		"in_between_gaps_b", "one_side_gaps_b", "long_gaps_b", "total_gaps_b",
		"in_between_gaps_u", "one_side_gaps_u", "long_gaps_u", "total_gaps_u",
		"is_perfect",
	}

	AlternativesHeader = append([]string{"candidate_name"}, SummaryHeader[1:len(SummaryHeader)-1]...)
)

// Key column counts of the tables above.
const (
	CandidatesKey   = 5
	DBInfoKey       = 3
	GapsBoundKey    = 1
	GapsUnboundKey  = 2
	DuplicatesKey   = 2
	SummaryKey      = 1
	AlternativesKey = 1
)

// chainListSeparator joins chain ids in the summary tables. The metadata
// table uses abag.ChainSeparator.
const chainListSeparator = ":"

// ── Formatting ─────────────────────────────────────────────────────────────

// FormatResolution renders a resolution without trailing zeros.
func FormatResolution(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseResolution reads a resolution, falling back to abag.UnknownResolution.
func ParseResolution(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == NA {
		return abag.UnknownResolution
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return abag.UnknownResolution
	}
	return v
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBool accepts the spellings written by this and earlier tools.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func splitChains(s, sep string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == NA {
		return nil
	}
	return strings.Split(s, sep)
}

func orNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}

func atoi(row []string, idx map[string]int, col string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(cell(row, idx, col)))
	if err != nil {
		return 0, errors.Newf(errors.ErrCodeBadRow, "column %s is not an integer", col).WithCause(err)
	}
	return v, nil
}

func cell(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// ─────────────────────────────────────────────────────────────────────────────
// Candidates table
// ─────────────────────────────────────────────────────────────────────────────

// CandidateRow is one accepted unbound candidate of a complex group.
type CandidateRow struct {
	ComplexName string
	Candidate   abag.Candidate
}

// Cells renders the row in CandidatesHeader order.
func (r CandidateRow) Cells() []string {
	pdb, _, _, _ := abag.ParseName(r.ComplexName)
	return []string{pdb, r.ComplexName, string(r.Candidate.Kind), r.Candidate.PDBID, r.Candidate.ChainList()}
}

// ParseCandidates decodes the rows of a candidates table.
func ParseCandidates(header []string, rows [][]string) ([]CandidateRow, error) {
	idx := Index(header)
	out := make([]CandidateRow, 0, len(rows))
	for _, row := range rows {
		kind := abag.GroupKind(cell(row, idx, "candidate_type"))
		if kind != abag.KindAntibody && kind != abag.KindAntigen {
			return out, errors.Newf(errors.ErrCodeBadRow, "unknown candidate type %q", kind)
		}
		out = append(out, CandidateRow{
			ComplexName: cell(row, idx, "comp_name"),
			Candidate: abag.Candidate{
				PDBID:    cell(row, idx, "candidate_pdb_id"),
				ChainIDs: abag.ParseChainList(cell(row, idx, "candidate_chain_ids")),
				Kind:     kind,
			},
		})
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Pairing metadata table
// ─────────────────────────────────────────────────────────────────────────────

// DBInfoCells renders the metadata of a scored pairing in DBInfoHeader order.
func DBInfoCells(r abag.Record) []string {
	join := func(ids []string) string { return strings.Join(ids, abag.ChainSeparator) }
	return []string{
		r.ComplexName, string(r.Type), r.CandidateID,
		r.BoundPDBID, FormatResolution(r.BoundResolution), orNA(r.BoundMethod),
		join(r.BoundAntibody), join(r.BoundAntigen),
		r.Antibody.PDBID, FormatResolution(r.Antibody.Resolution), orNA(r.Antibody.Method), join(r.Antibody.ChainIDs),
		r.Antigen.PDBID, FormatResolution(r.Antigen.Resolution), orNA(r.Antigen.Method), join(r.Antigen.ChainIDs),
		strconv.Itoa(r.AntibodyMismatches), strconv.Itoa(r.AntigenMismatches),
		r.SmallMolecules.Message(),
	}
}

// ParseDBInfo decodes a metadata table into records without gap statistics.
func ParseDBInfo(header []string, rows [][]string) ([]abag.Record, error) {
	idx := Index(header)
	split := func(row []string, col string) []string {
		return splitChains(cell(row, idx, col), abag.ChainSeparator)
	}
	out := make([]abag.Record, 0, len(rows))
	for _, row := range rows {
		abMM, err := atoi(row, idx, "ab_mismatches_cnt")
		if err != nil {
			return out, err
		}
		agMM, err := atoi(row, idx, "ag_mismatches_cnt")
		if err != nil {
			return out, err
		}
		sev, err := abag.ParseSeverity(cell(row, idx, "small_molecules_message"))
		if err != nil {
			return out, err
		}
		out = append(out, abag.Record{
			ComplexName:     cell(row, idx, "comp_name"),
			Type:            abag.PairingType(cell(row, idx, "candidate_type")),
			CandidateID:     cell(row, idx, "candidate_id"),
			BoundPDBID:      cell(row, idx, "pdb_id_b"),
			BoundResolution: ParseResolution(cell(row, idx, "resolution_b")),
			BoundMethod:     cell(row, idx, "resolution_method_b"),
			BoundAntibody:   split(row, "ab_chain_ids_b"),
			BoundAntigen:    split(row, "ag_chain_ids_b"),
			Antibody: abag.Side{
				PDBID:      cell(row, idx, "ab_pdb_id_u"),
				Resolution: ParseResolution(cell(row, idx, "ab_resolution_u")),
				Method:     cell(row, idx, "ab_resolution_method_u"),
				ChainIDs:   split(row, "ab_chain_ids_u"),
			},
			Antigen: abag.Side{
				PDBID:      cell(row, idx, "ag_pdb_id_u"),
				Resolution: ParseResolution(cell(row, idx, "ag_resolution_u")),
				Method:     cell(row, idx, "ag_resolution_method_u"),
				ChainIDs:   split(row, "ag_chain_ids_u"),
			},
			AntibodyMismatches: abMM,
			AntigenMismatches:  agMM,
			SmallMolecules:     sev,
		})
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Gap statistics tables
// ─────────────────────────────────────────────────────────────────────────────

func statsCells(s gaps.Stats) []string {
	return []string{strconv.Itoa(s.InBetween), strconv.Itoa(s.OneSide), strconv.Itoa(s.Long), strconv.Itoa(s.Total)}
}

// GapsBoundCells renders a bound gap statistics row.
func GapsBoundCells(comp string, s gaps.Stats) []string {
	return append([]string{comp}, statsCells(s)...)
}

// GapsUnboundCells renders an unbound gap statistics row.
func GapsUnboundCells(comp, candidateID string, s gaps.Stats) []string {
	return append([]string{comp, candidateID}, statsCells(s)...)
}

func parseStats(row []string, idx map[string]int) (gaps.Stats, error) {
	var s gaps.Stats
	var err error
	if s.InBetween, err = atoi(row, idx, "in_between"); err != nil {
		return s, err
	}
	if s.OneSide, err = atoi(row, idx, "one_side"); err != nil {
		return s, err
	}
	if s.Long, err = atoi(row, idx, "long"); err != nil {
		return s, err
	}
	if s.Total, err = atoi(row, idx, "total"); err != nil {
		return s, err
	}
	return s, nil
}

// ParseGapsBound maps complex names onto their bound gap statistics.
func ParseGapsBound(header []string, rows [][]string) (map[string]gaps.Stats, error) {
	idx := Index(header)
	out := make(map[string]gaps.Stats, len(rows))
	for _, row := range rows {
		s, err := parseStats(row, idx)
		if err != nil {
			return out, err
		}
		name := cell(row, idx, "comp_name")
		if _, seen := out[name]; !seen {
			out[name] = s
		}
	}
	return out, nil
}

// ParseGapsUnbound maps record names ("{comp}_{candidate}") onto their
// unbound gap statistics.
func ParseGapsUnbound(header []string, rows [][]string) (map[string]gaps.Stats, error) {
	idx := Index(header)
	out := make(map[string]gaps.Stats, len(rows))
	for _, row := range rows {
		s, err := parseStats(row, idx)
		if err != nil {
			return out, err
		}
		name := cell(row, idx, "comp_name") + "_" + cell(row, idx, "candidate_id")
		if _, seen := out[name]; !seen {
			out[name] = s
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Duplicates
// ─────────────────────────────────────────────────────────────────────────────

// DuplicateCells renders one duplicates row.
func DuplicateCells(d ranking.Duplicate) []string {
	return []string{d.Name, d.Duplicate}
}

// ParseDuplicates decodes a duplicates table.
func ParseDuplicates(header []string, rows [][]string) []ranking.Duplicate {
	idx := Index(header)
	out := make([]ranking.Duplicate, 0, len(rows))
	for _, row := range rows {
		out = append(out, ranking.Duplicate{Name: cell(row, idx, "comp_name"), Duplicate: cell(row, idx, "duplicate_name")})
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Summary and alternatives
// ─────────────────────────────────────────────────────────────────────────────

// metadataCells renders the columns shared by the summary and the
// alternatives, from "type" through "total_gaps_u".
func metadataCells(r abag.Record) []string {
	join := func(ids []string) string { return strings.Join(ids, chainListSeparator) }
	out := []string{
		string(r.Type),
		strings.ToUpper(r.BoundPDBID), FormatResolution(r.BoundResolution), orNA(r.BoundMethod),
		join(r.BoundAntibody), join(r.BoundAntigen),
		r.Antibody.PDBID, FormatResolution(r.Antibody.Resolution), orNA(r.Antibody.Method), join(r.Antibody.ChainIDs),
		r.Antigen.PDBID, FormatResolution(r.Antigen.Resolution), orNA(r.Antigen.Method), join(r.Antigen.ChainIDs),
		strconv.Itoa(r.AntibodyMismatches), strconv.Itoa(r.AntigenMismatches),
		r.SmallMolecules.Message(),
	}
	out = append(out, statsCells(r.GapsBound)...)
	return append(out, statsCells(r.GapsUnbound)...)
}

// SummaryCells renders the summary row of a finalized complex. The complex
// name is that of the chosen record, which may come from a merged duplicate.
func SummaryCells(res ranking.Result) []string {
	out := append([]string{res.Chosen.ComplexName}, metadataCells(res.Chosen)...)
	return append(out, formatBool(res.IsPerfect))
}

// AlternativeCells renders one alternatives row.
func AlternativeCells(r abag.Record) []string {
	return append([]string{r.Name()}, metadataCells(r)...)
}

// SummaryRow is a decoded summary line.
type SummaryRow struct {
	Record    abag.Record
	IsPerfect bool
}

// ParseSummary decodes a summary table.
func ParseSummary(header []string, rows [][]string) ([]SummaryRow, error) {
	idx := Index(header)
	split := func(row []string, col string) []string {
		return splitChains(cell(row, idx, col), chainListSeparator)
	}
	gapStats := func(row []string, suffix string) (gaps.Stats, error) {
		sub := map[string]int{
			"in_between": idx["in_between_gaps_"+suffix],
			"one_side":   idx["one_side_gaps_"+suffix],
			"long":       idx["long_gaps_"+suffix],
			"total":      idx["total_gaps_"+suffix],
		}
		return parseStats(row, sub)
	}
	out := make([]SummaryRow, 0, len(rows))
	for _, row := range rows {
		abMM, err := atoi(row, idx, "ab_mismatches_cnt")
		if err != nil {
			return out, err
		}
		agMM, err := atoi(row, idx, "ag_mismatches_cnt")
		if err != nil {
			return out, err
		}
		sev, err := abag.ParseSeverity(cell(row, idx, "small_molecules_message"))
		if err != nil {
			return out, err
		}
		gb, err := gapStats(row, "b")
		if err != nil {
			return out, err
		}
		gu, err := gapStats(row, "u")
		if err != nil {
			return out, err
		}
		out = append(out, SummaryRow{
			Record: abag.Record{
				ComplexName:     cell(row, idx, "comp_name"),
				Type:            abag.PairingType(cell(row, idx, "type")),
				BoundPDBID:      cell(row, idx, "pdb_id_b"),
				BoundResolution: ParseResolution(cell(row, idx, "resolution_b")),
				BoundMethod:     cell(row, idx, "resolution_method_b"),
				BoundAntibody:   split(row, "ab_chain_ids_b"),
				BoundAntigen:    split(row, "ag_chain_ids_b"),
				Antibody: abag.Side{
					PDBID:      cell(row, idx, "ab_pdb_id_u"),
					Resolution: ParseResolution(cell(row, idx, "ab_resolution_u")),
					Method:     cell(row, idx, "ab_resolution_method_u"),
					ChainIDs:   split(row, "ab_chain_ids_u"),
				},
				Antigen: abag.Side{
					PDBID:      cell(row, idx, "ag_pdb_id_u"),
					Resolution: ParseResolution(cell(row, idx, "ag_resolution_u")),
					Method:     cell(row, idx, "ag_resolution_method_u"),
					ChainIDs:   split(row, "ag_chain_ids_u"),
				},
				AntibodyMismatches: abMM,
				AntigenMismatches:  agMM,
				SmallMolecules:     sev,
				GapsBound:          gb,
				GapsUnbound:        gu,
			},
			IsPerfect: ParseBool(cell(row, idx, "is_perfect")),
		})
	}
	return out, nil
}

//Personal.AI order the ending
