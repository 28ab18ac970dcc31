package abag

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/biocad/anbase/pkg/errors"
)

// Column names of the SAbDab summary table.
const (
	ColPDB         = "pdb"
	ColHChain      = "Hchain"
	ColLChain      = "Lchain"
	ColAntigen     = "antigen_chain"
	ColAntigenType = "antigen_type"
)

// antigenSeparator separates antigen chains and antigen types in the table.
const antigenSeparator = " | "

// SummaryRow is one typed row of the SAbDab summary table.
type SummaryRow struct {
	Index         int
	PDBID         string
	HChain        string
	LChain        string
	AntigenChains []string
	AntigenType   string
}

// RowError records a table row that was rejected while parsing.
type RowError struct {
	Index int
	PDBID string
	Err   error
}

// ReadSummary parses a tab-separated SAbDab summary. Rows that are structurally
// broken are returned as RowErrors; the error result is reserved for an
// unreadable stream or a missing column.
func ReadSummary(r io.Reader) ([]SummaryRow, []RowError, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeBadRow, "read summary header")
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range []string{ColPDB, ColHChain, ColLChain, ColAntigen, ColAntigenType} {
		if _, ok := col[name]; !ok {
			return nil, nil, errors.Newf(errors.ErrCodeBadRow, "summary is missing column %q", name)
		}
	}

	var rows []SummaryRow
	var rejected []RowError
	for idx := 0; ; idx++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, rejected, errors.Wrap(err, errors.ErrCodeBadRow, "read summary row")
		}
		field := func(name string) string {
			i := col[name]
			if i >= len(rec) {
				return ""
			}
			return naToEmpty(rec[i])
		}
		row := SummaryRow{
			Index:       idx,
			PDBID:       strings.ToUpper(field(ColPDB)),
			HChain:      field(ColHChain),
			LChain:      field(ColLChain),
			AntigenType: field(ColAntigenType),
		}
		if ag := field(ColAntigen); ag != "" {
			row.AntigenChains = splitAntigen(ag)
		}
		if row.PDBID == "" {
			rejected = append(rejected, RowError{Index: idx, Err: errors.New(errors.ErrCodeBadRow, "empty pdb id")})
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected, nil
}

func naToEmpty(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" || s == "nan" || s == "NaN" {
		return ""
	}
	return s
}

func splitAntigen(s string) []string {
	parts := strings.Split(s, antigenSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AntibodyChains returns the antibody chain roles of the row. A row with only
// a light chain is a single-domain antibody whose chain takes the heavy role.
func (r SummaryRow) AntibodyChains() []string {
	switch {
	case r.HChain != "" && r.LChain != "":
		return []string{r.HChain, r.LChain}
	case r.HChain != "":
		return []string{r.HChain}
	case r.LChain != "":
		return []string{r.LChain}
	}
	return nil
}

// Name is the complex name the row describes.
func (r SummaryRow) Name() string {
	return FormName(r.PDBID, r.AntibodyChains(), r.AntigenChains)
}

// Validate checks that the row describes a protein antigen of an allowed type
// together with at least one antibody chain.
func (r SummaryRow) Validate(allowedTypes []string) error {
	allowed := false
	for _, t := range allowedTypes {
		if r.AntigenType == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Newf(errors.ErrCodeUnsupportedAntigen, "not protein-protein complex: %q", r.AntigenType).
			WithDetail(r.PDBID)
	}
	if len(r.AntibodyChains()) == 0 {
		return errors.New(errors.ErrCodeBadRow, "no antibody chains").WithDetail(r.PDBID)
	}
	if len(r.AntigenChains) == 0 {
		return errors.New(errors.ErrCodeBadRow, "no antigen chains").WithDetail(r.PDBID)
	}
	return nil
}

// InRange reports whether the row index lies in [start, end). A non-positive
// end means no upper bound.
func (r SummaryRow) InRange(start, end int) bool {
	if r.Index < start {
		return false
	}
	return end <= 0 || r.Index < end
}
