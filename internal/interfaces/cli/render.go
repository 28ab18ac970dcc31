package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/ranking"
)

var resultHeader = []string{
	"Complex", "Chosen", "Type", "Antibody", "Antigen",
	"Gaps", "Mismatches", "Small molecules", "Perfect", "Alternatives",
}

// renderResults prints one row per finalized complex.
func renderResults(w io.Writer, results []ranking.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(resultHeader)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	for _, res := range results {
		table.Append(resultRow(res))
	}
	table.Render()
}

func resultRow(res ranking.Result) []string {
	r := res.Chosen
	return []string{
		res.ComplexName,
		r.Name(),
		string(r.Type),
		sideCell(r.Antibody),
		sideCell(r.Antigen),
		strconv.Itoa(r.GapsUnbound.Total),
		strconv.Itoa(r.Mismatches()),
		severityCell(r.SmallMolecules),
		perfectCell(res.IsPerfect),
		strconv.Itoa(len(res.Alternatives)),
	}
}

func sideCell(s abag.Side) string {
	if s.Resolution >= abag.UnknownResolution {
		return s.PDBID
	}
	return fmt.Sprintf("%s (%.2f)", s.PDBID, s.Resolution)
}

func severityCell(s abag.Severity) string {
	switch s {
	case abag.SeverityError:
		return color.RedString(s.Message())
	case abag.SeverityWarning:
		return color.YellowString(s.Message())
	default:
		return s.Message()
	}
}

func perfectCell(perfect bool) string {
	if perfect {
		return color.GreenString("yes")
	}
	return "no"
}

func printSummaryTotals(cmd *cobra.Command, results []ranking.Result) {
	perfect := 0
	for _, res := range results {
		if res.IsPerfect {
			perfect++
		}
	}
	PrintSuccess(cmd, fmt.Sprintf("%d complexes finalized, %d perfect", len(results), perfect))
}

//Personal.AI order the ending
