// Package cleaning removes incomplete, out-of-range and duplicate incidents
// from a normalized table.
package cleaning

import (
	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// SentinelYear marks rows of the partial, still-open export year
const SentinelYear = 2026

// Clean returns a new table holding the complete, deduplicated incidents
// of the input. Retained rows keep their input order and get freshly
// derived calendar fields. The input table is not modified.
func Clean(table *models.IncidentTable) (*models.IncidentTable, models.CleanReport) {
	report := models.CleanReport{
		InputRows:      table.Len(),
		MissingByField: make(map[string]int),
	}
	if table == nil {
		return models.NewIncidentTable(nil, models.NewSymbols()), report
	}

	kept := make([]int, 0, len(table.Rows))
	for i := range table.Rows {
		inc := &table.Rows[i]
		if missing := inc.MissingFields(); len(missing) > 0 {
			report.DroppedMissing++
			for _, col := range missing {
				report.MissingByField[col]++
			}
			continue
		}
		if inc.OccurredAt.Time.Year() == SentinelYear {
			report.DroppedSentinelYear++
			continue
		}
		kept = append(kept, i)
	}

	// max ID wins per case number; the first row seen wins a tie
	winner := make(map[string]int, len(kept))
	for _, i := range kept {
		inc := &table.Rows[i]
		if w, ok := winner[inc.CaseNumber]; !ok || inc.ID.V > table.Rows[w].ID.V {
			winner[inc.CaseNumber] = i
		}
	}

	rows := make([]models.Incident, 0, len(winner))
	for _, i := range kept {
		inc := table.Rows[i]
		if winner[inc.CaseNumber] != i {
			report.DroppedDuplicates++
			continue
		}
		inc.Calendar = models.DeriveCalendar(inc.OccurredAt.Time)
		rows = append(rows, inc)
	}

	report.OutputRows = len(rows)
	return table.Derive(rows), report
}
