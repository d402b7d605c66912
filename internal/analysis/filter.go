package analysis

import (
	"time"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// FilterDateRange returns a new table with the incidents whose date falls
// within [from, to], both inclusive. A zero bound is open.
func FilterDateRange(table *models.IncidentTable, from, to time.Time) *models.IncidentTable {
	if table == nil {
		return nil
	}
	rows := make([]models.Incident, 0, len(table.Rows))
	for _, inc := range table.Rows {
		d := inc.Calendar.Date
		if !from.IsZero() && d.Before(dateOf(from)) {
			continue
		}
		if !to.IsZero() && d.After(dateOf(to)) {
			continue
		}
		rows = append(rows, inc)
	}
	return table.Derive(rows)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Summarize describes a cleaned dataset
func Summarize(table *models.IncidentTable, areas *models.AreaTable) models.DatasetSummary {
	summary := models.DatasetSummary{
		Incidents: table.Len(),
		Areas:     areas.Len(),
		Years:     Years(table),
	}
	if table.Len() == 0 {
		return summary
	}

	categories := make(map[models.Symbol]bool)
	first, last := table.Rows[0].Calendar.Date, table.Rows[0].Calendar.Date
	for i := range table.Rows {
		inc := &table.Rows[i]
		categories[inc.PrimaryType] = true
		if inc.Calendar.Date.Before(first) {
			first = inc.Calendar.Date
		}
		if inc.Calendar.Date.After(last) {
			last = inc.Calendar.Date
		}
	}
	summary.Categories = len(categories)
	summary.FirstDate = first
	summary.LastDate = last
	return summary
}
