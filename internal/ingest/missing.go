package ingest

import (
	"sort"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// MissingByYear counts missing values per (year, column) on a normalized
// table. Rows without a timestamp have no year and are left out.
// Every column appears for every year, zero counts included.
func MissingByYear(table *models.IncidentTable) []models.MissingCount {
	if table.Len() == 0 {
		return nil
	}

	counts := make(map[int]map[string]int)
	for i := range table.Rows {
		inc := &table.Rows[i]
		if !inc.OccurredAt.Valid {
			continue
		}
		year := inc.OccurredAt.Time.Year()
		perCol, ok := counts[year]
		if !ok {
			perCol = make(map[string]int)
			counts[year] = perCol
		}
		for _, col := range inc.MissingFields() {
			perCol[col]++
		}
	}

	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Ints(years)

	result := make([]models.MissingCount, 0, len(years)*len(models.IncidentColumns))
	for _, y := range years {
		for _, col := range models.IncidentColumns {
			result = append(result, models.MissingCount{Year: y, Column: col, Count: counts[y][col]})
		}
	}
	return result
}
