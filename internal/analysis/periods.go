package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// PeriodStart returns the start of the period containing an incident
func PeriodStart(c models.Calendar, g models.Granularity) (time.Time, bool) {
	switch g {
	case models.GranularityDay:
		return c.Date, true
	case models.GranularityWeek:
		return c.WeekStart, true
	case models.GranularityMonth:
		return c.MonthStart, true
	case models.GranularityQuarter:
		return c.QuarterStart, true
	case models.GranularityYear:
		return time.Date(c.Year, time.January, 1, 0, 0, 0, 0, c.Date.Location()), true
	}
	return time.Time{}, false
}

// PeriodCounts counts incidents per period, sorted by period start.
// Periods without incidents are absent.
func PeriodCounts(table *models.IncidentTable, g models.Granularity) ([]models.PeriodCount, error) {
	if _, ok := PeriodStart(models.Calendar{}, g); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	if table.Len() == 0 {
		return []models.PeriodCount{}, nil
	}

	counts := make(map[time.Time]int)
	for i := range table.Rows {
		start, _ := PeriodStart(table.Rows[i].Calendar, g)
		counts[start]++
	}

	result := make([]models.PeriodCount, 0, len(counts))
	for start, n := range counts {
		result = append(result, models.PeriodCount{PeriodStart: start, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodStart.Before(result[j].PeriodStart)
	})
	return result, nil
}

// ParseGranularity validates a granularity name
func ParseGranularity(s string) (models.Granularity, error) {
	g := models.Granularity(s)
	if _, ok := PeriodStart(models.Calendar{}, g); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
	return g, nil
}
