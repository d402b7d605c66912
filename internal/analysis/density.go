package analysis

import (
	"math"
	"sort"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/stats"
)

type areaYear struct {
	area int
	year int
}

// AreaYearDensity counts incidents per area and year and divides by the
// area's km². Every polygon area gets a row for every year in the incident
// data, with zero counts filled in. Incidents in areas missing from the
// polygon table are skipped and reported as Unmatched.
func AreaYearDensity(table *models.IncidentTable, areas *models.AreaTable) (*models.DensityTable, error) {
	if areas == nil {
		return nil, ErrAreasRequired
	}

	result := &models.DensityTable{Rows: []models.AreaYearDensity{}, Years: Years(table)}
	counts := make(map[areaYear]int)
	if table != nil {
		for i := range table.Rows {
			inc := &table.Rows[i]
			if _, ok := areas.Lookup(inc.CommunityArea.V); !ok {
				result.Unmatched++
				continue
			}
			counts[areaYear{inc.CommunityArea.V, inc.Calendar.Year}]++
		}
	}

	for _, area := range areas.Rows {
		for _, year := range result.Years {
			n := counts[areaYear{area.Number, year}]
			result.Rows = append(result.Rows, models.AreaYearDensity{
				AreaNumber: area.Number,
				Community:  area.Name,
				Year:       year,
				Incidents:  n,
				AreaKm2:    area.AreaKm2,
				PerKm2:     perKm2(n, area.AreaKm2),
			})
		}
	}
	return result, nil
}

// perKm2 is nil when the area has no measurable size
func perKm2(count int, km2 float64) *int64 {
	v, ok := stats.SafeDivide(float64(count), km2)
	if !ok {
		return nil
	}
	d := int64(math.RoundToEven(v))
	return &d
}

// Years returns the distinct incident years, ascending
func Years(table *models.IncidentTable) []int {
	if table.Len() == 0 {
		return []int{}
	}
	seen := make(map[int]bool)
	for i := range table.Rows {
		seen[table.Rows[i].Calendar.Year] = true
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// DensityForYear filters a density table to one year
func DensityForYear(density *models.DensityTable, year int) []models.AreaYearDensity {
	if density == nil {
		return nil
	}
	var rows []models.AreaYearDensity
	for _, r := range density.Rows {
		if r.Year == year {
			rows = append(rows, r)
		}
	}
	return rows
}
