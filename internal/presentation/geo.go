package presentation

import (
	"github.com/paulmach/orb/geojson"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/spatial"
	"github.com/jengzang/crime-eda-backend-go/internal/stats"
)

// ChoroplethClasses is the number of legend classes on the area map
const ChoroplethClasses = 5

// AreaMap is a choropleth of incident density for one year
type AreaMap struct {
	Year     int                        `json:"year"`
	Breaks   []float64                  `json:"breaks"` // inner class boundaries of per_km2
	Features *geojson.FeatureCollection `json:"features"`
}

// AreaFeatureCollection joins one year of density rows onto the area
// polygons. Every area becomes a feature; areas without a density row get
// null incident properties.
func AreaFeatureCollection(areas *models.AreaTable, density []models.AreaYearDensity, year int) AreaMap {
	byArea := make(map[int]models.AreaYearDensity, len(density))
	var values []float64
	for _, d := range density {
		if d.Year != year {
			continue
		}
		byArea[d.AreaNumber] = d
		if d.PerKm2 != nil {
			values = append(values, float64(*d.PerKm2))
		}
	}

	m := AreaMap{
		Year:     year,
		Breaks:   stats.ClassBreaks(values, ChoroplethClasses),
		Features: geojson.NewFeatureCollection(),
	}
	if m.Breaks == nil {
		m.Breaks = []float64{}
	}
	if areas == nil {
		return m
	}

	for _, a := range areas.Rows {
		f := geojson.NewFeature(a.Geometry)
		f.ID = a.Number
		label := spatial.LabelPoint(a.Geometry)
		f.Properties = geojson.Properties{
			"area_number": a.Number,
			"community":   a.Name,
			"area_km2":    a.AreaKm2,
			"label_lon":   label.Lon(),
			"label_lat":   label.Lat(),
			"incidents":   nil,
			"per_km2":     nil,
			"class":       nil,
		}
		if d, ok := byArea[a.Number]; ok {
			f.Properties["incidents"] = d.Incidents
			if d.PerKm2 != nil {
				f.Properties["per_km2"] = *d.PerKm2
				f.Properties["class"] = classOf(float64(*d.PerKm2), m.Breaks)
			}
		}
		m.Features.Append(f)
	}
	return m
}

// classOf returns the legend class of v given ascending inner breaks
func classOf(v float64, breaks []float64) int {
	for i, b := range breaks {
		if v <= b {
			return i
		}
	}
	return len(breaks)
}
