package models

import (
	"database/sql"
	"sort"

	"github.com/paulmach/orb"
)

// Area represents one community area polygon
type Area struct {
	Number          int              `json:"area_number"`
	Name            string           `json:"community"`
	SecondaryNumber int              `json:"secondary_number"`
	Geometry        orb.MultiPolygon `json:"-"`

	ShapeAreaRaw string            `json:"shape_area_raw"` // locale formatted, e.g. "1.234.567,89"
	ShapeArea    float64           `json:"shape_area"`
	ShapeLength  sql.Null[float64] `json:"-"`

	AreaKm2     float64 `json:"area_km2"`     // shape area converted and rounded to 2 decimals
	GeodesicKm2 float64 `json:"geodesic_km2"` // measured on the sphere, diagnostic only
}

// AreaTable is an immutable set of areas keyed by area number
type AreaTable struct {
	Rows    []Area
	Version string

	byNumber map[int]int
}

// NewAreaTable sorts rows by area number and indexes them.
// Callers must ensure area numbers are unique.
func NewAreaTable(rows []Area) *AreaTable {
	sorted := make([]Area, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Number < sorted[j].Number
	})

	index := make(map[int]int, len(sorted))
	for i, a := range sorted {
		index[a.Number] = i
	}

	return &AreaTable{
		Rows:     sorted,
		Version:  FingerprintAreas(sorted),
		byNumber: index,
	}
}

// Lookup finds an area by number
func (t *AreaTable) Lookup(number int) (Area, bool) {
	i, ok := t.byNumber[number]
	if !ok {
		return Area{}, false
	}
	return t.Rows[i], true
}

// Len returns the number of areas
func (t *AreaTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
