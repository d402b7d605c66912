package ingest

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/spatial"
	"github.com/jengzang/crime-eda-backend-go/internal/stats"
)

// SquareDegreesToKm2 converts the shape-area measure of the polygon export to km²
const SquareDegreesToKm2 = 9.2903e-8

// Polygon table columns, in order, after the optional leading index column
const (
	AreaColGeometry = iota
	AreaColNumber
	AreaColName
	AreaColSecondaryNumber
	AreaColShapeArea
	AreaColShapeLength

	areaColumnCount
)

// AreaColumns names the polygon table columns in schema order
var AreaColumns = []string{"the_geom", "AREA_NUMBE", "COMMUNITY", "AREA_NUM_1", "SHAPE_AREA", "SHAPE_LEN"}

// areaColumnAliases lists other accepted header names per column
var areaColumnAliases = map[int][]string{
	AreaColGeometry: {"geometry", "wkt"},
	AreaColNumber:   {"area_number", "area_numbe"},
	AreaColName:     {"community_name", "name"},
}

var (
	ErrSchemaMismatch  = errors.New("polygon table does not match schema")
	ErrInvalidGeometry = errors.New("invalid area geometry")
	ErrDuplicateArea   = errors.New("duplicate area number")
	ErrInvalidDecimal  = errors.New("invalid locale decimal")
)

// PolygonSchema describes the physical layout of a polygon table
type PolygonSchema struct {
	HasHeader         bool // first row holds column names
	DropLeadingColumn bool // every row starts with an index column to discard
}

// ParseShapeArea converts a locale-formatted decimal ("1.234.567,89") to a float:
// dots are thousands separators, the comma is the decimal separator
func ParseShapeArea(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidDecimal)
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDecimal, raw)
	}
	return v, nil
}

// AreaKm2 converts a normalized shape area to km², rounded to 2 decimals
func AreaKm2(shapeArea float64) float64 {
	return stats.RoundTo(shapeArea*SquareDegreesToKm2, 2)
}

// ParseGeometry parses a WKT polygon or multipolygon
func ParseGeometry(s string) (orb.MultiPolygon, error) {
	g, err := wkt.Unmarshal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	var mp orb.MultiPolygon
	switch v := g.(type) {
	case orb.MultiPolygon:
		mp = v
	case orb.Polygon:
		mp = orb.MultiPolygon{v}
	default:
		return nil, fmt.Errorf("%w: expected polygon, got %s", ErrInvalidGeometry, g.GeoJSONType())
	}

	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", ErrInvalidGeometry)
	}
	for _, poly := range mp {
		if len(poly) == 0 {
			return nil, fmt.Errorf("%w: polygon without rings", ErrInvalidGeometry)
		}
		for _, ring := range poly {
			if len(ring) < 4 {
				return nil, fmt.Errorf("%w: ring with fewer than 4 points", ErrInvalidGeometry)
			}
		}
	}
	return mp, nil
}

// NormalizeAreas validates rows against the polygon schema and builds the
// area table. Any violation aborts ingestion; there is no partial result.
func NormalizeAreas(rows [][]string, schema PolygonSchema) (*models.AreaTable, error) {
	start := 0
	if schema.HasHeader {
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: missing header row", ErrSchemaMismatch)
		}
		if err := checkAreaHeader(trimLeading(rows[0], schema)); err != nil {
			return nil, err
		}
		start = 1
	}

	areas := make([]models.Area, 0, len(rows)-start)
	seen := make(map[int]int)

	for i := start; i < len(rows); i++ {
		line := i + 1
		cols := trimLeading(rows[i], schema)
		if len(cols) != areaColumnCount {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrSchemaMismatch, line, len(cols), areaColumnCount)
		}

		area, err := normalizeArea(cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if prev, dup := seen[area.Number]; dup {
			return nil, fmt.Errorf("row %d: %w %d (first seen on row %d)", line, ErrDuplicateArea, area.Number, prev)
		}
		seen[area.Number] = line
		areas = append(areas, area)
	}

	return models.NewAreaTable(areas), nil
}

func normalizeArea(cols []string) (models.Area, error) {
	number, err := strconv.Atoi(strings.TrimSpace(cols[AreaColNumber]))
	if err != nil {
		return models.Area{}, fmt.Errorf("%w: area number %q", ErrSchemaMismatch, cols[AreaColNumber])
	}

	geometry, err := ParseGeometry(cols[AreaColGeometry])
	if err != nil {
		return models.Area{}, fmt.Errorf("area %d: %w", number, err)
	}

	shapeArea, err := ParseShapeArea(cols[AreaColShapeArea])
	if err != nil {
		return models.Area{}, fmt.Errorf("area %d: %w", number, err)
	}

	// Secondary number and shape length are informational only
	secondary, _ := strconv.Atoi(strings.TrimSpace(cols[AreaColSecondaryNumber]))
	var length sql.Null[float64]
	if v, err := ParseShapeArea(cols[AreaColShapeLength]); err == nil {
		length = sql.Null[float64]{V: v, Valid: true}
	}

	return models.Area{
		Number:          number,
		Name:            strings.TrimSpace(cols[AreaColName]),
		SecondaryNumber: secondary,
		Geometry:        geometry,
		ShapeAreaRaw:    strings.TrimSpace(cols[AreaColShapeArea]),
		ShapeArea:       shapeArea,
		ShapeLength:     length,
		AreaKm2:         AreaKm2(shapeArea),
		GeodesicKm2:     stats.RoundTo(spatial.GeodesicAreaKm2(geometry), 2),
	}, nil
}

func trimLeading(row []string, schema PolygonSchema) []string {
	if schema.DropLeadingColumn && len(row) > 0 {
		return row[1:]
	}
	return row
}

func checkAreaHeader(header []string) error {
	if len(header) != areaColumnCount {
		return fmt.Errorf("%w: header has %d columns, want %d", ErrSchemaMismatch, len(header), areaColumnCount)
	}
	for i, want := range AreaColumns {
		if !headerMatches(header[i], append([]string{want}, areaColumnAliases[i]...)) {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrSchemaMismatch, i, header[i], want)
		}
	}
	return nil
}

func headerMatches(got string, names []string) bool {
	got = strings.TrimSpace(got)
	for _, n := range names {
		if strings.EqualFold(got, n) {
			return true
		}
	}
	return false
}
