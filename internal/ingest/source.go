package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// ErrMissingColumn is returned when a required incident column is absent
var ErrMissingColumn = errors.New("required column missing")

// IncidentSource reads the raw incident table
type IncidentSource interface {
	Name() string
	ReadIncidents(ctx context.Context) ([]models.RawIncident, error)
}

// AreaSource reads and validates the community area polygon table
type AreaSource interface {
	Name() string
	ReadAreas(ctx context.Context) (*models.AreaTable, error)
}

// Incident source formats
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// NewIncidentSource returns the incident source reading path in format
func NewIncidentSource(format, path string) (IncidentSource, error) {
	switch format {
	case FormatCSV:
		return &CSVIncidentSource{Path: path}, nil
	case FormatParquet:
		return &ParquetIncidentSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("unknown incident format %q", format)
	}
}

// ctxCheckEvery is how many rows are read between cancellation checks
const ctxCheckEvery = 10000

// CSVIncidentSource reads incidents from a CSV export with a header row
type CSVIncidentSource struct {
	Path string
}

// Name returns the source description
func (s *CSVIncidentSource) Name() string {
	return "csv:" + s.Path
}

// ReadIncidents reads every incident row from the file
func (s *CSVIncidentSource) ReadIncidents(ctx context.Context) ([]models.RawIncident, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open incidents file: %w", err)
	}
	defer f.Close()

	return ReadIncidentsCSV(ctx, f)
}

// ReadIncidentsCSV reads incidents from CSV. Columns are matched by header
// name; extra columns are ignored, missing required columns are an error.
func ReadIncidentsCSV(ctx context.Context, r io.Reader) ([]models.RawIncident, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))] = i
	}
	pos := make([]int, len(models.IncidentColumns))
	for i, col := range models.IncidentColumns {
		p, ok := index[col]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
		pos[i] = p
	}

	var incidents []models.RawIncident
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		field := func(i int) string {
			if pos[i] < len(record) {
				return record[pos[i]]
			}
			return ""
		}
		incidents = append(incidents, models.RawIncident{
			ID:            field(0),
			CaseNumber:    field(1),
			Date:          field(2),
			PrimaryType:   field(3),
			Description:   field(4),
			Beat:          field(5),
			District:      field(6),
			Ward:          field(7),
			CommunityArea: field(8),
			FBICode:       field(9),
			IUCR:          field(10),
			Latitude:      field(11),
			Longitude:     field(12),
		})
	}

	return incidents, nil
}

// CSVAreaSource reads the community area polygon table from CSV
type CSVAreaSource struct {
	Path   string
	Schema PolygonSchema
}

// Name returns the source description
func (s *CSVAreaSource) Name() string {
	return "csv:" + s.Path
}

// ReadAreas reads and validates every polygon row
func (s *CSVAreaSource) ReadAreas(ctx context.Context) (*models.AreaTable, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open areas file: %w", err)
	}
	defer f.Close()

	return ReadAreasCSV(ctx, f, s.Schema)
}

// ReadAreasCSV reads polygon rows from CSV and normalizes them
func ReadAreasCSV(ctx context.Context, r io.Reader, schema PolygonSchema) (*models.AreaTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read areas CSV: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NormalizeAreas(rows, schema)
}
