package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// ParquetIncidentSource reads incidents from a parquet export through an
// in-memory DuckDB. Every column is cast to text so the CSV normalizer applies.
type ParquetIncidentSource struct {
	Path string
}

// Name returns the source description
func (s *ParquetIncidentSource) Name() string {
	return "parquet:" + s.Path
}

// ReadIncidents reads every incident row from the parquet file
func (s *ParquetIncidentSource) ReadIncidents(ctx context.Context) ([]models.RawIncident, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, parquetQuery(s.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to query parquet file: %w", err)
	}
	defer rows.Close()

	var incidents []models.RawIncident
	vals := make([]sql.NullString, len(models.IncidentColumns))
	dest := make([]any, len(vals))
	for i := range vals {
		dest[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan parquet row: %w", err)
		}
		incidents = append(incidents, models.RawIncident{
			ID:            vals[0].String,
			CaseNumber:    vals[1].String,
			Date:          vals[2].String,
			PrimaryType:   vals[3].String,
			Description:   vals[4].String,
			Beat:          vals[5].String,
			District:      vals[6].String,
			Ward:          vals[7].String,
			CommunityArea: vals[8].String,
			FBICode:       vals[9].String,
			IUCR:          vals[10].String,
			Latitude:      vals[11].String,
			Longitude:     vals[12].String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}

	return incidents, nil
}

// parquetQuery builds the projection of the required columns. NULL scans
// as an invalid NullString, which reads as "" and normalizes to missing.
func parquetQuery(path string) string {
	cols := make([]string, len(models.IncidentColumns))
	for i, c := range models.IncidentColumns {
		cols[i] = fmt.Sprintf("CAST(%s AS VARCHAR)", quoteIdent(c))
	}
	return fmt.Sprintf("SELECT %s FROM read_parquet(%s)", strings.Join(cols, ", "), quoteLiteral(path))
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
