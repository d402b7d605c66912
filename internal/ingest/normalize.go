// Package ingest reads the raw incident and community area tables and
// converts them into typed, normalized tables.
package ingest

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// TimestampLayout is the export format of the incident Date column
const TimestampLayout = "01/02/2006 03:04:05 PM"

// ParseTimestamp parses an incident timestamp as naive wall-clock time.
// Unparseable input yields a null value instead of an error.
func ParseTimestamp(s string) sql.NullTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullTime{}
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// NormalizeIncidents converts raw rows into a typed incident table.
// Bad values become missing markers; cleaning removes those rows later.
func NormalizeIncidents(raw []models.RawIncident) (*models.IncidentTable, models.NormalizeReport) {
	symbols := models.NewSymbols()
	rows := make([]models.Incident, 0, len(raw))
	report := models.NormalizeReport{RowsRead: len(raw)}

	for _, r := range raw {
		inc := models.Incident{
			CaseNumber:  strings.TrimSpace(r.CaseNumber),
			OccurredAt:  ParseTimestamp(r.Date),
			PrimaryType: symbols.Intern(r.PrimaryType),
			Description: symbols.Intern(r.Description),
			Beat:        symbols.Intern(r.Beat),
			District:    symbols.Intern(r.District),
			Ward:        symbols.Intern(r.Ward),
			FBICode:     symbols.Intern(r.FBICode),
			IUCR:        symbols.Intern(r.IUCR),
		}

		if !inc.OccurredAt.Valid && strings.TrimSpace(r.Date) != "" {
			report.InvalidTimestamps++
		}
		if inc.OccurredAt.Valid {
			inc.Calendar = models.DeriveCalendar(inc.OccurredAt.Time)
		}

		var ok bool
		if inc.ID, ok = parseInt64(r.ID); !ok {
			report.InvalidNumbers++
		}
		if inc.CommunityArea, ok = parseIntegral(r.CommunityArea); !ok {
			report.InvalidNumbers++
		}
		if inc.Latitude, ok = parseFloat(r.Latitude); !ok {
			report.InvalidNumbers++
		}
		if inc.Longitude, ok = parseFloat(r.Longitude); !ok {
			report.InvalidNumbers++
		}

		rows = append(rows, inc)
	}

	return models.NewIncidentTable(rows, symbols), report
}

// parseInt64 parses an optional integer. ok is false only when a non-blank
// value fails to parse.
func parseInt64(s string) (sql.Null[int64], bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.Null[int64]{}, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return sql.Null[int64]{}, false
	}
	return sql.Null[int64]{V: v, Valid: true}, true
}

// parseIntegral accepts integers and integral floats such as "35.0", which
// is how exports with missing values encode integer columns
func parseIntegral(s string) (sql.Null[int], bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.Null[int]{}, true
	}
	if v, err := strconv.Atoi(s); err == nil {
		return sql.Null[int]{V: v, Valid: true}, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		// NaN fails the comparison too; it is a missing marker, not bad input
		return sql.Null[int]{}, err == nil && math.IsNaN(f)
	}
	return sql.Null[int]{V: int(f), Valid: true}, true
}

func parseFloat(s string) (sql.Null[float64], bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.Null[float64]{}, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.Null[float64]{}, false
	}
	if math.IsNaN(f) {
		return sql.Null[float64]{}, true
	}
	return sql.Null[float64]{V: f, Valid: true}, true
}
