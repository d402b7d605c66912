package models

import (
	"database/sql"
	"time"
)

// Incident table column names as they appear in the source export
const (
	ColID            = "ID"
	ColCaseNumber    = "Case Number"
	ColDate          = "Date"
	ColPrimaryType   = "Primary Type"
	ColDescription   = "Description"
	ColBeat          = "Beat"
	ColDistrict      = "District"
	ColWard          = "Ward"
	ColCommunityArea = "Community Area"
	ColFBICode       = "FBI Code"
	ColIUCR          = "IUCR"
	ColLatitude      = "Latitude"
	ColLongitude     = "Longitude"
)

// IncidentColumns lists the required incident columns in export order
var IncidentColumns = []string{
	ColID,
	ColCaseNumber,
	ColDate,
	ColPrimaryType,
	ColDescription,
	ColBeat,
	ColDistrict,
	ColWard,
	ColCommunityArea,
	ColFBICode,
	ColIUCR,
	ColLatitude,
	ColLongitude,
}

// RawIncident is one incident row exactly as read from a source.
// Empty strings stand for missing values.
type RawIncident struct {
	ID            string
	CaseNumber    string
	Date          string
	PrimaryType   string
	Description   string
	Beat          string
	District      string
	Ward          string
	CommunityArea string
	FBICode       string
	IUCR          string
	Latitude      string
	Longitude     string
}

// Incident represents one normalized crime report
type Incident struct {
	ID         sql.Null[int64]
	CaseNumber string
	OccurredAt sql.NullTime

	// Category-typed columns
	PrimaryType Symbol
	Description Symbol
	Beat        Symbol
	District    Symbol
	Ward        Symbol
	FBICode     Symbol
	IUCR        Symbol

	CommunityArea sql.Null[int]
	Latitude      sql.Null[float64]
	Longitude     sql.Null[float64]

	// Calendar fields derived from OccurredAt; zero when OccurredAt is null
	Calendar Calendar
}

// MissingFields returns the names of required columns that have no value
func (i *Incident) MissingFields() []string {
	var missing []string
	if !i.ID.Valid {
		missing = append(missing, ColID)
	}
	if i.CaseNumber == "" {
		missing = append(missing, ColCaseNumber)
	}
	if !i.OccurredAt.Valid {
		missing = append(missing, ColDate)
	}
	symbols := []struct {
		col string
		sym Symbol
	}{
		{ColPrimaryType, i.PrimaryType},
		{ColDescription, i.Description},
		{ColBeat, i.Beat},
		{ColDistrict, i.District},
		{ColWard, i.Ward},
		{ColFBICode, i.FBICode},
		{ColIUCR, i.IUCR},
	}
	for _, s := range symbols {
		if s.sym == NoSymbol {
			missing = append(missing, s.col)
		}
	}
	if !i.CommunityArea.Valid {
		missing = append(missing, ColCommunityArea)
	}
	if !i.Latitude.Valid {
		missing = append(missing, ColLatitude)
	}
	if !i.Longitude.Valid {
		missing = append(missing, ColLongitude)
	}
	return missing
}

// Complete reports whether every required column has a value
func (i *Incident) Complete() bool {
	return len(i.MissingFields()) == 0
}

// Calendar holds the calendar fields derived from an incident timestamp
type Calendar struct {
	Date         time.Time     // midnight of the occurrence day
	TimeOfDay    time.Duration // offset from midnight
	WeekStart    time.Time     // Monday of the ISO week
	MonthStart   time.Time
	QuarterStart time.Time
	Year         int
	Month        time.Month
	Hour         int
}

// DeriveCalendar computes every calendar field from a wall-clock timestamp
func DeriveCalendar(t time.Time) Calendar {
	y, m, d := t.Date()
	loc := t.Location()
	date := time.Date(y, m, d, 0, 0, 0, 0, loc)

	// time.Weekday starts at Sunday; shift so Monday is day 0
	offset := (int(date.Weekday()) + 6) % 7
	quarterMonth := time.Month((int(m)-1)/3*3 + 1)

	return Calendar{
		Date:         date,
		TimeOfDay:    t.Sub(date),
		WeekStart:    date.AddDate(0, 0, -offset),
		MonthStart:   time.Date(y, m, 1, 0, 0, 0, 0, loc),
		QuarterStart: time.Date(y, quarterMonth, 1, 0, 0, 0, 0, loc),
		Year:         y,
		Month:        m,
		Hour:         t.Hour(),
	}
}

// IncidentTable is an immutable, versioned set of incidents.
// Stages never modify a table in place; they build a new one with Derive.
type IncidentTable struct {
	Rows    []Incident
	Symbols *Symbols
	Version string
}

// NewIncidentTable builds a table and stamps it with a content version
func NewIncidentTable(rows []Incident, symbols *Symbols) *IncidentTable {
	return &IncidentTable{
		Rows:    rows,
		Symbols: symbols,
		Version: FingerprintIncidents(rows, symbols),
	}
}

// Derive builds a new table over rows that shares this table's symbols
func (t *IncidentTable) Derive(rows []Incident) *IncidentTable {
	return NewIncidentTable(rows, t.Symbols)
}

// Len returns the number of rows
func (t *IncidentTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Category returns the primary type label of an incident
func (t *IncidentTable) Category(i *Incident) string {
	return t.Symbols.String(i.PrimaryType)
}
