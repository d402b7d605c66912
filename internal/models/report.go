package models

import "time"

// NormalizeReport describes what ingestion could not type-convert
type NormalizeReport struct {
	RowsRead          int `json:"rows_read"`
	InvalidTimestamps int `json:"invalid_timestamps"` // non-blank but unparseable
	InvalidNumbers    int `json:"invalid_numbers"`    // ID, area or coordinates that failed to parse
}

// CleanReport describes the rows removed by cleaning
type CleanReport struct {
	InputRows           int            `json:"input_rows"`
	DroppedMissing      int            `json:"dropped_missing"`
	MissingByField      map[string]int `json:"missing_by_field"`
	DroppedSentinelYear int            `json:"dropped_sentinel_year"`
	DroppedDuplicates   int            `json:"dropped_duplicates"`
	OutputRows          int            `json:"output_rows"`
}

// DatasetSnapshot records one load of the dataset
type DatasetSnapshot struct {
	ID          int64           `json:"id" db:"id"`
	Version     string          `json:"version" db:"version"`           // cleaned incident table version
	RawVersion  string          `json:"raw_version" db:"raw_version"`   // normalized incident table version
	AreaVersion string          `json:"area_version" db:"area_version"` // polygon table version
	Source      string          `json:"source" db:"source"`
	Areas       int             `json:"areas" db:"areas"`
	Normalize   NormalizeReport `json:"normalize"`
	Clean       CleanReport     `json:"clean"`
	LoadedAt    time.Time       `json:"loaded_at" db:"loaded_at"`
}

// SnapshotDetail is a stored snapshot with the aggregates saved alongside it
type SnapshotDetail struct {
	Snapshot DatasetSnapshot               `json:"snapshot"`
	Periods  map[Granularity][]PeriodCount `json:"periods"`
	Density  []AreaYearDensity             `json:"density"`
}

// ColumnInfo describes one column of the normalized incident table
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IncidentView is the JSON shape of an incident for previews
type IncidentView struct {
	ID            int64     `json:"id"`
	CaseNumber    string    `json:"case_number"`
	OccurredAt    time.Time `json:"occurred_at"`
	PrimaryType   string    `json:"primary_type"`
	Description   string    `json:"description"`
	Beat          string    `json:"beat"`
	District      string    `json:"district"`
	Ward          string    `json:"ward"`
	CommunityArea int       `json:"community_area"`
	FBICode       string    `json:"fbi_code"`
	IUCR          string    `json:"iucr"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
}

// View converts a complete incident to its JSON shape
func (t *IncidentTable) View(i *Incident) IncidentView {
	s := t.Symbols
	return IncidentView{
		ID:            i.ID.V,
		CaseNumber:    i.CaseNumber,
		OccurredAt:    i.OccurredAt.Time,
		PrimaryType:   s.String(i.PrimaryType),
		Description:   s.String(i.Description),
		Beat:          s.String(i.Beat),
		District:      s.String(i.District),
		Ward:          s.String(i.Ward),
		CommunityArea: i.CommunityArea.V,
		FBICode:       s.String(i.FBICode),
		IUCR:          s.String(i.IUCR),
		Latitude:      i.Latitude.V,
		Longitude:     i.Longitude.V,
	}
}
