package models

import "time"

// Granularity is a calendar grouping used by period counts
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// Granularities lists every supported granularity, finest first
var Granularities = []Granularity{
	GranularityDay,
	GranularityWeek,
	GranularityMonth,
	GranularityQuarter,
	GranularityYear,
}

// PeriodCount is the number of incidents starting in one period
type PeriodCount struct {
	PeriodStart time.Time `json:"period_start"`
	Count       int       `json:"count"`
}

// CategoryMonthCount is one row of the category ranking table
type CategoryMonthCount struct {
	Category   string `json:"category"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Count      int    `json:"count"`
	Cumulative int    `json:"cumulative"` // running total within the category
}

// CategoryRanking holds monthly counts with running totals per category,
// sorted by (category, year, month)
type CategoryRanking struct {
	Rows    []CategoryMonthCount `json:"rows"`
	Version string               `json:"version"`
}

// CategoryTotal is a category's year-end cumulative count
type CategoryTotal struct {
	Rank       int    `json:"rank"`
	Category   string `json:"category"`
	Cumulative int    `json:"cumulative"`
}

// TopCategoryList is the ranked category list for one year
type TopCategoryList struct {
	Year       int             `json:"year"`
	Categories []CategoryTotal `json:"categories"`
}

// Names returns the category labels in rank order
func (l TopCategoryList) Names() []string {
	names := make([]string, len(l.Categories))
	for i, c := range l.Categories {
		names[i] = c.Category
	}
	return names
}

// AreaYearDensity is the incident count and density of one area in one year
type AreaYearDensity struct {
	AreaNumber int     `json:"area_number"`
	Community  string  `json:"community"`
	Year       int     `json:"year"`
	Incidents  int     `json:"incidents"`
	AreaKm2    float64 `json:"area_km2"`
	PerKm2     *int64  `json:"per_km2"` // nil when the area measures zero km²
}

// DensityTable holds one row per (area, year), areas by number then years ascending
type DensityTable struct {
	Rows      []AreaYearDensity `json:"rows"`
	Years     []int             `json:"years"`
	Unmatched int               `json:"unmatched_incidents"` // incidents whose area is not in the polygon table
}

// DatasetSummary is the headline description of a cleaned dataset
type DatasetSummary struct {
	Incidents  int       `json:"incidents"`
	Categories int       `json:"categories"`
	Areas      int       `json:"areas"`
	FirstDate  time.Time `json:"first_date"`
	LastDate   time.Time `json:"last_date"`
	Years      []int     `json:"years"`
}

// TimeBucket is a fixed time-of-day range
type TimeBucket string

const (
	BucketMorning   TimeBucket = "Morning"
	BucketAfternoon TimeBucket = "Afternoon"
	BucketEvening   TimeBucket = "Evening"
	BucketNight     TimeBucket = "Night"
)

// TimeBuckets lists buckets in presentation order
var TimeBuckets = []TimeBucket{BucketMorning, BucketAfternoon, BucketEvening, BucketNight}

// BucketCategoryShare is a category's incident share within one bucket
type BucketCategoryShare struct {
	Bucket   TimeBucket `json:"bucket"`
	Category string     `json:"category"`
	Count    int        `json:"count"`
	Percent  float64    `json:"percent"` // of the category total across buckets
}

// BucketTotal is the incident count of one bucket across categories
type BucketTotal struct {
	Bucket TimeBucket `json:"bucket"`
	Count  int        `json:"count"`
}

// TimeOfDayDistribution holds per-category bucket shares and the bucket summary
type TimeOfDayDistribution struct {
	Rows    []BucketCategoryShare `json:"rows"`
	Summary []BucketTotal         `json:"summary"`
}

// MissingCount is the number of missing values of a column in one year
type MissingCount struct {
	Year   int    `json:"year"`
	Column string `json:"column"`
	Count  int    `json:"count"`
}
