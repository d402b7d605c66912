// Package presentation reshapes aggregate tables for the dashboard charts.
// Adapters only rename and restructure; they never change values.
package presentation

import (
	"fmt"
	"time"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// BucketLabels are the display names of the time-of-day buckets
var BucketLabels = map[models.TimeBucket]string{
	models.BucketMorning:   "Morning (05:00-11:59)",
	models.BucketAfternoon: "Afternoon (12:00-16:59)",
	models.BucketEvening:   "Evening (17:00-20:59)",
	models.BucketNight:     "Night (21:00-04:59)",
}

// LabeledShare is a bucket share with a display label
type LabeledShare struct {
	Bucket   string  `json:"bucket"`
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// LabeledTotal is a bucket total with a display label
type LabeledTotal struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// LabeledDistribution is a time-of-day distribution ready for charting
type LabeledDistribution struct {
	Order   []string       `json:"order"`
	Rows    []LabeledShare `json:"rows"`
	Summary []LabeledTotal `json:"summary"`
}

// LabelBuckets replaces bucket codes with their display labels
func LabelBuckets(dist *models.TimeOfDayDistribution) LabeledDistribution {
	out := LabeledDistribution{
		Order:   make([]string, len(models.TimeBuckets)),
		Rows:    []LabeledShare{},
		Summary: []LabeledTotal{},
	}
	for i, b := range models.TimeBuckets {
		out.Order[i] = BucketLabels[b]
	}
	if dist == nil {
		return out
	}

	for _, r := range dist.Rows {
		out.Rows = append(out.Rows, LabeledShare{
			Bucket:   BucketLabels[r.Bucket],
			Category: r.Category,
			Count:    r.Count,
			Percent:  r.Percent,
		})
	}
	for _, s := range dist.Summary {
		out.Summary = append(out.Summary, LabeledTotal{Bucket: BucketLabels[s.Bucket], Count: s.Count})
	}
	return out
}

// Point is one (x, y) sample of a line series
type Point struct {
	X time.Time `json:"x"`
	Y int       `json:"y"`
}

// Series is one named line of a chart
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Toggle is a chart button that shows one set of series
type Toggle struct {
	Label   string `json:"label"`
	Visible []bool `json:"visible"`
}

// TimeSeries is a multi-granularity chart where one series is visible at a time
type TimeSeries struct {
	Series  []Series `json:"series"`
	Buttons []Toggle `json:"buttons"`
}

var granularityLabels = map[models.Granularity]string{
	models.GranularityDay:     "Daily",
	models.GranularityWeek:    "Weekly",
	models.GranularityMonth:   "Monthly",
	models.GranularityQuarter: "Quarterly",
	models.GranularityYear:    "Yearly",
}

// TimeSeriesChart builds one series per granularity present in counts, in
// the fixed granularity order, plus a toggle button per series whose mask
// shows only that series
func TimeSeriesChart(counts map[models.Granularity][]models.PeriodCount) TimeSeries {
	chart := TimeSeries{Series: []Series{}, Buttons: []Toggle{}}
	for _, g := range models.Granularities {
		rows, ok := counts[g]
		if !ok {
			continue
		}
		points := make([]Point, len(rows))
		for i, r := range rows {
			points[i] = Point{X: r.PeriodStart, Y: r.Count}
		}
		chart.Series = append(chart.Series, Series{Name: granularityLabels[g], Points: points})
	}

	for i, s := range chart.Series {
		mask := make([]bool, len(chart.Series))
		mask[i] = true
		chart.Buttons = append(chart.Buttons, Toggle{Label: s.Name, Visible: mask})
	}
	return chart
}

// RankingPoint is one month of a category's cumulative count
type RankingPoint struct {
	Period     string `json:"period"` // YYYY-MM
	Count      int    `json:"count"`
	Cumulative int    `json:"cumulative"`
}

// RankingLine is the cumulative count line of one category
type RankingLine struct {
	Category string         `json:"category"`
	Points   []RankingPoint `json:"points"`
}

// RankingSeries splits the ranking into one line per category, in the
// order given. Categories without rows produce an empty line.
func RankingSeries(ranking *models.CategoryRanking, categories []string) []RankingLine {
	lines := make([]RankingLine, len(categories))
	index := make(map[string]int, len(categories))
	for i, c := range categories {
		lines[i] = RankingLine{Category: c, Points: []RankingPoint{}}
		index[c] = i
	}
	if ranking == nil {
		return lines
	}

	for _, r := range ranking.Rows {
		i, ok := index[r.Category]
		if !ok {
			continue
		}
		lines[i].Points = append(lines[i].Points, RankingPoint{
			Period:     fmt.Sprintf("%04d-%02d", r.Year, r.Month),
			Count:      r.Count,
			Cumulative: r.Cumulative,
		})
	}
	return lines
}

// ColumnOverview describes the columns of the cleaned incident table
func ColumnOverview() []models.ColumnInfo {
	return []models.ColumnInfo{
		{Name: models.ColID, Type: "int64"},
		{Name: models.ColCaseNumber, Type: "string"},
		{Name: models.ColDate, Type: "datetime"},
		{Name: models.ColPrimaryType, Type: "category"},
		{Name: models.ColDescription, Type: "category"},
		{Name: models.ColBeat, Type: "category"},
		{Name: models.ColDistrict, Type: "category"},
		{Name: models.ColWard, Type: "category"},
		{Name: models.ColCommunityArea, Type: "int"},
		{Name: models.ColFBICode, Type: "category"},
		{Name: models.ColIUCR, Type: "category"},
		{Name: models.ColLatitude, Type: "float64"},
		{Name: models.ColLongitude, Type: "float64"},
	}
}

// Heatmap is a year by column matrix of missing value counts
type Heatmap struct {
	Years   []int    `json:"years"`
	Columns []string `json:"columns"`
	Values  [][]int  `json:"values"` // Values[year index][column index]
}

// MissingHeatmap pivots missing counts into a matrix
func MissingHeatmap(counts []models.MissingCount) Heatmap {
	h := Heatmap{Years: []int{}, Columns: models.IncidentColumns, Values: [][]int{}}
	col := make(map[string]int, len(models.IncidentColumns))
	for i, c := range models.IncidentColumns {
		col[c] = i
	}

	row := make(map[int]int)
	for _, c := range counts {
		r, ok := row[c.Year]
		if !ok {
			r = len(h.Years)
			row[c.Year] = r
			h.Years = append(h.Years, c.Year)
			h.Values = append(h.Values, make([]int, len(h.Columns)))
		}
		if j, ok := col[c.Column]; ok {
			h.Values[r][j] = c.Count
		}
	}
	return h
}
