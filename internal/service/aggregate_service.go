package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/crime-eda-backend-go/internal/analysis"
	"github.com/jengzang/crime-eda-backend-go/internal/ingest"
	"github.com/jengzang/crime-eda-backend-go/internal/memo"
	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/presentation"
)

// ErrInvalidFilter is returned for malformed query parameters
var ErrInvalidFilter = errors.New("invalid filter")

const (
	defaultPreviewLimit = 50
	maxPreviewLimit     = 1000
	dateLayout          = "2006-01-02"
)

// AggregateService serves memoized derivations of the current dataset
type AggregateService struct {
	datasets *DatasetService
	memo     *memo.Memo
}

// NewAggregateService creates a new aggregate service
func NewAggregateService(datasets *DatasetService, m *memo.Memo) *AggregateService {
	return &AggregateService{datasets: datasets, memo: m}
}

// Derive runs a registered derivation over the current dataset, memoized
// by derivation name and dataset version
func (s *AggregateService) Derive(name string) (any, error) {
	ds, err := s.datasets.Current()
	if err != nil {
		return nil, err
	}
	return s.derive(ds, name)
}

func (s *AggregateService) derive(ds *Dataset, name string) (any, error) {
	d, ok := analysis.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", analysis.ErrUnknownDerivation, name)
	}
	in := ds.Inputs()
	return s.memo.Get(name, in.Version(), func() (any, error) {
		return d(in)
	})
}

// Derivations lists the registered derivation names
func (s *AggregateService) Derivations() []string {
	return analysis.Names()
}

// Summary describes the current dataset
func (s *AggregateService) Summary() (models.DatasetSummary, error) {
	v, err := s.Derive(analysis.DerivationSummary)
	if err != nil {
		return models.DatasetSummary{}, err
	}
	return v.(models.DatasetSummary), nil
}

// PeriodCounts returns incident counts per period, optionally limited to a date range
func (s *AggregateService) PeriodCounts(filter models.PeriodFilter) ([]models.PeriodCount, error) {
	g := models.GranularityMonth
	if filter.Granularity != "" {
		parsed, err := analysis.ParseGranularity(filter.Granularity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		g = parsed
	}
	from, to, err := parseRange(filter.From, filter.To)
	if err != nil {
		return nil, err
	}

	if from.IsZero() && to.IsZero() {
		v, err := s.Derive(analysis.PeriodDerivation(g))
		if err != nil {
			return nil, err
		}
		return v.([]models.PeriodCount), nil
	}

	ds, err := s.datasets.Current()
	if err != nil {
		return nil, err
	}
	return analysis.PeriodCounts(analysis.FilterDateRange(ds.Incidents, from, to), g)
}

// TimeSeries returns the multi-granularity chart of the current dataset
func (s *AggregateService) TimeSeries() (presentation.TimeSeries, error) {
	counts := make(map[models.Granularity][]models.PeriodCount, len(models.Granularities))
	for _, g := range models.Granularities {
		v, err := s.Derive(analysis.PeriodDerivation(g))
		if err != nil {
			return presentation.TimeSeries{}, err
		}
		counts[g] = v.([]models.PeriodCount)
	}
	return presentation.TimeSeriesChart(counts), nil
}

// CategoryRanking returns the ranking table, optionally narrowed to one
// category and one year
func (s *AggregateService) CategoryRanking(filter models.RankingFilter) ([]models.CategoryMonthCount, error) {
	ranking, err := s.ranking()
	if err != nil {
		return nil, err
	}
	rows := []models.CategoryMonthCount{}
	for _, r := range ranking.Rows {
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		if filter.Year > 0 && r.Year != filter.Year {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// TopCategories ranks categories for a year; year 0 means the most recent year
func (s *AggregateService) TopCategories(filter models.RankingFilter) (models.TopCategoryList, error) {
	if filter.Year == 0 && (filter.Limit == 0 || filter.Limit == analysis.DefaultTopN) {
		v, err := s.Derive(analysis.DerivationTopCategories)
		if err != nil {
			return models.TopCategoryList{}, err
		}
		return v.(models.TopCategoryList), nil
	}

	ranking, err := s.ranking()
	if err != nil {
		return models.TopCategoryList{}, err
	}
	year := filter.Year
	if year == 0 {
		latest, ok := analysis.LatestYear(ranking)
		if !ok {
			return models.TopCategoryList{}, fmt.Errorf("%w: ranking is empty", analysis.ErrIncompleteYear)
		}
		year = latest
	}
	return analysis.TopCategories(ranking, year, filter.Limit)
}

// RankingSeries returns the cumulative count lines of the current top categories
func (s *AggregateService) RankingSeries() ([]presentation.RankingLine, error) {
	ranking, err := s.ranking()
	if err != nil {
		return nil, err
	}
	top, err := s.TopCategories(models.RankingFilter{})
	if err != nil {
		return nil, err
	}
	return presentation.RankingSeries(ranking, top.Names()), nil
}

func (s *AggregateService) ranking() (*models.CategoryRanking, error) {
	v, err := s.Derive(analysis.DerivationCategoryRanking)
	if err != nil {
		return nil, err
	}
	return v.(*models.CategoryRanking), nil
}

// Density returns area-year density rows, optionally for one year or area
func (s *AggregateService) Density(filter models.DensityFilter) (*models.DensityTable, error) {
	density, err := s.density()
	if err != nil {
		return nil, err
	}
	if filter.Year == 0 && filter.AreaNumber == 0 {
		return density, nil
	}

	out := &models.DensityTable{Rows: []models.AreaYearDensity{}, Years: density.Years, Unmatched: density.Unmatched}
	for _, r := range density.Rows {
		if filter.Year > 0 && r.Year != filter.Year {
			continue
		}
		if filter.AreaNumber > 0 && r.AreaNumber != filter.AreaNumber {
			continue
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// AreaMap returns the density choropleth of a year; year 0 means the most recent year
func (s *AggregateService) AreaMap(year int) (presentation.AreaMap, error) {
	ds, err := s.datasets.Current()
	if err != nil {
		return presentation.AreaMap{}, err
	}
	density, err := s.density()
	if err != nil {
		return presentation.AreaMap{}, err
	}
	if year == 0 && len(density.Years) > 0 {
		year = density.Years[len(density.Years)-1]
	}
	return presentation.AreaFeatureCollection(ds.Areas, analysis.DensityForYear(density, year), year), nil
}

func (s *AggregateService) density() (*models.DensityTable, error) {
	v, err := s.Derive(analysis.DerivationAreaDensity)
	if err != nil {
		return nil, err
	}
	return v.(*models.DensityTable), nil
}

// TimeOfDay returns the labeled time-of-day distribution of the current top categories
func (s *AggregateService) TimeOfDay() (presentation.LabeledDistribution, error) {
	v, err := s.Derive(analysis.DerivationTimeOfDay)
	if err != nil {
		return presentation.LabeledDistribution{}, err
	}
	return presentation.LabelBuckets(v.(*models.TimeOfDayDistribution)), nil
}

// TimeOfDayRaw returns the unlabeled time-of-day distribution
func (s *AggregateService) TimeOfDayRaw() (*models.TimeOfDayDistribution, error) {
	v, err := s.Derive(analysis.DerivationTimeOfDay)
	if err != nil {
		return nil, err
	}
	return v.(*models.TimeOfDayDistribution), nil
}

// MissingByYear returns the missing-value heatmap of the normalized table
func (s *AggregateService) MissingByYear() (presentation.Heatmap, error) {
	ds, err := s.datasets.Current()
	if err != nil {
		return presentation.Heatmap{}, err
	}
	v, err := s.memo.Get("missing_by_year", ds.Raw.Version, func() (any, error) {
		return ingest.MissingByYear(ds.Raw), nil
	})
	if err != nil {
		return presentation.Heatmap{}, err
	}
	return presentation.MissingHeatmap(v.([]models.MissingCount)), nil
}

// Columns describes the columns of the cleaned table
func (s *AggregateService) Columns() []models.ColumnInfo {
	return presentation.ColumnOverview()
}

// Preview returns the first cleaned incidents within a date range
func (s *AggregateService) Preview(filter models.PreviewFilter) ([]models.IncidentView, error) {
	ds, err := s.datasets.Current()
	if err != nil {
		return nil, err
	}
	from, to, err := parseRange(filter.From, filter.To)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPreviewLimit
	}
	if limit > maxPreviewLimit {
		limit = maxPreviewLimit
	}

	table := analysis.FilterDateRange(ds.Incidents, from, to)
	if table.Len() < limit {
		limit = table.Len()
	}
	views := make([]models.IncidentView, limit)
	for i := 0; i < limit; i++ {
		views[i] = table.View(&table.Rows[i])
	}
	return views, nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	var err error
	if from != "" {
		if f, err = time.Parse(dateLayout, from); err != nil {
			return f, t, fmt.Errorf("%w: from %q", ErrInvalidFilter, from)
		}
	}
	if to != "" {
		if t, err = time.Parse(dateLayout, to); err != nil {
			return f, t, fmt.Errorf("%w: to %q", ErrInvalidFilter, to)
		}
	}
	if !f.IsZero() && !t.IsZero() && f.After(t) {
		return f, t, fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}
	return f, t, nil
}
