package analysis

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/crime-eda-backend-go/internal/cleaning"
	"github.com/jengzang/crime-eda-backend-go/internal/ingest"
	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

type row struct {
	category string
	at       time.Time
	area     int
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

// buildTable runs rows through normalization and cleaning
func buildTable(t *testing.T, rows []row) *models.IncidentTable {
	t.Helper()
	raw := make([]models.RawIncident, len(rows))
	for i, r := range rows {
		raw[i] = models.RawIncident{
			ID:            strconv.Itoa(i + 1),
			CaseNumber:    fmt.Sprintf("JA%06d", i+1),
			Date:          r.at.Format(ingest.TimestampLayout),
			PrimaryType:   r.category,
			Description:   "DESC",
			Beat:          "0111",
			District:      "1",
			Ward:          "42",
			CommunityArea: strconv.Itoa(r.area),
			FBICode:       "06",
			IUCR:          "0820",
			Latitude:      "41.88",
			Longitude:     "-87.63",
		}
	}
	table, _ := ingest.NormalizeIncidents(raw)
	cleaned, report := cleaning.Clean(table)
	require.Equal(t, len(rows), report.InputRows)
	return cleaned
}

func TestBucketOf(t *testing.T) {
	hours := []int{4, 5, 11, 12, 16, 17, 20, 21, 23}
	want := []models.TimeBucket{
		models.BucketNight, models.BucketMorning, models.BucketMorning,
		models.BucketAfternoon, models.BucketAfternoon, models.BucketEvening,
		models.BucketEvening, models.BucketNight, models.BucketNight,
	}
	for i, h := range hours {
		assert.Equal(t, want[i], BucketOf(h), "hour %d", h)
	}
}

func TestBucketOf_CoversEveryHour(t *testing.T) {
	perBucket := make(map[models.TimeBucket]int)
	for h := 0; h < 24; h++ {
		b := BucketOf(h)
		assert.Contains(t, models.TimeBuckets, b)
		perBucket[b]++
	}
	assert.Equal(t, map[models.TimeBucket]int{
		models.BucketMorning:   7,
		models.BucketAfternoon: 5,
		models.BucketEvening:   4,
		models.BucketNight:     8,
	}, perBucket)
}

func TestPeriodCounts(t *testing.T) {
	table := buildTable(t, []row{
		{"THEFT", at(2020, time.January, 6, 10), 1},
		{"THEFT", at(2020, time.January, 12, 23), 1},
		{"THEFT", at(2020, time.January, 13, 0), 1},
		{"THEFT", at(2020, time.April, 1, 12), 1},
		{"THEFT", at(2020, time.January, 6, 18), 1},
	})

	day := func(m time.Month, d int) time.Time { return at(2020, m, d, 0) }
	tests := []struct {
		g    models.Granularity
		want []models.PeriodCount
	}{
		{models.GranularityDay, []models.PeriodCount{
			{PeriodStart: day(time.January, 6), Count: 2}, {PeriodStart: day(time.January, 12), Count: 1}, {PeriodStart: day(time.January, 13), Count: 1}, {PeriodStart: day(time.April, 1), Count: 1},
		}},
		{models.GranularityWeek, []models.PeriodCount{
			{PeriodStart: day(time.January, 6), Count: 3}, {PeriodStart: day(time.January, 13), Count: 1}, {PeriodStart: day(time.March, 30), Count: 1},
		}},
		{models.GranularityMonth, []models.PeriodCount{
			{PeriodStart: day(time.January, 1), Count: 4}, {PeriodStart: day(time.April, 1), Count: 1},
		}},
		{models.GranularityQuarter, []models.PeriodCount{
			{PeriodStart: day(time.January, 1), Count: 4}, {PeriodStart: day(time.April, 1), Count: 1},
		}},
		{models.GranularityYear, []models.PeriodCount{
			{PeriodStart: day(time.January, 1), Count: 5},
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			got, err := PeriodCounts(table, tt.g)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := PeriodCounts(table, "fortnight")
	assert.ErrorIs(t, err, ErrUnknownGranularity)
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("week")
	require.NoError(t, err)
	assert.Equal(t, models.GranularityWeek, g)

	_, err = ParseGranularity("hour")
	assert.ErrorIs(t, err, ErrUnknownGranularity)
}

func rankingFixture(t *testing.T) *models.IncidentTable {
	return buildTable(t, []row{
		{"THEFT", at(2019, time.December, 1, 1), 1},
		{"THEFT", at(2019, time.December, 2, 1), 1},
		{"THEFT", at(2020, time.January, 5, 1), 1},
		{"THEFT", at(2020, time.December, 5, 1), 1},
		{"BATTERY", at(2020, time.November, 5, 1), 1},
		{"BATTERY", at(2020, time.December, 5, 1), 1},
		{"BATTERY", at(2020, time.December, 6, 1), 1},
		{"BATTERY", at(2020, time.December, 7, 1), 1},
		{ExcludedCategory, at(2020, time.December, 8, 1), 1},
		{ExcludedCategory, at(2020, time.December, 9, 1), 1},
	})
}

func TestBuildCategoryRanking(t *testing.T) {
	table := rankingFixture(t)
	ranking := BuildCategoryRanking(table)

	assert.Equal(t, table.Version, ranking.Version)
	assert.Equal(t, []models.CategoryMonthCount{
		{Category: "BATTERY", Year: 2020, Month: 11, Count: 1, Cumulative: 1},
		{Category: "BATTERY", Year: 2020, Month: 12, Count: 3, Cumulative: 4},
		{Category: "THEFT", Year: 2019, Month: 12, Count: 2, Cumulative: 2},
		{Category: "THEFT", Year: 2020, Month: 1, Count: 1, Cumulative: 3},
		{Category: "THEFT", Year: 2020, Month: 12, Count: 1, Cumulative: 4},
	}, ranking.Rows)
}

func TestBuildCategoryRanking_MonotonicCumulative(t *testing.T) {
	ranking := BuildCategoryRanking(rankingFixture(t))
	for i := 1; i < len(ranking.Rows); i++ {
		prev, cur := ranking.Rows[i-1], ranking.Rows[i]
		if prev.Category != cur.Category {
			continue
		}
		assert.GreaterOrEqual(t, cur.Cumulative, prev.Cumulative)
		assert.True(t, cur.Year > prev.Year || (cur.Year == prev.Year && cur.Month > prev.Month))
	}
}

func TestTopCategories(t *testing.T) {
	ranking := BuildCategoryRanking(rankingFixture(t))

	top, err := CurrentTopCategories(ranking)
	require.NoError(t, err)
	assert.Equal(t, 2020, top.Year)
	// tied on cumulative, ordered by name
	assert.Equal(t, []models.CategoryTotal{
		{Rank: 1, Category: "BATTERY", Cumulative: 4},
		{Rank: 2, Category: "THEFT", Cumulative: 4},
	}, top.Categories)
	assert.Equal(t, []string{"BATTERY", "THEFT"}, top.Names())

	top, err = TopCategories(ranking, 2019, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"THEFT"}, top.Names())

	top, err = TopCategories(ranking, 2020, 1)
	require.NoError(t, err)
	assert.Len(t, top.Categories, 1)
}

func TestTopCategories_LimitsToEleven(t *testing.T) {
	var rows []row
	for i := 0; i < 13; i++ {
		for j := 0; j <= i; j++ {
			rows = append(rows, row{fmt.Sprintf("CAT%02d", i), at(2021, time.December, j+1, 3), 1})
		}
	}
	top, err := CurrentTopCategories(BuildCategoryRanking(buildTable(t, rows)))
	require.NoError(t, err)
	require.Len(t, top.Categories, DefaultTopN)
	assert.Equal(t, "CAT12", top.Categories[0].Category)
	assert.Equal(t, 13, top.Categories[0].Cumulative)
	assert.Equal(t, "CAT02", top.Categories[10].Category)
}

func TestTopCategories_Preconditions(t *testing.T) {
	_, err := TopCategories(nil, 2020, 11)
	assert.ErrorIs(t, err, ErrRankingRequired)

	_, err = CurrentTopCategories(nil)
	assert.ErrorIs(t, err, ErrRankingRequired)

	_, err = CurrentTopCategories(&models.CategoryRanking{})
	assert.ErrorIs(t, err, ErrIncompleteYear)

	// latest year stops in March
	table := buildTable(t, []row{
		{"THEFT", at(2020, time.December, 1, 1), 1},
		{"THEFT", at(2021, time.March, 1, 1), 1},
	})
	_, err = CurrentTopCategories(BuildCategoryRanking(table))
	assert.ErrorIs(t, err, ErrIncompleteYear)
	assert.Contains(t, err.Error(), "2021")
}

func densityAreas() *models.AreaTable {
	return models.NewAreaTable([]models.Area{
		{Number: 3, Name: "C", AreaKm2: 4},
		{Number: 1, Name: "A", AreaKm2: 2},
		{Number: 2, Name: "B", AreaKm2: 0},
	})
}

func TestAreaYearDensity(t *testing.T) {
	var rows []row
	add := func(n, area, year int) {
		for i := 0; i < n; i++ {
			rows = append(rows, row{"THEFT", at(year, time.June, i+1, 12), area})
		}
	}
	add(5, 1, 2019)
	add(1, 1, 2020)
	add(6, 3, 2020)
	add(1, 99, 2020)

	density, err := AreaYearDensity(buildTable(t, rows), densityAreas())
	require.NoError(t, err)
	assert.Equal(t, []int{2019, 2020}, density.Years)
	assert.Equal(t, 1, density.Unmatched)

	ptr := func(v int64) *int64 { return &v }
	assert.Equal(t, []models.AreaYearDensity{
		{AreaNumber: 1, Community: "A", Year: 2019, Incidents: 5, AreaKm2: 2, PerKm2: ptr(2)},
		{AreaNumber: 1, Community: "A", Year: 2020, Incidents: 1, AreaKm2: 2, PerKm2: ptr(0)},
		{AreaNumber: 2, Community: "B", Year: 2019, Incidents: 0, AreaKm2: 0, PerKm2: nil},
		{AreaNumber: 2, Community: "B", Year: 2020, Incidents: 0, AreaKm2: 0, PerKm2: nil},
		{AreaNumber: 3, Community: "C", Year: 2019, Incidents: 0, AreaKm2: 4, PerKm2: ptr(0)},
		{AreaNumber: 3, Community: "C", Year: 2020, Incidents: 6, AreaKm2: 4, PerKm2: ptr(2)},
	}, density.Rows)

	assert.Len(t, DensityForYear(density, 2020), 3)
}

func TestAreaYearDensity_Complete(t *testing.T) {
	table := buildTable(t, []row{
		{"THEFT", at(2017, time.May, 1, 1), 1},
		{"THEFT", at(2019, time.May, 1, 1), 3},
		{"THEFT", at(2021, time.May, 1, 1), 3},
	})
	areas := densityAreas()

	density, err := AreaYearDensity(table, areas)
	require.NoError(t, err)

	seen := make(map[[2]int]bool)
	for _, r := range density.Rows {
		seen[[2]int{r.AreaNumber, r.Year}] = true
	}
	for _, a := range areas.Rows {
		for _, y := range []int{2017, 2019, 2021} {
			assert.True(t, seen[[2]int{a.Number, y}], "area %d year %d", a.Number, y)
		}
	}
	assert.Len(t, density.Rows, areas.Len()*3)

	_, err = AreaYearDensity(table, nil)
	assert.ErrorIs(t, err, ErrAreasRequired)
}

func TestTimeOfDay(t *testing.T) {
	table := buildTable(t, []row{
		{"THEFT", at(2020, time.March, 1, 8), 1},
		{"THEFT", at(2020, time.March, 2, 9), 1},
		{"THEFT", at(2020, time.March, 3, 13), 1},
		{"BATTERY", at(2020, time.March, 1, 22), 1},
		{"BATTERY", at(2020, time.March, 2, 3), 1},
		{"BATTERY", at(2020, time.March, 3, 18), 1},
		{"ASSAULT", at(2020, time.March, 3, 10), 1},
	})

	dist, err := TimeOfDay(table, []string{"THEFT", "BATTERY"})
	require.NoError(t, err)
	assert.Equal(t, []models.BucketCategoryShare{
		{Bucket: models.BucketMorning, Category: "THEFT", Count: 2, Percent: 66.7},
		{Bucket: models.BucketAfternoon, Category: "THEFT", Count: 1, Percent: 33.3},
		{Bucket: models.BucketEvening, Category: "BATTERY", Count: 1, Percent: 33.3},
		{Bucket: models.BucketNight, Category: "BATTERY", Count: 2, Percent: 66.7},
	}, dist.Rows)
	assert.Equal(t, []models.BucketTotal{
		{Bucket: models.BucketMorning, Count: 2},
		{Bucket: models.BucketAfternoon, Count: 1},
		{Bucket: models.BucketEvening, Count: 1},
		{Bucket: models.BucketNight, Count: 2},
	}, dist.Summary)

	_, err = TimeOfDay(table, nil)
	assert.ErrorIs(t, err, ErrTopCategoriesRequired)
}

func TestTimeOfDay_PercentClosure(t *testing.T) {
	var rows []row
	for i := 0; i < 97; i++ {
		rows = append(rows, row{"THEFT", at(2020, time.May, i%28+1, (i*7)%24), 1})
		rows = append(rows, row{"NARCOTICS", at(2020, time.May, i%28+1, (i*5+3)%24), 1})
	}
	dist, err := TimeOfDay(buildTable(t, rows), []string{"THEFT", "NARCOTICS"})
	require.NoError(t, err)

	sums := make(map[string]float64)
	for _, r := range dist.Rows {
		sums[r.Category] += r.Percent
	}
	require.Len(t, sums, 2)
	for category, sum := range sums {
		assert.InDelta(t, 100, sum, 0.2, category)
	}
}

func TestSentinelYearAbsentFromAggregates(t *testing.T) {
	table := buildTable(t, []row{
		{"THEFT", at(2025, time.December, 1, 9), 1},
		{"THEFT", at(2026, time.January, 2, 9), 1},
		{"BATTERY", at(2026, time.December, 3, 23), 3},
	})
	areas := densityAreas()

	years, err := PeriodCounts(table, models.GranularityYear)
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, 2025, years[0].PeriodStart.Year())

	ranking := BuildCategoryRanking(table)
	for _, r := range ranking.Rows {
		assert.NotEqual(t, cleaning.SentinelYear, r.Year)
	}

	density, err := AreaYearDensity(table, areas)
	require.NoError(t, err)
	assert.Equal(t, []int{2025}, density.Years)

	top, err := CurrentTopCategories(ranking)
	require.NoError(t, err)
	dist, err := TimeOfDay(table, top.Names())
	require.NoError(t, err)
	assert.Equal(t, []models.BucketCategoryShare{
		{Bucket: models.BucketMorning, Category: "THEFT", Count: 1, Percent: 100},
	}, dist.Rows)
}

func TestFilterDateRange(t *testing.T) {
	table := buildTable(t, []row{
		{"THEFT", at(2020, time.January, 1, 23), 1},
		{"THEFT", at(2020, time.January, 2, 0), 1},
		{"THEFT", at(2020, time.January, 3, 12), 1},
	})

	got := FilterDateRange(table, at(2020, time.January, 2, 15), at(2020, time.January, 3, 0))
	require.Equal(t, 2, got.Len())
	assert.Equal(t, 2, got.Rows[0].Calendar.Date.Day())
	assert.Equal(t, 3, table.Len())

	assert.Equal(t, 3, FilterDateRange(table, time.Time{}, time.Time{}).Len())
	assert.Equal(t, 1, FilterDateRange(table, time.Time{}, at(2020, time.January, 1, 0)).Len())
}

func TestSummarize(t *testing.T) {
	table := buildTable(t, []row{
		{"THEFT", at(2019, time.March, 4, 1), 1},
		{"BATTERY", at(2021, time.July, 9, 1), 1},
		{"THEFT", at(2020, time.January, 1, 1), 1},
	})
	s := Summarize(table, densityAreas())
	assert.Equal(t, 3, s.Incidents)
	assert.Equal(t, 2, s.Categories)
	assert.Equal(t, 3, s.Areas)
	assert.Equal(t, at(2019, time.March, 4, 0), s.FirstDate)
	assert.Equal(t, at(2021, time.July, 9, 0), s.LastDate)
	assert.Equal(t, []int{2019, 2020, 2021}, s.Years)
}

func TestRegistry(t *testing.T) {
	names := Names()
	for _, g := range models.Granularities {
		assert.Contains(t, names, PeriodDerivation(g))
	}
	assert.Contains(t, names, DerivationTimeOfDay)

	d, ok := Lookup(DerivationAreaDensity)
	require.True(t, ok)
	out, err := d(Inputs{Incidents: rankingFixture(t), Areas: densityAreas()})
	require.NoError(t, err)
	assert.IsType(t, &models.DensityTable{}, out)

	d, ok = Lookup(DerivationTimeOfDay)
	require.True(t, ok)
	out, err = d(Inputs{Incidents: rankingFixture(t)})
	require.NoError(t, err)
	assert.NotEmpty(t, out.(*models.TimeOfDayDistribution).Rows)

	_, ok = Lookup("nope")
	assert.False(t, ok)

	in := Inputs{Incidents: &models.IncidentTable{Version: "a"}, Areas: &models.AreaTable{Version: "b"}}
	assert.Equal(t, "a+b", in.Version())
}
