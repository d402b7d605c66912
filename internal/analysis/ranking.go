package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

const (
	// ExcludedCategory is left out of the ranking as noise
	ExcludedCategory = "OTHER OFFENSE"

	// DefaultTopN is the size of the top category list
	DefaultTopN = 11
)

type categoryMonth struct {
	category string
	year     int
	month    int
}

// BuildCategoryRanking counts incidents per (category, year, month), sorted
// by those keys, with a running total per category across years
func BuildCategoryRanking(table *models.IncidentTable) *models.CategoryRanking {
	ranking := &models.CategoryRanking{Rows: []models.CategoryMonthCount{}}
	if table.Len() == 0 {
		return ranking
	}
	ranking.Version = table.Version

	counts := make(map[categoryMonth]int)
	for i := range table.Rows {
		inc := &table.Rows[i]
		category := table.Category(inc)
		if category == ExcludedCategory {
			continue
		}
		counts[categoryMonth{category, inc.Calendar.Year, int(inc.Calendar.Month)}]++
	}

	keys := make([]categoryMonth, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.category != b.category {
			return a.category < b.category
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.month < b.month
	})

	ranking.Rows = make([]models.CategoryMonthCount, len(keys))
	running := 0
	for i, k := range keys {
		if i == 0 || keys[i-1].category != k.category {
			running = 0
		}
		running += counts[k]
		ranking.Rows[i] = models.CategoryMonthCount{
			Category:   k.category,
			Year:       k.year,
			Month:      k.month,
			Count:      counts[k],
			Cumulative: running,
		}
	}
	return ranking
}

// TopCategories ranks categories by their December cumulative count in
// year, highest first, ties broken by name. n <= 0 means DefaultTopN.
func TopCategories(ranking *models.CategoryRanking, year, n int) (models.TopCategoryList, error) {
	if ranking == nil {
		return models.TopCategoryList{}, ErrRankingRequired
	}
	if n <= 0 {
		n = DefaultTopN
	}

	var december []models.CategoryMonthCount
	for _, r := range ranking.Rows {
		if r.Year == year && r.Month == int(time.December) {
			december = append(december, r)
		}
	}
	if len(december) == 0 {
		return models.TopCategoryList{}, fmt.Errorf("%w: %d", ErrIncompleteYear, year)
	}

	sort.Slice(december, func(i, j int) bool {
		if december[i].Cumulative != december[j].Cumulative {
			return december[i].Cumulative > december[j].Cumulative
		}
		return december[i].Category < december[j].Category
	})
	if len(december) > n {
		december = december[:n]
	}

	list := models.TopCategoryList{Year: year, Categories: make([]models.CategoryTotal, len(december))}
	for i, r := range december {
		list.Categories[i] = models.CategoryTotal{Rank: i + 1, Category: r.Category, Cumulative: r.Cumulative}
	}
	return list, nil
}

// CurrentTopCategories ranks the most recent year in the ranking. A year
// without December rows is reported as ErrIncompleteYear; no earlier year
// or month is substituted.
func CurrentTopCategories(ranking *models.CategoryRanking) (models.TopCategoryList, error) {
	if ranking == nil {
		return models.TopCategoryList{}, ErrRankingRequired
	}
	latest, ok := LatestYear(ranking)
	if !ok {
		return models.TopCategoryList{}, fmt.Errorf("%w: ranking is empty", ErrIncompleteYear)
	}
	return TopCategories(ranking, latest, DefaultTopN)
}

// LatestYear returns the most recent year present in the ranking
func LatestYear(ranking *models.CategoryRanking) (int, bool) {
	if ranking == nil || len(ranking.Rows) == 0 {
		return 0, false
	}
	latest := ranking.Rows[0].Year
	for _, r := range ranking.Rows[1:] {
		if r.Year > latest {
			latest = r.Year
		}
	}
	return latest, true
}

// CategorySeries returns the ranking rows of one category in (year, month) order
func CategorySeries(ranking *models.CategoryRanking, category string) []models.CategoryMonthCount {
	if ranking == nil {
		return nil
	}
	var rows []models.CategoryMonthCount
	for _, r := range ranking.Rows {
		if r.Category == category {
			rows = append(rows, r)
		}
	}
	return rows
}
