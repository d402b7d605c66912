package analysis

import (
	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/stats"
)

// BucketOf maps an hour of day (0-23) to its time-of-day bucket:
// Morning [5,12), Afternoon [12,17), Evening [17,21), Night otherwise
func BucketOf(hour int) models.TimeBucket {
	switch {
	case hour >= 5 && hour < 12:
		return models.BucketMorning
	case hour >= 12 && hour < 17:
		return models.BucketAfternoon
	case hour >= 17 && hour < 21:
		return models.BucketEvening
	default:
		return models.BucketNight
	}
}

// TimeOfDay distributes the incidents of the given categories over the
// time-of-day buckets. Each row's percent is its share of the category's
// total. Rows are ordered by bucket, then by the order of categories;
// absent (bucket, category) pairs have no row. The summary always lists
// all four buckets.
func TimeOfDay(table *models.IncidentTable, categories []string) (*models.TimeOfDayDistribution, error) {
	if len(categories) == 0 {
		return nil, ErrTopCategoriesRequired
	}

	position := make(map[string]int, len(categories))
	for i, c := range categories {
		if _, dup := position[c]; !dup {
			position[c] = i
		}
	}

	// counts[bucket][category position]
	counts := make([][]int, len(models.TimeBuckets))
	for b := range counts {
		counts[b] = make([]int, len(categories))
	}
	totals := make([]int, len(categories))
	bucketIndex := make(map[models.TimeBucket]int, len(models.TimeBuckets))
	for i, b := range models.TimeBuckets {
		bucketIndex[b] = i
	}

	if table != nil {
		for i := range table.Rows {
			inc := &table.Rows[i]
			p, ok := position[table.Category(inc)]
			if !ok {
				continue
			}
			counts[bucketIndex[BucketOf(inc.Calendar.Hour)]][p]++
			totals[p]++
		}
	}

	dist := &models.TimeOfDayDistribution{
		Rows:    []models.BucketCategoryShare{},
		Summary: make([]models.BucketTotal, len(models.TimeBuckets)),
	}
	for b, bucket := range models.TimeBuckets {
		sum := 0
		for p, category := range categories {
			if position[category] != p || counts[b][p] == 0 {
				continue
			}
			n := counts[b][p]
			sum += n
			dist.Rows = append(dist.Rows, models.BucketCategoryShare{
				Bucket:   bucket,
				Category: category,
				Count:    n,
				Percent:  stats.Percent(n, totals[p]),
			})
		}
		dist.Summary[b] = models.BucketTotal{Bucket: bucket, Count: sum}
	}
	return dist, nil
}
