package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jengzang/crime-eda-backend-go/internal/analysis"
	"github.com/jengzang/crime-eda-backend-go/internal/cleaning"
	"github.com/jengzang/crime-eda-backend-go/internal/ingest"
	"github.com/jengzang/crime-eda-backend-go/internal/logging"
	"github.com/jengzang/crime-eda-backend-go/internal/memo"
	"github.com/jengzang/crime-eda-backend-go/internal/metrics"
	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/repository"
)

// ErrNotLoaded is returned before the first successful refresh
var ErrNotLoaded = errors.New("dataset not loaded")

// SnapshotStore persists dataset snapshots
type SnapshotStore interface {
	Save(ctx context.Context, snap *models.DatasetSnapshot, periods map[models.Granularity][]models.PeriodCount, density []models.AreaYearDensity) error
	Latest(ctx context.Context) (*models.DatasetSnapshot, error)
	GetByID(ctx context.Context, id int64) (*models.DatasetSnapshot, error)
	History(ctx context.Context, limit int) ([]models.DatasetSnapshot, error)
	PeriodCounts(ctx context.Context, snapshotID int64, g models.Granularity) ([]models.PeriodCount, error)
	Density(ctx context.Context, snapshotID int64, year int) ([]models.AreaYearDensity, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Dataset is one loaded generation of the tables. It is never modified
// after Refresh publishes it.
type Dataset struct {
	Raw       *models.IncidentTable // normalized, before cleaning
	Incidents *models.IncidentTable // cleaned
	Areas     *models.AreaTable
	Snapshot  models.DatasetSnapshot
}

// Inputs returns the derivation inputs of the dataset
func (d *Dataset) Inputs() analysis.Inputs {
	return analysis.Inputs{Incidents: d.Incidents, Areas: d.Areas}
}

// DatasetService loads the source tables and holds the current dataset
type DatasetService struct {
	incidents ingest.IncidentSource
	areas     ingest.AreaSource
	store     SnapshotStore
	memo      *memo.Memo
	metrics   *metrics.Metrics
	logger    logging.Logger
	now       func() time.Time
	keep      int // snapshots retained after a save, 0 keeps all

	refreshMu sync.Mutex
	mu        sync.RWMutex
	current   *Dataset
}

// NewDatasetService creates a dataset service. store may be nil to skip persistence.
func NewDatasetService(incidents ingest.IncidentSource, areas ingest.AreaSource, store SnapshotStore, m *memo.Memo, met *metrics.Metrics, logger logging.Logger) *DatasetService {
	return &DatasetService{
		incidents: incidents,
		areas:     areas,
		store:     store,
		memo:      m,
		metrics:   met,
		logger:    logger.Named("dataset"),
		now:       time.Now,
	}
}

// KeepSnapshots limits the stored snapshot history to the newest n; 0 keeps all
func (s *DatasetService) KeepSnapshots(n int) {
	s.keep = n
}

// Current returns the published dataset
func (s *DatasetService) Current() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNotLoaded
	}
	return s.current, nil
}

// Refresh reloads both source tables, cleans the incidents, persists a
// snapshot and publishes the new dataset. Cached derivations are dropped.
// On error the previous dataset stays current.
func (s *DatasetService) Refresh(ctx context.Context) (*models.DatasetSnapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := s.now()
	ds, err := s.load(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RefreshFailures.Inc()
		}
		s.logger.Error("dataset refresh failed", logging.Err(err))
		return nil, err
	}

	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()
	s.memo.Invalidate()

	elapsed := s.now().Sub(start)
	if s.metrics != nil {
		s.metrics.RefreshDuration.Observe(elapsed.Seconds())
	}
	s.logger.Info("dataset refreshed",
		logging.String("version", ds.Snapshot.Version),
		logging.Int("rows", ds.Incidents.Len()),
		logging.Int("areas", ds.Areas.Len()),
		logging.Duration("elapsed", elapsed),
	)

	snap := ds.Snapshot
	return &snap, nil
}

func (s *DatasetService) load(ctx context.Context) (*Dataset, error) {
	areas, err := s.areas.ReadAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load areas from %s: %w", s.areas.Name(), err)
	}

	raw, err := s.incidents.ReadIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load incidents from %s: %w", s.incidents.Name(), err)
	}

	normalized, normReport := ingest.NormalizeIncidents(raw)
	cleaned, cleanReport := cleaning.Clean(normalized)

	s.logger.Info("incidents cleaned",
		logging.Int("rows_read", normReport.RowsRead),
		logging.Int("invalid_timestamps", normReport.InvalidTimestamps),
		logging.Int("invalid_numbers", normReport.InvalidNumbers),
		logging.Int("dropped_missing", cleanReport.DroppedMissing),
		logging.Int("dropped_sentinel_year", cleanReport.DroppedSentinelYear),
		logging.Int("dropped_duplicates", cleanReport.DroppedDuplicates),
		logging.Int("output_rows", cleanReport.OutputRows),
	)

	density, err := analysis.AreaYearDensity(cleaned, areas)
	if err != nil {
		return nil, err
	}
	if density.Unmatched > 0 {
		s.logger.Warn("incidents reference areas missing from the polygon table", logging.Int("incidents", density.Unmatched))
	}

	if s.metrics != nil {
		s.metrics.ObserveClean(normReport, cleanReport)
		s.metrics.RowsDropped.WithLabelValues(metrics.ReasonUnmatched).Add(float64(density.Unmatched))
		s.metrics.Areas.Set(float64(areas.Len()))
	}

	ds := &Dataset{
		Raw:       normalized,
		Incidents: cleaned,
		Areas:     areas,
		Snapshot: models.DatasetSnapshot{
			Version:     cleaned.Version,
			RawVersion:  normalized.Version,
			AreaVersion: areas.Version,
			Source:      s.incidents.Name(),
			Areas:       areas.Len(),
			Normalize:   normReport,
			Clean:       cleanReport,
			LoadedAt:    s.now().UTC(),
		},
	}

	if s.store != nil {
		periods := make(map[models.Granularity][]models.PeriodCount, len(models.Granularities))
		for _, g := range models.Granularities {
			if periods[g], err = analysis.PeriodCounts(cleaned, g); err != nil {
				return nil, err
			}
		}
		if err := s.store.Save(ctx, &ds.Snapshot, periods, density.Rows); err != nil {
			return nil, fmt.Errorf("failed to save snapshot: %w", err)
		}
		if s.keep > 0 {
			pruned, err := s.store.Prune(ctx, s.keep)
			if err != nil {
				s.logger.Warn("snapshot prune failed", logging.Err(err))
			} else if pruned > 0 {
				s.logger.Debug("pruned snapshots", logging.Int64("deleted", pruned))
			}
		}
	}
	return ds, nil
}

// History lists stored snapshots, newest first
func (s *DatasetService) History(ctx context.Context, limit int) ([]models.DatasetSnapshot, error) {
	if s.store == nil {
		return []models.DatasetSnapshot{}, nil
	}
	return s.store.History(ctx, limit)
}

// Snapshot returns a stored snapshot with its period counts for every
// granularity and its density rows. id <= 0 selects the latest snapshot,
// year <= 0 keeps every year of density.
func (s *DatasetService) Snapshot(ctx context.Context, id int64, year int) (*models.SnapshotDetail, error) {
	if s.store == nil {
		return nil, repository.ErrNotFound
	}

	var snap *models.DatasetSnapshot
	var err error
	if id <= 0 {
		snap, err = s.store.Latest(ctx)
	} else {
		snap, err = s.store.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	detail := &models.SnapshotDetail{
		Snapshot: *snap,
		Periods:  make(map[models.Granularity][]models.PeriodCount, len(models.Granularities)),
	}
	for _, g := range models.Granularities {
		if detail.Periods[g], err = s.store.PeriodCounts(ctx, snap.ID, g); err != nil {
			return nil, err
		}
	}
	if detail.Density, err = s.store.Density(ctx, snap.ID, year); err != nil {
		return nil, err
	}
	return detail, nil
}
