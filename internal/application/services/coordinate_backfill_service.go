package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
)

// BackfillBatchSize is the number of clinics handed to a worker at once.
// Each finished batch is written back, so an interrupted run keeps progress.
const BackfillBatchSize = 50

// BackfillSummary reports the outcome of a coordinate backfill.
type BackfillSummary struct {
	TotalProcessed int
	SuccessCount   int
	FailureCount   int
	WriteErrors    int
}

// CoordinateBackfillService geocodes every registry clinic that has no
// coordinates yet.
type CoordinateBackfillService struct {
	registry    *ClinicRegistry
	workerCount int
	logger      zerolog.Logger
}

// NewCoordinateBackfillService creates a backfill service.
func NewCoordinateBackfillService(registry *ClinicRegistry, workers int, logger zerolog.Logger) *CoordinateBackfillService {
	if workers <= 0 {
		workers = 1
	}
	return &CoordinateBackfillService{
		registry:    registry,
		workerCount: workers,
		logger:      logger.With().Str("component", "coordinate_backfill").Logger(),
	}
}

// BackfillAll resolves missing coordinates across the whole dataset.
func (s *CoordinateBackfillService) BackfillAll(ctx context.Context) (*BackfillSummary, error) {
	var pending []*entities.ClinicRecord
	for _, rec := range s.registry.Records() {
		if !rec.HasCoordinates() && rec.Address != "" {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		s.logger.Info().Msg("all clinics already have coordinates")
		return &BackfillSummary{}, nil
	}

	var processed, success, writeErrors int64
	batches := make(chan []*entities.ClinicRecord, s.workerCount)
	var wg sync.WaitGroup

	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				filled, err := s.registry.EnsureCoordinates(ctx, batch)
				atomic.AddInt64(&processed, int64(len(batch)))
				atomic.AddInt64(&success, int64(filled))
				if err != nil {
					atomic.AddInt64(&writeErrors, 1)
					s.logger.Error().Err(err).Int("batch", len(batch)).Msg("failed to write back coordinates")
				}
			}
		}()
	}

	var cancelled error
producer:
	for start := 0; start < len(pending); start += BackfillBatchSize {
		end := min(start+BackfillBatchSize, len(pending))
		select {
		case batches <- pending[start:end]:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break producer
		}
	}
	close(batches)
	wg.Wait()

	summary := &BackfillSummary{
		TotalProcessed: int(processed),
		SuccessCount:   int(success),
		FailureCount:   int(processed - success),
		WriteErrors:    int(writeErrors),
	}
	s.logger.Info().
		Int("processed", summary.TotalProcessed).
		Int("filled", summary.SuccessCount).
		Int("unresolved", summary.FailureCount).
		Msg("coordinate backfill finished")
	if cancelled != nil {
		return summary, cancelled
	}
	return summary, nil
}
