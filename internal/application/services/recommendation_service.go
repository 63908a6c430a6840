package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	"github.com/zatekoja/clinicfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
	"github.com/zatekoja/clinicfinder/pkg/geo"
)

const (
	stepLLMPick  = "llm_pick"
	stepRegistry = "registry_backfill"
	stepExternal = "external_fallback"
	stepEnrich   = "enrich"
)

// RecommendationOptions holds the pipeline limits.
type RecommendationOptions struct {
	MaxTags               int
	MaxClinics            int
	RegistryRadiusKm      float64
	RegistryBackfillBelow int
	ExternalFallbackBelow int
}

// DefaultRecommendationOptions returns the standard limits.
func DefaultRecommendationOptions() RecommendationOptions {
	return RecommendationOptions{
		MaxTags:               3,
		MaxClinics:            5,
		RegistryRadiusKm:      defaultRegistryRadiusKm,
		RegistryBackfillBelow: 3,
		ExternalFallbackBelow: 3,
	}
}

// RecommendationService runs the clinic selection pipeline for a set of tags.
type RecommendationService struct {
	geo      providers.GeolocationProvider
	picker   *ClinicPicker
	registry *ClinicRegistry
	fallback *SearchFallback
	opts     RecommendationOptions
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewRecommendationService creates a new recommendation service.
func NewRecommendationService(
	geo providers.GeolocationProvider,
	picker *ClinicPicker,
	registry *ClinicRegistry,
	fallback *SearchFallback,
	opts RecommendationOptions,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *RecommendationService {
	def := DefaultRecommendationOptions()
	if opts.MaxTags <= 0 {
		opts.MaxTags = def.MaxTags
	}
	if opts.MaxClinics <= 0 {
		opts.MaxClinics = def.MaxClinics
	}
	if opts.RegistryRadiusKm <= 0 {
		opts.RegistryRadiusKm = def.RegistryRadiusKm
	}
	if opts.RegistryBackfillBelow <= 0 {
		opts.RegistryBackfillBelow = def.RegistryBackfillBelow
	}
	if opts.ExternalFallbackBelow <= 0 {
		opts.ExternalFallbackBelow = def.ExternalFallbackBelow
	}
	return &RecommendationService{
		geo:      geo,
		picker:   picker,
		registry: registry,
		fallback: fallback,
		opts:     opts,
		logger:   logger.With().Str("component", "recommender").Logger(),
		metrics:  metrics,
	}
}

// SearchAllTags resolves clinics for the first MaxTags tags. Entries follow
// the input order. Lookups never fail the call: a failing step only leaves
// its tag with fewer clinics.
func (s *RecommendationService) SearchAllTags(ctx context.Context, tags []entities.SpecialtyTag, location string, userLat, userLng *float64) (*entities.Recommendation, error) {
	for _, t := range tags {
		if strings.TrimSpace(string(t)) == "" {
			return nil, apperrors.NewValidationError("tags must not be empty")
		}
	}
	if len(tags) > s.opts.MaxTags {
		tags = tags[:s.opts.MaxTags]
	}

	runID := uuid.New().String()
	logger := s.logger.With().Str("run_id", runID).Logger()

	ctx, span := observability.StartSpan(ctx, "recommender.search_all_tags")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("recommender.run_id", runID),
		attribute.Int("recommender.tags", len(tags)),
	)

	lat, lng := s.resolveCenter(ctx, logger, location, userLat, userLng)

	entries := make([]entities.TagClinics, len(tags))
	var g errgroup.Group
	for i, tag := range tags {
		g.Go(func() error {
			entries[i] = entities.TagClinics{
				Tag:     tag,
				Clinics: s.resolveTag(ctx, logger.With().Str("tag", string(tag)).Logger(), tag, location, lat, lng),
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info().Int("tags", len(tags)).Float64("lat", lat).Float64("lng", lng).Msg("recommendation complete")
	return &entities.Recommendation{
		RunID:     runID,
		Location:  location,
		CenterLat: lat,
		CenterLng: lng,
		Entries:   entries,
	}, nil
}

// resolveCenter geocodes location once when the caller gave no coordinates.
// Failure falls back to (0, 0).
func (s *RecommendationService) resolveCenter(ctx context.Context, logger zerolog.Logger, location string, userLat, userLng *float64) (float64, float64) {
	if userLat != nil && userLng != nil {
		return *userLat, *userLng
	}
	if strings.TrimSpace(location) == "" {
		logger.Warn().Msg("no location given, using origin as center")
		return 0, 0
	}
	results, err := s.geo.Geocode(ctx, location)
	if err != nil || len(results) == 0 {
		logger.Warn().Err(err).Str("location", location).Msg("center geocode failed, using origin")
		return 0, 0
	}
	return results[0].Lat, results[0].Lng
}

func (s *RecommendationService) resolveTag(ctx context.Context, logger zerolog.Logger, tag entities.SpecialtyTag, location string, lat, lng float64) []*entities.ClinicRecord {
	gathered := newClinicSet()

	start := time.Now()
	picks, err := s.picker.Pick(ctx, tag, location)
	if err != nil {
		logger.Warn().Err(err).Str("step", stepLLMPick).Msg("step degraded")
	}
	added := gathered.addAll(picks)
	observability.RecordStepMetric(ctx, s.metrics, stepLLMPick, added, err != nil, time.Since(start))
	logger.Debug().Str("step", stepLLMPick).Int("added", added).Msg("step done")

	if gathered.size() < s.opts.RegistryBackfillBelow {
		start = time.Now()
		extra := s.registry.FindByTag(ctx, FindQuery{
			Tag:          tag,
			CenterLat:    lat,
			CenterLng:    lng,
			RadiusKm:     s.opts.RegistryRadiusKm,
			LocationText: location,
		})
		added = gathered.addAll(extra)
		observability.RecordStepMetric(ctx, s.metrics, stepRegistry, added, false, time.Since(start))
		logger.Debug().Str("step", stepRegistry).Int("added", added).Msg("step done")
	}

	if gathered.size() < s.opts.ExternalFallbackBelow {
		start = time.Now()
		found, err := s.fallback.SearchOneTag(ctx, tag, location, lat, lng)
		if err != nil {
			logger.Warn().Err(err).Str("step", stepExternal).Msg("step degraded")
		}
		added = gathered.addAll(found)
		observability.RecordStepMetric(ctx, s.metrics, stepExternal, added, err != nil, time.Since(start))
		logger.Debug().Str("step", stepExternal).Int("added", added).Msg("step done")
	}

	clinics := gathered.items
	if clinics == nil {
		clinics = []*entities.ClinicRecord{}
	}
	if len(clinics) > s.opts.MaxClinics {
		clinics = clinics[:s.opts.MaxClinics]
	}

	start = time.Now()
	failed := s.enrich(ctx, logger, clinics, lat, lng)
	observability.RecordStepMetric(ctx, s.metrics, stepEnrich, len(clinics), failed > 0, time.Since(start))
	return clinics
}

// enrich geocodes clinics that still lack coordinates and fills map links
// and distances. It returns how many could not be resolved; those are kept.
func (s *RecommendationService) enrich(ctx context.Context, logger zerolog.Logger, clinics []*entities.ClinicRecord, lat, lng float64) int {
	failed := 0
	for _, c := range clinics {
		if !c.HasCoordinates() {
			if strings.TrimSpace(c.Address) == "" {
				failed++
				continue
			}
			results, err := s.geo.Geocode(ctx, c.Address)
			if err != nil || len(results) == 0 {
				logger.Warn().Err(err).Str("clinic", c.Name).Str("step", stepEnrich).Msg("could not resolve clinic coordinates")
				failed++
				continue
			}
			c.SetCoordinates(results[0].Lat, results[0].Lng)
			if results[0].PlaceID != "" {
				c.MapURL = geo.PlaceURL(results[0].PlaceID)
			}
		}
		c.NeedGeo = false
		if c.MapURL == "" {
			c.MapURL = geo.MapURL(c.PlaceID, c.Lat, c.Lng)
		}
		if c.DistanceM == nil {
			d := geo.DistanceMeters(lat, lng, *c.Lat, *c.Lng)
			c.DistanceM = &d
		}
	}
	return failed
}

// clinicSet keeps clinics in insertion order, unique by name.
type clinicSet struct {
	items []*entities.ClinicRecord
	names map[string]bool
}

func newClinicSet() *clinicSet {
	return &clinicSet{names: make(map[string]bool)}
}

func (s *clinicSet) addAll(recs []*entities.ClinicRecord) int {
	added := 0
	for _, r := range recs {
		if r == nil || s.names[r.Name] {
			continue
		}
		s.names[r.Name] = true
		s.items = append(s.items, r)
		added++
	}
	return added
}

func (s *clinicSet) size() int {
	return len(s.items)
}
