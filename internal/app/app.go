// Package app assembles the clinic recommendation services from configuration.
// Both the HTTP server and the CLI build their dependency graph here.
package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/zatekoja/clinicfinder/internal/adapters/cache"
	"github.com/zatekoja/clinicfinder/internal/adapters/dataset"
	"github.com/zatekoja/clinicfinder/internal/adapters/mapping"
	"github.com/zatekoja/clinicfinder/internal/adapters/providers/geolocation"
	"github.com/zatekoja/clinicfinder/internal/application/services"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	"github.com/zatekoja/clinicfinder/internal/infrastructure/clients/openai"
	"github.com/zatekoja/clinicfinder/internal/infrastructure/observability"
	"github.com/zatekoja/clinicfinder/pkg/config"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
	"github.com/zatekoja/clinicfinder/pkg/retry"
)

// App holds the wired services.
type App struct {
	Config *config.Config

	Geo      providers.GeolocationProvider
	LLM      providers.ChatCompleter
	Registry *services.ClinicRegistry
	Mapper   *services.TagMapper

	Recommender *services.RecommendationService
	Triage      *services.TriageService
	Evaluator   *services.EvaluationService
	Backfill    *services.CoordinateBackfillService

	logger  zerolog.Logger
	closers []func() error
}

// Options overrides parts of the graph, mainly for tests.
type Options struct {
	Geo     providers.GeolocationProvider
	LLM     providers.ChatCompleter
	Metrics *observability.Metrics
	Workers int
}

// New loads the dataset and mapping tables and wires every service. A missing
// OpenAI key leaves LLM and Triage nil; the pipeline then skips the pick step.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	geo := opts.Geo
	if geo == nil {
		var err error
		geo, err = a.newGeolocation(ctx, opts.Metrics)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	a.Geo = geo

	llm := opts.LLM
	if llm == nil && cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(&cfg.OpenAI, logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		llm = client
	}
	if llm == nil {
		logger.Warn().Msg("OPENAI_API_KEY not set (offline mode); clinic picking and triage are disabled")
	}
	a.LLM = llm

	zh2en, err := mapping.LoadTable(cfg.Data.ZH2ENPath)
	if err != nil {
		_ = a.Close()
		return nil, apperrors.NewConfigurationError("cannot load zh2en table", err)
	}
	keywords, err := mapping.LoadTable(cfg.Data.TagMapPath)
	if err != nil {
		_ = a.Close()
		return nil, apperrors.NewConfigurationError("cannot load tag map", err)
	}
	types, err := mapping.LoadTable(cfg.Data.TypeMapPath)
	if err != nil {
		_ = a.Close()
		return nil, apperrors.NewConfigurationError("cannot load type map", err)
	}

	a.Registry = services.NewClinicRegistry(dataset.NewCSVRepository(cfg.Data.ClinicCSVPath), zh2en, geo, logger)
	if err := a.Registry.Load(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	index, err := services.LoadSpecialtyIndex(dataset.NewCSVRepository(cfg.Data.SpecialtyIndexPath))
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Data.SpecialtyIndexPath).Msg("specialty index unavailable")
		index = nil
	}

	a.Mapper = services.NewTagMapper(keywords, types, llm, logger)
	picker := services.NewClinicPicker(a.Registry, llm, cfg.Recommender.CandidateLimit, logger)
	fallback := services.NewSearchFallback(geo, a.Mapper, index, cfg.Recommender.ClinicQualifier, logger)

	a.Recommender = services.NewRecommendationService(geo, picker, a.Registry, fallback, services.RecommendationOptions{
		MaxTags:               cfg.Recommender.MaxTags,
		MaxClinics:            cfg.Recommender.MaxClinics,
		RegistryRadiusKm:      cfg.Recommender.RegistryRadiusKm,
		RegistryBackfillBelow: cfg.Recommender.RegistryBackfillBelow,
		ExternalFallbackBelow: cfg.Recommender.ExternalFallbackBelow,
	}, logger, opts.Metrics)

	if llm != nil {
		a.Triage = services.NewTriageService(llm, a.Mapper, retry.DefaultConfig(), logger)
	}
	a.Evaluator = services.NewEvaluationService(llm, logger)
	a.Backfill = services.NewCoordinateBackfillService(a.Registry, opts.Workers, logger)

	logger.Info().
		Int("clinics", len(a.Registry.Records())).
		Int("specialty_index", index.Len()).
		Int("tags", len(a.Mapper.Vocabulary())).
		Msg("clinic registry loaded")

	return a, nil
}

func (a *App) newGeolocation(ctx context.Context, metrics *observability.Metrics) (providers.GeolocationProvider, error) {
	cfg := a.Config
	if cfg.Geolocation.Provider == "mock" {
		a.logger.Warn().Msg("using mock geolocation provider")
		return geolocation.NewMockGeolocationProvider(), nil
	}

	store, closeFn, err := cache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeFn)

	return geolocation.NewGoogleGeolocationProvider(geolocation.GoogleOptions{
		APIKey:   cfg.Geolocation.APIKey,
		Language: cfg.Geolocation.Language,
		Timeout:  cfg.Geolocation.Timeout,
		QPS:      cfg.Geolocation.QPS,
		Logger:   a.logger,
		Metrics:  metrics,
	}, store)
}

// Close releases the cache backend.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
