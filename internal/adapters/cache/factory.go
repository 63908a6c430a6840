package cache

import (
	"context"
	"fmt"

	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	redisclient "github.com/zatekoja/clinicfinder/internal/infrastructure/clients/redis"
	"github.com/zatekoja/clinicfinder/pkg/config"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

// New builds the cache backend selected in cfg. The returned close function
// releases the backend and is never nil.
func New(ctx context.Context, cfg *config.Config) (providers.CacheProvider, func() error, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendSQLite:
		adapter, err := NewSQLiteAdapter(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, nil, apperrors.NewConfigurationError("cannot open sqlite cache", err)
		}
		return adapter, adapter.Close, nil
	case config.CacheBackendRedis:
		client, err := redisclient.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, apperrors.NewConfigurationError("cannot connect to redis cache", err)
		}
		return NewRedisAdapter(client), client.Close, nil
	case config.CacheBackendMemory:
		adapter, err := NewMemoryAdapter(cfg.Cache.MemorySize)
		if err != nil {
			return nil, nil, apperrors.NewConfigurationError("cannot create memory cache", err)
		}
		return adapter, func() error { return nil }, nil
	default:
		return nil, nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown cache backend %q", cfg.Cache.Backend), nil)
	}
}
