package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicfinder/pkg/config"
	"github.com/zatekoja/clinicfinder/pkg/retry"
)

func TestNewClient_UnreachableServer(t *testing.T) {
	cfg := &config.RedisConfig{Host: "127.0.0.1", Port: 1}
	fast := retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	client, err := newClient(context.Background(), cfg, fast)

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Contains(t, err.Error(), "max retry attempts (2) exceeded")
}
