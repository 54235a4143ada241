package store

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/addonstate/errors"
	"github.com/leeforge/addonstate/install"
)

func integrationRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := strings.TrimSpace(os.Getenv("REDIS_TEST_ADDR"))
	if addr == "" {
		t.Skip("set REDIS_TEST_ADDR to run redis integration tests")
	}
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err, "invalid REDIS_TEST_ADDR")

	db := 0
	if raw := strings.TrimSpace(os.Getenv("REDIS_TEST_DB")); raw != "" {
		db, err = strconv.Atoi(raw)
		require.NoError(t, err, "invalid REDIS_TEST_DB")
	}

	client, err := NewRedisClient(context.Background(), RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_TEST_PASSWORD"),
		DB:       db,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, RedisOptions{Prefix: "addonstate-test-" + uuid.NewString()[:8]})
}

func TestRedisStore_Integration_ApplyInOrder(t *testing.T) {
	s := integrationRedisStore(t)
	ctx := context.Background()
	t.Cleanup(func() { _ = s.Clear(ctx, "@a") })

	rec, err := s.Get(ctx, "@a")
	require.NoError(t, err)
	assert.Equal(t, install.StatusUnknown, rec.Status)

	_, err = s.Apply(ctx, "@a", install.StartDownload{})
	require.NoError(t, err)
	rec, err = s.Apply(ctx, "@a", install.DownloadProgress{Current: 50, Max: 100})
	require.NoError(t, err)
	assert.Equal(t, 50, rec.DownloadProgress)

	rec, err = s.Get(ctx, "@a")
	require.NoError(t, err)
	assert.Equal(t, install.StatusDownloading, rec.Status)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "@a", records[0].GUID)
}

func TestRedisStore_Integration_ConcurrentAppliesAllLand(t *testing.T) {
	s := integrationRedisStore(t)
	s.retryer = apperrors.NewRetryer(10)
	ctx := context.Background()
	t.Cleanup(func() { _ = s.Clear(ctx, "@b") })

	_, err := s.Apply(ctx, "@b", install.StartDownload{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 4; i++ {
		wg.Add(1)
		go func(cur int64) {
			defer wg.Done()
			_, err := s.Apply(ctx, "@b", install.DownloadProgress{Current: cur, Max: 4})
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()

	rec, err := s.Get(ctx, "@b")
	require.NoError(t, err)
	assert.Equal(t, 100, rec.DownloadProgress)
}
