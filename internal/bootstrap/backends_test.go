package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/repository"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store:   config.StoreConfig{Driver: config.StoreDriverFile, FileDir: t.TempDir(), DocumentKey: "dtu_data_v2"},
		Session: config.SessionConfig{Driver: config.SessionDriverMemory},
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "timetable.db")},
		Auth:    config.AuthConfig{PasswordScheme: "plain"},
	}
}

func TestOpenFileStoreSeedsDocument(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	b, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &repository.FileDocumentRepository{}, b.Documents)
	assert.IsType(t, &repository.MemoryKeyValueRepository{}, b.KeyValue)
	assert.NoError(t, b.Ping(ctx))

	store, err := NewStore(cfg, b.Documents, nil, nil)
	require.NoError(t, err)
	result, err := store.Initialize(ctx)
	require.NoError(t, err)
	assert.True(t, result.Created)

	_, err = os.Stat(filepath.Join(cfg.Store.FileDir, "dtu_data_v2.json"))
	assert.NoError(t, err)
}

func TestOpenSQLiteStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = config.StoreDriverSQLite
	ctx := context.Background()

	b, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()

	store, err := NewStore(cfg, b.Documents, nil, nil)
	require.NoError(t, err)
	_, err = store.Initialize(ctx)
	require.NoError(t, err)

	again, err := store.Initialize(ctx)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, 20, again.Classes)
}

func TestOpenRejectsUnknownDrivers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "mongo"
	_, err := Open(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown store driver")

	cfg = testConfig(t)
	cfg.Session.Driver = "memcached"
	_, err = Open(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown session driver")
}

func TestNewStoreRejectsBadSettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Identity = "uuid"
	_, err := NewStore(cfg, repository.NewMemoryDocumentRepository(), nil, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Auth.PasswordScheme = "md5"
	_, err = NewStore(cfg, repository.NewMemoryDocumentRepository(), nil, nil)
	assert.Error(t, err)
}
