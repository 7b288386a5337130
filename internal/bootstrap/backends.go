// Package bootstrap opens the storage backends selected by configuration.
// Both the API server and the admin CLI build their store through it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/repository"
	"github.com/noah-isme/campus-timetable-api/internal/seed"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	"github.com/noah-isme/campus-timetable-api/internal/timetable"
	"github.com/noah-isme/campus-timetable-api/pkg/cache"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	"github.com/noah-isme/campus-timetable-api/pkg/database"
	"github.com/noah-isme/campus-timetable-api/pkg/storage"
)

// DocumentRepository persists the single timetable document.
type DocumentRepository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
}

// KeyValueRepository holds sessions, pending sign-ups and one-time codes.
type KeyValueRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Take(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Backends holds the opened storage and the functions releasing it.
type Backends struct {
	Documents DocumentRepository
	KeyValue  KeyValueRepository
	Redis     *redis.Client

	closers []func() error
}

// Close releases every opened connection.
func (b *Backends) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// Ping checks the shared Redis connection when one is open.
func (b *Backends) Ping(ctx context.Context) error {
	if b.Redis == nil {
		return nil
	}
	return b.Redis.Ping(ctx).Err()
}

// Open connects the document and session backends named by cfg.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backends, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backends{}

	needRedis := cfg.Store.Driver == config.StoreDriverRedis || cfg.Session.Driver == config.SessionDriverRedis
	if needRedis {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.Redis = client
		b.closers = append(b.closers, client.Close)
	}

	docs, err := b.openDocuments(ctx, cfg)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Documents = docs

	switch cfg.Session.Driver {
	case config.SessionDriverRedis:
		b.KeyValue = repository.NewRedisKeyValueRepository(b.Redis, logger)
	case "", config.SessionDriverMemory:
		b.KeyValue = repository.NewMemoryKeyValueRepository()
	default:
		_ = b.Close()
		return nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
	}

	logger.Info("storage backends ready", zap.String("store_driver", cfg.Store.Driver), zap.String("session_driver", cfg.Session.Driver))
	return b, nil
}

func (b *Backends) openDocuments(ctx context.Context, cfg *config.Config) (DocumentRepository, error) {
	switch cfg.Store.Driver {
	case "", config.StoreDriverFile:
		files, err := storage.NewLocalStorage(cfg.Store.FileDir)
		if err != nil {
			return nil, err
		}
		return repository.NewFileDocumentRepository(files), nil
	case config.StoreDriverMemory:
		return repository.NewMemoryDocumentRepository(), nil
	case config.StoreDriverRedis:
		return repository.NewRedisDocumentRepository(b.Redis), nil
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		return ensureSchema(ctx, repository.NewSQLDocumentRepository(db))
	case config.StoreDriverSQLite:
		db, err := database.NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		return ensureSchema(ctx, repository.NewSQLDocumentRepository(db))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func ensureSchema(ctx context.Context, repo *repository.SQLDocumentRepository) (DocumentRepository, error) {
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare documents table: %w", err)
	}
	return repo, nil
}

// NewStore builds the store manager over docs using the configured skeleton,
// password scheme and merge identity.
func NewStore(cfg *config.Config, docs DocumentRepository, logger *zap.Logger, metrics *service.MetricsService) (*service.StoreService, error) {
	hasher, err := service.NewPasswordHasher(cfg.Auth.PasswordScheme)
	if err != nil {
		return nil, err
	}
	identity, err := timetable.ParseIdentity(cfg.Store.Identity)
	if err != nil {
		return nil, err
	}

	path := cfg.Timetable.SkeletonPath
	skeleton := func() (models.ScheduleSkeleton, error) { return seed.LoadSkeleton(path) }

	return service.NewStoreService(docs, skeleton, hasher, nil, logger, metrics, service.StoreConfig{
		DocumentKey:    cfg.Store.DocumentKey,
		Identity:       identity,
		ResetOnCorrupt: cfg.Store.ResetOnCorrupt,
	}), nil
}
