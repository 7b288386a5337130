package repository

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/storage"
)

// ErrDocumentNotFound reports that no document is stored under a key.
var ErrDocumentNotFound = appErrors.Clone(appErrors.ErrNotFound, "document not found")

// MemoryDocumentRepository keeps documents in process memory.
type MemoryDocumentRepository struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryDocumentRepository constructs an empty in-memory repository.
func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{docs: make(map[string][]byte)}
}

// Load returns a copy of the stored bytes.
func (r *MemoryDocumentRepository) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	body, ok := r.docs[key]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

// Save stores a copy of body.
func (r *MemoryDocumentRepository) Save(_ context.Context, key string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := make([]byte, len(body))
	copy(stored, body)
	r.docs[key] = stored
	return nil
}

// Delete removes the key if present.
func (r *MemoryDocumentRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, key)
	return nil
}

// FileDocumentRepository stores each document as <dir>/<key>.json.
type FileDocumentRepository struct {
	files *storage.LocalStorage
}

// NewFileDocumentRepository wraps a local storage directory.
func NewFileDocumentRepository(files *storage.LocalStorage) *FileDocumentRepository {
	return &FileDocumentRepository{files: files}
}

// Load reads the document file.
func (r *FileDocumentRepository) Load(_ context.Context, key string) ([]byte, error) {
	body, err := r.files.Read(fileName(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return body, nil
}

// Save atomically replaces the document file.
func (r *FileDocumentRepository) Save(_ context.Context, key string, body []byte) error {
	return r.files.Save(fileName(key), body)
}

// Delete removes the document file.
func (r *FileDocumentRepository) Delete(_ context.Context, key string) error {
	return r.files.Delete(fileName(key))
}

// Location returns the path of the file backing key.
func (r *FileDocumentRepository) Location(key string) string {
	return r.files.Path(fileName(key))
}

func fileName(key string) string {
	return key + ".json"
}

// RedisDocumentRepository stores each document as a single string value.
type RedisDocumentRepository struct {
	client *redis.Client
}

// NewRedisDocumentRepository constructs the repository.
func NewRedisDocumentRepository(client *redis.Client) *RedisDocumentRepository {
	return &RedisDocumentRepository{client: client}
}

// Load fetches the document value.
func (r *RedisDocumentRepository) Load(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, ErrDocumentNotFound
	}
	body, err := r.client.Get(ctx, documentKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return body, nil
}

// Save writes the document without expiry.
func (r *RedisDocumentRepository) Save(ctx context.Context, key string, body []byte) error {
	if r.client == nil {
		return appErrors.Clone(appErrors.ErrNotConfigured, "redis client not configured")
	}
	return r.client.Set(ctx, documentKey(key), body, 0).Err()
}

// Delete removes the document value.
func (r *RedisDocumentRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	return r.client.Del(ctx, documentKey(key)).Err()
}

func documentKey(key string) string {
	return cache.Key("document", key)
}
