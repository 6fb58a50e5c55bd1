// Package cache persists the active forecast configuration between
// invocations. Every value read back goes through the normalizer.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"forecast-workbench/internal/apperr"
	"forecast-workbench/internal/forecast"
)

// DefaultKey is the key the active configuration is stored under.
const DefaultKey = "forecastbench:active-config"

// ConfigCache stores one configuration. Load reports false when nothing is
// cached. All errors carry kind StorageError.
type ConfigCache interface {
	Load(ctx context.Context) (forecast.Config, bool, error)
	Store(ctx context.Context, cfg forecast.Config) error
	Clear(ctx context.Context) error
}

func storageErr(op string, err error) error {
	return apperr.Wrap(apperr.StorageError, fmt.Sprintf("config cache %s: %v", op, err), err)
}

func decode(raw []byte) (forecast.Config, error) {
	var cfg forecast.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return forecast.Config{}, err
	}
	return cfg, nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Load(context.Context) (forecast.Config, bool, error) { return forecast.Config{}, false, nil }
func (Noop) Store(context.Context, forecast.Config) error        { return nil }
func (Noop) Clear(context.Context) error                         { return nil }

// File keeps configurations in a small JSON document keyed by cache key, so
// several profiles can share one file.
type File struct {
	path string
	key  string
	mu   sync.Mutex
}

// NewFile returns a file-backed cache.
func NewFile(path, key string) *File {
	if key == "" {
		key = DefaultKey
	}
	return &File{path: path, key: key}
}

func (f *File) read() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	doc := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *File) write(doc map[string]json.RawMessage) error {
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *File) Load(context.Context) (forecast.Config, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return forecast.Config{}, false, storageErr("read", err)
	}
	raw, ok := doc[f.key]
	if !ok {
		return forecast.Config{}, false, nil
	}
	cfg, err := decode(raw)
	if err != nil {
		return forecast.Config{}, false, storageErr("decode", err)
	}
	return cfg, true, nil
}

func (f *File) Store(_ context.Context, cfg forecast.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		// unreadable documents are overwritten
		doc = map[string]json.RawMessage{}
	}
	raw, err := json.Marshal(forecast.Normalize(cfg))
	if err != nil {
		return storageErr("encode", err)
	}
	doc[f.key] = raw
	if err := f.write(doc); err != nil {
		return storageErr("write", err)
	}
	return nil
}

func (f *File) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return storageErr("read", err)
	}
	if _, ok := doc[f.key]; !ok {
		return nil
	}
	delete(doc, f.key)
	if err := f.write(doc); err != nil {
		return storageErr("write", err)
	}
	return nil
}

// Redis stores the configuration as a JSON string value.
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedis wraps an existing client. ttl of zero keeps the value forever.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

func (r *Redis) Load(ctx context.Context) (forecast.Config, bool, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return forecast.Config{}, false, nil
	}
	if err != nil {
		return forecast.Config{}, false, storageErr("get", err)
	}
	cfg, err := decode(raw)
	if err != nil {
		return forecast.Config{}, false, storageErr("decode", err)
	}
	return cfg, true, nil
}

func (r *Redis) Store(ctx context.Context, cfg forecast.Config) error {
	raw, err := json.Marshal(forecast.Normalize(cfg))
	if err != nil {
		return storageErr("encode", err)
	}
	if err := r.client.Set(ctx, r.key, raw, r.ttl).Err(); err != nil {
		return storageErr("set", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return storageErr("del", err)
	}
	return nil
}

var (
	_ ConfigCache = Noop{}
	_ ConfigCache = (*File)(nil)
	_ ConfigCache = (*Redis)(nil)
)
