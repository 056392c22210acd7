// Package cache stores collaborator responses so repeated runs do not hit the
// network for data they already fetched. Only successful responses are cached; the
// deterministic fallbacks never pass through here.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a byte-value cache keyed by string.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key builds a cache key from a namespace and request parts.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s;", len(p), p)
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Settings selects and configures a backend.
type Settings struct {
	Backend   string // file, redis or none
	Dir       string
	RedisAddr string
	TTL       time.Duration
}

// New builds the cache described by s.
func New(s Settings) (Cache, error) {
	switch s.Backend {
	case "", "none":
		return Noop{}, nil
	case "file":
		dir := s.Dir
		if dir == "" {
			dir = ".cache"
		}
		return &FileCache{dir: dir, ttl: s.TTL, now: time.Now}, nil
	case "redis":
		if s.RedisAddr == "" {
			return nil, errors.New("cache: redis backend needs an address")
		}
		return NewRedis(redis.NewClient(&redis.Options{Addr: s.RedisAddr}), s.TTL), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", s.Backend)
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte) error         { return nil }

// FileCache keeps one file per key under dir.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileCache returns a cache rooted at dir. A zero ttl never expires entries.
func NewFileCache(dir string, ttl time.Duration) *FileCache {
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, filepath.FromSlash(sanitize(key)))
}

func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	p := c.path(key)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if c.ttl > 0 && c.now().Sub(info.ModTime()) > c.ttl {
		return nil, false, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *FileCache) Set(_ context.Context, key string, value []byte) error {
	p := c.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, value, 0o644)
}

// sanitize maps the namespace separator to a directory separator.
func sanitize(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		switch c := key[i]; {
		case c == ':':
			out[i] = '/'
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// Redis stores entries in Redis with an optional expiry.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}
