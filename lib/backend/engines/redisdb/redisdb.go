package redisdb

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/distproc/pstore/lib/backend"
	"github.com/redis/go-redis/v9"
)

func init() {
	backend.Register(backend.ImplRedis, func() backend.IBackend {
		return NewRedisDB()
	})
}

// --------------------------------------------------------------------------
// Core adapter structure
// --------------------------------------------------------------------------

// redisImpl implements backend.IBackend on top of a redis deployment. A
// single server entry yields a plain client, multiple entries a cluster
// client; the adapter behaves identically either way because every
// operation touches a single key.
type redisImpl struct {
	client  redis.UniversalClient
	servers []string
	timeout time.Duration
}

// NewRedisDB creates a new, not yet connected redis adapter.
func NewRedisDB() backend.IBackend {
	return &redisImpl{}
}

// ctx returns the per-call context. Every backend call is a synchronous
// round trip bounded by the configured timeout.
func (r *redisImpl) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// --------------------------------------------------------------------------
// IBackend - Connection
// --------------------------------------------------------------------------

// Connect builds the client from the parsed server list and verifies
// reachability with a ping.
func (r *redisImpl) Connect(cfg *backend.Config) error {
	if cfg == nil || len(cfg.Servers) == 0 {
		return fmt.Errorf("redis backend requires at least one server entry")
	}

	first := cfg.Servers[0]
	r.timeout = first.Timeout

	var tlsConfig *tls.Config
	if first.UseTLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		if first.CACertPath != "" {
			pem, err := os.ReadFile(first.CACertPath)
			if err != nil {
				return fmt.Errorf("reading CA certificate %s: %w", first.CACertPath, err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return fmt.Errorf("CA certificate %s contains no usable certificates", first.CACertPath)
			}
			tlsConfig.RootCAs = pool
		}
	}

	addrs := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		addrs = append(addrs, s.Addr())
	}
	r.servers = addrs

	r.client = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Password:     first.Password,
		DialTimeout:  first.Timeout,
		ReadTimeout:  first.Timeout,
		WriteTimeout: first.Timeout,
		TLSConfig:    tlsConfig,
	})

	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cannot reach redis at %v: %w", addrs, err)
	}
	return nil
}

func (r *redisImpl) IsConnected() bool {
	if r.client == nil {
		return false
	}
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Ping(ctx).Err() == nil
}

func (r *redisImpl) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// --------------------------------------------------------------------------
// IBackend - Flat Key Operations
// --------------------------------------------------------------------------

// WriteIfAbsent maps directly onto SET NX with expiry, redis' native
// single-winner conditional write.
func (r *redisImpl) WriteIfAbsent(key string, value []byte, ttlSeconds uint64) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.SetNX(ctx, key, value, time.Duration(ttlSeconds)*time.Second).Result()
}

func (r *redisImpl) Write(key string, value []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *redisImpl) WriteTTL(key string, value []byte, ttlSeconds uint64) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, key, value, time.Duration(ttlSeconds)*time.Second).Err()
}

func (r *redisImpl) Read(key string) ([]byte, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *redisImpl) Has(key string) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisImpl) Delete(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Del(ctx, key).Err()
}

func (r *redisImpl) Increment(key string) (int64, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Incr(ctx, key).Result()
}

// --------------------------------------------------------------------------
// IBackend - Container Field Operations (redis hashes)
// --------------------------------------------------------------------------

func (r *redisImpl) ContainerFieldSet(containerKey, field string, value []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.HSet(ctx, containerKey, field, value).Err()
}

func (r *redisImpl) ContainerFieldGet(containerKey, field string) ([]byte, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	value, err := r.client.HGet(ctx, containerKey, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *redisImpl) ContainerFieldExists(containerKey, field string) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.HExists(ctx, containerKey, field).Result()
}

func (r *redisImpl) ContainerFieldDelete(containerKey, field string) (int64, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.HDel(ctx, containerKey, field).Result()
}

func (r *redisImpl) ContainerFieldCount(containerKey string) (int64, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.HLen(ctx, containerKey).Result()
}

func (r *redisImpl) ContainerFieldKeys(containerKey string) ([]string, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.HKeys(ctx, containerKey).Result()
}

// --------------------------------------------------------------------------
// IBackend - Features and Metadata
// --------------------------------------------------------------------------

func (r *redisImpl) SupportsFeature(feature backend.Feature) bool {
	supported := backend.FeatureWrite |
		backend.FeatureWriteIfAbsent |
		backend.FeatureRead |
		backend.FeatureDelete |
		backend.FeatureIncrement |
		backend.FeatureContainerFields |
		backend.FeatureTTL
	return supported&feature == feature
}

func (r *redisImpl) GetInfo() backend.Info {
	return backend.Info{
		Impl:    backend.ImplRedis,
		Servers: r.servers,
		SupportedFeatures: []backend.Feature{
			backend.FeatureWrite, backend.FeatureWriteIfAbsent,
			backend.FeatureRead, backend.FeatureDelete,
			backend.FeatureIncrement, backend.FeatureContainerFields,
			backend.FeatureTTL,
		},
	}
}
