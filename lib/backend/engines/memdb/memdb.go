package memdb

import (
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/distproc/pstore/lib/backend"
	"github.com/distproc/pstore/lib/backend/engines/memdb/internal"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultSweepInterval = 100 * time.Millisecond // interval between janitor sweeps
)

func init() {
	backend.Register(backend.ImplMemory, func() backend.IBackend {
		return NewMemDB(nil)
	})
}

// --------------------------------------------------------------------------
// Core engine structure
// --------------------------------------------------------------------------

// memImpl implements backend.IBackend with sharded in-process maps. It is
// the reference engine: it backs the conformance tests of the whole store
// protocol and serves single-machine deployments that need no external
// cluster.
type memImpl struct {
	numShards  int
	seed       uint64
	shards     []*internal.Shard
	containers *xsync.MapOf[string, *xsync.MapOf[string, []byte]]

	sweepInterval  time.Duration
	janitorRunning atomic.Bool
	janitorStop    chan struct{}
	connected      atomic.Bool
}

// Options configures the engine during initialization.
type Options struct {
	NumShards     int           // Number of shards (0 = one per CPU)
	SweepInterval time.Duration // Time between janitor sweeps (0 = default)
}

// DefaultOptions returns the default engine options.
func DefaultOptions() *Options {
	return &Options{
		NumShards:     runtime.NumCPU(),
		SweepInterval: defaultSweepInterval,
	}
}

// NewMemDB creates a new in-memory engine with the specified options
// (optional). The engine is not connected until Connect is called.
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization.
func NewMemDB(opts *Options) backend.IBackend {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}

	shards := make([]*internal.Shard, opts.NumShards)
	for i := range shards {
		shards[i] = internal.NewShard()
	}

	return &memImpl{
		numShards:     opts.NumShards,
		seed:          internal.GenerateSeed(),
		shards:        shards,
		containers:    xsync.NewMapOf[string, *xsync.MapOf[string, []byte]](),
		sweepInterval: opts.SweepInterval,
		janitorStop:   make(chan struct{}),
	}
}

// shardFor returns the shard responsible for a key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memImpl) shardFor(key string) *internal.Shard {
	return internal.GetShard(internal.HashString(key, m.seed), m.shards)
}

func deadline(ttlSeconds uint64) int64 {
	if ttlSeconds == 0 {
		return 0
	}
	return time.Now().Add(time.Duration(ttlSeconds) * time.Second).UnixNano()
}

// --------------------------------------------------------------------------
// IBackend - Connection
// --------------------------------------------------------------------------

// Connect marks the engine usable and starts the expiry janitor. The server
// list is ignored; this engine lives inside the calling process.
func (m *memImpl) Connect(_ *backend.Config) error {
	m.connected.Store(true)
	m.startJanitor()
	return nil
}

func (m *memImpl) IsConnected() bool {
	return m.connected.Load()
}

// Close stops the janitor. The data stays in place so a reconnect within
// the same process sees the previous state, mirroring an external cluster.
func (m *memImpl) Close() error {
	m.stopJanitor()
	m.connected.Store(false)
	return nil
}

// --------------------------------------------------------------------------
// IBackend - Flat Key Operations
// --------------------------------------------------------------------------

// WriteIfAbsent implements the conditional insert with TTL. An expired but
// not yet swept entry counts as absent.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memImpl) WriteIfAbsent(key string, value []byte, ttlSeconds uint64) (bool, error) {
	shard := m.shardFor(key)
	now := time.Now().UnixNano()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	var won bool
	shard.Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded && !old.Expired(now) {
			won = false
			return old, false
		}
		won = true
		return internal.Entry{Value: valueCopy, ExpireAt: deadline(ttlSeconds)}, false
	})

	return won, nil
}

func (m *memImpl) Write(key string, value []byte) error {
	return m.WriteTTL(key, value, 0)
}

func (m *memImpl) WriteTTL(key string, value []byte, ttlSeconds uint64) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	m.shardFor(key).Data.Store(key, internal.Entry{Value: valueCopy, ExpireAt: deadline(ttlSeconds)})
	return nil
}

// Read returns a copy of the stored value, safe for the caller to modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memImpl) Read(key string) ([]byte, bool, error) {
	shard := m.shardFor(key)
	now := time.Now().UnixNano()

	var (
		data  []byte
		found bool
	)
	shard.Data.Compute(key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return e, true // delete=true so no empty entry is created
		}
		if e.Expired(now) {
			return e, true // lazy expiry
		}
		found = true
		data = make([]byte, len(e.Value))
		copy(data, e.Value)
		return e, false
	})

	return data, found, nil
}

func (m *memImpl) Has(key string) (bool, error) {
	_, found, err := m.Read(key)
	if err != nil {
		return false, err
	}
	if found {
		return true, nil
	}
	// a container under this key also counts as existing
	_, isContainer := m.containers.Load(key)
	return isContainer, nil
}

// Delete removes the flat entry and any container stored under the key.
func (m *memImpl) Delete(key string) error {
	m.shardFor(key).Data.Delete(key)
	m.containers.Delete(key)
	return nil
}

// Increment atomically increments the decimal counter at key. A missing or
// expired counter restarts at zero.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memImpl) Increment(key string) (int64, error) {
	shard := m.shardFor(key)
	now := time.Now().UnixNano()

	var next int64
	shard.Data.Compute(key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		var current int64
		if loaded && !e.Expired(now) {
			current, _ = strconv.ParseInt(string(e.Value), 10, 64)
		}
		next = current + 1
		return internal.Entry{Value: []byte(strconv.FormatInt(next, 10))}, false
	})

	return next, nil
}

// --------------------------------------------------------------------------
// IBackend - Container Field Operations
// --------------------------------------------------------------------------

func (m *memImpl) container(containerKey string, create bool) (*xsync.MapOf[string, []byte], bool) {
	if create {
		c, _ := m.containers.LoadOrCompute(containerKey, func() *xsync.MapOf[string, []byte] {
			return xsync.NewMapOf[string, []byte]()
		})
		return c, true
	}
	c, ok := m.containers.Load(containerKey)
	return c, ok
}

func (m *memImpl) ContainerFieldSet(containerKey, field string, value []byte) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c, _ := m.container(containerKey, true)
	c.Store(field, valueCopy)
	return nil
}

func (m *memImpl) ContainerFieldGet(containerKey, field string) ([]byte, bool, error) {
	c, ok := m.container(containerKey, false)
	if !ok {
		return nil, false, nil
	}
	v, found := c.Load(field)
	if !found {
		return nil, false, nil
	}
	data := make([]byte, len(v))
	copy(data, v)
	return data, true, nil
}

func (m *memImpl) ContainerFieldExists(containerKey, field string) (bool, error) {
	c, ok := m.container(containerKey, false)
	if !ok {
		return false, nil
	}
	_, found := c.Load(field)
	return found, nil
}

func (m *memImpl) ContainerFieldDelete(containerKey, field string) (int64, error) {
	c, ok := m.container(containerKey, false)
	if !ok {
		return 0, nil
	}
	if _, loaded := c.LoadAndDelete(field); loaded {
		return 1, nil
	}
	return 0, nil
}

func (m *memImpl) ContainerFieldCount(containerKey string) (int64, error) {
	c, ok := m.container(containerKey, false)
	if !ok {
		return 0, nil
	}
	return int64(c.Size()), nil
}

func (m *memImpl) ContainerFieldKeys(containerKey string) ([]string, error) {
	c, ok := m.container(containerKey, false)
	if !ok {
		return nil, nil
	}
	var fields []string
	c.Range(func(field string, _ []byte) bool {
		fields = append(fields, field)
		return true
	})
	return fields, nil
}

// --------------------------------------------------------------------------
// Expiry Janitor
// --------------------------------------------------------------------------

// startJanitor starts the background sweep.
// If the janitor is already running, this function does nothing.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memImpl) startJanitor() {
	if m.janitorRunning.CompareAndSwap(false, true) {
		m.janitorStop = make(chan struct{})
		go m.janitor()
	}
}

// stopJanitor stops the background sweep.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memImpl) stopJanitor() {
	if m.janitorRunning.CompareAndSwap(true, false) {
		close(m.janitorStop)
	}
}

// janitor periodically removes expired flat entries. Reads already treat
// expired entries as absent, so the sweep only reclaims memory; precision
// of expiry does not depend on it.
func (m *memImpl) janitor() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.janitorStop:
			return
		case <-ticker.C:
			now := time.Now().UnixNano()
			for _, shard := range m.shards {
				var expired []string
				shard.Data.Range(func(key string, e internal.Entry) bool {
					if e.Expired(now) {
						expired = append(expired, key)
					}
					return true
				})
				for _, key := range expired {
					shard.Data.Compute(key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
						// re-check, the entry may have been rewritten meanwhile
						return e, !loaded || e.Expired(now)
					})
				}
			}
		}
	}
}

// --------------------------------------------------------------------------
// IBackend - Features and Metadata
// --------------------------------------------------------------------------

func (m *memImpl) SupportsFeature(feature backend.Feature) bool {
	supported := backend.FeatureWrite |
		backend.FeatureWriteIfAbsent |
		backend.FeatureRead |
		backend.FeatureDelete |
		backend.FeatureIncrement |
		backend.FeatureContainerFields |
		backend.FeatureTTL
	return supported&feature == feature
}

func (m *memImpl) GetInfo() backend.Info {
	flatKeys := 0
	for _, shard := range m.shards {
		flatKeys += shard.Data.Size()
	}

	meta := &struct {
		ShardCount     int `json:"shard_count"`
		FlatKeyCount   int `json:"flat_key_count"`
		ContainerCount int `json:"container_count"`
	}{
		ShardCount:     m.numShards,
		FlatKeyCount:   flatKeys,
		ContainerCount: m.containers.Size(),
	}

	return backend.Info{
		Impl: backend.ImplMemory,
		SupportedFeatures: []backend.Feature{
			backend.FeatureWrite, backend.FeatureWriteIfAbsent,
			backend.FeatureRead, backend.FeatureDelete,
			backend.FeatureIncrement, backend.FeatureContainerFields,
			backend.FeatureTTL,
		},
		Metadata: meta,
	}
}
