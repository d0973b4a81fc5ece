package backend

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Implementation identifies a concrete backend product.
type Implementation string

const (
	ImplMemory Implementation = "memory"
	ImplRedis  Implementation = "redis"
)

// Feature represents backend capabilities as bit flags
type Feature uint64

const (
	FeatureWrite           Feature = 1 << iota // Support for plain writes
	FeatureWriteIfAbsent                       // Support for atomic conditional writes with TTL
	FeatureRead                                // Support for reads
	FeatureDelete                              // Support for deletes
	FeatureIncrement                           // Support for atomic counters
	FeatureContainerFields                     // Support for container field operations
	FeatureTTL                                 // Support for automatic expiry of flat keys
)

func (f Feature) String() string {
	switch f {
	case FeatureWrite:
		return "Write"
	case FeatureWriteIfAbsent:
		return "WriteIfAbsent"
	case FeatureRead:
		return "Read"
	case FeatureDelete:
		return "Delete"
	case FeatureIncrement:
		return "Increment"
	case FeatureContainerFields:
		return "ContainerFields"
	case FeatureTTL:
		return "TTL"
	default:
		return "Unknown"
	}
}

// Info reports metadata about a backend connection.
// It is not guaranteed that all fields are filled in.
type Info struct {
	Impl              Implementation `json:"impl"`
	Servers           []string       `json:"servers"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Backend Interface
// --------------------------------------------------------------------------

// IBackend is the contract every concrete storage engine satisfies. The
// process store builds its entire protocol (store lifecycle, item CRUD,
// distributed locking) from these primitives alone, so any engine that
// implements them identically is interchangeable.
//
// Every call blocks the calling goroutine for the duration of the network
// round trip. None of the operations span more than one key atomically;
// multi-step protocols above this layer must bring their own compensation.
type IBackend interface {
	// Connect establishes the connection to the backend cluster described
	// by the configuration. It must be called before any other operation.
	Connect(cfg *Config) error

	// IsConnected reports whether the backend is currently reachable.
	IsConnected() bool

	// WriteIfAbsent atomically writes key=value only if the key does not
	// exist, expiring it after ttlSeconds (0 = no expiry). The return value
	// reports whether the write took place. This is the single primitive
	// all higher-level locking is built from.
	WriteIfAbsent(key string, value []byte, ttlSeconds uint64) (ok bool, err error)

	// Write unconditionally inserts or overwrites a flat key.
	Write(key string, value []byte) error

	// WriteTTL unconditionally inserts or overwrites a flat key with an
	// expiry of ttlSeconds (0 = no expiry).
	WriteTTL(key string, value []byte, ttlSeconds uint64) error

	// Read returns the value of a flat key. The boolean reports whether
	// the key was found.
	Read(key string) (value []byte, found bool, err error)

	// Has reports whether a flat key exists.
	Has(key string) (bool, error)

	// Delete removes a flat key. Deleting an absent key is not an error.
	Delete(key string) error

	// Increment atomically increments the counter stored at key by one and
	// returns the new value. A missing counter starts at zero.
	Increment(key string) (int64, error)

	// ContainerFieldSet inserts or overwrites one field of a container.
	// Writing to a non-existent container creates it.
	ContainerFieldSet(containerKey, field string, value []byte) error

	// ContainerFieldGet returns one field of a container. The boolean
	// reports whether the field was found.
	ContainerFieldGet(containerKey, field string) (value []byte, found bool, err error)

	// ContainerFieldExists reports whether a container field exists.
	ContainerFieldExists(containerKey, field string) (bool, error)

	// ContainerFieldDelete removes one field of a container and returns the
	// number of fields actually removed (some engines report 1 even for an
	// absent field; callers must not rely on the distinction).
	ContainerFieldDelete(containerKey, field string) (int64, error)

	// ContainerFieldCount returns the number of fields in a container.
	// A non-existent container counts as empty.
	ContainerFieldCount(containerKey string) (int64, error)

	// ContainerFieldKeys returns all field names of a container in
	// whatever order the engine yields them.
	ContainerFieldKeys(containerKey string) ([]string, error)

	// SupportsFeature checks if the backend supports the specified feature.
	// Multiple features can be checked at once using bitwise OR.
	SupportsFeature(feature Feature) bool

	// GetInfo returns metadata about the backend connection.
	GetInfo() Info

	// Close releases the connection.
	Close() error
}
