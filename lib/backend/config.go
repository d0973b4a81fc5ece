package backend

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Server Entry Configuration
// --------------------------------------------------------------------------

const (
	// DefaultTimeout is used when a server entry leaves the timeout field empty.
	DefaultTimeout = 3 * time.Second

	// DefaultRedisPort is used when a redis server entry leaves the port empty.
	DefaultRedisPort = 6379
)

// ServerEntry describes one endpoint of the backend cluster.
type ServerEntry struct {
	Host       string
	Port       int
	Password   string
	Timeout    time.Duration
	UseTLS     bool
	CACertPath string
}

// Addr returns the host:port address of the entry.
func (s ServerEntry) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Config holds the connection parameters handed to a backend's Connect.
type Config struct {
	Servers []ServerEntry
}

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

// ParseServerEntry parses one colon separated server description of the form
//
//	host:port:password:timeoutSeconds:useTLS:caCertPath
//
// Every field except host may be empty and defaults (defaultPort, 3 second
// timeout, TLS off). Trailing fields may be omitted entirely.
func ParseServerEntry(entry string, defaultPort int) (ServerEntry, error) {
	parts := strings.Split(entry, ":")

	s := ServerEntry{
		Port:    defaultPort,
		Timeout: DefaultTimeout,
	}

	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return s, fmt.Errorf("server entry %q has no host", entry)
	}
	s.Host = strings.TrimSpace(parts[0])

	if len(parts) > 1 && parts[1] != "" {
		port, err := strconv.Atoi(parts[1])
		if err != nil || port <= 0 || port > 65535 {
			return s, fmt.Errorf("server entry %q has invalid port %q", entry, parts[1])
		}
		s.Port = port
	}

	if len(parts) > 2 {
		s.Password = parts[2]
	}

	if len(parts) > 3 && parts[3] != "" {
		secs, err := strconv.Atoi(parts[3])
		if err != nil || secs < 0 {
			return s, fmt.Errorf("server entry %q has invalid timeout %q", entry, parts[3])
		}
		if secs > 0 {
			s.Timeout = time.Duration(secs) * time.Second
		}
	}

	if len(parts) > 4 && parts[4] != "" {
		useTLS, err := strconv.ParseBool(parts[4])
		if err != nil {
			return s, fmt.Errorf("server entry %q has invalid TLS flag %q", entry, parts[4])
		}
		s.UseTLS = useTLS
	}

	if len(parts) > 5 {
		s.CACertPath = parts[5]
	}

	return s, nil
}

// ParseServerList parses a comma separated list of server entries.
func ParseServerList(list string, defaultPort int) (*Config, error) {
	cfg := &Config{}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		s, err := ParseServerEntry(entry, defaultPort)
		if err != nil {
			return nil, err
		}
		cfg.Servers = append(cfg.Servers, s)
	}
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("server list %q contains no servers", list)
	}
	return cfg, nil
}
