package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  ServerEntry
	}{
		{
			name:  "host only",
			entry: "cache1.example.com",
			want: ServerEntry{
				Host:    "cache1.example.com",
				Port:    6379,
				Timeout: 3 * time.Second,
			},
		},
		{
			name:  "host and port",
			entry: "10.0.0.5:7000",
			want: ServerEntry{
				Host:    "10.0.0.5",
				Port:    7000,
				Timeout: 3 * time.Second,
			},
		},
		{
			name:  "all fields",
			entry: "db:6380:s3cret:10:true:/etc/ssl/ca.pem",
			want: ServerEntry{
				Host:       "db",
				Port:       6380,
				Password:   "s3cret",
				Timeout:    10 * time.Second,
				UseTLS:     true,
				CACertPath: "/etc/ssl/ca.pem",
			},
		},
		{
			name:  "empty fields default",
			entry: "db::::",
			want: ServerEntry{
				Host:    "db",
				Port:    6379,
				Timeout: 3 * time.Second,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseServerEntry(tc.entry, DefaultRedisPort)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseServerEntryErrors(t *testing.T) {
	for _, entry := range []string{"", ":6379", "db:notaport", "db:6379::abc", "db:6379:::maybe"} {
		t.Run(entry, func(t *testing.T) {
			_, err := ParseServerEntry(entry, DefaultRedisPort)
			assert.Error(t, err)
		})
	}
}

func TestParseServerList(t *testing.T) {
	cfg, err := ParseServerList("a:7000, b, c:7002:pw", DefaultRedisPort)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 3)

	assert.Equal(t, "a:7000", cfg.Servers[0].Addr())
	assert.Equal(t, "b:6379", cfg.Servers[1].Addr())
	assert.Equal(t, "pw", cfg.Servers[2].Password)

	_, err = ParseServerList(" , ", DefaultRedisPort)
	assert.Error(t, err)
}

func TestRegistryUnknownBackend(t *testing.T) {
	_, err := New("no-such-engine", &Config{})
	assert.Error(t, err)
}
