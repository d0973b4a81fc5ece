package memdb

import (
	"testing"
	"time"

	"github.com/distproc/pstore/lib/backend"
	backendtesting "github.com/distproc/pstore/lib/backend/testing"
)

// TestMemDBConformance runs the shared backend conformance suite.
func TestMemDBConformance(t *testing.T) {
	backendtesting.RunBackendTests(t, "MemDB", func() backend.IBackend {
		b := NewMemDB(nil)
		if err := b.Connect(&backend.Config{}); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		return b
	})
}

// TestJanitorSweep checks that the background sweep reclaims expired
// entries without a read touching them first.
func TestJanitorSweep(t *testing.T) {
	b := NewMemDB(&Options{NumShards: 2, SweepInterval: 20 * time.Millisecond})
	if err := b.Connect(&backend.Config{}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer b.Close()

	impl := b.(*memImpl)

	if ok, _ := b.WriteIfAbsent("sweep-me", []byte("x"), 1); !ok {
		t.Fatal("conditional write failed")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		total := 0
		for _, shard := range impl.shards {
			total += shard.Data.Size()
		}
		if total == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("expired entry was never swept")
}

func TestCloseStopsJanitor(t *testing.T) {
	b := NewMemDB(nil)
	if err := b.Connect(&backend.Config{}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if !b.IsConnected() {
		t.Error("expected connected after Connect")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if b.IsConnected() {
		t.Error("expected disconnected after Close")
	}
}
