package pstore

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// countOp increments the operation counter for one store operation. The
// counters are cheap enough for the hot path and give operators a per-op
// view of traffic against the shared backend.
func countOp(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`pstore_ops_total{op=%q}`, op)).Inc()
}

// countOpError increments the failure counter for one store operation.
func countOpError(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`pstore_op_errors_total{op=%q}`, op)).Inc()
}
