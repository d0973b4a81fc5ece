package lockmgr

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// countOp increments the operation counter for one lock manager operation.
func countOp(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`pstore_lock_ops_total{op=%q}`, op)).Inc()
}

// countOpError increments the failure counter for one lock manager operation.
func countOpError(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`pstore_lock_op_errors_total{op=%q}`, op)).Inc()
}
