// Package cmd implements the command-line interface for the pstore
// distributed process store. It provides a hierarchical command structure
// for managing stores, working with their items and coordinating through
// distributed locks.
//
// The package is organized into several subpackages:
//
//   - store: Commands for store lifecycle operations (create, remove, clear, etc.)
//   - kv: Commands for data item operations (get, put, delete, etc.) and the perf tool
//   - lock: Commands for distributed locking operations (acquire, release, etc.)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every command talks directly to the configured backend; there is no
// intermediate server process. See pstore -help for a list of all commands.
package cmd
