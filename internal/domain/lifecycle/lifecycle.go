// Package lifecycle holds process-wide timing constants shared by deliveries and infra.
package lifecycle

import "time"

// DefaultTimeout bounds startup pings and graceful shutdown.
const DefaultTimeout = 10 * time.Second
