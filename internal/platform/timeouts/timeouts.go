// Package timeouts defines shared timeout constants used across commands.
package timeouts

import "time"

// StoreOpen caps opening the journal database and applying migrations.
const StoreOpen = 10 * time.Second

// Restore caps rebuilding ledger state from the journal at startup.
const Restore = 30 * time.Second

// Shutdown limits how long a command waits to flush telemetry on exit.
const Shutdown = 5 * time.Second
