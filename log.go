package embeddb

import (
	"log/slog"

	"github.com/giantswarm/embeddb/internal/core"
)

// SetLogger replaces the package-level logger used by embeddb.
// The provided logger should already have any desired attributes; embeddb
// adds only per-call attributes such as port, database and code.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute, re-derived on the next log call and then cached.
// Call SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other embeddb operations, but
// a concurrent Start may briefly keep using the previous logger.
//
// Example:
//
//	embeddb.SetLogger(myLogger.With("component", "embeddb"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
