package core

import (
	"errors"
	"log/slog"
)

// warnNoDatabases follows every logged failure.
const warnNoDatabases = "embedded databases may be unavailable"

// failureCodes maps each failure kind to the stable code logged with it.
// Order matters: the first match wins, and wrapped errors can match several.
var failureCodes = []struct {
	err  error
	code string
}{
	{ErrAlreadyRunning, "already_running"},
	{ErrRetryExhausted, "retry_exhausted"},
	{ErrInvalidPort, "invalid_port"},
	{ErrDefaultPortInUse, "default_port_in_use"},
	{ErrPortInUseNoFailover, "specified_port_in_use_no_failover"},
	{ErrDriverNotFound, "driver_not_found"},
	{ErrScriptNotFound, "startup_script_not_found"},
	{ErrDatabaseCreationFailed, "problem_creating_database"},
	{ErrMalformedEntry, "entry_malformed"},
	{ErrBindCollision, "bind_collision"},
	{ErrEngineFailure, "engine_failure"},
}

// FailureCode returns the stable code of err, or "unknown".
func FailureCode(err error) string {
	for _, fc := range failureCodes {
		if errors.Is(err, fc.err) {
			return fc.code
		}
	}
	return "unknown"
}

// logFailure logs err with its code and the follow-up warning.
func logFailure(log *slog.Logger, msg string, err error, attrs ...any) {
	args := append([]any{"code", FailureCode(err), "error", err}, attrs...)
	log.Error(msg, args...)
	log.Warn(warnNoDatabases)
}
