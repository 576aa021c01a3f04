package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/giantswarm/embeddb/internal/engine"
	"github.com/giantswarm/embeddb/internal/fileutil"
	"github.com/giantswarm/embeddb/internal/metrics"
)

// Outcome is the result of provisioning one database.
type Outcome int

const (
	// OutcomeProvisioned means the script ran against an empty database.
	OutcomeProvisioned Outcome = iota
	// OutcomeAlreadyProvisioned means the database had tables and the
	// script was not run.
	OutcomeAlreadyProvisioned
	// OutcomeSkippedNoScript means the script does not exist; no connection
	// was opened.
	OutcomeSkippedNoScript
	// OutcomeFailed means connecting, inspecting or running the script
	// failed.
	OutcomeFailed
)

// String returns the snake_case name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeProvisioned:
		return "provisioned"
	case OutcomeAlreadyProvisioned:
		return "already_provisioned"
	case OutcomeSkippedNoScript:
		return "skipped_no_script"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result reports what happened to one registry entry.
type Result struct {
	Database string
	Script   string
	Outcome  Outcome
	Err      error // nil unless Outcome is OutcomeSkippedNoScript or OutcomeFailed
}

// Provisioner replays startup scripts against databases that have no tables
// yet. It keeps no state of its own: a database with at least one table
// counts as provisioned.
type Provisioner struct {
	Server      engine.Server
	Credentials engine.Credentials

	// LockPath, if set, names a file locked for the duration of
	// StartDatabases so that processes sharing a data directory do not
	// replay the same script concurrently.
	LockPath string

	Logger  *slog.Logger     // defaults to Logger()
	Metrics *metrics.Metrics // optional
}

// StartDatabases provisions every entry of reg in order. A failing entry is
// logged and recorded in its Result; it never stops the remaining entries.
func (p *Provisioner) StartDatabases(ctx context.Context, reg Registry) []Result {
	log := p.Logger
	if log == nil {
		log = Logger()
	}

	if p.LockPath != "" && reg.Len() > 0 {
		fl, err := fileutil.AcquireLock(ctx, p.LockPath)
		if err != nil {
			log.Warn("provisioning lock not acquired, continuing without it",
				"path", p.LockPath, "error", err)
		} else {
			defer fileutil.ReleaseLock(log, fl)
		}
	}

	results := make([]Result, 0, reg.Len())
	for _, e := range reg.Entries() {
		res := p.startDatabase(ctx, log, e)
		p.Metrics.Provisioned(res.Database, res.Outcome.String())
		results = append(results, res)
	}
	return results
}

func (p *Provisioner) startDatabase(ctx context.Context, log *slog.Logger, e Entry) Result {
	res := Result{Database: e.Name, Script: e.ScriptPath}
	log = log.With("database", e.Name, "script", e.ScriptPath)

	fail := func(outcome Outcome, msg string, err error) Result {
		res.Outcome = outcome
		res.Err = err
		logFailure(log, msg, err)
		return res
	}

	exists, err := fileutil.FileExists(e.ScriptPath)
	if err != nil || !exists {
		if err == nil {
			err = os.ErrNotExist
		}
		return fail(OutcomeSkippedNoScript, "startup script not found",
			fmt.Errorf("script %s: %w: %w", e.ScriptPath, ErrScriptNotFound, err))
	}

	conn, err := p.Server.Connect(ctx, e.Name, p.Credentials)
	if err != nil {
		kind := ErrDatabaseCreationFailed
		if errors.Is(err, engine.ErrDriverNotFound) {
			kind = ErrDriverNotFound
		}
		return fail(OutcomeFailed, "connect to database", fmt.Errorf("database %s: %w: %w", e.Name, kind, err))
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("close database connection", "error", err)
		}
	}()

	tables, err := conn.ListTables(ctx)
	if err != nil {
		return fail(OutcomeFailed, "inspect database",
			fmt.Errorf("database %s: %w: %w", e.Name, ErrDatabaseCreationFailed, err))
	}
	if len(tables) > 0 {
		log.Info("database already provisioned, skipping startup script", "tables", len(tables))
		res.Outcome = OutcomeAlreadyProvisioned
		return res
	}

	f, err := os.Open(e.ScriptPath) //nolint:gosec // G304: script paths come from configuration
	if err != nil {
		return fail(OutcomeFailed, "open startup script",
			fmt.Errorf("script %s: %w: %w", e.ScriptPath, ErrScriptNotFound, err))
	}
	defer f.Close() //nolint:errcheck // read-only handle

	if err := conn.RunScript(ctx, f); err != nil {
		return fail(OutcomeFailed, "run startup script",
			fmt.Errorf("database %s: %w: %w", e.Name, ErrDatabaseCreationFailed, err))
	}

	log.Info("starting up database")
	res.Outcome = OutcomeProvisioned
	return res
}
