package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/giantswarm/embeddb/internal/engine"
)

func TestStartDatabases_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng, srv := newTestServer(t)
	reg := mustRegistry(t, Entry{Name: "sampledata", ScriptPath: writeScript(t, "init.sql", sampleDataScript)})
	p := &Provisioner{Server: srv, Credentials: engine.Credentials{User: "root"}}

	first := p.StartDatabases(ctx, reg)
	second := p.StartDatabases(ctx, reg)

	if len(first) != 1 || first[0].Outcome != OutcomeProvisioned {
		t.Fatalf("first run = %+v, want provisioned", first)
	}
	if len(second) != 1 || second[0].Outcome != OutcomeAlreadyProvisioned {
		t.Fatalf("second run = %+v, want already provisioned", second)
	}
	if runs := eng.ScriptRuns("sampledata"); runs != 1 {
		t.Errorf("script ran %d times, want 1", runs)
	}
}

func TestStartDatabases_MissingScriptIsIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng, srv := newTestServer(t)
	log, logs := newTestLogger()

	missing := filepath.Join(t.TempDir(), "does-not-exist.sql")
	reg := mustRegistry(t,
		Entry{Name: "broken", ScriptPath: missing},
		Entry{Name: "sampledata", ScriptPath: writeScript(t, "init.sql", sampleDataScript)},
	)
	p := &Provisioner{Server: srv, Logger: log}

	results := p.StartDatabases(ctx, reg)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	broken := results[0]
	if broken.Outcome != OutcomeSkippedNoScript {
		t.Errorf("broken outcome = %s, want %s", broken.Outcome, OutcomeSkippedNoScript)
	}
	if !errors.Is(broken.Err, ErrScriptNotFound) {
		t.Errorf("broken error = %v, want %v", broken.Err, ErrScriptNotFound)
	}
	if eng.Connects("broken") != 0 {
		t.Error("no connection may be opened for a missing script")
	}
	if n := logs.count(`"code":"startup_script_not_found"`); n != 1 {
		t.Errorf("logged %d script-not-found failures, want exactly 1", n)
	}

	if results[1].Outcome != OutcomeProvisioned {
		t.Errorf("sampledata outcome = %s, want %s (err %v)", results[1].Outcome, OutcomeProvisioned, results[1].Err)
	}
	if eng.ScriptRuns("sampledata") != 1 {
		t.Errorf("sampledata script runs = %d, want 1", eng.ScriptRuns("sampledata"))
	}
}

func TestStartDatabases_Failures(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		script  string
		setup   func(t *testing.T, p *Provisioner)
		wantErr error
		wantLog string
	}{
		"invalid sql": {
			script:  "CREATE TABLE (;",
			wantErr: ErrDatabaseCreationFailed,
			wantLog: "problem_creating_database",
		},
		"driver not found": {
			script: sampleDataScript,
			setup: func(t *testing.T, p *Provisioner) {
				eng, srv := newTestServer(t)
				eng.SetDriver("org.h2.Driver")
				p.Server = srv
			},
			wantErr: ErrDriverNotFound,
			wantLog: "driver_not_found",
		},
		"connection refused": {
			script: sampleDataScript,
			setup: func(t *testing.T, p *Provisioner) {
				eng, srv := newTestServer(t)
				eng.FailConnect(errors.New("connection refused"))
				p.Server = srv
			},
			wantErr: ErrDatabaseCreationFailed,
			wantLog: "problem_creating_database",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, srv := newTestServer(t)
			log, logs := newTestLogger()
			p := &Provisioner{Server: srv, Logger: log}
			if tc.setup != nil {
				tc.setup(t, p)
			}

			reg := mustRegistry(t,
				Entry{Name: "first", ScriptPath: writeScript(t, "first.sql", tc.script)},
				Entry{Name: "second", ScriptPath: writeScript(t, "second.sql", tc.script)},
			)
			results := p.StartDatabases(context.Background(), reg)

			if len(results) != 2 {
				t.Fatalf("got %d results, want 2: one failure must not stop the rest", len(results))
			}
			for _, res := range results {
				if res.Outcome != OutcomeFailed {
					t.Errorf("%s outcome = %s, want %s", res.Database, res.Outcome, OutcomeFailed)
				}
				if !errors.Is(res.Err, tc.wantErr) {
					t.Errorf("%s error = %v, want %v", res.Database, res.Err, tc.wantErr)
				}
			}
			if n := logs.count(`"code":"` + tc.wantLog + `"`); n != 2 {
				t.Errorf("logged %d %s failures, want 2", n, tc.wantLog)
			}
			if n := logs.count(warnNoDatabases); n != 2 {
				t.Errorf("logged %d follow-up warnings, want 2", n)
			}
		})
	}
}

func TestStartDatabases_LockFile(t *testing.T) {
	t.Parallel()

	eng, srv := newTestServer(t)
	lockPath := filepath.Join(t.TempDir(), "data", ".provision.lock")
	reg := mustRegistry(t, Entry{Name: "sampledata", ScriptPath: writeScript(t, "init.sql", sampleDataScript)})

	p := &Provisioner{Server: srv, LockPath: lockPath}
	results := p.StartDatabases(context.Background(), reg)
	if results[0].Outcome != OutcomeProvisioned {
		t.Fatalf("outcome = %s, want %s", results[0].Outcome, OutcomeProvisioned)
	}

	// The lock is released afterwards, so a second pass can take it again.
	results = p.StartDatabases(context.Background(), reg)
	if results[0].Outcome != OutcomeAlreadyProvisioned {
		t.Fatalf("outcome = %s, want %s", results[0].Outcome, OutcomeAlreadyProvisioned)
	}
	if eng.ScriptRuns("sampledata") != 1 {
		t.Errorf("script runs = %d, want 1", eng.ScriptRuns("sampledata"))
	}
}

func TestStartDatabases_EmptyRegistry(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)
	p := &Provisioner{Server: srv}
	if results := p.StartDatabases(context.Background(), Registry{}); len(results) != 0 {
		t.Errorf("results = %v, want none", results)
	}
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	tests := map[Outcome]string{
		OutcomeProvisioned:        "provisioned",
		OutcomeAlreadyProvisioned: "already_provisioned",
		OutcomeSkippedNoScript:    "skipped_no_script",
		OutcomeFailed:             "failed",
		Outcome(42):               "Outcome(42)",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
