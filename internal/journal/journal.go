// Package journal keeps a local SQLite record of bootstrap and verify runs:
// when they ran, against which tenant, which objects were created or
// updated, and how each verification check came out. The journal is an
// operator convenience; writing to it must never fail a run, so callers
// treat errors from this package as warnings.
package journal

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cardfraud/auth0ctl/pkg/idx"
)

const (
	KindBootstrap = "bootstrap"
	KindVerify    = "verify"
)

// Run is one journal entry. The ID is a ULID, so ordering by id is
// chronological.
type Run struct {
	ID                idx.ID
	Kind              string
	Tenant            string
	Audience          string
	Succeeded         bool
	SecretFingerprint string
	StartedAt         time.Time
	FinishedAt        time.Time
}

// ObjectEvent records one object touched during a bootstrap run.
type ObjectEvent struct {
	RunID      idx.ID
	ObjectKind string
	ObjectID   string
	Action     string
}

// CheckResult records one verification check outcome.
type CheckResult struct {
	RunID   idx.ID
	Name    string
	Passed  bool
	Message string
}

type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Fingerprint returns a short identifier for a secret that is safe to
// store: the first 12 hex characters of its SHA-256. Enough to tell two
// secrets apart, useless for recovering either.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])[:12]
}

// RecordRun writes a run and its events/checks in one transaction.
func (j *Journal) RecordRun(
	ctx context.Context,
	run Run,
	events []ObjectEvent,
	checks []CheckResult,
) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, kind, tenant, audience, succeeded, secret_fingerprint, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Kind, run.Tenant, run.Audience,
		run.Succeeded, run.SecretFingerprint,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return err
	}

	for _, ev := range events {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO object_events (run_id, object_kind, object_id, action)
			VALUES (?, ?, ?, ?)`,
			run.ID.String(), ev.ObjectKind, ev.ObjectID, ev.Action,
		)
		if err != nil {
			return err
		}
	}

	for _, c := range checks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO check_results (run_id, name, passed, message)
			VALUES (?, ?, ?, ?)`,
			run.ID.String(), c.Name, c.Passed, c.Message,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, tenant, audience, succeeded, secret_fingerprint, started_at, finished_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var id string
		if err := rows.Scan(&id, &r.Kind, &r.Tenant, &r.Audience,
			&r.Succeeded, &r.SecretFingerprint, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.ID = idx.ID(id)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunEvents returns the object events recorded for runID, in insert order.
func (j *Journal) RunEvents(ctx context.Context, runID idx.ID) ([]ObjectEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, object_kind, object_id, action
		FROM object_events WHERE run_id = ? ORDER BY id`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ObjectEvent
	for rows.Next() {
		var ev ObjectEvent
		var id string
		if err := rows.Scan(&id, &ev.ObjectKind, &ev.ObjectID, &ev.Action); err != nil {
			return nil, err
		}
		ev.RunID = idx.ID(id)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RunChecks returns the check results recorded for runID, in insert order.
func (j *Journal) RunChecks(ctx context.Context, runID idx.ID) ([]CheckResult, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, name, passed, message
		FROM check_results WHERE run_id = ? ORDER BY id`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []CheckResult
	for rows.Next() {
		var c CheckResult
		var id string
		if err := rows.Scan(&id, &c.Name, &c.Passed, &c.Message); err != nil {
			return nil, err
		}
		c.RunID = idx.ID(id)
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
