// Package run identifies a load and records its start and finish.
package run

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	param "github.com/TermGraph/dygparam"
	slog "github.com/TermGraph/syslog"
	"github.com/TermGraph/uuid"
)

const logid = "run"

const createMonRun = `CREATE TABLE IF NOT EXISTS mon_run (
	run      BINARY(16) NOT NULL PRIMARY KEY,
	program  VARCHAR(64) NOT NULL,
	start    DATETIME(6) NOT NULL,
	finish   DATETIME(6) NULL,
	status   CHAR(1) NOT NULL,
	elapsed  VARCHAR(32) NULL,
	logfile  VARCHAR(255) NULL
)`

// Status codes of mon_run
const (
	Running  = "R"
	Complete = "C"
	Errored  = "E"
	Panicked = "P"
)

// Run is one execution of a program. Without a database it is only logged.
type Run struct {
	Id      uuid.UID
	Program string
	Start   time.Time
	Status  string
	Elapsed time.Duration

	db *sql.DB
}

// New allocates a run id and records the start of the run. db may be nil.
func New(ctx context.Context, db *sql.DB, program string) (*Run, error) {

	id, err := uuid.MakeUID()
	if err != nil {
		return nil, err
	}
	r := &Run{Id: id, Program: program, Start: time.Now(), Status: Running, db: db}
	param.RunId = id.String()

	if db != nil {
		if _, err := db.ExecContext(ctx, createMonRun); err != nil {
			return nil, fmt.Errorf("create mon_run: %w", err)
		}
		_, err = db.ExecContext(ctx, "INSERT INTO mon_run (run, program, start, status, logfile) VALUES (?, ?, ?, ?, ?)",
			[]byte(r.Id), program, r.Start, r.Status, param.LogFile)
		if err != nil {
			return nil, fmt.Errorf("insert mon_run: %w", err)
		}
	}
	slog.LogAlert(logid, fmt.Sprintf("Run %s program %s started", r.Id, program))
	return r, nil
}

// Finish records completion, in error if err is not nil.
func (r *Run) Finish(err error) {
	status := Complete
	if err != nil {
		status = Errored
	}
	r.end(status)
}

// Panic records a run that ended in a panic.
func (r *Run) Panic() {
	r.end(Panicked)
}

func (r *Run) end(status string) {
	finish := time.Now()
	r.Status = status
	r.Elapsed = finish.Sub(r.Start)

	if r.db != nil {
		// cancel() may already have been called: use a fresh context
		_, err := r.db.ExecContext(context.Background(), "UPDATE mon_run SET finish = ?, status = ?, elapsed = ? WHERE run = ?",
			finish, status, r.Elapsed.String(), []byte(r.Id))
		if err != nil {
			slog.LogErr(logid, fmt.Errorf("Error in Finish(): %w", err))
		}
	}
	slog.LogAlert(logid, fmt.Sprintf("Run %s status %s elapsed %s", r.Id, status, r.Elapsed))
}
