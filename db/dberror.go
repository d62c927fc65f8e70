// Package db persists concept and semantic chronologies to a graph store.
//
// Store errors are returned as *DBSysErr and written to the syslog when
// raised. Adding them to the errlog is left to the writer that owns the row.
package db

import (
	"errors"
	"fmt"

	slog "github.com/TermGraph/syslog"
)

const logid = "db"

const (
	MaxOperRetries   = "MaxOperationRetries"
	NonRetryOperErr  = "CriticalOperationErr"
	MarshalingErr    = "MarshalingErr"
	UnmarshallingErr = "UnmarshalingErr"
)

// ErrNoNid is returned when a query result row does not carry a nid.
var ErrNoNid = errors.New("no nid in result")

func syslog(s string) {
	slog.Log(logid, s)
}

// DBSysErr is a database error raised by a store operation. code is one of
// the codes above and classifies the failure for callers and tests.
type DBSysErr struct {
	routine string
	reason  string
	code    string
	key     string // uid or nid of the record
	err     error  // database error
}

func (e *DBSysErr) Unwrap() error {
	return e.err
}

func (e *DBSysErr) Error() string {
	if len(e.key) > 0 {
		return fmt.Sprintf("Error in %s [%s]: %s [%s], %s", e.routine, e.key, e.reason, e.code, e.err)
	}
	return fmt.Sprintf("Error in %s: %s [%s], %s", e.routine, e.reason, e.code, e.err)
}

func (e *DBSysErr) ErrorCode() string {
	return e.code
}

func newDBSysErr(rt string, key string, reason string, code string, err error) error {

	syserr := &DBSysErr{routine: rt, key: key, reason: reason, code: code, err: err}
	slog.LogErr(logid, syserr)

	return syserr
}
