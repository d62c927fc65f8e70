package stamp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TermGraph/ds"
)

const createTable = `CREATE TABLE IF NOT EXISTS stamp (
	status  TINYINT NOT NULL,
	etime   BIGINT NOT NULL,
	author  INT NOT NULL,
	module  INT NOT NULL,
	path    INT NOT NULL,
	stamp   INT NOT NULL AUTO_INCREMENT,
	PRIMARY KEY (status, etime, author, module, path),
	UNIQUE KEY stamp_id (stamp)
)`

// MySQL keeps stamps in a MySQL table next to the ident table, so a record
// has the same stamp in every load into the same store.
type MySQL struct {
	cache sync.Map // key -> ds.Stamp

	insert *sql.Stmt
	query  *sql.Stmt
}

// NewMySQL creates the stamp table if required and prepares its statements.
func NewMySQL(ctx context.Context, db *sql.DB) (*MySQL, error) {

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("create stamp table: %w", err)
	}
	ins, err := db.PrepareContext(ctx, "INSERT IGNORE INTO stamp (status, etime, author, module, path) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("prepare stamp insert: %w", err)
	}
	q, err := db.PrepareContext(ctx, "SELECT stamp FROM stamp WHERE status = ? AND etime = ? AND author = ? AND module = ? AND path = ?")
	if err != nil {
		ins.Close()
		return nil, fmt.Errorf("prepare stamp query: %w", err)
	}
	return &MySQL{insert: ins, query: q}, nil
}

func (m *MySQL) lookup(k key) (ds.Stamp, error) {
	if s, ok := m.cache.Load(k); ok {
		return s.(ds.Stamp), nil
	}
	var s int32
	if err := m.query.QueryRow(k.args()...).Scan(&s); err != nil {
		return 0, err
	}
	m.cache.Store(k, ds.Stamp(s))
	return ds.Stamp(s), nil
}

func (m *MySQL) Stamp(status Status, t time.Time, author, module, path ds.Nid) (ds.Stamp, error) {
	k := key{status, t.UnixNano(), author, module, path}

	s, err := m.lookup(k)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("stamp query: %w", err)
	}
	// concurrent inserts of the same record are resolved by the primary key
	if _, err := m.insert.Exec(k.args()...); err != nil {
		return 0, fmt.Errorf("stamp insert: %w", err)
	}
	if s, err = m.lookup(k); err != nil {
		return 0, fmt.Errorf("stamp query: %w", err)
	}
	return s, nil
}

func (m *MySQL) Close() error {
	m.insert.Close()
	return m.query.Close()
}
