package ident

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/uuid"
)

const createTable = `CREATE TABLE IF NOT EXISTS ident (
	uid BINARY(16) NOT NULL PRIMARY KEY,
	nid INT NOT NULL AUTO_INCREMENT,
	UNIQUE KEY ident_nid (nid)
)`

// MySQL keeps the uuid to nid mapping in a MySQL table, so nids are stable
// across loads into the same store. Resolved nids are cached.
type MySQL struct {
	db    *sql.DB
	cache sync.Map // [16]byte -> ds.Nid

	insert *sql.Stmt
	query  *sql.Stmt
}

// NewMySQL creates the ident table if required and prepares its statements.
func NewMySQL(ctx context.Context, db *sql.DB) (*MySQL, error) {

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("create ident table: %w", err)
	}
	ins, err := db.PrepareContext(ctx, "INSERT IGNORE INTO ident (uid) VALUES (?)")
	if err != nil {
		return nil, fmt.Errorf("prepare ident insert: %w", err)
	}
	q, err := db.PrepareContext(ctx, "SELECT nid FROM ident WHERE uid = ?")
	if err != nil {
		ins.Close()
		return nil, fmt.Errorf("prepare ident query: %w", err)
	}
	return &MySQL{db: db, insert: ins, query: q}, nil
}

func (m *MySQL) lookup(u uuid.UID) (ds.Nid, error) {

	if n, ok := m.cache.Load(u.Key()); ok {
		return n.(ds.Nid), nil
	}
	var n int32
	err := m.query.QueryRow([]byte(u)).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound(u)
		}
		return 0, fmt.Errorf("ident query %s: %w", u, err)
	}
	m.cache.Store(u.Key(), ds.Nid(n))
	return ds.Nid(n), nil
}

func (m *MySQL) Resolve(u uuid.UID) (ds.Nid, error) {
	return m.lookup(u)
}

func (m *MySQL) HasIdentity(u uuid.UID) bool {
	_, err := m.lookup(u)
	return err == nil
}

func (m *MySQL) Assign(u uuid.UID) (ds.Nid, error) {

	n, err := m.lookup(u)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return n, err
	}
	// concurrent assigns of the same uid are resolved by the primary key
	if _, err := m.insert.Exec([]byte(u)); err != nil {
		return 0, fmt.Errorf("ident insert %s: %w", u, err)
	}
	return m.lookup(u)
}

func (m *MySQL) Close() error {
	m.insert.Close()
	return m.query.Close()
}
