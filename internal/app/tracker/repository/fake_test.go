package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeServer imitates just enough of a PostgreSQL server for the
// provisioner and the writer.
type fakeServer struct {
	mu        sync.Mutex
	databases map[string]bool
	tables    map[string]bool
	rows      [][]any
	dials     []string
	open      int

	dialErr   error
	createErr error
	insertErr error
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		databases: map[string]bool{"postgres": true},
		tables:    map[string]bool{},
	}
}

func (s *fakeServer) Dial(_ context.Context, database string) (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dials = append(s.dials, database)
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	if !s.databases[database] {
		return nil, &pgconn.PgError{Code: pgerrcode.InvalidCatalogName, Message: "database does not exist"}
	}
	s.open++
	return &fakeConn{srv: s, db: database}, nil
}

func (s *fakeServer) openConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

type fakeConn struct {
	srv *fakeServer
	db  string
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	s := c.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.HasPrefix(sql, "CREATE DATABASE "):
		if s.createErr != nil {
			return pgconn.CommandTag{}, s.createErr
		}
		name := strings.Trim(strings.TrimPrefix(sql, "CREATE DATABASE "), `"`)
		if s.databases[name] {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: pgerrcode.DuplicateDatabase}
		}
		s.databases[name] = true
		return pgconn.NewCommandTag("CREATE DATABASE"), nil
	case strings.Contains(sql, "CREATE TABLE IF NOT EXISTS health_metrics"):
		s.tables[c.db+".health_metrics"] = true
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	}
	return pgconn.CommandTag{}, errors.New("unexpected statement: " + sql)
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	s := c.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.Contains(sql, "pg_database") || len(args) != 1 {
		return fakeRow{err: errors.New("unexpected query: " + sql)}
	}
	name, _ := args[0].(string)
	if !s.databases[name] {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{}
}

func (c *fakeConn) Begin(_ context.Context) (pgx.Tx, error) {
	return &fakeTx{conn: c}, nil
}

func (c *fakeConn) Close(_ context.Context) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	c.srv.open--
	return nil
}

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*int); ok {
		*p = 1
	}
	return nil
}

// fakeTx buffers inserts until Commit. Methods other than Exec, Commit and
// Rollback are not used by the writer.
type fakeTx struct {
	pgx.Tx
	conn    *fakeConn
	pending [][]any
	done    bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s := tx.conn.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.Contains(sql, "INSERT INTO health_metrics") {
		return pgconn.CommandTag{}, errors.New("unexpected statement: " + sql)
	}
	if s.insertErr != nil {
		return pgconn.CommandTag{}, s.insertErr
	}
	if !s.tables[tx.conn.db+".health_metrics"] {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: pgerrcode.UndefinedTable}
	}
	tx.pending = append(tx.pending, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) Commit(_ context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	s := tx.conn.srv
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, tx.pending...)
	return nil
}

func (tx *fakeTx) Rollback(_ context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.pending = nil
	return nil
}
