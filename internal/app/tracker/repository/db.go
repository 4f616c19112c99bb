package repository

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the part of *pgx.Conn the repository needs.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// Dialer opens a new connection to the named database on the server.
type Dialer interface {
	Dial(ctx context.Context, database string) (Conn, error)
}

// ConnParams describes the PostgreSQL server and the target database.
type ConnParams struct {
	Host          string
	Port          string
	User          string
	Password      string
	Database      string
	AdminDatabase string
}

// ConnString returns a postgres:// URL for the given database.
func (p ConnParams) ConnString(database string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, p.Port),
		Path:   "/" + database,
	}
	return u.String()
}

// PgDialer opens a fresh *pgx.Conn on every call. Connections are never
// pooled: each operation owns its connection and closes it.
type PgDialer struct {
	params ConnParams
}

func NewPgDialer(params ConnParams) *PgDialer {
	return &PgDialer{params: params}
}

func (d *PgDialer) Dial(ctx context.Context, database string) (Conn, error) {
	config, err := pgx.ParseConfig(d.params.ConnString(database))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	config.RuntimeParams["extra_float_digits"] = "3"
	config.RuntimeParams["application_name"] = "hobrushealth"

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", database, err)
	}
	return conn, nil
}
