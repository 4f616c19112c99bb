package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS health_metrics (
		id SERIAL PRIMARY KEY,
		body_weight DOUBLE PRECISION,
		body_height DOUBLE PRECISION,
		age DOUBLE PRECISION,
		bmi DOUBLE PRECISION,
		water_intake DOUBLE PRECISION,
		sleep_duration DOUBLE PRECISION,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

// Provisioner makes sure the target database and the health_metrics table
// exist. Ensure is idempotent and may be called before every write.
type Provisioner struct {
	dialer        Dialer
	database      string
	adminDatabase string
	logger        *logrus.Logger
}

func NewProvisioner(dialer Dialer, params ConnParams, logger *logrus.Logger) *Provisioner {
	return &Provisioner{
		dialer:        dialer,
		database:      params.Database,
		adminDatabase: params.AdminDatabase,
		logger:        logger,
	}
}

func (p *Provisioner) Ensure(ctx context.Context) error {
	if err := p.ensureDatabase(ctx); err != nil {
		return fmt.Errorf("database creation error: %w", err)
	}
	if err := p.ensureTable(ctx); err != nil {
		return fmt.Errorf("table creation error: %w", err)
	}
	return nil
}

func (p *Provisioner) ensureDatabase(ctx context.Context) error {
	conn, err := p.dialer.Dial(ctx, p.adminDatabase)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	var one int
	err = conn.QueryRow(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, p.database).Scan(&one)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to look up database %s: %w", p.database, err)
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{p.database}.Sanitize()); err != nil {
		// Другой экземпляр мог успеть создать базу между проверкой и созданием.
		if isConcurrentCreate(err) {
			p.logger.WithField("database", p.database).Info("Database was created concurrently")
			return nil
		}
		return fmt.Errorf("failed to create database %s: %w", p.database, err)
	}

	p.logger.WithField("database", p.database).Info("Database created successfully")
	return nil
}

func (p *Provisioner) ensureTable(ctx context.Context) error {
	conn, err := p.dialer.Dial(ctx, p.database)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create health_metrics table: %w", err)
	}

	p.logger.Debug("Health metrics table created/verified successfully")
	return nil
}

func isConcurrentCreate(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.DuplicateDatabase || pgErr.Code == pgerrcode.UniqueViolation
}
