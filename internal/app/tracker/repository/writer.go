package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/health"
)

const insertQuery = `
	INSERT INTO health_metrics (
		body_weight,
		body_height,
		age,
		bmi,
		water_intake,
		sleep_duration
	) VALUES ($1, $2, $3, $4, $5, $6)`

// Writer appends one row per record to health_metrics. Rows are never
// updated or deleted.
type Writer struct {
	dialer   Dialer
	database string
	logger   *logrus.Logger
}

func NewWriter(dialer Dialer, params ConnParams, logger *logrus.Logger) *Writer {
	return &Writer{
		dialer:   dialer,
		database: params.Database,
		logger:   logger,
	}
}

// Write inserts rec in its own transaction on its own connection. Absent
// fields are stored as NULL.
func (w *Writer) Write(ctx context.Context, rec health.Record) error {
	conn, err := w.dialer.Dial(ctx, w.database)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertQuery,
			rec.BodyWeight,
			rec.BodyHeight,
			rec.Age,
			rec.BMI,
			rec.WaterIntake,
			rec.SleepDuration,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record health metrics: %w", err)
	}

	w.logger.Info("Health metrics recorded successfully")
	return nil
}
