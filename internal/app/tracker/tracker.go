// Package tracker drives the read → transform → persist → export cycle.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/health"
	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/source"
)

type State int32

const (
	StateIdle State = iota
	StateReadingInput
	StateTransforming
	StatePersisting
	StateExporting
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReadingInput:
		return "reading_input"
	case StateTransforming:
		return "transforming"
	case StatePersisting:
		return "persisting"
	case StateExporting:
		return "exporting"
	case StateSleeping:
		return "sleeping"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

type CycleOutcome int

const (
	// OutcomeRecorded: a row was written and the gauges were updated.
	OutcomeRecorded CycleOutcome = iota
	// OutcomeSkipped: no usable input this cycle.
	OutcomeSkipped
	// OutcomeFailed: the cycle was abandoned on an error.
	OutcomeFailed
)

func (o CycleOutcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type Source interface {
	Read() (health.RawRecord, error)
}

type Provisioner interface {
	Ensure(ctx context.Context) error
}

type Writer interface {
	Write(ctx context.Context, rec health.Record) error
}

type Exporter interface {
	Update(rec health.Record)
}

// CycleReport describes the most recent finished cycle.
type CycleReport struct {
	Outcome    CycleOutcome
	FinishedAt time.Time
	Err        error
}

type Tracker struct {
	Interval    time.Duration
	Source      Source
	Transformer *health.Transformer
	Provisioner Provisioner
	Writer      Writer
	Exporter    Exporter
	Logger      *logrus.Logger

	state atomic.Int32

	mu   sync.RWMutex
	last *CycleReport
}

// State returns what the loop is doing right now.
func (t *Tracker) State() State {
	return State(t.state.Load())
}

// LastCycle returns the report of the last finished cycle, if any.
func (t *Tracker) LastCycle() (CycleReport, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last == nil {
		return CycleReport{}, false
	}
	return *t.last, true
}

// Run executes a cycle right away and then one per Interval until ctx is
// done. Every cycle is followed by a full Interval of sleep whatever its
// outcome.
func (t *Tracker) Run(ctx context.Context) error {
	defer t.setState(StateIdle)

	for {
		t.Logger.Info("Starting metrics update...")
		outcome, err := t.RunCycle(ctx)
		if err != nil {
			t.Logger.WithError(err).Error("Error in periodic update")
		} else {
			t.Logger.WithField("outcome", outcome.String()).Info("Metrics update finished")
		}

		t.setState(StateSleeping)
		t.Logger.WithField("interval", t.Interval.String()).Info("Waiting until next update...")

		timer := time.NewTimer(t.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle performs one read → transform → persist → export pass. Missing or
// malformed input skips the cycle without an error; any other failure,
// panics included, abandons the rest of the cycle and is returned.
func (t *Tracker) RunCycle(ctx context.Context) (outcome CycleOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = OutcomeFailed, fmt.Errorf("panic during %s: %v", t.State(), r)
		}
		t.record(outcome, err)
	}()

	t.setState(StateReadingInput)
	raw, err := t.Source.Read()
	switch {
	case errors.Is(err, source.ErrNotFound):
		t.Logger.WithError(err).Warn("Metrics file not found, skipping update")
		return OutcomeSkipped, nil
	case errors.Is(err, source.ErrMalformed):
		t.Logger.WithError(err).Error("Metrics file is malformed, skipping update")
		return OutcomeSkipped, nil
	case err != nil:
		return OutcomeFailed, fmt.Errorf("failed to read metrics: %w", err)
	}

	t.setState(StateTransforming)
	rec := t.Transformer.Sanitize(raw)
	t.Logger.WithFields(recordFields(rec)).Info("Read metrics")

	t.setState(StatePersisting)
	if err := t.Provisioner.Ensure(ctx); err != nil {
		return OutcomeFailed, err
	}
	if err := t.Writer.Write(ctx, rec); err != nil {
		return OutcomeFailed, err
	}

	t.setState(StateExporting)
	t.Exporter.Update(rec)
	t.Logger.Info("Prometheus metrics updated successfully")

	return OutcomeRecorded, nil
}

func (t *Tracker) setState(s State) {
	t.state.Store(int32(s))
}

func (t *Tracker) record(outcome CycleOutcome, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = &CycleReport{Outcome: outcome, FinishedAt: time.Now(), Err: err}
}

func recordFields(rec health.Record) logrus.Fields {
	fields := logrus.Fields{}
	for _, f := range rec.Fields() {
		if f.Value != nil {
			fields[f.Name] = *f.Value
		} else {
			fields[f.Name] = nil
		}
	}
	return fields
}
