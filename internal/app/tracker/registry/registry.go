// Package registry holds the gauges republished for scraping.
package registry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/health"
)

var help = map[string]string{
	health.FieldBodyWeight:    "Body Weight in Kilograms",
	health.FieldBodyHeight:    "Body Height in Centimeters",
	health.FieldAge:           "Precise Age",
	health.FieldBMI:           "Body Mass Index",
	health.FieldWaterIntake:   "Daily Water Intake in Liters",
	health.FieldSleepDuration: "Daily Sleep Duration in Hours",
}

// Registry keeps one gauge per record field. Every gauge is safe for
// concurrent use; there is no atomicity across gauges.
type Registry struct {
	gauges map[string]prometheus.Gauge
}

// New creates the gauges and registers them with reg.
func New(reg prometheus.Registerer) (*Registry, error) {
	r := &Registry{gauges: make(map[string]prometheus.Gauge, len(help))}

	for _, name := range health.FieldNames() {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: name,
			Help: help[name],
		})
		if err := reg.Register(g); err != nil {
			return nil, fmt.Errorf("failed to register gauge %s: %w", name, err)
		}
		r.gauges[name] = g
	}

	return r, nil
}

// Set overwrites the gauge called name. Unknown names and absent values are
// ignored, so a gauge keeps its last value until a later cycle reports one.
func (r *Registry) Set(name string, value *float64) {
	if value == nil {
		return
	}
	if g, ok := r.gauges[name]; ok {
		g.Set(*value)
	}
}

// Update sets every present field of rec.
func (r *Registry) Update(rec health.Record) {
	for _, f := range rec.Fields() {
		r.Set(f.Name, f.Value)
	}
}
