// Package health converts raw measurement documents into sanitized records.
// Every derivation is per field: a bad value makes that one field absent and
// never aborts the whole record.
package health

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Имена полей входного документа и метрик.
const (
	FieldBodyWeight    = "body_weight"
	FieldBodyHeight    = "body_height"
	FieldBirthDate     = "birth_date"
	FieldAge           = "age"
	FieldBMI           = "bmi"
	FieldWaterIntake   = "water_intake"
	FieldSleepDuration = "sleep_duration"
)

const (
	birthDateLayout = "2006-01-02"
	daysPerYear     = 365.25
	maxSleepHours   = 24
	secondsPerDay   = 24 * 60 * 60
)

// RawRecord is a decoded input document. Any key may be missing.
type RawRecord map[string]any

// Record is a sanitized measurement snapshot. A nil field means "absent".
type Record struct {
	BodyWeight    *float64 `json:"body_weight"`
	BodyHeight    *float64 `json:"body_height"`
	Age           *float64 `json:"age"`
	BMI           *float64 `json:"bmi"`
	WaterIntake   *float64 `json:"water_intake"`
	SleepDuration *float64 `json:"sleep_duration"`
}

// Field is a named value of a Record.
type Field struct {
	Name  string
	Value *float64
}

// Fields returns the record values in column order.
func (r Record) Fields() []Field {
	return []Field{
		{Name: FieldBodyWeight, Value: r.BodyWeight},
		{Name: FieldBodyHeight, Value: r.BodyHeight},
		{Name: FieldAge, Value: r.Age},
		{Name: FieldBMI, Value: r.BMI},
		{Name: FieldWaterIntake, Value: r.WaterIntake},
		{Name: FieldSleepDuration, Value: r.SleepDuration},
	}
}

// FieldNames lists every exported field in column order.
func FieldNames() []string {
	return []string{FieldBodyWeight, FieldBodyHeight, FieldAge, FieldBMI, FieldWaterIntake, FieldSleepDuration}
}

// Transformer derives a Record from a RawRecord. Now is the clock used to
// determine "today" for age; it defaults to time.Now.
type Transformer struct {
	Now    func() time.Time
	logger *logrus.Logger
}

func NewTransformer(logger *logrus.Logger) *Transformer {
	return &Transformer{
		Now:    time.Now,
		logger: logger,
	}
}

// Sanitize builds a Record from raw. Age is derived only when the birth_date
// key is present at all.
func (t *Transformer) Sanitize(raw RawRecord) Record {
	weight := t.number(raw, FieldBodyWeight)
	height := t.number(raw, FieldBodyHeight)

	rec := Record{
		BodyWeight:    weight,
		BodyHeight:    height,
		BMI:           BMI(weight, height),
		WaterIntake:   WaterIntake(t.number(raw, FieldWaterIntake)),
		SleepDuration: SleepDuration(t.number(raw, FieldSleepDuration)),
	}

	if v, ok := raw[FieldBirthDate]; ok {
		s, isString := v.(string)
		if !isString && v != nil {
			t.logger.WithField("value", v).Warn("birth_date is not a string")
		}
		rec.Age = t.Age(s)
	}

	return rec
}

// Age returns the age in years, rounded to one decimal, of someone born on
// birthDate (YYYY-MM-DD) as of today's calendar date.
func (t *Transformer) Age(birthDate string) *float64 {
	if birthDate == "" {
		t.logger.Warn("Error calculating age: empty birth date")
		return nil
	}

	born, err := time.Parse(birthDateLayout, birthDate)
	if err != nil {
		t.logger.WithError(err).WithField("birth_date", birthDate).Warn("Error calculating age")
		return nil
	}

	y, m, d := t.Now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if born.After(today) {
		t.logger.WithField("birth_date", birthDate).Warn("Error calculating age: birth date is in the future")
		return nil
	}

	// Через Unix-секунды: time.Duration переполняется после ~292 лет.
	days := float64((today.Unix() - born.Unix()) / secondsPerDay)
	return round(days/daysPerYear, 1)
}

// BMI returns weight / (height in metres)^2 rounded to one decimal. Zero or
// missing inputs mean "no measurement taken" and yield nil.
func BMI(weightKg, heightCm *float64) *float64 {
	if weightKg == nil || heightCm == nil || *weightKg == 0 || *heightCm == 0 {
		return nil
	}
	heightM := *heightCm / 100
	return round(*weightKg/(heightM*heightM), 1)
}

// WaterIntake accepts any non-negative amount of litres. Zero is a valid
// measurement and is kept as 0, not treated as missing.
func WaterIntake(liters *float64) *float64 {
	if liters == nil || *liters < 0 {
		return nil
	}
	return round(*liters, 2)
}

// SleepDuration accepts hours in [0, 24]. Zero is kept as a real value;
// only nil means the measurement is missing.
func SleepDuration(hours *float64) *float64 {
	if hours == nil || *hours < 0 || *hours > maxSleepHours {
		return nil
	}
	return round(*hours, 1)
}

func (t *Transformer) number(raw RawRecord, key string) *float64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		t.logger.WithFields(logrus.Fields{
			"field": key,
			"value": v,
		}).Warn("Ignoring non-numeric measurement")
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
