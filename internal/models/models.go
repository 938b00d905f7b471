package models

import (
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// AccountingMode determines which supply fields of a medication are
// authoritative. It is fixed at creation.
type AccountingMode string

const (
	ModePillCount AccountingMode = "pill-count"
	ModeDoseBased AccountingMode = "dose-based"
)

// Palette is the fixed set of display colors assigned to new medications.
var Palette = []string{"#4caf50", "#2196F3", "#FF9800", "#E91E63", "#9C27B0", "#00BCD4"}

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// PillSupply holds the supply fields for a pill-count medication.
type PillSupply struct {
	PillsPerDose  int64
	CurrentPills  float64
	TotalPills    float64
	RefillAtPills float64
}

// DoseSupply holds the supply fields for a dose-based medication,
// measured in dose units (e.g. mg).
type DoseSupply struct {
	DosePerTake  float64
	CurrentDose  float64
	TotalDose    float64
	RefillAtDose float64
}

// Medication represents a prescribed item. Exactly one of Pills or Dose is
// non-nil, selected by Mode.
type Medication struct {
	ID               string
	Name             string
	Dosage           sql.NullString
	Notes            sql.NullString
	Mode             AccountingMode
	Pills            *PillSupply
	Dose             *DoseSupply
	Times            []string // "HH:MM", one entry per daily dose
	StartDate        time.Time
	DurationDays     sql.NullInt64 // invalid = ongoing
	Color            string
	ReminderEnabled  bool
	RefillReminder   bool
	LastRefillDate   sql.NullTime
	RefillNotifiedAt sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewMedication validates m and returns a copy with a fresh id and a color
// drawn uniformly from the palette.
func NewMedication(m Medication) (*Medication, error) {
	m.ID = uuid.NewString()
	m.Color = Palette[rand.Intn(len(Palette))]
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the record invariants. It is called on create and update;
// no mutation path bypasses it.
func (m *Medication) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch m.Mode {
	case ModePillCount:
		if m.Pills == nil {
			return fmt.Errorf("pill-count medication requires pill supply fields")
		}
		if m.Dose != nil {
			return fmt.Errorf("pill-count medication must not carry dose supply fields")
		}
		if m.Pills.PillsPerDose <= 0 {
			return fmt.Errorf("pills_per_dose must be positive")
		}
		if m.Pills.CurrentPills < 0 || m.Pills.TotalPills < 0 || m.Pills.RefillAtPills < 0 {
			return fmt.Errorf("pill supply fields must be non-negative")
		}
	case ModeDoseBased:
		if m.Dose == nil {
			return fmt.Errorf("dose-based medication requires dose supply fields")
		}
		if m.Pills != nil {
			return fmt.Errorf("dose-based medication must not carry pill supply fields")
		}
		if m.Dose.DosePerTake < 0 {
			return fmt.Errorf("dose_per_take must be non-negative")
		}
		if m.Dose.CurrentDose < 0 || m.Dose.TotalDose < 0 || m.Dose.RefillAtDose < 0 {
			return fmt.Errorf("dose supply fields must be non-negative")
		}
	default:
		return fmt.Errorf("unknown accounting mode %q", m.Mode)
	}
	for _, t := range m.Times {
		if !timeOfDayPattern.MatchString(t) {
			return fmt.Errorf("invalid time of day %q, use HH:MM", t)
		}
	}
	if m.DurationDays.Valid && m.DurationDays.Int64 <= 0 {
		return fmt.Errorf("duration_days must be positive")
	}
	return nil
}

// CurrentSupply returns the active mode's current-supply field.
func (m *Medication) CurrentSupply() float64 {
	if m.Mode == ModePillCount {
		return m.Pills.CurrentPills
	}
	return m.Dose.CurrentDose
}

// RefillThreshold returns the active mode's refill threshold.
func (m *Medication) RefillThreshold() float64 {
	if m.Mode == ModePillCount {
		return m.Pills.RefillAtPills
	}
	return m.Dose.RefillAtDose
}

// TakeDose decrements the active mode's current supply by the per-dose
// quantity, clamped at zero.
func (m *Medication) TakeDose() {
	if m.Mode == ModePillCount {
		m.Pills.CurrentPills = math.Max(0, m.Pills.CurrentPills-float64(m.Pills.PillsPerDose))
		return
	}
	m.Dose.CurrentDose = math.Max(0, m.Dose.CurrentDose-m.Dose.DosePerTake)
}

// ApplyRefill adds quantity to the active mode's current supply. Refills may
// exceed the originally recorded total; there is no upper clamp. The refill
// reminder latch is cleared so a future depletion alerts again.
func (m *Medication) ApplyRefill(quantity float64, now time.Time) {
	if m.Mode == ModePillCount {
		m.Pills.CurrentPills += quantity
	} else {
		m.Dose.CurrentDose += quantity
	}
	m.LastRefillDate = sql.NullTime{Time: now, Valid: true}
	m.RefillReminder = false
	m.RefillNotifiedAt = sql.NullTime{}
}

// SetSupply overrides the active mode's current supply. Used for manual
// correction; reminder state is untouched.
func (m *Medication) SetSupply(value float64) {
	if m.Mode == ModePillCount {
		m.Pills.CurrentPills = math.Max(0, value)
		return
	}
	m.Dose.CurrentDose = math.Max(0, value)
}

// NeedsRefill reports whether a refill reminder is due: reminders are opted
// in and current supply has fallen to or below the threshold.
func (m *Medication) NeedsRefill() bool {
	return m.RefillReminder && m.CurrentSupply() <= m.RefillThreshold()
}

// IsActiveOn reports whether date's calendar day falls inside the
// medication's schedule window [start, start+duration], inclusive, at day
// granularity in local time. An ongoing medication never expires.
func (m *Medication) IsActiveOn(date time.Time) bool {
	day := StartOfDay(date)
	start := StartOfDay(m.StartDate)
	if day.Before(start) {
		return false
	}
	if !m.DurationDays.Valid {
		return true
	}
	end := start.AddDate(0, 0, int(m.DurationDays.Int64))
	return !day.After(end)
}

// DosesDue returns the expected number of doses per active day.
func (m *Medication) DosesDue() int {
	return len(m.Times)
}

// FormattedDuration returns the duration in a readable format.
func (m *Medication) FormattedDuration() string {
	if !m.DurationDays.Valid {
		return "Ongoing"
	}
	if m.DurationDays.Int64 == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", m.DurationDays.Int64)
}

// DoseHistory represents a recorded dose event. Rows are never mutated.
type DoseHistory struct {
	ID           string
	MedicationID string
	Timestamp    time.Time
	Taken        bool
	Notes        sql.NullString
	CreatedAt    time.Time
}

// StartOfDay truncates t to midnight in local time.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}
