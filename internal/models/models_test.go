package models

import (
	"database/sql"
	"testing"
	"time"
)

func pillMedication(current, perDose, refillAt float64) *Medication {
	return &Medication{
		ID:   "med-1",
		Name: "Amoxicillin",
		Mode: ModePillCount,
		Pills: &PillSupply{
			PillsPerDose:  int64(perDose),
			CurrentPills:  current,
			TotalPills:    current,
			RefillAtPills: refillAt,
		},
	}
}

func doseMedication(current, perTake, refillAt float64) *Medication {
	return &Medication{
		ID:   "med-2",
		Name: "Insulin",
		Mode: ModeDoseBased,
		Dose: &DoseSupply{
			DosePerTake:  perTake,
			CurrentDose:  current,
			TotalDose:    current,
			RefillAtDose: refillAt,
		},
	}
}

func TestMedication_Validate(t *testing.T) {
	tests := []struct {
		name        string
		med         Medication
		expectError bool
	}{
		{
			name: "Valid pill-count medication",
			med: Medication{
				Name:  "Amoxicillin",
				Mode:  ModePillCount,
				Pills: &PillSupply{PillsPerDose: 1, CurrentPills: 30},
				Times: []string{"09:00", "21:00"},
			},
			expectError: false,
		},
		{
			name: "Valid dose-based medication",
			med: Medication{
				Name: "Insulin",
				Mode: ModeDoseBased,
				Dose: &DoseSupply{DosePerTake: 10, CurrentDose: 300},
			},
			expectError: false,
		},
		{
			name:        "Missing name",
			med:         Medication{Mode: ModePillCount, Pills: &PillSupply{PillsPerDose: 1}},
			expectError: true,
		},
		{
			name:        "Missing supply fields",
			med:         Medication{Name: "Amoxicillin", Mode: ModePillCount},
			expectError: true,
		},
		{
			name: "Both modes' fields present",
			med: Medication{
				Name:  "Amoxicillin",
				Mode:  ModePillCount,
				Pills: &PillSupply{PillsPerDose: 1},
				Dose:  &DoseSupply{},
			},
			expectError: true,
		},
		{
			name:        "Unknown mode",
			med:         Medication{Name: "Amoxicillin", Mode: "weight-based"},
			expectError: true,
		},
		{
			name: "Zero pills per dose",
			med: Medication{
				Name:  "Amoxicillin",
				Mode:  ModePillCount,
				Pills: &PillSupply{PillsPerDose: 0},
			},
			expectError: true,
		},
		{
			name: "Negative supply",
			med: Medication{
				Name:  "Amoxicillin",
				Mode:  ModePillCount,
				Pills: &PillSupply{PillsPerDose: 1, CurrentPills: -5},
			},
			expectError: true,
		},
		{
			name: "Bad time of day",
			med: Medication{
				Name:  "Amoxicillin",
				Mode:  ModePillCount,
				Pills: &PillSupply{PillsPerDose: 1},
				Times: []string{"9am"},
			},
			expectError: true,
		},
		{
			name: "Zero duration",
			med: Medication{
				Name:         "Amoxicillin",
				Mode:         ModePillCount,
				Pills:        &PillSupply{PillsPerDose: 1},
				DurationDays: sql.NullInt64{Int64: 0, Valid: true},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.med.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestNewMedication_AssignsIDAndColor(t *testing.T) {
	med, err := NewMedication(Medication{
		Name:  "Amoxicillin",
		Mode:  ModePillCount,
		Pills: &PillSupply{PillsPerDose: 1, CurrentPills: 30},
	})
	if err != nil {
		t.Fatalf("Failed to create medication: %v", err)
	}

	if med.ID == "" {
		t.Error("Expected a generated id")
	}

	found := false
	for _, c := range Palette {
		if med.Color == c {
			found = true
		}
	}
	if !found {
		t.Errorf("Color %q not drawn from palette", med.Color)
	}
}

func TestMedication_TakeDose(t *testing.T) {
	t.Run("Pill count decrements by pills per dose", func(t *testing.T) {
		med := pillMedication(10, 2, 4)
		med.TakeDose()
		if med.Pills.CurrentPills != 8 {
			t.Errorf("Expected 8 pills, got %v", med.Pills.CurrentPills)
		}
	})

	t.Run("Dose based decrements by dose per take", func(t *testing.T) {
		med := doseMedication(300, 10, 50)
		med.TakeDose()
		if med.Dose.CurrentDose != 290 {
			t.Errorf("Expected 290, got %v", med.Dose.CurrentDose)
		}
	})

	t.Run("Supply clamps at zero", func(t *testing.T) {
		med := pillMedication(1, 2, 0)
		med.TakeDose()
		if med.Pills.CurrentPills != 0 {
			t.Errorf("Expected 0 pills, got %v", med.Pills.CurrentPills)
		}
		med.TakeDose()
		if med.Pills.CurrentPills != 0 {
			t.Errorf("Expected supply to stay at 0, got %v", med.Pills.CurrentPills)
		}
	})
}

func TestMedication_ApplyRefill(t *testing.T) {
	med := pillMedication(2, 1, 4)
	med.RefillReminder = true
	med.RefillNotifiedAt = sql.NullTime{Time: time.Now(), Valid: true}

	now := time.Now()
	med.ApplyRefill(10, now)

	if med.Pills.CurrentPills != 12 {
		t.Errorf("Expected 12 pills, got %v", med.Pills.CurrentPills)
	}
	if !med.LastRefillDate.Valid || !med.LastRefillDate.Time.Equal(now) {
		t.Error("Expected last refill date to be stamped")
	}
	if med.RefillReminder {
		t.Error("Expected refill reminder latch to be cleared")
	}
	if med.RefillNotifiedAt.Valid {
		t.Error("Expected refill notified timestamp to be cleared")
	}

	// Refill may exceed the recorded total; no upper clamp.
	med.ApplyRefill(1000, now)
	if med.Pills.CurrentPills != 1012 {
		t.Errorf("Expected 1012 pills, got %v", med.Pills.CurrentPills)
	}
}

func TestMedication_SetSupply(t *testing.T) {
	med := doseMedication(300, 10, 50)
	med.RefillReminder = true

	med.SetSupply(40)

	if med.Dose.CurrentDose != 40 {
		t.Errorf("Expected 40, got %v", med.Dose.CurrentDose)
	}
	if !med.RefillReminder {
		t.Error("SetSupply must not touch reminder state")
	}
}

func TestMedication_NeedsRefill(t *testing.T) {
	tests := []struct {
		name     string
		med      *Medication
		reminder bool
		expected bool
	}{
		{"Above threshold", pillMedication(10, 2, 4), true, false},
		{"At threshold", pillMedication(4, 2, 4), true, true},
		{"Below threshold", pillMedication(2, 2, 4), true, true},
		{"Reminder disabled", pillMedication(2, 2, 4), false, false},
		{"Dose based at threshold", doseMedication(50, 10, 50), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.med.RefillReminder = tt.reminder
			if got := tt.med.NeedsRefill(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// Mirrors the full dose-to-refill cycle: three takes drain 10 pills to the
// threshold of 4, then a refill re-arms alerting.
func TestMedication_DoseRefillCycle(t *testing.T) {
	med := pillMedication(10, 2, 4)
	med.RefillReminder = true

	wantSupply := []float64{8, 6, 4}
	for i, want := range wantSupply {
		med.TakeDose()
		if med.Pills.CurrentPills != want {
			t.Fatalf("Take %d: expected %v pills, got %v", i+1, want, med.Pills.CurrentPills)
		}
	}

	if !med.NeedsRefill() {
		t.Error("Expected refill needed at threshold")
	}

	med.ApplyRefill(10, time.Now())
	if med.Pills.CurrentPills != 14 {
		t.Errorf("Expected 14 pills after refill, got %v", med.Pills.CurrentPills)
	}
	if med.NeedsRefill() {
		t.Error("Expected no refill needed after refill")
	}
}

func TestMedication_IsActiveOn(t *testing.T) {
	today := time.Now()

	tests := []struct {
		name     string
		start    time.Time
		duration sql.NullInt64
		date     time.Time
		expected bool
	}{
		{
			name:     "Ongoing started 30 days ago",
			start:    today.AddDate(0, 0, -30),
			duration: sql.NullInt64{},
			date:     today,
			expected: true,
		},
		{
			name:     "7 day course started 10 days ago",
			start:    today.AddDate(0, 0, -10),
			duration: sql.NullInt64{Int64: 7, Valid: true},
			date:     today,
			expected: false,
		},
		{
			name:     "7 day course started today",
			start:    today,
			duration: sql.NullInt64{Int64: 7, Valid: true},
			date:     today,
			expected: true,
		},
		{
			name:     "Last day of window is inclusive",
			start:    today.AddDate(0, 0, -7),
			duration: sql.NullInt64{Int64: 7, Valid: true},
			date:     today,
			expected: true,
		},
		{
			name:     "Before start date",
			start:    today.AddDate(0, 0, 3),
			duration: sql.NullInt64{},
			date:     today,
			expected: false,
		},
		{
			name:     "Time of day is ignored",
			start:    time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 0, 0, time.Local),
			duration: sql.NullInt64{Int64: 1, Valid: true},
			date:     time.Date(today.Year(), today.Month(), today.Day(), 0, 1, 0, 0, time.Local),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			med := pillMedication(10, 1, 2)
			med.StartDate = tt.start
			med.DurationDays = tt.duration
			if got := med.IsActiveOn(tt.date); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMedication_DosesDue(t *testing.T) {
	med := pillMedication(10, 1, 2)
	med.Times = []string{"09:00", "13:00", "21:00"}

	if got := med.DosesDue(); got != 3 {
		t.Errorf("Expected 3 doses due, got %d", got)
	}
}

func TestMedication_FormattedDuration(t *testing.T) {
	med := pillMedication(10, 1, 2)

	if got := med.FormattedDuration(); got != "Ongoing" {
		t.Errorf("Expected Ongoing, got %q", got)
	}

	med.DurationDays = sql.NullInt64{Int64: 1, Valid: true}
	if got := med.FormattedDuration(); got != "1 day" {
		t.Errorf("Expected 1 day, got %q", got)
	}

	med.DurationDays = sql.NullInt64{Int64: 7, Valid: true}
	if got := med.FormattedDuration(); got != "7 days" {
		t.Errorf("Expected 7 days, got %q", got)
	}
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2026, 8, 29, 8, 0, 0, 0, time.Local)
	night := time.Date(2026, 8, 29, 23, 59, 0, 0, time.Local)
	nextDay := time.Date(2026, 8, 30, 0, 0, 0, 0, time.Local)

	if !SameDay(morning, night) {
		t.Error("Expected same day for same calendar date")
	}
	if SameDay(night, nextDay) {
		t.Error("Expected different days across midnight")
	}
}
