package services

import (
	"testing"
	"time"

	"medication-tracker/internal/models"

	"github.com/rs/zerolog"
)

func reminderTestMedication(id string, times []string) *models.Medication {
	return &models.Medication{
		ID:              id,
		Name:            "Amoxicillin",
		Mode:            models.ModePillCount,
		Pills:           &models.PillSupply{PillsPerDose: 1, CurrentPills: 30},
		Times:           times,
		ReminderEnabled: true,
	}
}

func scheduledCount(s *ReminderScheduler) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

func TestReminderScheduler_ScheduleIsIdempotent(t *testing.T) {
	s := NewReminderScheduler(&recordingNotifier{}, zerolog.Nop())
	defer s.Stop()

	med := reminderTestMedication("med-1", []string{"09:00", "21:00"})
	s.Schedule(med)
	s.Schedule(med)

	if got := scheduledCount(s); got != 1 {
		t.Errorf("Expected 1 scheduled medication, got %d", got)
	}
}

func TestReminderScheduler_SkipsDisabledAndEmpty(t *testing.T) {
	s := NewReminderScheduler(&recordingNotifier{}, zerolog.Nop())
	defer s.Stop()

	disabled := reminderTestMedication("med-1", []string{"09:00"})
	disabled.ReminderEnabled = false
	s.Schedule(disabled)

	empty := reminderTestMedication("med-2", nil)
	s.Schedule(empty)

	invalid := reminderTestMedication("med-3", []string{"9am"})
	s.Schedule(invalid)

	if got := scheduledCount(s); got != 0 {
		t.Errorf("Expected nothing scheduled, got %d", got)
	}
}

func TestReminderScheduler_ScheduleReplacesDisabled(t *testing.T) {
	s := NewReminderScheduler(&recordingNotifier{}, zerolog.Nop())
	defer s.Stop()

	med := reminderTestMedication("med-1", []string{"09:00"})
	s.Schedule(med)
	if got := scheduledCount(s); got != 1 {
		t.Fatalf("Expected 1 scheduled medication, got %d", got)
	}

	// Turning reminders off on re-schedule tears the timers down.
	med.ReminderEnabled = false
	s.Schedule(med)
	if got := scheduledCount(s); got != 0 {
		t.Errorf("Expected nothing scheduled, got %d", got)
	}
}

func TestReminderScheduler_CancelAndStop(t *testing.T) {
	s := NewReminderScheduler(&recordingNotifier{}, zerolog.Nop())

	s.Schedule(reminderTestMedication("med-1", []string{"09:00"}))
	s.Schedule(reminderTestMedication("med-2", []string{"13:00"}))

	s.Cancel("med-1")
	if got := scheduledCount(s); got != 1 {
		t.Errorf("Expected 1 scheduled medication after cancel, got %d", got)
	}

	// Cancelling an unknown id is a no-op.
	s.Cancel("missing")

	s.Stop()
	if got := scheduledCount(s); got != 0 {
		t.Errorf("Expected nothing scheduled after stop, got %d", got)
	}
}

func TestUntilNext(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local)
	morning := 9 * 60
	afternoon := 13 * 60

	tests := []struct {
		name     string
		now      time.Time
		minutes  []int
		expected time.Duration
	}{
		{
			name:     "Next time later today",
			now:      base,
			minutes:  []int{morning, afternoon},
			expected: 3 * time.Hour,
		},
		{
			name:     "All times passed rolls to tomorrow",
			now:      time.Date(2026, 8, 29, 22, 0, 0, 0, time.Local),
			minutes:  []int{morning, afternoon},
			expected: 11 * time.Hour,
		},
		{
			name:     "Exact minute rolls forward",
			now:      time.Date(2026, 8, 29, 13, 0, 0, 0, time.Local),
			minutes:  []int{afternoon},
			expected: 24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := untilNext(tt.now, tt.minutes); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input       string
		expected    int
		expectError bool
	}{
		{"09:00", 540, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseTimeOfDay(tt.input)
		if tt.expectError {
			if err == nil {
				t.Errorf("Expected error for %q", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for %q: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("parseTimeOfDay(%q) = %d, expected %d", tt.input, got, tt.expected)
		}
	}
}
