package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"medication-tracker/internal/models"
	"medication-tracker/internal/notify"

	"github.com/rs/zerolog"
)

// ReminderScheduler arranges local alerts at each of a medication's daily
// dose times. Scheduling is idempotent per medication id: re-scheduling
// replaces any prior timers, never duplicates them.
type ReminderScheduler struct {
	notifier notify.Notifier
	logger   zerolog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewReminderScheduler(notifier notify.Notifier, logger zerolog.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		notifier: notifier,
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Schedule replaces the medication's reminders. Nothing is scheduled when
// reminders are disabled or no dose times are set.
func (s *ReminderScheduler) Schedule(med *models.Medication) {
	s.Cancel(med.ID)

	if !med.ReminderEnabled || len(med.Times) == 0 {
		return
	}

	minutes := make([]int, 0, len(med.Times))
	for _, t := range med.Times {
		m, err := parseTimeOfDay(t)
		if err != nil {
			s.logger.Warn().Str("medication_id", med.ID).Str("time", t).Err(err).
				Msg("skipping invalid reminder time")
			continue
		}
		minutes = append(minutes, m)
	}
	if len(minutes) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancels[med.ID] = cancel
	s.mu.Unlock()

	title := "Medication Reminder"
	message := fmt.Sprintf("Time to take %s", med.Name)
	if med.Dosage.Valid {
		message = fmt.Sprintf("Time to take %s (%s)", med.Name, med.Dosage.String)
	}

	go s.run(ctx, med.ID, minutes, title, message)
}

// Cancel stops all reminders for a medication id. Safe to call for an
// unscheduled id.
func (s *ReminderScheduler) Cancel(medicationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.cancels[medicationID]; ok {
		cancel()
		delete(s.cancels, medicationID)
	}
}

// Stop cancels every scheduled reminder.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
}

func (s *ReminderScheduler) run(ctx context.Context, medicationID string, minutes []int, title, message string) {
	for {
		wait := untilNext(time.Now(), minutes)
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := s.notifier.Notify(title, message); err != nil {
				s.logger.Error().Str("medication_id", medicationID).Err(err).
					Msg("failed to send medication reminder")
			}
		}
	}
}

// untilNext returns the duration from now to the soonest upcoming dose time,
// rolling to tomorrow when all of today's times have passed.
func untilNext(now time.Time, minutes []int) time.Duration {
	nowMinute := now.Hour()*60 + now.Minute()

	best := -1
	for _, m := range minutes {
		if m > nowMinute && (best == -1 || m < best) {
			best = m
		}
	}

	day := models.StartOfDay(now)
	if best == -1 {
		// All times passed; take tomorrow's earliest.
		best = minutes[0]
		for _, m := range minutes {
			if m < best {
				best = m
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	next := day.Add(time.Duration(best) * time.Minute)
	return next.Sub(now)
}

func parseTimeOfDay(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}
