package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"medication-tracker/internal/database"
	"medication-tracker/internal/models"
	"medication-tracker/internal/notify"
	"medication-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// RefillService watches medication supply levels and raises low-supply
// alerts. Each medication is its own state machine: the NeedsRefill predicate
// is re-derived on every read, with refill_notified_at acting as a one-shot
// latch so an alert fires once until cleared or refilled.
type RefillService struct {
	medRepo  *repository.MedicationRepository
	notifier notify.Notifier
	logger   zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefillService(db *database.DB, notifier notify.Notifier, logger zerolog.Logger) *RefillService {
	return &RefillService{
		medRepo:  repository.NewMedicationRepository(db),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Refill adds quantity to the medication's current supply and clears the
// refill reminder latch so a future depletion re-triggers alerting.
func (s *RefillService) Refill(medicationID string, quantity float64) (*models.Medication, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("refill quantity must be positive")
	}

	med, err := s.medRepo.GetByID(medicationID)
	if err != nil {
		return nil, err
	}

	med.ApplyRefill(quantity, s.now())
	if err := s.medRepo.Update(med); err != nil {
		return nil, err
	}
	return med, nil
}

// SetSupply overrides the medication's current supply. Manual correction
// only; reminder state is untouched.
func (s *RefillService) SetSupply(medicationID string, value float64) (*models.Medication, error) {
	if value < 0 {
		return nil, fmt.Errorf("supply value must be non-negative")
	}

	med, err := s.medRepo.GetByID(medicationID)
	if err != nil {
		return nil, err
	}

	med.SetSupply(value)
	if err := s.medRepo.Update(med); err != nil {
		return nil, err
	}
	return med, nil
}

// ClearNotification suppresses the refill reminder for a medication until the
// user re-enables it or performs a refill.
func (s *RefillService) ClearNotification(medicationID string) (*models.Medication, error) {
	med, err := s.medRepo.GetByID(medicationID)
	if err != nil {
		return nil, err
	}

	med.RefillReminder = false
	med.RefillNotifiedAt = sql.NullTime{}
	if err := s.medRepo.Update(med); err != nil {
		return nil, err
	}
	return med, nil
}

// CheckAll returns every medication currently needing a refill. It runs on a
// timer, so a store failure is logged and an empty result returned rather
// than propagated. Medications not yet alerted get a desktop notification and
// have their latch stamped.
func (s *RefillService) CheckAll() []*models.Medication {
	meds, err := s.medRepo.ListNeedingRefill()
	if err != nil {
		s.logger.Error().Err(err).Msg("refill check failed to read medications")
		return nil
	}

	for _, med := range meds {
		if med.RefillNotifiedAt.Valid {
			continue
		}

		title := "Time to Refill!"
		message := fmt.Sprintf("Your %s is running low (%g remaining)", med.Name, med.CurrentSupply())
		if err := s.notifier.Notify(title, message); err != nil {
			s.logger.Error().Str("medication_id", med.ID).Err(err).Msg("failed to send refill notification")
			continue
		}

		med.RefillNotifiedAt.Time = s.now()
		med.RefillNotifiedAt.Valid = true
		if err := s.medRepo.Update(med); err != nil {
			s.logger.Error().Str("medication_id", med.ID).Err(err).Msg("failed to stamp refill notification")
		}
	}

	return meds
}

// Start launches the periodic refill check: once immediately, then every
// interval. Calling Start again restarts the loop.
func (s *RefillService) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		s.CheckAll()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CheckAll()
			}
		}
	}(s.done)
}

// Stop cancels the periodic refill check and waits for the loop to exit.
func (s *RefillService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}
