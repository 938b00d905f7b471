package services

import (
	"database/sql"
	"fmt"
	"time"

	"medication-tracker/internal/database"
	"medication-tracker/internal/models"
	"medication-tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DoseService records dose-taking events and answers dose history queries.
type DoseService struct {
	medRepo  *repository.MedicationRepository
	doseRepo *repository.DoseHistoryRepository
	logger   zerolog.Logger
	now      func() time.Time
}

func NewDoseService(db *database.DB, logger zerolog.Logger) *DoseService {
	return &DoseService{
		medRepo:  repository.NewMedicationRepository(db),
		doseRepo: repository.NewDoseHistoryRepository(db),
		logger:   logger,
		now:      time.Now,
	}
}

// RecordDose logs a dose event for a medication. When the dose is taken and
// its timestamp falls on today's local calendar day or later, the
// medication's supply is decremented first; a backdated entry only corrects
// history and leaves supply alone, since that consumption was presumably
// already reflected.
func (s *DoseService) RecordDose(medicationID string, taken bool, timestamp time.Time, notes string) (*models.DoseHistory, error) {
	med, err := s.medRepo.GetByID(medicationID)
	if err != nil {
		return nil, err
	}

	if timestamp.IsZero() {
		timestamp = s.now()
	}

	var supplyAdjusted bool
	var before float64
	if taken && !models.StartOfDay(timestamp).Before(models.StartOfDay(s.now())) {
		before = med.CurrentSupply()
		med.TakeDose()
		if err := s.medRepo.Update(med); err != nil {
			return nil, fmt.Errorf("failed to persist supply adjustment: %w", err)
		}
		supplyAdjusted = true
	}

	entry := &models.DoseHistory{
		ID:           uuid.NewString(),
		MedicationID: medicationID,
		Timestamp:    timestamp,
		Taken:        taken,
	}
	if notes != "" {
		entry.Notes = sql.NullString{String: notes, Valid: true}
	}

	if err := s.doseRepo.Create(entry); err != nil {
		// The supply write already landed; try to put it back so the caller
		// can treat the whole operation as rolled back. The two writes are
		// not one transaction, so this can itself fail. In that case the
		// inconsistency is logged for manual correction.
		if supplyAdjusted {
			med.SetSupply(before)
			if rbErr := s.medRepo.Update(med); rbErr != nil {
				s.logger.Error().
					Str("medication_id", medicationID).
					Float64("supply_before", before).
					Err(rbErr).
					Msg("failed to restore supply after dose log failure; supply and history are out of step")
			}
		}
		return nil, fmt.Errorf("failed to record dose: %w", err)
	}

	return entry, nil
}

// GetDoseHistory returns all dose history rows, newest first.
func (s *DoseService) GetDoseHistory() ([]*models.DoseHistory, error) {
	return s.doseRepo.List()
}

// GetTodaysDoses returns rows logged on today's local calendar day.
func (s *DoseService) GetTodaysDoses() ([]*models.DoseHistory, error) {
	return s.doseRepo.ListForDate(s.now())
}

// GetDosesForDate returns rows logged on date's local calendar day.
func (s *DoseService) GetDosesForDate(date time.Time) ([]*models.DoseHistory, error) {
	return s.doseRepo.ListForDate(date)
}

// ClearAllData wipes both collections.
func (s *DoseService) ClearAllData() error {
	if err := s.doseRepo.DeleteAll(); err != nil {
		return err
	}
	return s.medRepo.DeleteAll()
}
