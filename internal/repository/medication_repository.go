package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"medication-tracker/internal/database"
	"medication-tracker/internal/models"
)

var ErrNotFound = fmt.Errorf("not found")

const medicationColumns = `id, name, dosage, notes, mode,
	pills_per_dose, current_pills, total_pills, refill_at_pills,
	dose_per_take, current_dose, total_dose, refill_at_dose,
	times, start_date, duration_days, color, reminder_enabled, refill_reminder,
	last_refill_date, refill_notified_at, created_at, updated_at`

type MedicationRepository struct {
	db *database.DB
}

func NewMedicationRepository(db *database.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

// Create creates a new medication
func (r *MedicationRepository) Create(med *models.Medication) error {
	times, err := json.Marshal(med.Times)
	if err != nil {
		return fmt.Errorf("failed to encode times: %w", err)
	}

	query := `
		INSERT INTO medications (id, name, dosage, notes, mode,
			pills_per_dose, current_pills, total_pills, refill_at_pills,
			dose_per_take, current_dose, total_dose, refill_at_dose,
			times, start_date, duration_days, color, reminder_enabled, refill_reminder,
			last_refill_date, refill_notified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	pillsPerDose, currentPills, totalPills, refillAtPills := pillFields(med)
	dosePerTake, currentDose, totalDose, refillAtDose := doseFields(med)

	_, err = r.db.Exec(query,
		med.ID,
		med.Name,
		med.Dosage,
		med.Notes,
		string(med.Mode),
		pillsPerDose, currentPills, totalPills, refillAtPills,
		dosePerTake, currentDose, totalDose, refillAtDose,
		string(times),
		med.StartDate,
		med.DurationDays,
		med.Color,
		med.ReminderEnabled,
		med.RefillReminder,
		med.LastRefillDate,
		med.RefillNotifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

// GetByID retrieves a medication by ID
func (r *MedicationRepository) GetByID(id string) (*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = ?`
	med, err := scanMedication(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}
	return med, nil
}

// Update persists the full medication record, including supply and reminder
// state. Last writer wins for racing updates on the same record.
func (r *MedicationRepository) Update(med *models.Medication) error {
	times, err := json.Marshal(med.Times)
	if err != nil {
		return fmt.Errorf("failed to encode times: %w", err)
	}

	query := `
		UPDATE medications
		SET name = ?, dosage = ?, notes = ?,
			pills_per_dose = ?, current_pills = ?, total_pills = ?, refill_at_pills = ?,
			dose_per_take = ?, current_dose = ?, total_dose = ?, refill_at_dose = ?,
			times = ?, start_date = ?, duration_days = ?, reminder_enabled = ?, refill_reminder = ?,
			last_refill_date = ?, refill_notified_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	pillsPerDose, currentPills, totalPills, refillAtPills := pillFields(med)
	dosePerTake, currentDose, totalDose, refillAtDose := doseFields(med)

	result, err := r.db.Exec(query,
		med.Name,
		med.Dosage,
		med.Notes,
		pillsPerDose, currentPills, totalPills, refillAtPills,
		dosePerTake, currentDose, totalDose, refillAtDose,
		string(times),
		med.StartDate,
		med.DurationDays,
		med.ReminderEnabled,
		med.RefillReminder,
		med.LastRefillDate,
		med.RefillNotifiedAt,
		med.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medication: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently deletes a medication and all its dose history
func (r *MedicationRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Explicit cascade; the FK also cascades but this keeps the history
	// delete visible in one place.
	if _, err := tx.Exec(`DELETE FROM dose_history WHERE medication_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete dose history: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM medications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// List retrieves all medications
func (r *MedicationRepository) List() ([]*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer rows.Close()

	return scanMedications(rows)
}

// ListNeedingRefill retrieves medications whose refill reminder is enabled
// and whose current supply is at or below the mode's threshold.
func (r *MedicationRepository) ListNeedingRefill() ([]*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications
		WHERE refill_reminder = 1
		  AND ((mode = 'pill-count' AND current_pills <= refill_at_pills)
		    OR (mode = 'dose-based' AND current_dose <= refill_at_dose))
		ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications needing refill: %w", err)
	}
	defer rows.Close()

	return scanMedications(rows)
}

// DeleteAll removes every medication (dose history cascades via FK)
func (r *MedicationRepository) DeleteAll() error {
	if _, err := r.db.Exec(`DELETE FROM medications`); err != nil {
		return fmt.Errorf("failed to delete medications: %w", err)
	}
	return nil
}

func pillFields(med *models.Medication) (pillsPerDose sql.NullInt64, current, total, refillAt sql.NullFloat64) {
	if med.Pills == nil {
		return
	}
	pillsPerDose = sql.NullInt64{Int64: med.Pills.PillsPerDose, Valid: true}
	current = sql.NullFloat64{Float64: med.Pills.CurrentPills, Valid: true}
	total = sql.NullFloat64{Float64: med.Pills.TotalPills, Valid: true}
	refillAt = sql.NullFloat64{Float64: med.Pills.RefillAtPills, Valid: true}
	return
}

func doseFields(med *models.Medication) (dosePerTake, current, total, refillAt sql.NullFloat64) {
	if med.Dose == nil {
		return
	}
	dosePerTake = sql.NullFloat64{Float64: med.Dose.DosePerTake, Valid: true}
	current = sql.NullFloat64{Float64: med.Dose.CurrentDose, Valid: true}
	total = sql.NullFloat64{Float64: med.Dose.TotalDose, Valid: true}
	refillAt = sql.NullFloat64{Float64: med.Dose.RefillAtDose, Valid: true}
	return
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMedication reads one row and rebuilds the mode-appropriate supply
// variant; the inactive mode's columns are discarded.
func scanMedication(row rowScanner) (*models.Medication, error) {
	var med models.Medication
	var mode string
	var timesJSON string
	var pillsPerDose sql.NullInt64
	var currentPills, totalPills, refillAtPills sql.NullFloat64
	var dosePerTake, currentDose, totalDose, refillAtDose sql.NullFloat64

	err := row.Scan(
		&med.ID,
		&med.Name,
		&med.Dosage,
		&med.Notes,
		&mode,
		&pillsPerDose, &currentPills, &totalPills, &refillAtPills,
		&dosePerTake, &currentDose, &totalDose, &refillAtDose,
		&timesJSON,
		&med.StartDate,
		&med.DurationDays,
		&med.Color,
		&med.ReminderEnabled,
		&med.RefillReminder,
		&med.LastRefillDate,
		&med.RefillNotifiedAt,
		&med.CreatedAt,
		&med.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	med.Mode = models.AccountingMode(mode)
	switch med.Mode {
	case models.ModePillCount:
		med.Pills = &models.PillSupply{
			PillsPerDose:  pillsPerDose.Int64,
			CurrentPills:  currentPills.Float64,
			TotalPills:    totalPills.Float64,
			RefillAtPills: refillAtPills.Float64,
		}
	case models.ModeDoseBased:
		med.Dose = &models.DoseSupply{
			DosePerTake:  dosePerTake.Float64,
			CurrentDose:  currentDose.Float64,
			TotalDose:    totalDose.Float64,
			RefillAtDose: refillAtDose.Float64,
		}
	}

	if err := json.Unmarshal([]byte(timesJSON), &med.Times); err != nil {
		return nil, fmt.Errorf("failed to decode times: %w", err)
	}

	return &med, nil
}

func scanMedications(rows *sql.Rows) ([]*models.Medication, error) {
	var medications []*models.Medication
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		medications = append(medications, med)
	}
	return medications, rows.Err()
}
