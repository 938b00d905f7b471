package repository

import (
	"database/sql"
	"fmt"
	"time"

	"medication-tracker/internal/database"
	"medication-tracker/internal/models"
)

type DoseHistoryRepository struct {
	db *database.DB
}

func NewDoseHistoryRepository(db *database.DB) *DoseHistoryRepository {
	return &DoseHistoryRepository{db: db}
}

// Create inserts a dose history row
func (r *DoseHistoryRepository) Create(entry *models.DoseHistory) error {
	query := `
		INSERT INTO dose_history (id, medication_id, timestamp, taken, notes, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err := r.db.Exec(query,
		entry.ID,
		entry.MedicationID,
		entry.Timestamp,
		entry.Taken,
		entry.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create dose history entry: %w", err)
	}
	return nil
}

// List retrieves all dose history entries, newest first
func (r *DoseHistoryRepository) List() ([]*models.DoseHistory, error) {
	query := `
		SELECT id, medication_id, timestamp, taken, notes, created_at
		FROM dose_history
		ORDER BY timestamp DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dose history: %w", err)
	}
	defer rows.Close()

	return scanDoseHistory(rows)
}

// ListForDate retrieves entries whose timestamp falls on date's local
// calendar day, newest first.
func (r *DoseHistoryRepository) ListForDate(date time.Time) ([]*models.DoseHistory, error) {
	dayStart := models.StartOfDay(date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT id, medication_id, timestamp, taken, notes, created_at
		FROM dose_history
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC
	`
	rows, err := r.db.Query(query, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list dose history for date: %w", err)
	}
	defer rows.Close()

	return scanDoseHistory(rows)
}

// ListForMedication retrieves entries for one medication, newest first
func (r *DoseHistoryRepository) ListForMedication(medicationID string) ([]*models.DoseHistory, error) {
	query := `
		SELECT id, medication_id, timestamp, taken, notes, created_at
		FROM dose_history
		WHERE medication_id = ?
		ORDER BY timestamp DESC
	`
	rows, err := r.db.Query(query, medicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dose history for medication: %w", err)
	}
	defer rows.Close()

	return scanDoseHistory(rows)
}

// Delete removes a single entry by id
func (r *DoseHistoryRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM dose_history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dose history entry: %w", err)
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

// DeleteAll removes every dose history entry
func (r *DoseHistoryRepository) DeleteAll() error {
	if _, err := r.db.Exec(`DELETE FROM dose_history`); err != nil {
		return fmt.Errorf("failed to delete dose history: %w", err)
	}
	return nil
}

func scanDoseHistory(rows *sql.Rows) ([]*models.DoseHistory, error) {
	var entries []*models.DoseHistory
	for rows.Next() {
		var entry models.DoseHistory
		err := rows.Scan(
			&entry.ID,
			&entry.MedicationID,
			&entry.Timestamp,
			&entry.Taken,
			&entry.Notes,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dose history entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
