package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"medication-tracker/internal/database"
	"medication-tracker/internal/models"
	"medication-tracker/internal/repository"
	"medication-tracker/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PillSupplyRequest carries pill-count mode supply fields.
type PillSupplyRequest struct {
	PillsPerDose  *int64   `json:"pills_per_dose,omitempty"`
	CurrentPills  *float64 `json:"current_pills,omitempty"`
	TotalPills    *float64 `json:"total_pills,omitempty"`
	RefillAtPills *float64 `json:"refill_at_pills,omitempty"`
}

// DoseSupplyRequest carries dose-based mode supply fields.
type DoseSupplyRequest struct {
	DosePerTake  *float64 `json:"dose_per_take,omitempty"`
	CurrentDose  *float64 `json:"current_dose,omitempty"`
	TotalDose    *float64 `json:"total_dose,omitempty"`
	RefillAtDose *float64 `json:"refill_at_dose,omitempty"`
}

// CreateMedicationRequest represents the request body for creating a medication
type CreateMedicationRequest struct {
	Name            string             `json:"name"`
	Dosage          *string            `json:"dosage,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	Mode            string             `json:"mode"`
	Pills           *PillSupplyRequest `json:"pills,omitempty"`
	Dose            *DoseSupplyRequest `json:"dose,omitempty"`
	Times           []string           `json:"times"`
	StartDate       string             `json:"start_date"` // YYYY-MM-DD
	DurationDays    *int64             `json:"duration_days,omitempty"`
	ReminderEnabled *bool              `json:"reminder_enabled,omitempty"`
	RefillReminder  *bool              `json:"refill_reminder,omitempty"`
}

// UpdateMedicationRequest represents the request body for updating a medication
type UpdateMedicationRequest struct {
	Name            *string            `json:"name,omitempty"`
	Dosage          *string            `json:"dosage,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	Pills           *PillSupplyRequest `json:"pills,omitempty"`
	Dose            *DoseSupplyRequest `json:"dose,omitempty"`
	Times           []string           `json:"times,omitempty"`
	StartDate       *string            `json:"start_date,omitempty"`
	DurationDays    *int64             `json:"duration_days,omitempty"`
	Ongoing         *bool              `json:"ongoing,omitempty"`
	ReminderEnabled *bool              `json:"reminder_enabled,omitempty"`
	RefillReminder  *bool              `json:"refill_reminder,omitempty"`
}

// HandleGetMedications returns a list of medications
func HandleGetMedications(db *database.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicationRepo := repository.NewMedicationRepository(db)
		medications, err := medicationRepo.List()
		if err != nil {
			http.Error(w, "Failed to retrieve medications", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(medications); err != nil {
			logger.Error().Err(err).Msg("failed to encode medications response")
		}
	}
}

// HandleCreateMedication creates a new medication and schedules its reminders
func HandleCreateMedication(db *database.DB, scheduler *services.ReminderScheduler, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if req.StartDate == "" {
			http.Error(w, "start_date is required", http.StatusBadRequest)
			return
		}
		startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
		if err != nil {
			http.Error(w, "Invalid start_date format, use YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		med := models.Medication{
			Name:      req.Name,
			Dosage:    nullString(req.Dosage),
			Notes:     nullString(req.Notes),
			Mode:      models.AccountingMode(req.Mode),
			Times:     req.Times,
			StartDate: startDate,
		}
		if req.DurationDays != nil {
			med.DurationDays = sql.NullInt64{Int64: *req.DurationDays, Valid: true}
		}
		if req.ReminderEnabled != nil {
			med.ReminderEnabled = *req.ReminderEnabled
		}
		if req.RefillReminder != nil {
			med.RefillReminder = *req.RefillReminder
		}

		switch med.Mode {
		case models.ModePillCount:
			if req.Pills == nil {
				http.Error(w, "pills supply fields are required for pill-count mode", http.StatusBadRequest)
				return
			}
			med.Pills = pillSupplyFromRequest(req.Pills, nil)
		case models.ModeDoseBased:
			if req.Dose == nil {
				http.Error(w, "dose supply fields are required for dose-based mode", http.StatusBadRequest)
				return
			}
			med.Dose = doseSupplyFromRequest(req.Dose, nil)
		default:
			http.Error(w, "mode must be pill-count or dose-based", http.StatusBadRequest)
			return
		}

		created, err := models.NewMedication(med)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		medicationRepo := repository.NewMedicationRepository(db)
		if err := medicationRepo.Create(created); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create medication: %v", err), http.StatusInternalServerError)
			return
		}

		scheduler.Schedule(created)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(created); err != nil {
			logger.Error().Err(err).Msg("failed to encode medication response")
		}
	}
}

// HandleGetMedication returns a single medication by ID
func HandleGetMedication(db *database.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		medicationRepo := repository.NewMedicationRepository(db)
		medication, err := medicationRepo.GetByID(id)
		if err != nil {
			if err == repository.ErrNotFound {
				http.Error(w, "Medication not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to retrieve medication", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(medication); err != nil {
			logger.Error().Err(err).Msg("failed to encode medication response")
		}
	}
}

// HandleUpdateMedication updates a medication and re-schedules its reminders
func HandleUpdateMedication(db *database.DB, scheduler *services.ReminderScheduler, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req UpdateMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		medicationRepo := repository.NewMedicationRepository(db)
		medication, err := medicationRepo.GetByID(id)
		if err != nil {
			if err == repository.ErrNotFound {
				http.Error(w, "Medication not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to retrieve medication", http.StatusInternalServerError)
			return
		}

		if req.Name != nil {
			medication.Name = *req.Name
		}
		if req.Dosage != nil {
			medication.Dosage = nullString(req.Dosage)
		}
		if req.Notes != nil {
			medication.Notes = nullString(req.Notes)
		}
		if req.Times != nil {
			medication.Times = req.Times
		}
		if req.StartDate != nil {
			startDate, err := time.ParseInLocation("2006-01-02", *req.StartDate, time.Local)
			if err != nil {
				http.Error(w, "Invalid start_date format, use YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			medication.StartDate = startDate
		}
		if req.Ongoing != nil && *req.Ongoing {
			medication.DurationDays = sql.NullInt64{}
		} else if req.DurationDays != nil {
			medication.DurationDays = sql.NullInt64{Int64: *req.DurationDays, Valid: true}
		}
		if req.ReminderEnabled != nil {
			medication.ReminderEnabled = *req.ReminderEnabled
		}
		if req.RefillReminder != nil {
			medication.RefillReminder = *req.RefillReminder
			if *req.RefillReminder {
				// Re-enabling reminders re-arms alerting.
				medication.RefillNotifiedAt = sql.NullTime{}
			}
		}

		// Supply fields may only be edited within the medication's mode.
		switch medication.Mode {
		case models.ModePillCount:
			if req.Dose != nil {
				http.Error(w, "dose supply fields are not valid for a pill-count medication", http.StatusBadRequest)
				return
			}
			if req.Pills != nil {
				medication.Pills = pillSupplyFromRequest(req.Pills, medication.Pills)
			}
		case models.ModeDoseBased:
			if req.Pills != nil {
				http.Error(w, "pill supply fields are not valid for a dose-based medication", http.StatusBadRequest)
				return
			}
			if req.Dose != nil {
				medication.Dose = doseSupplyFromRequest(req.Dose, medication.Dose)
			}
		}

		if err := medication.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := medicationRepo.Update(medication); err != nil {
			http.Error(w, fmt.Sprintf("Failed to update medication: %v", err), http.StatusInternalServerError)
			return
		}

		scheduler.Schedule(medication)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(medication); err != nil {
			logger.Error().Err(err).Msg("failed to encode medication response")
		}
	}
}

// HandleDeleteMedication deletes a medication, its dose history, and any
// scheduled reminders
func HandleDeleteMedication(db *database.DB, scheduler *services.ReminderScheduler, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		medicationRepo := repository.NewMedicationRepository(db)
		if err := medicationRepo.Delete(id); err != nil {
			if err == repository.ErrNotFound {
				http.Error(w, "Medication not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to delete medication", http.StatusInternalServerError)
			return
		}

		scheduler.Cancel(id)

		w.WriteHeader(http.StatusNoContent)
	}
}

func pillSupplyFromRequest(req *PillSupplyRequest, existing *models.PillSupply) *models.PillSupply {
	supply := &models.PillSupply{PillsPerDose: 1}
	if existing != nil {
		*supply = *existing
	}
	if req.PillsPerDose != nil {
		supply.PillsPerDose = *req.PillsPerDose
	}
	if req.CurrentPills != nil {
		supply.CurrentPills = *req.CurrentPills
	}
	if req.TotalPills != nil {
		supply.TotalPills = *req.TotalPills
	} else if existing == nil && req.CurrentPills != nil {
		supply.TotalPills = *req.CurrentPills
	}
	if req.RefillAtPills != nil {
		supply.RefillAtPills = *req.RefillAtPills
	}
	return supply
}

func doseSupplyFromRequest(req *DoseSupplyRequest, existing *models.DoseSupply) *models.DoseSupply {
	supply := &models.DoseSupply{}
	if existing != nil {
		*supply = *existing
	}
	if req.DosePerTake != nil {
		supply.DosePerTake = *req.DosePerTake
	}
	if req.CurrentDose != nil {
		supply.CurrentDose = *req.CurrentDose
	}
	if req.TotalDose != nil {
		supply.TotalDose = *req.TotalDose
	} else if existing == nil && req.CurrentDose != nil {
		supply.TotalDose = *req.CurrentDose
	}
	if req.RefillAtDose != nil {
		supply.RefillAtDose = *req.RefillAtDose
	}
	return supply
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
