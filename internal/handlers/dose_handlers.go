package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"medication-tracker/internal/models"
	"medication-tracker/internal/repository"
	"medication-tracker/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RecordDoseRequest represents the request body for recording a dose
type RecordDoseRequest struct {
	Taken     bool    `json:"taken"`
	Timestamp *string `json:"timestamp,omitempty"` // RFC 3339; defaults to now
	Notes     *string `json:"notes,omitempty"`
}

// HandleRecordDose records a dose event for a medication
func HandleRecordDose(doses *services.DoseService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req RecordDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var timestamp time.Time
		if req.Timestamp != nil && *req.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339, *req.Timestamp)
			if err != nil {
				http.Error(w, "Invalid timestamp format, use RFC 3339", http.StatusBadRequest)
				return
			}
			timestamp = parsed.In(time.Local)
		}

		notes := ""
		if req.Notes != nil {
			notes = *req.Notes
		}

		entry, err := doses.RecordDose(id, req.Taken, timestamp, notes)
		if err != nil {
			if err == repository.ErrNotFound {
				http.Error(w, "Medication not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to record dose", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			logger.Error().Err(err).Msg("failed to encode dose response")
		}
	}
}

// HandleGetDoseHistory returns all dose history rows, optionally filtered by
// medication id and taken status
func HandleGetDoseHistory(doses *services.DoseService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := doses.GetDoseHistory()
		if err != nil {
			http.Error(w, "Failed to retrieve dose history", http.StatusInternalServerError)
			return
		}

		medicationID := r.URL.Query().Get("medication_id")
		takenFilter := r.URL.Query().Get("taken")
		if medicationID != "" || takenFilter != "" {
			filtered := make([]*models.DoseHistory, 0, len(history))
			for _, entry := range history {
				if medicationID != "" && entry.MedicationID != medicationID {
					continue
				}
				if takenFilter == "true" && !entry.Taken {
					continue
				}
				if takenFilter == "false" && entry.Taken {
					continue
				}
				filtered = append(filtered, entry)
			}
			history = filtered
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(history); err != nil {
			logger.Error().Err(err).Msg("failed to encode dose history response")
		}
	}
}

// HandleGetTodaysDoses returns doses logged today
func HandleGetTodaysDoses(doses *services.DoseService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		todays, err := doses.GetTodaysDoses()
		if err != nil {
			http.Error(w, "Failed to retrieve today's doses", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(todays); err != nil {
			logger.Error().Err(err).Msg("failed to encode today's doses response")
		}
	}
}

// HandleGetDosesForDate returns doses logged on the given calendar day
func HandleGetDosesForDate(doses *services.DoseService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dateStr := chi.URLParam(r, "date")
		date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			http.Error(w, "Invalid date format, use YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		entries, err := doses.GetDosesForDate(date)
		if err != nil {
			http.Error(w, "Failed to retrieve doses", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			logger.Error().Err(err).Msg("failed to encode doses response")
		}
	}
}

// HandleClearAllData wipes all medications and dose history
func HandleClearAllData(doses *services.DoseService, scheduler *services.ReminderScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := doses.ClearAllData(); err != nil {
			http.Error(w, "Failed to clear data", http.StatusInternalServerError)
			return
		}

		scheduler.Stop()

		w.WriteHeader(http.StatusNoContent)
	}
}
