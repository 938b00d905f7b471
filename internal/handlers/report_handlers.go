package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"medication-tracker/internal/services"

	"github.com/rs/zerolog"
)

// HandleGetProgress returns today's dose completion summary
func HandleGetProgress(reports *services.ReportService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		progress, err := reports.TodaysProgress()
		if err != nil {
			http.Error(w, "Failed to compute progress", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(progress); err != nil {
			logger.Error().Err(err).Msg("failed to encode progress response")
		}
	}
}

// HandleGetGroupedHistory returns the full dose history grouped by day
func HandleGetGroupedHistory(doses *services.DoseService, reports *services.ReportService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := doses.GetDoseHistory()
		if err != nil {
			http.Error(w, "Failed to retrieve dose history", http.StatusInternalServerError)
			return
		}

		sections := reports.GroupHistoryByDate(history)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sections); err != nil {
			logger.Error().Err(err).Msg("failed to encode history sections response")
		}
	}
}

// HandleGetActiveMedications returns medications active on a selected date
// (today when no date query parameter is given)
func HandleGetActiveMedications(reports *services.ReportService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := time.Now()
		if dateStr := r.URL.Query().Get("date"); dateStr != "" {
			parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
			if err != nil {
				http.Error(w, "Invalid date format, use YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			date = parsed
		}

		active, err := reports.ActiveMedicationsForDate(date)
		if err != nil {
			http.Error(w, "Failed to retrieve active medications", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(active); err != nil {
			logger.Error().Err(err).Msg("failed to encode active medications response")
		}
	}
}
