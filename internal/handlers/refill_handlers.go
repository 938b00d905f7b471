package handlers

import (
	"encoding/json"
	"net/http"

	"medication-tracker/internal/repository"
	"medication-tracker/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RefillRequest represents the request body for refilling a medication
type RefillRequest struct {
	Quantity float64 `json:"quantity"`
}

// SetSupplyRequest represents the request body for a manual supply override
type SetSupplyRequest struct {
	Value float64 `json:"value"`
}

// HandleRefill adds supply to a medication and clears its refill reminder
func HandleRefill(refills *services.RefillService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req RefillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Quantity <= 0 {
			http.Error(w, "quantity must be positive", http.StatusBadRequest)
			return
		}

		medication, err := refills.Refill(id, req.Quantity)
		if err != nil {
			if err == repository.ErrNotFound {
				http.Error(w, "Medication not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to refill medication", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(medication); err != nil {
			logger.Error().Err(err).Msg("failed to encode refill response")
		}
	}
}

// HandleSetSupply overrides a medication's current supply
func HandleSetSupply(refills *services.RefillService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req SetSupplyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Value < 0 {
			http.Error(w, "value must be non-negative", http.StatusBadRequest)
			return
		}

		medication, err := refills.SetSupply(id, req.Value)
		if err != nil {
			if err == repository.ErrNotFound {
				http.Error(w, "Medication not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to set supply", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(medication); err != nil {
			logger.Error().Err(err).Msg("failed to encode set-supply response")
		}
	}
}

// HandleClearRefillNotice suppresses the refill reminder for a medication
func HandleClearRefillNotice(refills *services.RefillService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		medication, err := refills.ClearNotification(id)
		if err != nil {
			if err == repository.ErrNotFound {
				http.Error(w, "Medication not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to clear refill notice", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(medication); err != nil {
			logger.Error().Err(err).Msg("failed to encode clear-notice response")
		}
	}
}

// HandleGetRefills returns medications currently needing a refill
func HandleGetRefills(refills *services.RefillService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		needing := refills.CheckAll()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(needing); err != nil {
			logger.Error().Err(err).Msg("failed to encode refills response")
		}
	}
}
