package handlers

import (
	"fmt"
	"net/http"
	"time"

	"medication-tracker/internal/database"
	"medication-tracker/internal/models"
	"medication-tracker/internal/repository"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/rs/zerolog"
)

// HandleExportHistoryPDF renders the dose history as a PDF report
func HandleExportHistoryPDF(db *database.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicationRepo := repository.NewMedicationRepository(db)
		doseRepo := repository.NewDoseHistoryRepository(db)

		medications, err := medicationRepo.List()
		if err != nil {
			http.Error(w, "Failed to retrieve medications", http.StatusInternalServerError)
			return
		}

		history, err := doseRepo.List()
		if err != nil {
			http.Error(w, "Failed to retrieve dose history", http.StatusInternalServerError)
			return
		}

		names := make(map[string]string, len(medications))
		for _, med := range medications {
			names[med.ID] = med.Name
		}

		pdf := buildHistoryPDF(medications, history, names)

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="dose-history.pdf"`)
		if err := pdf.Output(w); err != nil {
			logger.Error().Err(err).Msg("failed to write history PDF")
		}
	}
}

func buildHistoryPDF(medications []*models.Medication, history []*models.DoseHistory, names map[string]string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Medication Dose History", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Medication Dose History")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", time.Now().Format("Jan 2, 2006 15:04")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Medications")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 10)
	for _, med := range medications {
		line := fmt.Sprintf("%s - %s, %d dose(s)/day, %s", med.Name, med.Mode, med.DosesDue(), med.FormattedDuration())
		if med.Dosage.Valid {
			line = fmt.Sprintf("%s - %s, %s, %d dose(s)/day, %s", med.Name, med.Dosage.String, med.Mode, med.DosesDue(), med.FormattedDuration())
		}
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Dose Log (%d entries)", len(history)))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(30, 7, "Date", "1", 0, "", false, 0, "")
	pdf.CellFormat(20, 7, "Time", "1", 0, "", false, 0, "")
	pdf.CellFormat(60, 7, "Medication", "1", 0, "", false, 0, "")
	pdf.CellFormat(20, 7, "Taken", "1", 0, "", false, 0, "")
	pdf.CellFormat(60, 7, "Notes", "1", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, entry := range history {
		name := names[entry.MedicationID]
		if name == "" {
			name = entry.MedicationID
		}
		taken := "no"
		if entry.Taken {
			taken = "yes"
		}
		pdf.CellFormat(30, 7, entry.Timestamp.Format("2006-01-02"), "1", 0, "", false, 0, "")
		pdf.CellFormat(20, 7, entry.Timestamp.Format("15:04"), "1", 0, "", false, 0, "")
		pdf.CellFormat(60, 7, truncateString(name, 34), "1", 0, "", false, 0, "")
		pdf.CellFormat(20, 7, taken, "1", 0, "", false, 0, "")
		pdf.CellFormat(60, 7, truncateString(entry.Notes.String, 34), "1", 1, "", false, 0, "")
	}

	return pdf
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
