package services

import (
	"sort"
	"time"

	"medication-tracker/internal/database"
	"medication-tracker/internal/models"
	"medication-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// Progress summarizes today's dose completion.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Ratio     float64 `json:"ratio"`
}

// HistorySection groups dose history rows sharing a local calendar day.
type HistorySection struct {
	Title string                `json:"title"`
	Doses []*models.DoseHistory `json:"doses"`
}

// ReportService derives read-only views over medications and dose history.
type ReportService struct {
	medRepo  *repository.MedicationRepository
	doseRepo *repository.DoseHistoryRepository
	logger   zerolog.Logger
	now      func() time.Time
}

func NewReportService(db *database.DB, logger zerolog.Logger) *ReportService {
	return &ReportService{
		medRepo:  repository.NewMedicationRepository(db),
		doseRepo: repository.NewDoseHistoryRepository(db),
		logger:   logger,
		now:      time.Now,
	}
}

// TodaysProgress computes completed and total doses for today. Total is the
// sum of daily dose counts over medications active today; completed counts
// today's taken rows whose medication is among them. Rows for deleted or
// expired medications stay in raw history but are excluded here.
func (s *ReportService) TodaysProgress() (*Progress, error) {
	meds, err := s.medRepo.List()
	if err != nil {
		return nil, err
	}

	today := s.now()
	active := make(map[string]bool)
	total := 0
	for _, med := range meds {
		if med.IsActiveOn(today) {
			active[med.ID] = true
			total += med.DosesDue()
		}
	}

	doses, err := s.doseRepo.ListForDate(today)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, dose := range doses {
		if dose.Taken && active[dose.MedicationID] {
			completed++
		}
	}

	ratio := 0.0
	if total > 0 {
		ratio = float64(completed) / float64(total)
		if ratio > 1 {
			ratio = 1
		}
	}

	return &Progress{Completed: completed, Total: total, Ratio: ratio}, nil
}

// GroupHistoryByDate partitions rows by local calendar day. Rows within a
// section and sections themselves are ordered newest first; today's and
// yesterday's sections carry human labels. The input is not mutated.
func (s *ReportService) GroupHistoryByDate(rows []*models.DoseHistory) []HistorySection {
	today := models.StartOfDay(s.now())
	yesterday := today.AddDate(0, 0, -1)

	grouped := make(map[time.Time][]*models.DoseHistory)
	for _, row := range rows {
		day := models.StartOfDay(row.Timestamp)
		grouped[day] = append(grouped[day], row)
	}

	sections := make([]HistorySection, 0, len(grouped))
	for day, doses := range grouped {
		sorted := make([]*models.DoseHistory, len(doses))
		copy(sorted, doses)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		})

		title := day.Format("Jan 2, 2006")
		if day.Equal(today) {
			title = "Today"
		} else if day.Equal(yesterday) {
			title = "Yesterday"
		}

		sections = append(sections, HistorySection{Title: title, Doses: sorted})
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Doses[0].Timestamp.After(sections[j].Doses[0].Timestamp)
	})

	return sections
}

// ActiveMedicationsForDate filters medications by their schedule window
// against an arbitrary selected date. Used by calendar views.
func (s *ReportService) ActiveMedicationsForDate(date time.Time) ([]*models.Medication, error) {
	meds, err := s.medRepo.List()
	if err != nil {
		return nil, err
	}

	active := make([]*models.Medication, 0, len(meds))
	for _, med := range meds {
		if med.IsActiveOn(date) {
			active = append(active, med)
		}
	}
	return active, nil
}
