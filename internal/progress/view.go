// Package progress renders job snapshots and file transfers for the terminal.
package progress

import (
	"math"

	"github.com/pfamflow/pfam-int/internal/models"
)

// Fixed texts of the progress surface.
const (
	InitialLabel    = "Starting"
	InitialMessage  = "Initializing analysis..."
	SuccessLabel    = "Analysis Complete!"
	SuccessMessage  = "All files have been processed successfully."
	FailureLabel    = "Analysis Failed"
	ConnectionError = "Connection error while monitoring progress"
)

// View is what the progress surface displays for one snapshot.
type View struct {
	Percent int
	Label   string
	Message string
}

var stepLabels = map[models.StepKey]string{
	models.StepTranslation: "Step 1: Translation",
	models.StepHMMER:       "Step 2: Database Search",
	models.StepResults:     "Step 3: Processing Results",
	models.StepCounting:    "Step 4: Counting Hits",
	models.StepComplete:    "Analysis Complete!",
}

// StepLabel maps a step key to its display label. Unknown keys are shown as-is.
func StepLabel(step models.StepKey) string {
	if label, ok := stepLabels[step]; ok {
		return label
	}
	return string(step)
}

// Render maps a snapshot to a view. It is pure and total.
func Render(s models.JobSnapshot) View {
	return View{
		Percent: clampPercent(s.Progress),
		Label:   StepLabel(s.CurrentStep),
		Message: s.Message,
	}
}

// InitialView is shown as soon as the server accepts a job.
func InitialView() View {
	return View{Percent: 0, Label: InitialLabel, Message: InitialMessage}
}

func clampPercent(p float64) int {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	if p >= 100 {
		return 100
	}
	return int(math.Round(p))
}
