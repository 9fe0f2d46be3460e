// Package models defines data structures shared by the analysis client.
package models

import (
	"encoding/json"
	"fmt"
)

// StepKey identifies the pipeline stage reported by the analysis server.
// Unknown values are kept verbatim so newer servers can add stages.
type StepKey string

const (
	StepTranslation StepKey = "translation"
	StepHMMER       StepKey = "hmmer"
	StepResults     StepKey = "results"
	StepCounting    StepKey = "counting"
	StepComplete    StepKey = "complete"
)

// JobSnapshot is one point-in-time status report returned by GET /status.
// Each snapshot replaces the previous one; fields are never merged.
type JobSnapshot struct {
	Progress    float64 `json:"progress"`
	CurrentStep StepKey `json:"current_step"`
	Message     string  `json:"message"`
	Running     bool    `json:"running"`
	Error       *string `json:"error"`
}

// Terminal reports whether the snapshot ends the job. A snapshot with
// running=false is terminal whatever its progress value.
func (s JobSnapshot) Terminal() bool {
	return !s.Running
}

// Failed reports whether the job reported its own error.
func (s JobSnapshot) Failed() bool {
	return s.Error != nil && *s.Error != ""
}

// ErrorText returns the job-reported error, or "" when there is none.
func (s JobSnapshot) ErrorText() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}

// UnmarshalJSON accepts progress as either a number or a numeric string;
// the server has sent both over time.
func (s *JobSnapshot) UnmarshalJSON(data []byte) error {
	type alias JobSnapshot
	var raw struct {
		alias
		Progress json.RawMessage `json:"progress"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = JobSnapshot(raw.alias)
	s.Progress = 0

	if len(raw.Progress) == 0 || string(raw.Progress) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw.Progress, &n); err == nil {
		s.Progress = n
		return nil
	}
	var str string
	if err := json.Unmarshal(raw.Progress, &str); err != nil {
		return fmt.Errorf("invalid progress value %s", string(raw.Progress))
	}
	if _, err := fmt.Sscanf(str, "%g", &n); err != nil {
		return fmt.Errorf("invalid progress value %q", str)
	}
	s.Progress = n
	return nil
}

// StartResponse is the body returned by POST /analyze.
// A non-empty Error means the server declined to start the job.
type StartResponse struct {
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Rejected reports whether the server declined the request.
func (r StartResponse) Rejected() bool {
	return r.Error != ""
}
