package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJobSnapshot_Decode(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantProgress float64
		wantStep     StepKey
		wantRunning  bool
		wantFailed   bool
	}{
		{
			name:         "running hmmer step",
			body:         `{"progress":45,"current_step":"hmmer","message":"searching","running":true,"error":null}`,
			wantProgress: 45,
			wantStep:     StepHMMER,
			wantRunning:  true,
		},
		{
			name:         "complete without error field",
			body:         `{"progress":100,"current_step":"complete","running":false}`,
			wantProgress: 100,
			wantStep:     StepComplete,
		},
		{
			name:         "job error",
			body:         `{"progress":50,"current_step":"hmmer","message":"Error: boom","running":false,"error":"boom"}`,
			wantProgress: 50,
			wantStep:     StepHMMER,
			wantFailed:   true,
		},
		{
			name:         "string progress",
			body:         `{"progress":"12.5","current_step":"translation","running":true}`,
			wantProgress: 12.5,
			wantStep:     StepTranslation,
			wantRunning:  true,
		},
		{
			name:        "unknown step passes through",
			body:        `{"progress":0,"current_step":"warming-up","running":true}`,
			wantStep:    StepKey("warming-up"),
			wantRunning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var snap JobSnapshot
			if err := json.Unmarshal([]byte(tt.body), &snap); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if snap.Progress != tt.wantProgress {
				t.Errorf("Progress = %v, want %v", snap.Progress, tt.wantProgress)
			}
			if snap.CurrentStep != tt.wantStep {
				t.Errorf("CurrentStep = %q, want %q", snap.CurrentStep, tt.wantStep)
			}
			if snap.Running != tt.wantRunning {
				t.Errorf("Running = %v, want %v", snap.Running, tt.wantRunning)
			}
			if snap.Terminal() == tt.wantRunning {
				t.Errorf("Terminal() = %v with Running = %v", snap.Terminal(), snap.Running)
			}
			if snap.Failed() != tt.wantFailed {
				t.Errorf("Failed() = %v, want %v", snap.Failed(), tt.wantFailed)
			}
		})
	}
}

func TestJobSnapshot_DecodeInvalidProgress(t *testing.T) {
	var snap JobSnapshot
	if err := json.Unmarshal([]byte(`{"progress":"abc","running":true}`), &snap); err == nil {
		t.Fatal("expected error for non-numeric progress")
	}
}

func TestStartResponse_Rejected(t *testing.T) {
	var resp StartResponse
	if err := json.Unmarshal([]byte(`{"error":"Analysis already running"}`), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !resp.Rejected() {
		t.Error("expected response with error to be a rejection")
	}

	resp = StartResponse{}
	if err := json.Unmarshal([]byte(`{"message":"Analysis started","status":"started"}`), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Rejected() {
		t.Error("expected started response to be accepted")
	}
}

func TestCandidatesFromPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Genome.FNA")
	if err := os.WriteFile(path, []byte(">seq\nACGT\n"), 0644); err != nil {
		t.Fatal(err)
	}

	candidates, err := CandidatesFromPaths([]string{path})
	if err != nil {
		t.Fatalf("CandidatesFromPaths failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	c := candidates[0]
	if c.Name != "Genome.FNA" || c.Extension != ".fna" || c.SizeBytes != 10 {
		t.Errorf("unexpected candidate: %+v", c)
	}

	if _, err := CandidatesFromPaths([]string{dir}); err == nil {
		t.Error("expected error for directory")
	}
	if _, err := CandidatesFromPaths([]string{filepath.Join(dir, "missing.fa")}); err == nil {
		t.Error("expected error for missing file")
	}
}
