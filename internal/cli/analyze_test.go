package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pfamflow/pfam-int/internal/api"
	"github.com/pfamflow/pfam-int/internal/config"
	"github.com/pfamflow/pfam-int/internal/logging"
)

// analysisServer mimics the analysis endpoints. statuses are served in
// order; the last one repeats.
func analysisServer(t *testing.T, start string, statuses []string) *api.Client {
	t.Helper()
	var polls atomic.Int32
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/analyze", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			w.WriteHeader(nethttp.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(start, `"error"`) {
			w.WriteHeader(nethttp.StatusBadRequest)
		}
		fmt.Fprint(w, start)
	})
	mux.HandleFunc("/status", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		i := int(polls.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, statuses[i])
	})
	mux.HandleFunc("/download_all", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="all_results.zip"`)
		fmt.Fprint(w, "PK-archive")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.NewConfig()
	cfg.BaseURL = srv.URL
	cfg.Analysis.PollInterval = 5 * time.Millisecond
	cfg.Analysis.SuccessDelay = 5 * time.Millisecond
	cfg.Analysis.FailureDelay = 5 * time.Millisecond
	client, err := api.NewClient(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

const startedBody = `{"message":"Analysis started","status":"started"}`

func TestRunAnalysis_SuccessDownloadsResults(t *testing.T) {
	client := analysisServer(t, startedBody, []string{
		`{"running":true,"current_step":"translation","progress":10,"message":"Translating sample1"}`,
		`{"running":true,"current_step":"hmmer","progress":55,"message":"Searching"}`,
		`{"running":false,"current_step":"complete","progress":100,"message":"Done"}`,
	})
	dir := t.TempDir()

	var out, errOut bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := runAnalysis(ctx, client, analyzeOptions{downloadDir: dir}, &out, &errOut, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("runAnalysis() error = %v\nstderr: %s", err, errOut.String())
	}

	if !strings.Contains(out.String(), client.GetConfig().ResultsURL()) {
		t.Errorf("results URL not shown:\n%s", out.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, api.DefaultArchiveName))
	if err != nil {
		t.Fatalf("archive not downloaded: %v", err)
	}
	if string(data) != "PK-archive" {
		t.Errorf("archive content = %q", data)
	}
	if !strings.Contains(errOut.String(), "Starting...") {
		t.Errorf("start label not shown: %q", errOut.String())
	}
}

func TestRunAnalysis_JobFailure(t *testing.T) {
	client := analysisServer(t, startedBody, []string{
		`{"running":true,"current_step":"hmmer","progress":40,"message":""}`,
		`{"running":false,"current_step":"hmmer","progress":40,"error":"Pfam-A.hmm missing"}`,
	})

	var out, errOut bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := runAnalysis(ctx, client, analyzeOptions{}, &out, &errOut, logging.NewNopLogger())
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("runAnalysis() error = %v, want ErrAnalysisFailed", err)
	}
	if !strings.Contains(err.Error(), "Pfam-A.hmm missing") {
		t.Errorf("error = %q, want server message", err)
	}
	if !strings.Contains(errOut.String(), "Analysis failed: Pfam-A.hmm missing") {
		t.Errorf("failure alert not shown:\n%s", errOut.String())
	}
}

func TestRunAnalysis_Rejected(t *testing.T) {
	client := analysisServer(t, `{"error":"No files uploaded"}`, []string{`{"running":false}`})

	var out, errOut bytes.Buffer
	err := runAnalysis(context.Background(), client, analyzeOptions{}, &out, &errOut, logging.NewNopLogger())
	if !api.IsRejection(err) {
		t.Fatalf("runAnalysis() error = %v, want rejection", err)
	}
	if !strings.Contains(errOut.String(), "No files uploaded") {
		t.Errorf("rejection alert not shown:\n%s", errOut.String())
	}
}

func TestRunAnalysis_CancelStopsMonitoring(t *testing.T) {
	client := analysisServer(t, startedBody, []string{
		`{"running":true,"current_step":"hmmer","progress":20,"message":""}`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	var out, errOut bytes.Buffer
	err := runAnalysis(ctx, client, analyzeOptions{}, &out, &errOut, logging.NewNopLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("runAnalysis() error = %v, want context.Canceled", err)
	}
}

func TestStartOnly(t *testing.T) {
	client := analysisServer(t, startedBody, []string{`{"running":true}`})
	var out bytes.Buffer
	if err := startOnly(context.Background(), client, &out); err != nil {
		t.Fatalf("startOnly() error = %v", err)
	}
	if !strings.Contains(out.String(), "Analysis started") {
		t.Errorf("output = %q", out.String())
	}

	rejected := analysisServer(t, `{"error":"Analysis already running"}`, []string{`{"running":true}`})
	if err := startOnly(context.Background(), rejected, &out); !api.IsRejection(err) {
		t.Errorf("startOnly() error = %v, want rejection", err)
	}
}
