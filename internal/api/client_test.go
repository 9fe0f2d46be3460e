package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pfamflow/pfam-int/internal/config"
	"github.com/pfamflow/pfam-int/internal/logging"
	"github.com/pfamflow/pfam-int/internal/models"
)

func newTestClient(t *testing.T, handler nethttp.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.NewConfig()
	cfg.BaseURL = srv.URL
	client, err := NewClient(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

// TestNewClientRejectsEmptyBaseURL verifies that NewClient fails with a clear
// error instead of producing "unsupported protocol scheme" on every request.
func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	cfg := config.NewConfig()
	cfg.BaseURL = ""

	_, err := NewClient(cfg, nil)
	if err == nil {
		t.Fatal("NewClient() should return error for empty BaseURL")
	}
	if !strings.Contains(err.Error(), "base URL is empty") {
		t.Errorf("NewClient() error = %q, want error containing 'base URL is empty'", err.Error())
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantRejected string
		wantErr      bool
		wantCode     int
	}{
		{
			name:   "accepted",
			status: 200,
			body:   `{"message": "Analysis started", "status": "started"}`,
		},
		{
			name:         "already running",
			status:       400,
			body:         `{"error": "Analysis already running"}`,
			wantRejected: "Analysis already running",
		},
		{
			name:         "rejection with 200",
			status:       200,
			body:         `{"error": "No FNA files found. Please upload files first."}`,
			wantRejected: "No FNA files found. Please upload files first.",
		},
		{
			name:     "server error page",
			status:   500,
			body:     "<html>Internal Server Error</html>",
			wantErr:  true,
			wantCode: 500,
		},
		{
			name:     "unparsable success",
			status:   200,
			body:     "not json",
			wantErr:  true,
			wantCode: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				if r.Method != nethttp.MethodPost || r.URL.Path != "/analyze" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			resp, err := client.Start(context.Background())
			if tt.wantErr {
				var te *TransportError
				if !errors.As(err, &te) {
					t.Fatalf("Start() error = %v, want *TransportError", err)
				}
				if te.StatusCode != tt.wantCode {
					t.Errorf("StatusCode = %d, want %d", te.StatusCode, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Start() unexpected error: %v", err)
			}
			if resp.Rejected() != (tt.wantRejected != "") {
				t.Errorf("Rejected() = %v, want %v", resp.Rejected(), tt.wantRejected != "")
			}
			if resp.Error != tt.wantRejected {
				t.Errorf("Error = %q, want %q", resp.Error, tt.wantRejected)
			}
		})
	}
}

func TestStart_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(nethttp.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := config.NewConfig()
	cfg.BaseURL = url
	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Start(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Start() error = %v, want *TransportError", err)
	}
	if IsRejection(err) {
		t.Error("transport failure must not look like a rejection")
	}
}

func TestStatus(t *testing.T) {
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/status" {
			nethttp.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"running": true, "current_step": "hmmer", "progress": 42.5, "message": "Searching", "error": null}`)
	}))

	snap, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !snap.Running || snap.CurrentStep != models.StepHMMER || snap.Progress != 42.5 || snap.Message != "Searching" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.Error != nil {
		t.Errorf("Error = %v, want nil", *snap.Error)
	}
}

func TestStatus_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", 502, "bad gateway"},
		{"malformed body", 200, `{"running": tru`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			if _, err := client.Status(context.Background()); err == nil {
				t.Fatal("Status() expected error")
			}
		})
	}
}

func TestStatus_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Status(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Status() error = %v, want context.Canceled", err)
	}
}

func TestClearData(t *testing.T) {
	var hits int32
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.URL.Path {
		case "/clear_data":
			if r.Method != nethttp.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			atomic.AddInt32(&hits, 1)
			nethttp.Redirect(w, r, "/", nethttp.StatusFound)
		default:
			_, _ = io.WriteString(w, "<html>index</html>")
		}
	}))

	if err := client.ClearData(context.Background()); err != nil {
		t.Fatalf("ClearData() error = %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("clear_data hits = %d, want 1", hits)
	}
}

func writeSequence(t *testing.T, dir, name, content string) models.FileCandidate {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return models.FileCandidate{Name: name, Path: path, SizeBytes: int64(len(content)), Extension: filepath.Ext(name)}
}

func TestUploadFiles(t *testing.T) {
	dir := t.TempDir()
	files := []models.FileCandidate{
		writeSequence(t, dir, "a.fna", ">seq1\nACGT\n"),
		writeSequence(t, dir, "b.fasta", ">seq2\nGGCCAATT\n"),
	}

	received := map[string]string{}
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/upload" {
			_, _ = io.WriteString(w, "index")
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			w.WriteHeader(400)
			return
		}
		for _, fh := range r.MultipartForm.File["files[]"] {
			f, _ := fh.Open()
			data, _ := io.ReadAll(f)
			f.Close()
			received[fh.Filename] = string(data)
		}
		nethttp.Redirect(w, r, "/", nethttp.StatusFound)
	}))

	var streamed int64
	wrap := func(name string, size int64, r io.Reader) io.Reader {
		return io.TeeReader(r, writerFunc(func(p []byte) (int, error) {
			atomic.AddInt64(&streamed, int64(len(p)))
			return len(p), nil
		}))
	}

	result, err := client.UploadFiles(context.Background(), files, wrap)
	if err != nil {
		t.Fatalf("UploadFiles() error = %v", err)
	}
	if result.Accepted != 2 {
		t.Errorf("Accepted = %d, want 2", result.Accepted)
	}
	if received["a.fna"] != ">seq1\nACGT\n" || received["b.fasta"] != ">seq2\nGGCCAATT\n" {
		t.Errorf("server received %v", received)
	}
	if want := files[0].SizeBytes + files[1].SizeBytes; atomic.LoadInt64(&streamed) != want {
		t.Errorf("streamed %d bytes, want %d", streamed, want)
	}
}

func TestUploadFiles_RejectsUnsafeName(t *testing.T) {
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		t.Error("no request expected")
	}))

	_, err := client.UploadFiles(context.Background(), []models.FileCandidate{{Name: "../evil.fna", Path: "/dev/null", SizeBytes: 1}}, nil)
	if err == nil {
		t.Fatal("UploadFiles() should reject names with path separators")
	}
}

func TestDownloadAll_RetriesServerErrors(t *testing.T) {
	var attempts int32
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="all_results.zip"`)
		_, _ = io.WriteString(w, "PK-zip-bytes")
	}))

	dest := t.TempDir()
	path, err := client.DownloadAll(context.Background(), dest, nil)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}
	if path != filepath.Join(dest, "all_results.zip") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "PK-zip-bytes" {
		t.Errorf("archive content = %q, err = %v", data, err)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDownloadAll_NotFoundIsFatal(t *testing.T) {
	var attempts int32
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		atomic.AddInt32(&attempts, 1)
		nethttp.NotFound(w, r)
	}))

	if _, err := client.DownloadAll(context.Background(), t.TempDir(), nil); err == nil {
		t.Fatal("DownloadAll() expected error")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("attempts = %d, want 1 (404 is not retried)", attempts)
	}
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", DefaultArchiveName},
		{`attachment; filename="results.zip"`, "results.zip"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{`attachment; filename=""`, DefaultArchiveName},
		{"garbage;;", DefaultArchiveName},
	}
	for _, tt := range tests {
		if got := archiveName(tt.header); got != tt.want {
			t.Errorf("archiveName(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestRejectionError(t *testing.T) {
	err := RejectionError(&models.StartResponse{Error: "Analysis already running"})
	if !IsRejection(err) {
		t.Fatal("IsRejection() = false")
	}
	if !strings.Contains(err.Error(), "Analysis already running") {
		t.Errorf("error %q lacks server text", err)
	}
	if IsRejection(fmt.Errorf("wrapped: %w", &TransportError{Op: "start analysis"})) {
		t.Error("transport error reported as rejection")
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
