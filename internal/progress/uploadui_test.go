package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestUploadUI_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	ui := newUploadUI(&buf, 2)

	for _, name := range []string{"a.fna", "b.fasta"} {
		r := ui.Track(name, 4, strings.NewReader("ACGT"))
		data, err := io.ReadAll(r)
		if err != nil || string(data) != "ACGT" {
			t.Fatalf("Track() altered the stream: %q, %v", data, err)
		}
	}
	// A retry re-tracks the same file without announcing it again.
	_, _ = io.ReadAll(ui.Track("a.fna", 4, strings.NewReader("ACGT")))

	ui.Finish(nil)

	out := buf.String()
	if n := strings.Count(out, "Uploading [1/2]: a.fna"); n != 1 {
		t.Errorf("a.fna announced %d times, want 1:\n%s", n, out)
	}
	if !strings.Contains(out, "Uploading [2/2]: b.fasta") {
		t.Errorf("missing b.fasta announcement:\n%s", out)
	}
	if strings.Count(out, "✓") != 2 {
		t.Errorf("expected two success lines:\n%s", out)
	}
}

func TestUploadUI_FinishWithError(t *testing.T) {
	var buf bytes.Buffer
	ui := newUploadUI(&buf, 1)
	_, _ = io.ReadAll(ui.Track("a.fna", 4, strings.NewReader("ACGT")))

	ui.Finish(errors.New("upload failed: status 413"))

	if !strings.Contains(buf.String(), "✗ a.fna: upload failed: status 413") {
		t.Errorf("missing failure line:\n%s", buf.String())
	}
}

func TestDownloadBar_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	d := NewDownloadBar(&buf)

	data, _ := io.ReadAll(d.Track("all_results.zip", -1, strings.NewReader("PK")))
	d.Finish()

	if string(data) != "PK" {
		t.Errorf("stream altered: %q", data)
	}
	if !strings.Contains(buf.String(), "Downloading all_results.zip") {
		t.Errorf("missing download line: %q", buf.String())
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		max  int
		want string
	}{
		{"a.fna", 2, "a.fna"},
		{"dir/a.fna", 2, "a.fna"},
		{"/data/run1/seqs/a.fna", 2, "…/seqs/a.fna"},
	}
	for _, tt := range tests {
		if got := truncatePath(tt.path, tt.max); got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.max, got, tt.want)
		}
	}
}
