package alert

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pfamflow/pfam-int/internal/schedule"
)

func newTestBoard() (*Board, *schedule.Fake, *bytes.Buffer) {
	var buf bytes.Buffer
	sched := schedule.NewFake()
	return NewBoard(&buf, sched, nil), sched, &buf
}

func TestBoard_ShowInsertsAtTop(t *testing.T) {
	b, _, buf := newTestBoard()

	b.Show(KindInfo, "first")
	b.Show(KindDanger, "Error starting analysis. Please try again.")

	active := b.Active()
	if len(active) != 2 {
		t.Fatalf("Active() = %d alerts, want 2", len(active))
	}
	if active[0].Message != "Error starting analysis. Please try again." || active[1].Message != "first" {
		t.Errorf("unexpected order: %+v", active)
	}
	if !strings.Contains(buf.String(), "Error starting analysis. Please try again.") {
		t.Errorf("alert not printed: %q", buf.String())
	}
}

func TestBoard_ExpiresAfterLifetime(t *testing.T) {
	b, sched, _ := newTestBoard()

	b.Show(KindDanger, "Analysis failed: boom")
	sched.Advance(4999 * time.Millisecond)
	if len(b.Active()) != 1 {
		t.Fatal("alert expired early")
	}
	sched.Advance(time.Millisecond)
	if len(b.Active()) != 0 {
		t.Error("alert still active after 5000ms")
	}
}

func TestBoard_IndependentLifetimes(t *testing.T) {
	b, sched, _ := newTestBoard()

	b.Show(KindInfo, "a")
	sched.Advance(3 * time.Second)
	b.Show(KindInfo, "b")
	sched.Advance(2 * time.Second)

	active := b.Active()
	if len(active) != 1 || active[0].Message != "b" {
		t.Errorf("Active() = %+v, want only b", active)
	}
}

func TestBoard_Dismiss(t *testing.T) {
	b, sched, _ := newTestBoard()

	id := b.Show(KindWarning, "w")
	b.Dismiss(id)
	b.Dismiss(id)
	b.Dismiss(ID(99))

	if len(b.Active()) != 0 {
		t.Error("dismissed alert still active")
	}
	if sched.Armed() != 0 {
		t.Errorf("expiry task still armed after dismiss")
	}
	sched.Advance(10 * time.Second)
}

func TestFormat(t *testing.T) {
	for _, kind := range []Kind{KindInfo, KindWarning, KindDanger} {
		if got := Format(kind, "msg"); !strings.Contains(got, "msg") {
			t.Errorf("Format(%s) = %q", kind, got)
		}
	}
}
