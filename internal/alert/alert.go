// Package alert shows short-lived notices above the regular CLI output.
package alert

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pfamflow/pfam-int/internal/constants"
	"github.com/pfamflow/pfam-int/internal/notify"
	"github.com/pfamflow/pfam-int/internal/schedule"
)

// Kind is the severity of an alert.
type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindDanger  Kind = "danger"
)

// ID identifies one alert on a board.
type ID int

// Alert is a notice currently on the board.
type Alert struct {
	ID      ID
	Kind    Kind
	Message string
}

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true)
)

type entry struct {
	Alert
	expiry schedule.Task
}

// Board holds the live alerts, newest first. Each alert removes itself after
// the board's lifetime unless dismissed earlier.
type Board struct {
	mu       sync.Mutex
	out      io.Writer
	sched    schedule.Scheduler
	notifier *notify.Notifier
	lifetime time.Duration
	nextID   ID
	alerts   []*entry
}

// NewBoard creates a board printing to out. notifier may be nil.
func NewBoard(out io.Writer, sched schedule.Scheduler, notifier *notify.Notifier) *Board {
	return &Board{
		out:      out,
		sched:    sched,
		notifier: notifier,
		lifetime: constants.AlertLifetime,
	}
}

// Show inserts an alert at the top of the board and prints it.
// Danger alerts are also forwarded as desktop notifications.
func (b *Board) Show(kind Kind, message string) ID {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	e := &entry{Alert: Alert{ID: id, Kind: kind, Message: message}}
	b.alerts = append([]*entry{e}, b.alerts...)
	e.expiry = b.sched.AfterFunc(b.lifetime, func() { b.Dismiss(id) })
	b.mu.Unlock()

	fmt.Fprintln(b.out, Format(kind, message))

	if kind == KindDanger && b.notifier != nil {
		b.notifier.Alert(message)
	}
	return id
}

// Dismiss removes an alert early. Unknown or expired IDs are ignored.
func (b *Board) Dismiss(id ID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.alerts {
		if e.ID != id {
			continue
		}
		if e.expiry != nil {
			e.expiry.Stop()
		}
		b.alerts = append(b.alerts[:i], b.alerts[i+1:]...)
		return
	}
}

// Active lists live alerts, most recent first.
func (b *Board) Active() []Alert {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Alert, len(b.alerts))
	for i, e := range b.alerts {
		out[i] = e.Alert
	}
	return out
}

// Format renders a single alert line.
func Format(kind Kind, message string) string {
	switch kind {
	case KindDanger:
		return dangerStyle.Render("✗") + " " + dangerStyle.Render(message)
	case KindWarning:
		return warningStyle.Render("!") + " " + message
	default:
		return infoStyle.Render("●") + " " + message
	}
}
