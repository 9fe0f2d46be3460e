// Package notify sends desktop notifications through beeep. Notifications
// are opt-in since the CLI often runs over SSH.
package notify

import (
	"fmt"
	"path/filepath"

	"github.com/gen2brain/beeep"

	"github.com/pfamflow/pfam-int/internal/logging"
)

const (
	appTitle       = "PFAM Analysis"
	maxAlertLen    = 200
	maxDisplayPath = 60
)

// Notifier delivers desktop notifications when enabled. A disabled Notifier
// is a no-op, so callers never check the setting themselves.
type Notifier struct {
	logger  *logging.Logger
	enabled bool

	// Delivery hooks, swapped out in tests.
	send  func(title, message string) error
	alert func(title, message string) error
	beep  func() error
}

func NewNotifier(enabled bool, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Notifier{
		logger:  logger,
		enabled: enabled,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		alert: func(title, message string) error {
			return beeep.Alert(title, message, "")
		},
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
	}
}

func (n *Notifier) Enabled() bool { return n.enabled }

// AnalysisComplete announces a finished analysis.
func (n *Notifier) AnalysisComplete() {
	n.notify("All files have been processed successfully.")
}

// ResultsDownloaded announces where the results archive was saved.
func (n *Notifier) ResultsDownloaded(path string) {
	n.notify(fmt.Sprintf("Results saved to:\n%s", shortenPath(path)))
}

func (n *Notifier) notify(message string) {
	if !n.enabled {
		return
	}
	if err := n.send(appTitle, message); err != nil {
		n.logger.Warn().Err(err).Msg("Desktop notification failed")
	}
}

// Alert raises a prominent notification, falling back to a plain one where
// the platform has no alert style.
func (n *Notifier) Alert(message string) {
	if !n.enabled {
		return
	}
	title := appTitle + " Alert"
	message = truncate(message, maxAlertLen)

	if err := n.alert(title, message); err == nil {
		return
	}
	if err := n.send(title, message); err != nil {
		n.logger.Error().Err(err).Str("message", message).Msg("Failed to send alert notification")
	}
}

// Beep sounds the terminal bell or platform equivalent.
func (n *Notifier) Beep() {
	if !n.enabled {
		return
	}
	if err := n.beep(); err != nil {
		n.logger.Debug().Err(err).Msg("Beep failed")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath keeps the file name and its parent directory of a long path.
func shortenPath(path string) string {
	if len(path) <= maxDisplayPath {
		return path
	}

	short := filepath.Join("...", filepath.Base(filepath.Dir(path)), filepath.Base(path))
	if vol := filepath.VolumeName(path); vol != "" && len(vol)+len(short)+1 <= maxDisplayPath {
		short = vol + string(filepath.Separator) + short
	}
	if len(short) > maxDisplayPath {
		return "..." + path[len(path)-(maxDisplayPath-3):]
	}
	return short
}
