package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/browser"

	"github.com/pfamflow/pfam-int/internal/alert"
	"github.com/pfamflow/pfam-int/internal/logging"
	"github.com/pfamflow/pfam-int/internal/progress"
)

// terminalSink routes controller output to the progress bar and the alert board.
type terminalSink struct {
	*progress.Terminal
	board *alert.Board
}

func (s *terminalSink) ShowAlert(kind alert.Kind, msg string) {
	s.board.Show(kind, msg)
}

// statusLine stands in for the start button. Label changes are printed
// only while the control is disabled, so the idle label stays quiet.
type statusLine struct {
	mu      sync.Mutex
	out     io.Writer
	logger  *logging.Logger
	enabled bool
	label   string
}

func newStatusLine(out io.Writer, logger *logging.Logger) *statusLine {
	return &statusLine{out: out, logger: logger, enabled: true}
}

func (s *statusLine) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	s.logger.Debug().Msg("Start control disabled")
}

func (s *statusLine) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	s.logger.Debug().Msg("Start control enabled")
}

func (s *statusLine) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if label == s.label {
		return
	}
	s.label = label
	if !s.enabled {
		fmt.Fprintln(s.out, label)
	}
}

// resultsNavigator prints the results page and optionally opens it.
type resultsNavigator struct {
	out     io.Writer
	url     string
	open    bool
	logger  *logging.Logger
	openURL func(string) error
}

func newResultsNavigator(out io.Writer, url string, open bool, logger *logging.Logger) *resultsNavigator {
	return &resultsNavigator{
		out:     out,
		url:     url,
		open:    open,
		logger:  logger,
		openURL: browser.OpenURL,
	}
}

func (n *resultsNavigator) ShowResults() {
	fmt.Fprintf(n.out, "Results: %s\n", n.url)
	if !n.open {
		return
	}
	if err := n.openURL(n.url); err != nil {
		n.logger.Warn().Err(err).Str("url", n.url).Msg("Failed to open browser")
	}
}
