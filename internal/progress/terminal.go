package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/pfamflow/pfam-int/internal/logging"
)

// Terminal draws the analysis progress surface as a single progress bar.
// When out is not a terminal it degrades to one log line per change.
type Terminal struct {
	mu         sync.Mutex
	out        io.Writer
	isTerminal bool
	logger     *logging.Logger
	bar        *progressbar.ProgressBar
	last       View
	visible    bool
}

// NewTerminal creates a presenter writing to out.
func NewTerminal(out io.Writer, logger *logging.Logger) *Terminal {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	t := &Terminal{out: out, logger: logger}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enableANSIOnWindows(f)
		t.isTerminal = true
	}
	return t
}

// IsTerminal reports whether the bar is drawn interactively.
func (t *Terminal) IsTerminal() bool {
	return t.isTerminal
}

// ShowProgress opens the surface at the initial view.
func (t *Terminal) ShowProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked()
	t.visible = true
	if t.isTerminal {
		t.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(t.out),
			progressbar.OptionSetWidth(40),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionThrottle(0),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[cyan]█[reset]",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	t.drawLocked(InitialView(), "")
}

// RenderProgress shows a rendered snapshot.
func (t *Terminal) RenderProgress(v View) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.visible {
		return
	}
	if !t.isTerminal && v == t.last {
		return
	}
	t.drawLocked(v, "")
}

// RenderSuccess switches the surface to the success rendering. The bar keeps
// its last percentage; only label, message and styling change.
func (t *Terminal) RenderSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.visible {
		return
	}
	t.drawLocked(View{Percent: t.last.Percent, Label: SuccessLabel, Message: SuccessMessage}, "green")
}

// RenderFailure switches the surface to the failure rendering with msg.
func (t *Terminal) RenderFailure(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.visible {
		return
	}
	t.drawLocked(View{Percent: t.last.Percent, Label: FailureLabel, Message: msg}, "red")
}

// CloseProgress removes the surface. Closing a closed surface is a no-op.
func (t *Terminal) CloseProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
}

func (t *Terminal) closeLocked() {
	if !t.visible {
		return
	}
	if t.bar != nil {
		_ = t.bar.Exit()
		fmt.Fprintln(t.out)
		t.bar = nil
	}
	t.visible = false
	t.last = View{}
}

func (t *Terminal) drawLocked(v View, color string) {
	t.last = v

	if t.bar == nil {
		ev := t.logger.Info()
		if color == "red" {
			ev = t.logger.Error()
		}
		ev.Int("percent", v.Percent).Str("step", v.Label).Msg(v.Message)
		return
	}

	label := v.Label
	if color != "" {
		label = "[" + color + "]" + label + "[reset]"
	}
	desc := label
	if v.Message != "" {
		desc += "  " + v.Message
	}
	t.bar.Describe(desc)
	_ = t.bar.Set(v.Percent)
}
