package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// DownloadBar reports a single streamed download with a byte counter.
type DownloadBar struct {
	out        io.Writer
	isTerminal bool
	bar        *progressbar.ProgressBar
}

// NewDownloadBar creates a download reporter writing to out.
func NewDownloadBar(out io.Writer) *DownloadBar {
	d := &DownloadBar{out: out}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enableANSIOnWindows(f)
		d.isTerminal = true
	}
	return d
}

// Track wraps r so bytes read from it advance the bar. size may be -1 when
// the server does not announce a length; the bar then shows a spinner.
// Each call starts a fresh bar, so a retried download restarts from zero.
func (d *DownloadBar) Track(name string, size int64, r io.Reader) io.Reader {
	if !d.isTerminal {
		if size > 0 {
			fmt.Fprintf(d.out, "Downloading %s (%s)\n", name, formatMiB(size))
		} else {
			fmt.Fprintf(d.out, "Downloading %s\n", name)
		}
		return r
	}

	d.Finish()
	d.bar = progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(name),
		progressbar.OptionSetWriter(d.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(d.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
	return io.TeeReader(r, d.bar)
}

// Finish completes the current bar, if any.
func (d *DownloadBar) Finish() {
	if d.bar != nil {
		_ = d.bar.Finish()
		d.bar = nil
	}
}
