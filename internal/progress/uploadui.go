package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// UploadUI shows one progress bar per sequence file while a batch is sent.
type UploadUI struct {
	progress   *mpb.Progress
	out        io.Writer
	mu         sync.Mutex
	bars       map[string]*FileBar
	isTerminal bool
	totalFiles int
	started    int32
	startTime  time.Time
}

// FileBar tracks a single file within the upload batch.
type FileBar struct {
	bar      *mpb.Bar
	index    int
	name     string
	size     int64
	attempts int32
}

// NewUploadUI creates an upload UI for totalFiles files, drawing on stderr.
func NewUploadUI(totalFiles int) *UploadUI {
	return newUploadUI(os.Stderr, totalFiles)
}

func newUploadUI(out io.Writer, totalFiles int) *UploadUI {
	isTerminal := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enableANSIOnWindows(f)
		isTerminal = true
	}

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(150*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &UploadUI{
		progress:   p,
		out:        out,
		bars:       make(map[string]*FileBar),
		isTerminal: isTerminal,
		totalFiles: totalFiles,
		startTime:  time.Now(),
	}
}

// Track wraps r so that bytes read from it advance the bar for name.
// Tracking the same name again means the request is being retried: the bar
// rewinds and is marked with the attempt number.
func (u *UploadUI) Track(name string, size int64, r io.Reader) io.Reader {
	u.mu.Lock()
	fb, ok := u.bars[name]
	if !ok {
		fb = u.addFileBar(name, size)
		u.bars[name] = fb
	}
	u.mu.Unlock()

	attempt := atomic.AddInt32(&fb.attempts, 1)
	if fb.bar == nil {
		if attempt == 1 {
			fmt.Fprintf(u.out, "Uploading [%d/%d]: %s (%s)\n", fb.index, u.totalFiles, name, formatMiB(size))
		}
		return r
	}
	if attempt > 1 {
		fb.bar.SetCurrent(0)
	}
	return fb.bar.ProxyReader(r)
}

func (u *UploadUI) addFileBar(name string, size int64) *FileBar {
	fb := &FileBar{
		index: int(atomic.AddInt32(&u.started, 1)),
		name:  name,
		size:  size,
	}
	if !u.isTerminal {
		return fb
	}

	label := truncatePath(name, 2)
	fb.bar = u.progress.New(size,
		mpb.BarStyle().
			Lbound("[").
			Filler("█").
			Tip("█").
			Padding("░").
			Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(s decor.Statistics) string {
				base := fmt.Sprintf("[%d/%d] %s", fb.index, u.totalFiles, label)
				if n := atomic.LoadInt32(&fb.attempts); n > 1 {
					return fmt.Sprintf("%s (retry %d)", base, n-1)
				}
				return base
			}, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
	return fb
}

// Finish completes every bar and prints a one-line summary per file.
// err is the outcome of the whole batch, since the server answers once.
func (u *UploadUI) Finish(err error) {
	u.mu.Lock()
	bars := make([]*FileBar, 0, len(u.bars))
	for _, fb := range u.bars {
		bars = append(bars, fb)
	}
	u.mu.Unlock()
	sort.Slice(bars, func(i, j int) bool { return bars[i].index < bars[j].index })

	elapsed := time.Since(u.startTime).Round(time.Millisecond)
	for _, fb := range bars {
		var msg string
		if err == nil {
			if fb.bar != nil {
				fb.bar.SetCurrent(fb.size)
				fb.bar.SetTotal(fb.size, true)
			}
			msg = fmt.Sprintf("✓ %s (%s, %s)\n", fb.name, formatMiB(fb.size), elapsed)
		} else {
			if fb.bar != nil {
				fb.bar.Abort(false)
			}
			msg = fmt.Sprintf("✗ %s: %v\n", fb.name, err)
		}
		_, _ = u.Writer().Write([]byte(msg))
	}
	u.Wait()
}

// Wait blocks until all progress bars complete
func (u *UploadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Writer returns an io.Writer that safely prints above the progress bars.
func (u *UploadUI) Writer() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return u.out
}

// IsTerminal returns true if output is to a terminal (progress bars are active).
func (u *UploadUI) IsTerminal() bool {
	return u.isTerminal
}

func formatMiB(size int64) string {
	return fmt.Sprintf("%.1f MiB", float64(size)/(1024*1024))
}

// truncatePath truncates a file path to show only the last N components
// Example: truncatePath("/a/b/c/d/file.fna", 3) → "…/c/d/file.fna"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	relevant := parts[len(parts)-maxComponents:]
	return "…/" + strings.Join(relevant, "/")
}

// enableANSIOnWindows enables Virtual Terminal processing on Windows for ANSI escape sequences
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
