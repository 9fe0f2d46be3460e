//go:build !windows

package progress

import "os"

// enableWindowsANSI is a no-op where terminals handle ANSI natively.
func enableWindowsANSI(f *os.File) {}
