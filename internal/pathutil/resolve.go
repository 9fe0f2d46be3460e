// Package pathutil resolves user-supplied output directories.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveOutputDir turns a --outdir value into a clean absolute path. A
// leading ~ is the home directory, "" is the working directory, and links
// are followed as far as the path exists so that a results folder created
// later lands under the link target.
func ResolveOutputDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	if expanded, ok, err := expandHome(dir); err != nil {
		return "", fmt.Errorf("resolve %q: %w", dir, err)
	} else if ok {
		dir = expanded
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", dir, err)
	}
	return followExisting(abs), nil
}

func expandHome(dir string) (string, bool, error) {
	if dir != "~" && !strings.HasPrefix(dir, "~/") && !strings.HasPrefix(dir, `~\`) {
		return "", false, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, err
	}
	return filepath.Join(home, dir[1:]), true, nil
}

// followExisting evaluates links in the longest existing prefix of abs and
// re-appends the components that do not exist yet.
func followExisting(abs string) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs
	}
	return filepath.Join(followExisting(parent), filepath.Base(abs))
}
