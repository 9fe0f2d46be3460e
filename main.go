// pfam-int - command-line client for the PFAM domain analysis server.
//
// Build with: go build -ldflags "-X github.com/pfamflow/pfam-int/internal/version.Version=vX.Y.Z"
package main

import (
	"os"

	"github.com/pfamflow/pfam-int/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
