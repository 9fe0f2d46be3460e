// Package api provides error types for analysis server responses.
package api

import (
	"errors"
	"fmt"
	"strings"

	inthttp "github.com/pfamflow/pfam-int/internal/http"
	"github.com/pfamflow/pfam-int/internal/models"
)

// ErrSubmissionRejected indicates the server answered POST /analyze with an
// error body instead of starting a job.
var ErrSubmissionRejected = errors.New("analysis rejected")

// IsRejection reports whether err is a server-side rejection of a start
// request, as opposed to a transport failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrSubmissionRejected)
}

// RejectionError wraps the server's explanation in ErrSubmissionRejected.
func RejectionError(resp *models.StartResponse) error {
	return fmt.Errorf("%w: %s", ErrSubmissionRejected, resp.Error)
}

// TransportError covers every way a request can fail to produce a usable
// answer: connection failures, unexpected statuses, and unparsable bodies.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(" failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
		if e.Body != "" {
			b.WriteString(": ")
			b.WriteString(e.Body)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Class names the retry class of the failure for log fields.
func (e *TransportError) Class() string {
	return inthttp.ClassifyError(e).String()
}
