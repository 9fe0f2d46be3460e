// Package constants holds tuning values shared across pfam-int packages.
package constants

import (
	"time"
)

// Analysis monitoring
const (
	// PollInterval - how often GET /status is issued while a job runs (1 second)
	PollInterval = 1 * time.Second

	// SuccessDelay - grace period between the success rendering and the
	// results hand-off (3 seconds)
	SuccessDelay = 3 * time.Second

	// FailureDelay - grace period between the failure rendering and the
	// closing alert (2 seconds)
	FailureDelay = 2 * time.Second

	// AlertLifetime - how long a notice stays on screen unless dismissed (5 seconds)
	AlertLifetime = 5 * time.Second

	// StatusRequestTimeout - per-request timeout for a single status call (30 seconds)
	StatusRequestTimeout = 30 * time.Second
)

// Upload limits
const (
	// MaxUploadFileSize - per-file limit enforced by the server (100 MiB)
	MaxUploadFileSize = 100 * 1024 * 1024

	// DefaultUploadRetries - retry attempts for an upload batch
	DefaultUploadRetries = 3
)

// Event bus buffering
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - maximum buffer size for event channels
	EventBusMaxBuffer = 5000
)

// Retry configuration
const (
	// MaxRetries - maximum attempts for idempotent downloads
	MaxRetries = 5

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	RetryMaxDelay = 15 * time.Second
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (30 seconds)
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPClientTimeout - overall timeout for control requests (5 minutes)
	HTTPClientTimeout = 300 * time.Second
)

// API request pacing
const (
	// APIRatePerSec - steady request rate toward the analysis server
	APIRatePerSec = 5.0

	// APIBurstCapacity - requests allowed back-to-back before pacing starts
	APIBurstCapacity = 20
)
