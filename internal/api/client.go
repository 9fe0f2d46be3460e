package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pfamflow/pfam-int/internal/config"
	"github.com/pfamflow/pfam-int/internal/http"
	"github.com/pfamflow/pfam-int/internal/logging"
	"github.com/pfamflow/pfam-int/internal/models"
	"github.com/pfamflow/pfam-int/internal/ratelimit"
	"github.com/pfamflow/pfam-int/internal/version"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 512

// apiMetrics tracks API usage statistics
type apiMetrics struct {
	sync.Mutex
	totalCalls    int64
	callsByPath   map[string]int64
	windowStart   time.Time
	callsInWindow int64
}

// Client talks to the analysis server.
//
// Control requests (analyze, status, clear) go through a plain client and are
// never retried: a repeated POST /analyze could start a second job, and the
// poll loop already retries status on its own schedule. File transfers use a
// retrying client.
type Client struct {
	httpClient     *nethttp.Client
	transferClient *nethttp.Client
	uploadClient   *retryablehttp.Client
	config         *config.Config
	baseURL        string
	limiter        *ratelimit.RateLimiter
	logger         *logging.Logger
	metrics        *apiMetrics
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("server base URL is empty: set base_url in the config file or %s", config.EnvServerURL)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	httpClient, err := http.ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	transferClient, err := http.CreateTransferClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure transfer client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = transferClient
	retryClient.RetryMax = cfg.Upload.MaxRetries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = logging.LeveledLogger{L: logger.Child("client", "upload")}

	return &Client{
		httpClient:     httpClient,
		transferClient: transferClient,
		uploadClient:   retryClient,
		config:         cfg,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		limiter:        ratelimit.NewAPIRateLimiter(logger),
		logger:         logger,
		metrics: &apiMetrics{
			callsByPath: make(map[string]int64),
			windowStart: time.Now(),
		},
	}, nil
}

// GetConfig returns the configuration used by this API client
func (c *Client) GetConfig() *config.Config {
	return c.config
}

// URL returns the absolute URL of a server path.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// track records one API call and periodically logs the request rate.
func (c *Client) track(path string) {
	c.metrics.Lock()
	defer c.metrics.Unlock()

	c.metrics.totalCalls++
	c.metrics.callsByPath[path]++
	c.metrics.callsInWindow++

	if elapsed := time.Since(c.metrics.windowStart); elapsed >= 30*time.Second {
		c.logger.Debug().
			Float64("req_per_sec", float64(c.metrics.callsInWindow)/elapsed.Seconds()).
			Int64("total", c.metrics.totalCalls).
			Int64("status_calls", c.metrics.callsByPath["/status"]).
			Msg("API usage")
		c.metrics.callsInWindow = 0
		c.metrics.windowStart = time.Now()
	}
}

// doRequest performs a control request with rate limiting.
func (c *Client) doRequest(ctx context.Context, method, path string) (*nethttp.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}
	c.track(path)

	req, err := nethttp.NewRequestWithContext(ctx, method, c.URL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("API call failed")
		}
		return nil, err
	}
	return resp, nil
}

// Start asks the server to begin an analysis of the uploaded files
// (POST /analyze).
//
// A response carrying an "error" field is returned as a rejection with a nil
// error, whatever its status code; callers check StartResponse.Rejected.
// Anything else that is not a usable answer is a *TransportError.
func (c *Client) Start(ctx context.Context) (*models.StartResponse, error) {
	const op = "start analysis"

	resp, err := c.doRequest(ctx, nethttp.MethodPost, "/analyze")
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var out models.StartResponse
	decodeErr := json.Unmarshal(body, &out)

	if decodeErr == nil && out.Rejected() {
		c.logger.Debug().Int("status", resp.StatusCode).Str("reason", out.Error).Msg("Analysis rejected")
		return &out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Body: truncate(body)}
	}
	if decodeErr != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}

	return &out, nil
}

// Status fetches the current job snapshot (GET /status).
func (c *Client) Status(ctx context.Context) (*models.JobSnapshot, error) {
	const op = "get status"

	resp, err := c.doRequest(ctx, nethttp.MethodGet, "/status")
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var snap models.JobSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode status: %w", err)}
	}

	return &snap, nil
}

// ClearData deletes uploaded sequences and generated results on the server
// (POST /clear_data). The server answers with a redirect to its index page.
func (c *Client) ClearData(ctx context.Context) error {
	resp, err := c.doRequest(ctx, nethttp.MethodPost, "/clear_data")
	if err != nil {
		return &TransportError{Op: "clear data", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &TransportError{Op: "clear data", StatusCode: resp.StatusCode}
	}
	return nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

func userAgent() string {
	return "pfam-int/" + version.Version
}
