// Package config provides configuration management for pfam-int.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/pfamflow/pfam-int/internal/constants"
	"github.com/pfamflow/pfam-int/internal/validation"
)

// EnvServerURL overrides the configured server URL.
const EnvServerURL = "PFAM_INT_URL"

// Config is the client configuration.
//
// INI format:
//
//	[server]
//	base_url = http://localhost:5000
//	timeout_seconds = 300
//
//	[proxy]
//	mode = no-proxy          ; no-proxy, system, basic, ntlm
//	host =
//	port = 8080
//	user =
//	password =
//	no_proxy =
//
//	[analysis]
//	poll_interval_ms = 1000
//	success_delay_ms = 3000
//	failure_delay_ms = 2000
//	max_poll_seconds = 0     ; 0 polls until the server reports an end state
//
//	[upload]
//	max_file_size_mb = 100
//	allowed_extensions = .fna,.fa,.fasta
//	max_retries = 3
//
//	[notifications]
//	enabled = false
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Proxy settings
	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy

	Analysis AnalysisConfig
	Upload   UploadConfig

	// NotificationsEnabled forwards danger alerts to desktop notifications.
	NotificationsEnabled bool
}

// AnalysisConfig holds the timing of the job monitor.
type AnalysisConfig struct {
	PollInterval time.Duration
	SuccessDelay time.Duration
	FailureDelay time.Duration
	// MaxPollDuration caps how long a job may be polled; zero means no cap.
	MaxPollDuration time.Duration
}

// UploadConfig holds the pre-upload validation limits.
type UploadConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
	MaxRetries        int
}

// Validation errors
var (
	ErrMissingBaseURL      = errors.New("server base_url is required")
	ErrInvalidBaseURL      = errors.New("server base_url must be an http(s) URL")
	ErrInvalidPollInterval = errors.New("poll_interval_ms must be at least 100")
	ErrInvalidProxyMode    = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrNoExtensions        = errors.New("allowed_extensions must list at least one extension")
)

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:   "http://localhost:5000",
		Timeout:   constants.HTTPClientTimeout,
		ProxyMode: "no-proxy",
		ProxyPort: 8080,
		Analysis: AnalysisConfig{
			PollInterval: constants.PollInterval,
			SuccessDelay: constants.SuccessDelay,
			FailureDelay: constants.FailureDelay,
		},
		Upload: UploadConfig{
			MaxFileSize:       constants.MaxUploadFileSize,
			AllowedExtensions: append([]string(nil), validation.DefaultAllowedExtensions...),
			MaxRetries:        constants.DefaultUploadRetries,
		},
	}
}

// Load reads configuration from an INI file.
// A missing file yields defaults and no error; a malformed file is an error.
// PFAM_INT_URL, when set, overrides the file's base_url.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if p, err := DefaultConfigPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFile(path); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		cfg.BaseURL = v
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return cfg, nil
}

func (cfg *Config) loadFile(path string) error {
	iniFile, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	server := iniFile.Section("server")
	cfg.BaseURL = server.Key("base_url").MustString(cfg.BaseURL)
	cfg.Timeout = time.Duration(server.Key("timeout_seconds").MustInt(int(cfg.Timeout/time.Second))) * time.Second

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.ProxyPassword = proxy.Key("password").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()

	analysis := iniFile.Section("analysis")
	cfg.Analysis.PollInterval = millis(analysis.Key("poll_interval_ms").MustInt(ms(cfg.Analysis.PollInterval)))
	cfg.Analysis.SuccessDelay = millis(analysis.Key("success_delay_ms").MustInt(ms(cfg.Analysis.SuccessDelay)))
	cfg.Analysis.FailureDelay = millis(analysis.Key("failure_delay_ms").MustInt(ms(cfg.Analysis.FailureDelay)))
	cfg.Analysis.MaxPollDuration = time.Duration(analysis.Key("max_poll_seconds").MustInt(0)) * time.Second

	upload := iniFile.Section("upload")
	cfg.Upload.MaxFileSize = upload.Key("max_file_size_mb").MustInt64(cfg.Upload.MaxFileSize/(1024*1024)) * 1024 * 1024
	if exts := upload.Key("allowed_extensions").Strings(","); len(exts) > 0 {
		cfg.Upload.AllowedExtensions = normalizeExtensions(exts)
	}
	cfg.Upload.MaxRetries = upload.Key("max_retries").MustInt(cfg.Upload.MaxRetries)

	cfg.NotificationsEnabled = iniFile.Section("notifications").Key("enabled").MustBool(false)

	return nil
}

// Save writes cfg to path as INI, creating parent directories.
// The proxy password is stored in the file, so the file is owner-only.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	server, err := iniFile.NewSection("server")
	if err != nil {
		return fmt.Errorf("failed to create server section: %w", err)
	}
	server.Key("base_url").SetValue(cfg.BaseURL)
	server.Key("timeout_seconds").SetValue(fmt.Sprintf("%d", int(cfg.Timeout/time.Second)))

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("password").SetValue(cfg.ProxyPassword)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)

	analysis, err := iniFile.NewSection("analysis")
	if err != nil {
		return fmt.Errorf("failed to create analysis section: %w", err)
	}
	analysis.Key("poll_interval_ms").SetValue(fmt.Sprintf("%d", ms(cfg.Analysis.PollInterval)))
	analysis.Key("success_delay_ms").SetValue(fmt.Sprintf("%d", ms(cfg.Analysis.SuccessDelay)))
	analysis.Key("failure_delay_ms").SetValue(fmt.Sprintf("%d", ms(cfg.Analysis.FailureDelay)))
	analysis.Key("max_poll_seconds").SetValue(fmt.Sprintf("%d", int(cfg.Analysis.MaxPollDuration/time.Second)))

	upload, err := iniFile.NewSection("upload")
	if err != nil {
		return fmt.Errorf("failed to create upload section: %w", err)
	}
	upload.Key("max_file_size_mb").SetValue(fmt.Sprintf("%d", cfg.Upload.MaxFileSize/(1024*1024)))
	upload.Key("allowed_extensions").SetValue(strings.Join(cfg.Upload.AllowedExtensions, ","))
	upload.Key("max_retries").SetValue(fmt.Sprintf("%d", cfg.Upload.MaxRetries))

	notify, err := iniFile.NewSection("notifications")
	if err != nil {
		return fmt.Errorf("failed to create notifications section: %w", err)
	}
	notify.Key("enabled").SetValue(fmt.Sprintf("%t", cfg.NotificationsEnabled))

	// Temporary file + rename keeps the previous config intact on failure
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks the settings the client cannot work without.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if cfg.Analysis.PollInterval < 100*time.Millisecond {
		return ErrInvalidPollInterval
	}
	switch strings.ToLower(cfg.ProxyMode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return ErrInvalidProxyMode
	}
	if len(cfg.Upload.AllowedExtensions) == 0 {
		return ErrNoExtensions
	}
	return nil
}

// ResultsURL is the page the server renders once an analysis completes.
func (cfg *Config) ResultsURL() string {
	return cfg.BaseURL + "/results"
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func ms(d time.Duration) int {
	return int(d / time.Millisecond)
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
