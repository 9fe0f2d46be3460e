package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.BaseURL != "http://localhost:5000" {
		t.Errorf("expected default BaseURL http://localhost:5000, got %s", cfg.BaseURL)
	}
	if cfg.Analysis.PollInterval != time.Second {
		t.Errorf("expected 1s poll interval, got %v", cfg.Analysis.PollInterval)
	}
	if cfg.Analysis.SuccessDelay != 3*time.Second || cfg.Analysis.FailureDelay != 2*time.Second {
		t.Errorf("unexpected delays: %+v", cfg.Analysis)
	}
	if cfg.Analysis.MaxPollDuration != 0 {
		t.Errorf("expected unbounded polling by default, got %v", cfg.Analysis.MaxPollDuration)
	}
	if cfg.Upload.MaxFileSize != 100*1024*1024 {
		t.Errorf("expected 100 MiB limit, got %d", cfg.Upload.MaxFileSize)
	}
	if !reflect.DeepEqual(cfg.Upload.AllowedExtensions, []string{".fna", ".fa", ".fasta"}) {
		t.Errorf("unexpected extensions: %v", cfg.Upload.AllowedExtensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv(EnvServerURL, "")
	path := filepath.Join(t.TempDir(), "nested", "config")

	cfg := NewConfig()
	cfg.BaseURL = "https://pfam.example.org"
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.local"
	cfg.ProxyPort = 3128
	cfg.Analysis.PollInterval = 500 * time.Millisecond
	cfg.Analysis.MaxPollDuration = 2 * time.Hour
	cfg.Upload.MaxFileSize = 50 * 1024 * 1024
	cfg.Upload.AllowedExtensions = []string{".fna", ".fa"}
	cfg.NotificationsEnabled = true

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if info.Mode().Perm()&0077 != 0 && os.PathSeparator == '/' {
		t.Errorf("config should be owner-only, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.BaseURL != cfg.BaseURL {
		t.Errorf("BaseURL mismatch: expected %s, got %s", cfg.BaseURL, loaded.BaseURL)
	}
	if loaded.ProxyMode != "basic" || loaded.ProxyHost != "proxy.local" || loaded.ProxyPort != 3128 {
		t.Errorf("proxy mismatch: %s %s %d", loaded.ProxyMode, loaded.ProxyHost, loaded.ProxyPort)
	}
	if loaded.Analysis != cfg.Analysis {
		t.Errorf("Analysis mismatch: expected %+v, got %+v", cfg.Analysis, loaded.Analysis)
	}
	if loaded.Upload.MaxFileSize != cfg.Upload.MaxFileSize {
		t.Errorf("MaxFileSize mismatch: expected %d, got %d", cfg.Upload.MaxFileSize, loaded.Upload.MaxFileSize)
	}
	if !reflect.DeepEqual(loaded.Upload.AllowedExtensions, cfg.Upload.AllowedExtensions) {
		t.Errorf("extensions mismatch: %v", loaded.Upload.AllowedExtensions)
	}
	if !loaded.NotificationsEnabled {
		t.Error("expected notifications to be enabled")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(EnvServerURL, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.BaseURL != NewConfig().BaseURL {
		t.Errorf("expected default BaseURL, got %s", cfg.BaseURL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := "[server]\nbase_url = http://file.example\n\n[upload]\nallowed_extensions = FNA, fa\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvServerURL, "http://env.example/")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "http://env.example" {
		t.Errorf("expected env override without trailing slash, got %s", cfg.BaseURL)
	}
	if !reflect.DeepEqual(cfg.Upload.AllowedExtensions, []string{".fna", ".fa"}) {
		t.Errorf("expected normalized extensions, got %v", cfg.Upload.AllowedExtensions)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing url", func(c *Config) { c.BaseURL = " " }, ErrMissingBaseURL},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://x" }, ErrInvalidBaseURL},
		{"tiny poll interval", func(c *Config) { c.Analysis.PollInterval = time.Millisecond }, ErrInvalidPollInterval},
		{"bad proxy mode", func(c *Config) { c.ProxyMode = "socks" }, ErrInvalidProxyMode},
		{"no extensions", func(c *Config) { c.Upload.AllowedExtensions = nil }, ErrNoExtensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResultsURL(t *testing.T) {
	cfg := NewConfig()
	cfg.BaseURL = "https://pfam.example.org"
	if got := cfg.ResultsURL(); got != "https://pfam.example.org/results" {
		t.Errorf("ResultsURL() = %s", got)
	}
}
