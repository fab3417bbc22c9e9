package telemetry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected the default config to be valid, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty service name", func(c *Config) { c.ServiceName = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"metrics without address", func(c *Config) { c.Metrics.ListenAddress = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation to fail")
			}
		})
	}
}

func TestLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")

	log, err := NewLogger(LoggingConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	log.NewComponentLogger("ConfigItem").
		WithObject("Host", "web-01").
		Notice("Ignoring config object")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	out := string(data)
	for _, want := range []string{`"component":"ConfigItem"`, `"type":"Host"`, `"name":"web-01"`, `"notice":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log output, got %s", want, out)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")

	log, err := NewLogger(LoggingConfig{Level: "warn", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	log.Debug("hidden")
	log.Warn("visible")

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") {
		t.Error("expected debug output to be filtered")
	}
	if !strings.Contains(string(data), "visible") {
		t.Error("expected warn output to pass")
	}
}

func TestMetricsRecordAndServe(t *testing.T) {
	metrics, err := NewMetrics(MetricsConfig{
		Enabled:   true,
		Namespace: "icinga2",
	})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	metrics.RecordItemCommitted("Host")
	metrics.RecordItemIgnored("Host")
	metrics.RecordCommit("ok", 10*time.Millisecond)
	metrics.RecordObjectActivated("Host")
	metrics.RecordActivation("ok", 5*time.Millisecond)
	metrics.RecordReload("rolled_back")
	metrics.SetRegisteredItems("Host", 3)
	metrics.RecordError("validation")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"icinga2_items_committed_total",
		"icinga2_object_reloads_total",
		"icinga2_registered_items",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}

func TestNoopMetricsAreSafe(t *testing.T) {
	metrics, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	// All recorders must be no-ops, not panics.
	metrics.RecordItemCommitted("Host")
	metrics.RecordCommit("ok", time.Millisecond)
	metrics.RecordReload("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from the disabled handler, got %d", rec.Code)
	}
}
