package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/shapes-probe/pkg/reporters"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HelloURL != "https://shapes.approov.io/v1/hello/" {
		t.Fatalf("hello_url = %s", cfg.HelloURL)
	}
	if cfg.ShapesURL != "https://shapes.approov.io/v1/shapes/" {
		t.Fatalf("shapes_url = %s", cfg.ShapesURL)
	}
	if cfg.ShapesAPIKey == "" {
		t.Fatalf("expected default api key")
	}
	if cfg.HTTPTimeout != 0 {
		t.Fatalf("expected transport default timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.WatchInterval != 30*time.Second {
		t.Fatalf("watch interval = %v", cfg.WatchInterval)
	}
	if cfg.HistoryTTL != 7*24*time.Hour {
		t.Fatalf("history ttl = %v", cfg.HistoryTTL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HELLO_URL", "http://localhost:1/hello")
	t.Setenv("SHAPES_URL", "http://localhost:1/shapes")
	t.Setenv("SHAPES_API_KEY", "k")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("WATCH_INTERVAL", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HelloURL != "http://localhost:1/hello" || cfg.ShapesURL != "http://localhost:1/shapes" {
		t.Fatalf("unexpected urls %s %s", cfg.HelloURL, cfg.ShapesURL)
	}
	if cfg.ShapesAPIKey != "k" {
		t.Fatalf("api key = %s", cfg.ShapesAPIKey)
	}
	if cfg.HTTPTimeout != 3*time.Second || cfg.WatchInterval != 5*time.Second {
		t.Fatalf("unexpected durations %v %v", cfg.HTTPTimeout, cfg.WatchInterval)
	}
}

func TestLoadRejectsInvalidInterval(t *testing.T) {
	t.Setenv("WATCH_INTERVAL", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero watch interval")
	}
}

func TestLoadReportersFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reporters.yaml")
	raw := `
reporters:
  - id: hook
    type: http
    notify: failures
    http:
      url: https://example.com/hook
      headers:
        Authorization: Bearer secret
  - id: bus
    type: pubsub
    enabled: false
    pubsub:
      project_id: demo
      topic: outcomes
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write reporters: %v", err)
	}
	t.Setenv("REPORTERS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Reporters) != 2 {
		t.Fatalf("expected 2 reporters, got %d", len(cfg.Reporters))
	}
	hook, bus := cfg.Reporters[0], cfg.Reporters[1]
	if hook.ID != "hook" || hook.Notify != reporters.NotifyFailures || hook.HTTP.Method != "POST" {
		t.Fatalf("hook = %#v (http %#v)", hook, hook.HTTP)
	}
	if bus.IsEnabled() || bus.PubSub == nil || bus.PubSub.Topic != "outcomes" {
		t.Fatalf("bus = %#v", bus)
	}
}

func TestLoadReportersFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reporters.json")
	raw := `{"reporters":[{"id":"q","type":"sqs","sqs":{"uri":"https://sqs.example/q","region":"us-east-1"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write reporters: %v", err)
	}

	list, err := LoadReporters(path)
	if err != nil {
		t.Fatalf("LoadReporters: %v", err)
	}
	if len(list) != 1 || list[0].SQS == nil || list[0].SQS.Region != "us-east-1" || list[0].Notify != reporters.NotifyAll {
		t.Fatalf("list = %#v", list)
	}
}

func TestLoadReportersRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty.yaml":   "reporters: []\n",
		"invalid.yaml": "reporters:\n  - id: hook\n    type: http\n",
		"dup.json":     `{"reporters":[{"id":"a","type":"http","http":{"url":"u"}},{"id":"a","type":"http","http":{"url":"v"}}]}`,
	}
	for name, raw := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := LoadReporters(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadReporters(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("missing file: expected error")
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := Config{
		ShapesAPIKey: "yXClypapWNHIifHUWmBIyPFAm",
		Reporters: []reporters.Config{{
			ID:   "hook",
			Type: reporters.TypeHTTP,
			HTTP: &reporters.HTTPConfig{URL: "https://example.com", Headers: map[string]string{"Authorization": "Bearer secret"}},
		}},
	}
	red := cfg.Redacted()
	if red.ShapesAPIKey != "[redacted]" {
		t.Fatalf("api key = %q", red.ShapesAPIKey)
	}
	if red.Reporters[0].HTTP.Headers["Authorization"] != "[redacted]" {
		t.Fatalf("reporter header not masked")
	}
	if cfg.ShapesAPIKey != "yXClypapWNHIifHUWmBIyPFAm" || cfg.Reporters[0].HTTP.Headers["Authorization"] != "Bearer secret" {
		t.Fatalf("Redacted modified the original config")
	}
}
