package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"ptoj-judger/internal/config"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "judger.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "redis:\n  url: \"\"\n")

	c := config.Load(path)

	if c.Redis.URL != "redis://localhost:6379" {
		t.Fatalf("unexpected default redis url: %s", c.Redis.URL)
	}
	if c.Sandbox.Endpoint != "http://localhost:5050" {
		t.Fatalf("unexpected default sandbox endpoint: %s", c.Sandbox.Endpoint)
	}
	if c.InitConcurrent != 4 {
		t.Fatalf("unexpected default concurrency: %d", c.InitConcurrent)
	}
}

func TestLoadRespectsExplicitValues(t *testing.T) {
	path := writeTempConfig(t, "redis:\n  url: redis://cache:6380\ninitConcurrent: 8\n")

	c := config.Load(path)

	if c.Redis.URL != "redis://cache:6380" {
		t.Fatalf("expected explicit redis url to survive, got %s", c.Redis.URL)
	}
	if c.InitConcurrent != 8 {
		t.Fatalf("expected explicit concurrency to survive, got %d", c.InitConcurrent)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeTempConfig(t, "redis:\n  url: redis://cache:6380\n")

	t.Setenv("PTOJ_REDIS_URL", "redis://override:6379")
	c := config.Load(path)

	if c.Redis.URL != "redis://override:6379" {
		t.Fatalf("expected env override to win, got %s", c.Redis.URL)
	}
}
