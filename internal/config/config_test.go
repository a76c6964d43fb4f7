package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stonefinance/stone-sub002/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chain.RestURL != "http://localhost:1317" {
		t.Errorf("rest url: got %q", cfg.Chain.RestURL)
	}
	if cfg.Chain.BroadcastTimeout.Duration != 30*time.Second {
		t.Errorf("broadcast timeout: got %v", cfg.Chain.BroadcastTimeout.Duration)
	}
	if cfg.Indexer.SettleAfter.Duration != 5*time.Minute {
		t.Errorf("settle after: got %v", cfg.Indexer.SettleAfter.Duration)
	}
	if cfg.Faucet.Enabled {
		t.Error("faucet should be off by default")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[chain]
rest_url = "http://devnet:1317"
broadcast_timeout = "45s"

[oracle]
poll_interval = "5s"

[oracle.feeds]
uatom = "feed-atom"

[faucet]
enabled = true
cooldown = "1h"

[faucet.grants]
uusdc = "100000000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Chain.RestURL != "http://devnet:1317" {
		t.Errorf("rest url: got %q", cfg.Chain.RestURL)
	}
	if cfg.Chain.BroadcastTimeout.Duration != 45*time.Second {
		t.Errorf("broadcast timeout: got %v", cfg.Chain.BroadcastTimeout.Duration)
	}
	if cfg.Oracle.PollInterval.Duration != 5*time.Second {
		t.Errorf("poll interval: got %v", cfg.Oracle.PollInterval.Duration)
	}
	if cfg.Oracle.Feeds["uatom"] != "feed-atom" {
		t.Errorf("feeds: got %v", cfg.Oracle.Feeds)
	}
	if !cfg.Faucet.Enabled || cfg.Faucet.Grants["uusdc"] != "100000000" {
		t.Errorf("faucet: got %+v", cfg.Faucet)
	}

	// File values must not clobber untouched defaults.
	if cfg.Indexer.URL != "http://localhost:4000" {
		t.Errorf("indexer url default lost: got %q", cfg.Indexer.URL)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not be fatal: %v", err)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("listen default: got %q", cfg.Server.Listen)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STONE_CHAIN_REST_URL", "http://override:1317")
	t.Setenv("STONE_LOG_LEVEL", "debug")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chain.RestURL != "http://override:1317" {
		t.Errorf("env override lost: got %q", cfg.Chain.RestURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level: got %q", cfg.Log.Level)
	}
}
