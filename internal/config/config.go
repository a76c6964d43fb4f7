package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, loaded from a TOML file with
// STONE_* env-var overrides for the endpoints that differ per deployment.
type Config struct {
	Chain   ChainConfig   `toml:"chain"`
	Indexer IndexerConfig `toml:"indexer"`
	Oracle  OracleConfig  `toml:"oracle"`
	Server  ServerConfig  `toml:"server"`
	TxLog   TxLogConfig   `toml:"txlog"`
	Faucet  FaucetConfig  `toml:"faucet"`
	Log     LogConfig     `toml:"log"`
}

type ChainConfig struct {
	RestURL          string   `toml:"rest_url"`
	SignerURL        string   `toml:"signer_url"`
	SignerAddress    string   `toml:"signer_address"`
	BroadcastTimeout duration `toml:"broadcast_timeout"`
}

type IndexerConfig struct {
	URL               string   `toml:"url"`
	ReconcileInterval duration `toml:"reconcile_interval"`
	SettleAfter       duration `toml:"settle_after"`
}

type OracleConfig struct {
	URL string `toml:"url"`

	// Feeds maps protocol denoms to price-feed ids.
	Feeds map[string]string `toml:"feeds"`

	PollInterval duration `toml:"poll_interval"`

	// DisplayWindow bounds quote staleness for continuous display;
	// TxFreshnessBudget is the tighter bound gating transactions.
	DisplayWindow     duration `toml:"display_window"`
	TxFreshnessBudget duration `toml:"tx_freshness_budget"`
}

type ServerConfig struct {
	Listen        string `toml:"listen"`
	MetricsListen string `toml:"metrics_listen"`
}

type TxLogConfig struct {
	Path string `toml:"path"`
}

type FaucetConfig struct {
	Enabled  bool              `toml:"enabled"`
	Cooldown duration          `toml:"cooldown"`
	Grants   map[string]string `toml:"grants"` // denom → micro amount
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// duration lets TOML carry values like "15s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the local-devnet configuration.
func Default() Config {
	return Config{
		Chain: ChainConfig{
			RestURL:          "http://localhost:1317",
			SignerURL:        "http://localhost:8090",
			BroadcastTimeout: duration{30 * time.Second},
		},
		Indexer: IndexerConfig{
			URL:               "http://localhost:4000",
			ReconcileInterval: duration{30 * time.Second},
			SettleAfter:       duration{5 * time.Minute},
		},
		Oracle: OracleConfig{
			URL:               "https://hermes.pyth.network",
			Feeds:             map[string]string{},
			PollInterval:      duration{15 * time.Second},
			DisplayWindow:     duration{30 * time.Second},
			TxFreshnessBudget: duration{10 * time.Second},
		},
		Server: ServerConfig{
			Listen:        ":8080",
			MetricsListen: ":9091",
		},
		TxLog: TxLogConfig{
			Path: "stone-txlog.db",
		},
		Faucet: FaucetConfig{
			Cooldown: duration{6 * time.Hour},
			Grants:   map[string]string{},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file (optional — defaults apply when path is
// empty or missing) and applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Chain.RestURL = envOrDefault("STONE_CHAIN_REST_URL", cfg.Chain.RestURL)
	cfg.Chain.SignerURL = envOrDefault("STONE_SIGNER_URL", cfg.Chain.SignerURL)
	cfg.Chain.SignerAddress = envOrDefault("STONE_SIGNER_ADDRESS", cfg.Chain.SignerAddress)
	cfg.Indexer.URL = envOrDefault("STONE_INDEXER_URL", cfg.Indexer.URL)
	cfg.Oracle.URL = envOrDefault("STONE_ORACLE_URL", cfg.Oracle.URL)
	cfg.Server.Listen = envOrDefault("STONE_LISTEN", cfg.Server.Listen)
	cfg.Server.MetricsListen = envOrDefault("STONE_METRICS_LISTEN", cfg.Server.MetricsListen)
	cfg.TxLog.Path = envOrDefault("STONE_TXLOG_PATH", cfg.TxLog.Path)
	cfg.Log.Level = envOrDefault("STONE_LOG_LEVEL", cfg.Log.Level)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
