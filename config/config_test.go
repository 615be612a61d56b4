package config

import (
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IVY_DATA_DIR", dir)
	t.Setenv("IVY_BATCH_SIZE", "8")
	t.Setenv("IVY_RECOMMEND_LIMIT", "not-a-number")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")

	cfg := DefaultConfigWithRoot("unused")
	cfg.loadFromEnv()

	if cfg.DBPath != filepath.Join(dir, "ivy.db") {
		t.Errorf("db path = %s", cfg.DBPath)
	}
	if cfg.BatchSize != 8 {
		t.Errorf("batch size = %d, want 8", cfg.BatchSize)
	}
	if cfg.RecommendLimit != 10 {
		t.Errorf("unparseable limit should keep default, got %d", cfg.RecommendLimit)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Errorf("brokers = %v", cfg.KafkaBrokers)
	}
	if !cfg.KafkaEnabled() {
		t.Error("kafka should be enabled with brokers set")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty data dir", func(c *Config) { c.DataDir = " " }, true},
		{"batch too large", func(c *Config) { c.BatchSize = 31 }, true},
		{"zero limit", func(c *Config) { c.RecommendLimit = 0 }, true},
		{"inverted jitter", func(c *Config) { c.JitterMin, c.JitterMax = 1.1, 0.9 }, true},
		{"fixed jitter", func(c *Config) { c.JitterMin, c.JitterMax = 1, 1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfigWithRoot(t.TempDir())
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
