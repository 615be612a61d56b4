package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSet(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		check   func(*Config) bool
		wantErr bool
	}{
		{"int", "batch_size", " 7 ", func(c *Config) bool { return c.BatchSize == 7 }, false},
		{"bad int keeps value", "recommend_limit", "ten", func(c *Config) bool { return c.RecommendLimit == 10 }, true},
		{"float", "jitter_max", "1.2", func(c *Config) bool { return c.JitterMax == 1.2 }, false},
		{"bool", "debug", "true", func(c *Config) bool { return c.Debug }, false},
		{"bad bool", "debug", "maybe", func(c *Config) bool { return !c.Debug }, true},
		{"list", "kafka_brokers", "a:1, ,b:2", func(c *Config) bool {
			return len(c.KafkaBrokers) == 2 && c.KafkaBrokers[1] == "b:2"
		}, false},
		{"key case", "Kafka_Request_Topic", "reqs", func(c *Config) bool { return c.KafkaRequestTopic == "reqs" }, false},
		{"unknown", "colour", "blue", func(*Config) bool { return true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfigWithRoot(t.TempDir())
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.check(cfg) {
				t.Fatalf("unexpected config after Set: %+v", cfg)
			}
		})
	}
}

func TestSetDataDirMovesDefaultStores(t *testing.T) {
	cfg := DefaultConfigWithRoot("/old")
	cfg.PrefsPath = "/elsewhere/prefs.db"

	if err := cfg.Set("data_dir", "/new"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.DBPath != filepath.Join("/new", "ivy.db") {
		t.Errorf("db path = %s", cfg.DBPath)
	}
	if cfg.PrefsPath != "/elsewhere/prefs.db" {
		t.Errorf("custom prefs path moved to %s", cfg.PrefsPath)
	}
}

func TestSetPairsAllOrNothing(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	err := cfg.SetPairs([]string{"batch_size=4", "nope=1"})
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if cfg.BatchSize != 12 {
		t.Fatalf("partial assignment applied: batch size %d", cfg.BatchSize)
	}

	if err := cfg.SetPairs([]string{"batch_size=4", "recommend_limit=2"}); err != nil {
		t.Fatalf("SetPairs: %v", err)
	}
	if cfg.BatchSize != 4 || cfg.RecommendLimit != 2 {
		t.Fatalf("pairs not applied: %+v", cfg)
	}
}

func TestKeysCoverJSONFields(t *testing.T) {
	keys := Keys()
	if len(keys) != len(envKeys) {
		t.Fatalf("%d settable keys but %d environment overrides", len(keys), len(envKeys))
	}
	for _, e := range envKeys {
		if _, ok := setters[e.key]; !ok {
			t.Errorf("%s maps to unknown key %s", e.env, e.key)
		}
	}
}
