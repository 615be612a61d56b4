package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir   string `json:"data_dir"`
	DBPath    string `json:"db_path"`
	PrefsPath string `json:"prefs_path"`

	// Discovery
	BatchSize      int     `json:"batch_size"`
	RecommendLimit int     `json:"recommend_limit"`
	JitterMin      float64 `json:"jitter_min"`
	JitterMax      float64 `json:"jitter_max"`

	Debug bool `json:"debug"`

	// Identity provider
	AuthAPIKey  string `json:"auth_api_key"`
	AuthBaseURL string `json:"auth_base_url"`

	// Kafka
	KafkaBrokers             []string `json:"kafka_brokers"`
	KafkaSwipeTopic          string   `json:"kafka_swipe_topic"`
	KafkaRecommendationTopic string   `json:"kafka_recommendation_topic"`
	KafkaRequestTopic        string   `json:"kafka_request_topic"`
	KafkaConsumerGroup       string   `json:"kafka_consumer_group"`
}

const DefaultAuthBaseURL = "https://identitytoolkit.googleapis.com/v1"

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := DefaultConfigWithRoot(filepath.Join(currentDir, "data"))

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

// DefaultConfigWithRoot returns the defaults with every path placed under dataDir.
func DefaultConfigWithRoot(dataDir string) *Config {
	return &Config{
		DataDir:   dataDir,
		DBPath:    filepath.Join(dataDir, "ivy.db"),
		PrefsPath: filepath.Join(dataDir, "prefs.db"),

		BatchSize:      12,
		RecommendLimit: 10,
		JitterMin:      0.95,
		JitterMax:      1.05,

		AuthBaseURL: DefaultAuthBaseURL,

		KafkaSwipeTopic:          "discovery.swipes",
		KafkaRecommendationTopic: "discovery.recommendations",
		KafkaRequestTopic:        "discovery.swipe-requests",
		KafkaConsumerGroup:       "ivy",
	}
}

// loadFromEnv overrides settings from the environment. Values that do not
// parse keep the current setting.
func (c *Config) loadFromEnv() {
	for _, e := range envKeys {
		val := os.Getenv(e.env)
		if val == "" {
			continue
		}
		if err := c.Set(e.key, val); err != nil {
			log.Warn().Err(err).Str("env", e.env).Msg("ignoring environment override")
		}
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AuthConfigured reports whether an identity provider key is present.
func (c *Config) AuthConfigured() bool {
	return strings.TrimSpace(c.AuthAPIKey) != ""
}

// KafkaEnabled reports whether any broker is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path is required")
	}
	if strings.TrimSpace(c.PrefsPath) == "" {
		return fmt.Errorf("prefs_path is required")
	}
	if c.BatchSize < 1 || c.BatchSize > 30 {
		return fmt.Errorf("batch_size must be between 1 and 30, got %d", c.BatchSize)
	}
	if c.RecommendLimit < 1 {
		return fmt.Errorf("recommend_limit must be positive, got %d", c.RecommendLimit)
	}
	if c.JitterMin <= 0 || c.JitterMax < c.JitterMin {
		return fmt.Errorf("jitter range [%.2f, %.2f] is invalid", c.JitterMin, c.JitterMax)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Dir(c.DBPath), filepath.Dir(c.PrefsPath)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
