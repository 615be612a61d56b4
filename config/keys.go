package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned by Set for a name that is not a setting.
var ErrUnknownKey = errors.New("unknown config key")

type setter func(c *Config, value string) error

func stringSetter(field func(*Config) *string) setter {
	return func(c *Config, v string) error {
		*field(c) = strings.TrimSpace(v)
		return nil
	}
}

func intSetter(field func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func floatSetter(field func(*Config) *float64) setter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

// setDataDir moves the stores along with the data directory unless they
// were pointed elsewhere.
func setDataDir(c *Config, v string) error {
	v = strings.TrimSpace(v)
	old := c.DataDir
	c.DataDir = v
	if c.DBPath == "" || c.DBPath == filepath.Join(old, "ivy.db") {
		c.DBPath = filepath.Join(v, "ivy.db")
	}
	if c.PrefsPath == "" || c.PrefsPath == filepath.Join(old, "prefs.db") {
		c.PrefsPath = filepath.Join(v, "prefs.db")
	}
	return nil
}

// setters is keyed by the JSON name of each field.
var setters = map[string]setter{
	"data_dir":   setDataDir,
	"db_path":    stringSetter(func(c *Config) *string { return &c.DBPath }),
	"prefs_path": stringSetter(func(c *Config) *string { return &c.PrefsPath }),

	"batch_size":      intSetter(func(c *Config) *int { return &c.BatchSize }),
	"recommend_limit": intSetter(func(c *Config) *int { return &c.RecommendLimit }),
	"jitter_min":      floatSetter(func(c *Config) *float64 { return &c.JitterMin }),
	"jitter_max":      floatSetter(func(c *Config) *float64 { return &c.JitterMax }),

	"debug": func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		c.Debug = b
		return nil
	},

	"auth_api_key":  stringSetter(func(c *Config) *string { return &c.AuthAPIKey }),
	"auth_base_url": stringSetter(func(c *Config) *string { return &c.AuthBaseURL }),

	"kafka_brokers": func(c *Config, v string) error {
		c.KafkaBrokers = splitList(v)
		return nil
	},
	"kafka_swipe_topic":          stringSetter(func(c *Config) *string { return &c.KafkaSwipeTopic }),
	"kafka_recommendation_topic": stringSetter(func(c *Config) *string { return &c.KafkaRecommendationTopic }),
	"kafka_request_topic":        stringSetter(func(c *Config) *string { return &c.KafkaRequestTopic }),
	"kafka_consumer_group":       stringSetter(func(c *Config) *string { return &c.KafkaConsumerGroup }),
}

// envKeys maps environment variables onto settings, applied in order.
var envKeys = []struct{ env, key string }{
	{"IVY_DATA_DIR", "data_dir"},
	{"IVY_DB_PATH", "db_path"},
	{"IVY_PREFS_PATH", "prefs_path"},
	{"IVY_BATCH_SIZE", "batch_size"},
	{"IVY_RECOMMEND_LIMIT", "recommend_limit"},
	{"IVY_JITTER_MIN", "jitter_min"},
	{"IVY_JITTER_MAX", "jitter_max"},
	{"IVY_DEBUG", "debug"},
	{"IVY_AUTH_API_KEY", "auth_api_key"},
	{"IVY_AUTH_BASE_URL", "auth_base_url"},
	{"KAFKA_BROKERS", "kafka_brokers"},
	{"KAFKA_SWIPE_TOPIC", "kafka_swipe_topic"},
	{"KAFKA_RECOMMENDATION_TOPIC", "kafka_recommendation_topic"},
	{"KAFKA_REQUEST_TOPIC", "kafka_request_topic"},
	{"KAFKA_CONSUMER_GROUP", "kafka_consumer_group"},
}

// Keys lists the names Set accepts, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one setting by its JSON name. The result is not validated;
// on a parse error c is unchanged.
func (c *Config) Set(key, value string) error {
	name := strings.ToLower(strings.TrimSpace(key))
	set, ok := setters[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err := set(c, value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// SetPairs applies KEY=VALUE assignments in order. Nothing is applied
// unless every pair parses.
func (c *Config) SetPairs(pairs []string) error {
	next := c.clone()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("expected KEY=VALUE, got %q", pair)
		}
		if err := next.Set(key, value); err != nil {
			return err
		}
	}
	*c = next
	return nil
}

func (c *Config) clone() Config {
	out := *c
	out.KafkaBrokers = append([]string(nil), c.KafkaBrokers...)
	return out
}
