package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures credentials, the trigger, analysis thresholds and the trusted list.
type Config struct {
	Account     AccountConfig     `yaml:"account"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Trigger     TriggerConfig     `yaml:"trigger"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Trust       TrustConfig       `yaml:"trust"`
	Storage     StorageConfig     `yaml:"storage"`
	Cache       CacheConfig       `yaml:"cache"`
	Replies     RepliesConfig     `yaml:"replies"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type AccountConfig struct {
	// The bot's own handle; triggers it authored are ignored.
	Username string `yaml:"username"`
}

type CredentialsConfig struct {
	// X/Twitter API bearer token. If empty, read from env X_BEARER_TOKEN
	BearerToken string `yaml:"bearerToken"`
	// OAuth1.0a user-context credentials, needed to post replies
	ConsumerKey    string `yaml:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret"`
	AccessToken    string `yaml:"accessToken"`
	AccessSecret   string `yaml:"accessSecret"`
}

type TriggerConfig struct {
	Phrase string `yaml:"phrase"`
	// Only replies to this account count; empty means any account.
	MonitoredAccount string `yaml:"monitoredAccount"`
	// Seconds between trigger searches
	PollingInterval int `yaml:"pollingInterval"`
	// Triggers older than this many minutes are ignored
	MaxAgeMinutes int `yaml:"maxAgeMinutes"`
}

type AnalysisConfig struct {
	MinAccountAgeDays       int     `yaml:"minAccountAgeDays"`
	SuspiciousFollowerRatio float64 `yaml:"suspiciousFollowerRatio"`
	MaxRecentTweets         int     `yaml:"maxRecentTweets"`
}

type TrustConfig struct {
	ListURL string `yaml:"listURL"`
	// Local file used instead of ListURL when set
	ListFile string `yaml:"listFile"`
	// Seconds between trusted list refreshes
	UpdateInterval      int `yaml:"updateInterval"`
	MinTrustedFollowers int `yaml:"minTrustedFollowers"`
	// Plain-text cache used when no database is configured
	CacheFile string `yaml:"cacheFile"`
	// Opt in to checking trusted accounts' following lists through the API
	FollowGraph       bool `yaml:"followGraph"`
	FollowGraphSample int  `yaml:"followGraphSample"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
	// Days of history kept by the cleanup loop
	RetentionDays int `yaml:"retentionDays"`
}

type CacheConfig struct {
	// If set, reports are cached in redis instead of process memory
	RedisURL   string `yaml:"redisURL"`
	TTLSeconds int    `yaml:"ttlSeconds"`
	Capacity   int    `yaml:"capacity"`
}

type RepliesConfig struct {
	MaxPerHour int `yaml:"maxPerHour"`
	MaxPerDay  int `yaml:"maxPerDay"`
	// Compose reports without posting them
	DryRun bool `yaml:"dryRun"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account: AccountConfig{Username: "projectrugguard"},
		Trigger: TriggerConfig{
			Phrase:          "@projectruggaurd riddle me this",
			PollingInterval: 60,
			MaxAgeMinutes:   60,
		},
		Analysis: AnalysisConfig{
			MinAccountAgeDays:       30,
			SuspiciousFollowerRatio: 10.0,
			MaxRecentTweets:         20,
		},
		Trust: TrustConfig{
			ListURL:             "https://raw.githubusercontent.com/devsyrem/turst-list/main/list",
			UpdateInterval:      3600,
			MinTrustedFollowers: 3,
			CacheFile:           "./trusted_accounts_cache.txt",
			FollowGraphSample:   20,
		},
		Storage: StorageConfig{DBPath: "./rugguard.db", RetentionDays: 30},
		Cache:   CacheConfig{TTLSeconds: 300, Capacity: 5000},
		Replies: RepliesConfig{MaxPerHour: 50, MaxPerDay: 300},
		Log:     LogConfig{Level: "info", File: "rugguard_bot.log"},
		Metrics: MetricsConfig{Addr: ""},
	}
}

// PollingInterval is Trigger.PollingInterval as a duration.
func (c Config) PollingInterval() time.Duration {
	return time.Duration(c.Trigger.PollingInterval) * time.Second
}

// TrustUpdateInterval is Trust.UpdateInterval as a duration.
func (c Config) TrustUpdateInterval() time.Duration {
	return time.Duration(c.Trust.UpdateInterval) * time.Second
}

// CacheTTL is Cache.TTLSeconds as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// ResolveEnv fills in config fields from environment variables.
// Credentials only fill empty values; tuning knobs override the file.
func (c *Config) ResolveEnv() {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&c.Credentials.BearerToken, "X_BEARER_TOKEN")
	fill(&c.Credentials.ConsumerKey, "X_API_KEY")
	fill(&c.Credentials.ConsumerSecret, "X_API_SECRET")
	fill(&c.Credentials.AccessToken, "X_ACCESS_TOKEN")
	fill(&c.Credentials.AccessSecret, "X_ACCESS_TOKEN_SECRET")
	fill(&c.Cache.RedisURL, "REDIS_URL")
	fill(&c.Metrics.Addr, "METRICS_ADDR")

	overrideString(&c.Trigger.Phrase, "TRIGGER_PHRASE")
	overrideString(&c.Trigger.MonitoredAccount, "MONITORED_ACCOUNT")
	overrideString(&c.Trust.ListURL, "TRUSTED_ACCOUNTS_URL")
	overrideString(&c.Log.Level, "LOG_LEVEL")
	overrideString(&c.Log.File, "LOG_FILE")
	overrideInt(&c.Trigger.PollingInterval, "POLLING_INTERVAL")
	overrideInt(&c.Trust.UpdateInterval, "TRUSTED_ACCOUNTS_UPDATE_INTERVAL")
	overrideInt(&c.Trust.MinTrustedFollowers, "MIN_TRUSTED_FOLLOWERS")
	overrideInt(&c.Analysis.MaxRecentTweets, "MAX_RECENT_TWEETS")
	overrideInt(&c.Analysis.MinAccountAgeDays, "MIN_ACCOUNT_AGE_DAYS")
	if v := os.Getenv("SUSPICIOUS_FOLLOWER_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Analysis.SuspiciousFollowerRatio = f
		}
	}
}

// Validate reports missing credentials and unusable intervals. Reading works
// with a bearer token alone; posting replies needs the OAuth1 set unless
// replies are dry-run.
func (c Config) Validate() error {
	var missing []string
	if c.Credentials.BearerToken == "" {
		missing = append(missing, "X_BEARER_TOKEN")
	}
	if !c.Replies.DryRun {
		for key, v := range map[string]string{
			"X_API_KEY":             c.Credentials.ConsumerKey,
			"X_API_SECRET":          c.Credentials.ConsumerSecret,
			"X_ACCESS_TOKEN":        c.Credentials.AccessToken,
			"X_ACCESS_TOKEN_SECRET": c.Credentials.AccessSecret,
		} {
			if v == "" {
				missing = append(missing, key)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Trigger.Phrase == "" {
		return errors.New("empty trigger phrase")
	}
	for name, v := range map[string]int{
		"trigger.pollingInterval": c.Trigger.PollingInterval,
		"trigger.maxAgeMinutes":   c.Trigger.MaxAgeMinutes,
		"trust.updateInterval":    c.Trust.UpdateInterval,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}

// Load reads YAML config from path on top of Default().
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			*dst = i
		}
	}
}
