// Package config loads the pipeline's startup configuration: a checked-in
// YAML file (one struct per concern) with environment-variable overrides
// applied on top, so secrets never need to live in the YAML in a
// containerized deployment.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root document, one section per pipeline concern.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Arbitrage ArbitrageConfig `yaml:"arbitrage"`
	Retention RetentionConfig `yaml:"retention"`
	Providers []ProviderConfig `yaml:"providers"`
	Publisher PublisherConfig `yaml:"publisher"`
	Logging   LoggingConfig   `yaml:"logging"`
	Stats     StatsConfig     `yaml:"stats"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// StoreConfig is the database DSN plus the bounded connection pool size
// every component shares.
type StoreConfig struct {
	DSN         string `yaml:"db_url"`
	MaxOpenConn int    `yaml:"max_open_conns"`
}

// ScrapeConfig is the scheduler's cadence and per-adapter HTTP policy.
type ScrapeConfig struct {
	IntervalSeconds       int     `yaml:"interval_seconds"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests"`
	RequestsPerSecond     float64 `yaml:"requests_per_second"`
	MaxAttempts           int     `yaml:"max_attempts"`
	CycleDeadlineFactor   float64 `yaml:"cycle_deadline_factor"` // cycle deadline = factor x interval
}

func (s ScrapeConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s ScrapeConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

func (s ScrapeConfig) CycleDeadline() time.Duration {
	factor := s.CycleDeadlineFactor
	if factor <= 0 {
		factor = 2
	}
	return time.Duration(float64(s.Interval()) * factor)
}

// ResolverConfig holds the match_similarity_threshold setting (default 85)
// and the optional candidate cache. The resolver does not read
// SimilarityThreshold: it applies its own fixed reuse thresholds (a score of
// 85, or 70 with kickoff times within 30 minutes).
type ResolverConfig struct {
	SimilarityThreshold float64     `yaml:"match_similarity_threshold"`
	Cache               RedisConfig `yaml:"cache"` // optional same-cycle candidate cache
}

// ArbitrageConfig is the detection engine's profit floor and the tick its
// profit percentages are rounded to.
type ArbitrageConfig struct {
	MinProfitPercentage float64     `yaml:"min_profit_percentage"`
	ProfitTick          float64     `yaml:"profit_tick"`
	MinValuePercent     float64     `yaml:"min_value_percent"`
	MinDiffPercent      float64     `yaml:"min_diff_percent"`
	LineMovementPercent float64     `yaml:"line_movement_percent"`
	Dedup               RedisConfig `yaml:"dedup"`                 // optional content-hash dedup guard
}

// RetentionConfig carries the sweeper's windows: 7 days history, 30 days
// matches, 90 days arbitrage history by default.
type RetentionConfig struct {
	HistoryDays    int `yaml:"history_days"`
	MatchDays      int `yaml:"match_days"`
	ArbitrageDays  int `yaml:"arbitrage_days"`
	SweepInterval  int `yaml:"sweep_interval_minutes"`
	MatchLiveHours int `yaml:"match_live_hours"` // start time + this window -> finished
}

func (r RetentionConfig) History() time.Duration { return time.Duration(r.HistoryDays) * 24 * time.Hour }
func (r RetentionConfig) Matches() time.Duration { return time.Duration(r.MatchDays) * 24 * time.Hour }
func (r RetentionConfig) Arbitrage() time.Duration { return time.Duration(r.ArbitrageDays) * 24 * time.Hour }
func (r RetentionConfig) SweepEvery() time.Duration { return time.Duration(r.SweepInterval) * time.Minute }
func (r RetentionConfig) MatchLive() time.Duration { return time.Duration(r.MatchLiveHours) * time.Hour }

// ProviderConfig is one provider's static row: identity, enablement, and
// the per-shape block its adapter factory needs.
type ProviderConfig struct {
	ID      int            `yaml:"id"`
	Name    string         `yaml:"name"`
	Enabled bool           `yaml:"enabled"`
	Shape   string         `yaml:"shape"` // "flatplatform" | "structured" | "compact" | "browser"
	BaseURL string         `yaml:"base_url"`
	Lang    string         `yaml:"lang"`
	Version string         `yaml:"version"`
	APIKey  string         `yaml:"api_key"`
	UserAgent string       `yaml:"user_agent"`
	ProxyList []string     `yaml:"proxy_list"`
	Sports  map[string]int `yaml:"sports"`       // sport alias -> provider-local numeric id
	SportPaths map[string]string `yaml:"sport_paths"` // sport alias -> browser-driven path
}

// PublisherConfig wires the event fan-out and its optional sinks.
type PublisherConfig struct {
	BufferSize int              `yaml:"buffer_size"` // per-subscriber bounded buffer
	Redis      RedisConfig      `yaml:"redis"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	Enabled  bool   `yaml:"enabled"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Enabled  bool   `yaml:"enabled"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Enabled bool     `yaml:"enabled"`
}

// WebSocketConfig enables the live fan-out hub, served on the stats
// router's /ws route.
type WebSocketConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig drives the handler fan-out: stdout text handler always on,
// plus an optional rotating file handler backed by lumberjack.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// StatsConfig is the chi-routed observability surface.
type StatsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ArchiveConfig is the retention sweeper's cold-storage export target.
type ArchiveConfig struct {
	Enabled         bool   `yaml:"enabled"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Region        string `yaml:"s3_region"`
	S3Endpoint      string `yaml:"s3_endpoint"`
	S3PathStyle     bool   `yaml:"s3_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	KeyPrefix       string `yaml:"key_prefix"`
	SpoolDir        string `yaml:"spool_dir"`
}

// Load reads configPath as YAML, then applies ARBITER_<SECTION>_<KEY>
// environment overrides on top. envFile is loaded with godotenv first if
// it exists; a missing .env is not an error.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: loading env file %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", configPath, err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides walks cfg's top-level struct fields and, for each
// ARBITER_<SECTION>_<FIELD> environment variable that exists, sets the
// matching scalar field. Only top-level sections' direct fields are
// overridable; nested provider/sink lists stay YAML-only.
func applyEnvOverrides(cfg *Config) {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		sectionVal := v.Field(i)
		if sectionVal.Kind() != reflect.Struct {
			continue
		}
		prefix := "ARBITER_" + strings.ToUpper(section.Name) + "_"
		st := sectionVal.Type()
		for j := 0; j < st.NumField(); j++ {
			field := st.Field(j)
			raw, ok := os.LookupEnv(prefix + strings.ToUpper(field.Name))
			if !ok {
				continue
			}
			setScalar(sectionVal.Field(j), raw)
		}
	}
}

func setScalar(f reflect.Value, raw string) {
	if !f.CanSet() {
		return
	}
	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.SetInt(n)
		}
	case reflect.Float64, reflect.Float32:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			f.SetFloat(n)
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			f.SetBool(b)
		}
	}
}

// Default returns a Config with the stock defaults (2s cadence, 30s request
// timeout, 10 in-flight requests, threshold 85, standard retention
// windows), for tests and as a base before Load's YAML
// overrides it.
func Default() Config {
	return Config{
		Store: StoreConfig{MaxOpenConn: 50},
		Scrape: ScrapeConfig{
			IntervalSeconds:       2,
			RequestTimeoutSeconds: 30,
			MaxConcurrentRequests: 10,
			MaxAttempts:           3,
			CycleDeadlineFactor:   2,
		},
		Resolver:  ResolverConfig{SimilarityThreshold: 85},
		Arbitrage: ArbitrageConfig{MinProfitPercentage: 0.5, ProfitTick: 0.01, MinValuePercent: 5, MinDiffPercent: 3, LineMovementPercent: 5},
		Retention: RetentionConfig{HistoryDays: 7, MatchDays: 30, ArbitrageDays: 90, SweepInterval: 30, MatchLiveHours: 4},
		Publisher: PublisherConfig{BufferSize: 64},
		Logging:   LoggingConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 14},
		Stats:     StatsConfig{ListenAddr: ":8090"},
	}
}
