package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Listing ListingConfig `yaml:"listing" mapstructure:"listing"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Filters FilterConfig  `yaml:"filters" mapstructure:"filters"`
	Mail    MailConfig    `yaml:"mail" mapstructure:"mail"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the record store backend and the write retry.
type StoreConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	Worksheet       string `yaml:"worksheet" mapstructure:"worksheet"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json" mapstructure:"credentials_json"`
	Path            string `yaml:"path" mapstructure:"path"`
	WriteAttempts   int    `yaml:"write_attempts" mapstructure:"write_attempts"`
	WriteBackoffMS  int    `yaml:"write_backoff_ms" mapstructure:"write_backoff_ms"`
}

// ListingConfig configures the map-listing browser session.
type ListingConfig struct {
	Headful         bool `yaml:"headful" mapstructure:"headful"`
	MaxPerQuery     int  `yaml:"max_per_query" mapstructure:"max_per_query"`
	MinDelayMS      int  `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxDelayMS      int  `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	NavTimeoutSecs  int  `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
	ScrollAttempts  int  `yaml:"scroll_attempts" mapstructure:"scroll_attempts"`
	QueryPauseMS    int  `yaml:"query_pause_ms" mapstructure:"query_pause_ms"`
}

// EnrichConfig configures website enrichment and the quality rubric.
type EnrichConfig struct {
	Concurrency       int `yaml:"concurrency" mapstructure:"concurrency"`
	FetchTimeoutSecs  int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	PositiveThreshold int `yaml:"positive_threshold" mapstructure:"positive_threshold"`
	ProblemThreshold  int `yaml:"problem_threshold" mapstructure:"problem_threshold"`
}

// Filter stage orderings. The sources behind this pipeline disagreed on
// which comes first, so it stays configurable.
const (
	FilterOrderAcceptThenDedup = "accept_then_dedup"
	FilterOrderDedupThenAccept = "dedup_then_accept"
)

// FilterConfig configures the post-enrichment filter chain.
type FilterConfig struct {
	Order string `yaml:"order" mapstructure:"order"`
}

// MailConfig configures the outreach sender.
type MailConfig struct {
	SMTPHost   string  `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort   int     `yaml:"smtp_port" mapstructure:"smtp_port"`
	Username   string  `yaml:"username" mapstructure:"username"`
	Password   string  `yaml:"password" mapstructure:"password"`
	SenderName string  `yaml:"sender_name" mapstructure:"sender_name"`
	DelaySecs  float64 `yaml:"delay_secs" mapstructure:"delay_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sheets")
	v.SetDefault("store.worksheet", "Sheet1")
	v.SetDefault("store.write_attempts", 5)
	v.SetDefault("store.write_backoff_ms", 2000)
	v.SetDefault("listing.max_per_query", 8)
	v.SetDefault("listing.min_delay_ms", 100)
	v.SetDefault("listing.max_delay_ms", 300)
	v.SetDefault("listing.nav_timeout_secs", 15)
	v.SetDefault("listing.scroll_attempts", 15)
	v.SetDefault("listing.query_pause_ms", 200)
	v.SetDefault("enrich.concurrency", 10)
	v.SetDefault("enrich.fetch_timeout_secs", 8)
	v.SetDefault("enrich.positive_threshold", 3)
	v.SetDefault("enrich.problem_threshold", 1)
	v.SetDefault("filters.order", FilterOrderAcceptThenDedup)
	v.SetDefault("mail.smtp_host", "smtp.gmail.com")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.sender_name", "Leadsweep")
	v.SetDefault("mail.delay_secs", 2.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on invalid settings, before any work begins.
func (c *Config) Validate() error {
	if c.Listing.MinDelayMS > c.Listing.MaxDelayMS {
		return eris.New("config: listing.min_delay_ms must be <= listing.max_delay_ms")
	}
	if c.Enrich.Concurrency < 1 {
		return eris.New("config: enrich.concurrency must be >= 1")
	}
	if c.Enrich.PositiveThreshold < 1 || c.Enrich.ProblemThreshold < 1 {
		return eris.New("config: classifier thresholds must be >= 1")
	}
	switch c.Filters.Order {
	case FilterOrderAcceptThenDedup, FilterOrderDedupThenAccept:
	default:
		return eris.Errorf("config: unknown filters.order %q", c.Filters.Order)
	}
	if c.Store.WriteAttempts < 1 {
		return eris.New("config: store.write_attempts must be >= 1")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
