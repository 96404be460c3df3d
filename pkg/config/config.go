package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the harvester
type Config struct {
	// Search API endpoint and query shape
	Source SourceConfig `yaml:"source" json:"source"`

	// Harvest loop settings
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Request budget
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Stored API credentials
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Prometheus exposition
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SourceConfig describes where and how pages are requested
type SourceConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	Endpoint       string        `yaml:"endpoint" json:"endpoint"`
	PageSize       uint32        `yaml:"page_size" json:"page_size"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	After          string        `yaml:"after" json:"after"`
	Before         string        `yaml:"before" json:"before"`
	ScoreThreshold uint32        `yaml:"score_threshold" json:"score_threshold"`
}

// HarvestConfig holds the harvest loop parameters
type HarvestConfig struct {
	Target              int           `yaml:"target" json:"target"`
	Subreddits          []string      `yaml:"subreddits" json:"subreddits"`
	Snapshot            string        `yaml:"snapshot" json:"snapshot"`
	Delay               time.Duration `yaml:"delay" json:"delay"`
	MaxDelay            time.Duration `yaml:"max_delay" json:"max_delay"`
	Backoff             string        `yaml:"backoff" json:"backoff"`
	EmptyRoundThreshold int           `yaml:"empty_round_threshold" json:"empty_round_threshold"`
	SentinelAuthors     []string      `yaml:"sentinel_authors" json:"sentinel_authors"`
	Anonymize           bool          `yaml:"anonymize" json:"anonymize"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// AuthConfig selects the stored account used for the access token
type AuthConfig struct {
	Account     string `yaml:"account" json:"account"`
	AccessToken string `yaml:"access_token" json:"-"`
}

// MetricsConfig controls the Prometheus listener. Empty Address disables it.
type MetricsConfig struct {
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	JSON  bool   `yaml:"json" json:"json"`
}

// MaxPageSize is the largest page the search API serves.
const MaxPageSize = 1000

var subredditPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:  "https://api.pushshift.io/reddit",
			Endpoint: "comment",
			PageSize: MaxPageSize,
			Timeout:  90 * time.Second,
		},
		Harvest: HarvestConfig{
			Target:              125000,
			Snapshot:            "comments.csv",
			Delay:               10 * time.Second,
			MaxDelay:            60 * time.Second,
			Backoff:             "squaring",
			EmptyRoundThreshold: 3,
			SentinelAuthors:     []string{"[deleted]", "[removed]", "AutoModerator"},
			Anonymize:           true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         1,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("PSHARVEST_BASE_URL"); baseURL != "" {
		c.Source.BaseURL = baseURL
	}
	if endpoint := os.Getenv("PSHARVEST_ENDPOINT"); endpoint != "" {
		c.Source.Endpoint = endpoint
	}
	if userAgent := os.Getenv("PSHARVEST_USER_AGENT"); userAgent != "" {
		c.Source.UserAgent = userAgent
	}
	if timeout := os.Getenv("PSHARVEST_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid PSHARVEST_TIMEOUT: %w", err)
		}
		c.Source.Timeout = d
	}

	if target := os.Getenv("PSHARVEST_TARGET"); target != "" {
		val, err := strconv.Atoi(target)
		if err != nil {
			return fmt.Errorf("invalid PSHARVEST_TARGET: %w", err)
		}
		c.Harvest.Target = val
	}
	if subs := os.Getenv("PSHARVEST_SUBREDDITS"); subs != "" {
		c.Harvest.Subreddits = splitList(subs)
	}
	if snapshot := os.Getenv("PSHARVEST_SNAPSHOT"); snapshot != "" {
		c.Harvest.Snapshot = snapshot
	}

	if rpm := os.Getenv("PSHARVEST_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if token := os.Getenv("PSHARVEST_ACCESS_TOKEN"); token != "" {
		c.Auth.AccessToken = token
	}
	if addr := os.Getenv("PSHARVEST_METRICS_ADDR"); addr != "" {
		c.Metrics.Address = addr
	}
	if logLevel := os.Getenv("PSHARVEST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".psharvest.yaml",
		".psharvest.yml",
		filepath.Join(home, ".config", "psharvest", "config.yaml"),
		filepath.Join(home, ".config", "psharvest", "config.yml"),
		filepath.Join(home, ".psharvest.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Source.BaseURL == "" {
		errs = append(errs, errors.New("source base URL is required"))
	}
	switch strings.ToLower(c.Source.Endpoint) {
	case "comment", "submission", "subreddit":
	default:
		errs = append(errs, fmt.Errorf("unknown endpoint %q", c.Source.Endpoint))
	}
	if c.Source.PageSize == 0 || c.Source.PageSize > MaxPageSize {
		errs = append(errs, fmt.Errorf("page size must be between 1 and %d", MaxPageSize))
	}
	if c.Source.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Harvest.Target <= 0 {
		errs = append(errs, errors.New("harvest target must be positive"))
	}
	for _, sub := range c.Harvest.Subreddits {
		if !subredditPattern.MatchString(sub) {
			errs = append(errs, fmt.Errorf("invalid subreddit name %q", sub))
		}
	}
	if c.Harvest.Snapshot == "" {
		errs = append(errs, errors.New("snapshot path is required"))
	}
	if c.Harvest.Delay < 0 {
		errs = append(errs, errors.New("harvest delay cannot be negative"))
	}
	if c.Harvest.MaxDelay < c.Harvest.Delay {
		errs = append(errs, errors.New("max delay must not be below the initial delay"))
	}
	switch strings.ToLower(c.Harvest.Backoff) {
	case "squaring", "exponential":
	default:
		errs = append(errs, fmt.Errorf("unknown backoff strategy %q", c.Harvest.Backoff))
	}
	if c.Harvest.EmptyRoundThreshold <= 0 {
		errs = append(errs, errors.New("empty round threshold must be positive"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Zero values are ignored so unset flags never clobber file or env settings.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if target, ok := flags["target"].(int); ok && target > 0 {
		c.Harvest.Target = target
	}
	if subs, ok := flags["subreddits"].([]string); ok && len(subs) > 0 {
		c.Harvest.Subreddits = subs
	}
	if snapshot, ok := flags["snapshot"].(string); ok && snapshot != "" {
		c.Harvest.Snapshot = snapshot
	}
	if delay, ok := flags["delay"].(time.Duration); ok && delay > 0 {
		c.Harvest.Delay = delay
	}
	if noAnon, ok := flags["no-anonymize"].(bool); ok && noAnon {
		c.Harvest.Anonymize = false
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Source.Timeout = timeout
	}
	if endpoint, ok := flags["endpoint"].(string); ok && endpoint != "" {
		c.Source.Endpoint = endpoint
	}
	if size, ok := flags["page-size"].(uint32); ok && size > 0 {
		c.Source.PageSize = size
	}
	if after, ok := flags["after"].(string); ok && after != "" {
		c.Source.After = after
	}
	if score, ok := flags["score"].(uint32); ok && score > 0 {
		c.Source.ScoreThreshold = score
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if account, ok := flags["account"].(string); ok && account != "" {
		c.Auth.Account = account
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Address = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".psharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
