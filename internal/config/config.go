// Package config reads the generator's settings from the environment (the
// binary loads .env first) and the optional YAML locales file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"calgen/internal/models"
)

// Environment variable names.
const (
	KeyAPIKey         = "CALGEN_API_KEY"
	KeyProvider       = "CALGEN_PROVIDER"
	KeyTier           = "API_TIER"
	KeyPacing         = "REQUEST_PACING"
	KeyYears          = "YEARS"
	KeyCategories     = "CATEGORIES"
	KeyLocalesFile    = "LOCALES_FILE"
	KeyOutputDir      = "OUTPUT_DIR"
	KeyCacheDir       = "CACHE_DIR"
	KeyCacheBackend   = "CACHE_BACKEND"
	KeyCacheTTL       = "CACHE_TTL"
	KeyMixins         = "MIXINS"
	KeyWebDAVURL      = "WEBDAV_URL"
	KeyWebDAVUsername = "WEBDAV_USERNAME"
	KeyWebDAVPassword = "WEBDAV_PASSWORD"
	KeyKafkaBrokers   = "KAFKA_BROKERS"
	KeyKafkaTopic     = "KAFKA_TOPIC"
	KeyMetricsFile    = "METRICS_FILE"
	KeyLogLevel       = "LOG_LEVEL"
	KeySchedule       = "CALGEN_SCHEDULE"
)

// Keys lists every variable FromEnv reads, in documentation order.
var Keys = []string{
	KeyAPIKey, KeyProvider, KeyTier, KeyPacing, KeyYears, KeyCategories,
	KeyLocalesFile, KeyOutputDir, KeyCacheDir, KeyCacheBackend, KeyCacheTTL,
	KeyMixins, KeyWebDAVURL, KeyWebDAVUsername, KeyWebDAVPassword,
	KeyKafkaBrokers, KeyKafkaTopic, KeyMetricsFile, KeyLogLevel, KeySchedule,
}

// API tiers.
const (
	TierFree = "free"
	TierPaid = "paid"
)

// Cache backends.
const (
	CacheFile   = "file"
	CachePebble = "pebble"
)

var ErrMissingAPIKey = errors.New(KeyAPIKey + " is not set")

// Config is the resolved run configuration.
type Config struct {
	APIKey     string
	Provider   string
	Tier       string
	Pacing     time.Duration
	Years      int
	Categories []models.Category

	LocalesFile string
	OutputDir   string

	CacheDir     string
	CacheBackend string
	CacheTTL     time.Duration

	Mixins bool

	WebDAVURL      string
	WebDAVUsername string
	WebDAVPassword string

	KafkaBrokers string
	KafkaTopic   string

	MetricsFile string
	LogLevel    string
	// Schedule is a cron expression; empty means run once.
	Schedule string
}

// Default returns the configuration used when nothing is set, minus the API key.
func Default() *Config {
	return &Config{
		Provider:     "calendarific",
		Tier:         TierFree,
		Pacing:       time.Second,
		Years:        2,
		Categories:   []models.Category{models.CategoryNational, models.CategoryObservance},
		OutputDir:    ".",
		CacheBackend: CacheFile,
		Mixins:       true,
		KafkaTopic:   "calgen-manifest",
		LogLevel:     "info",
	}
}

// FlagName is the command-line flag bound to an environment variable.
func FlagName(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", "-"))
}

// FromEnv resolves a Config from getenv, applying defaults for empty values.
// A missing API key is reported as ErrMissingAPIKey.
func FromEnv(getenv func(string) string) (*Config, error) {
	c := Default()
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	c.APIKey = get(KeyAPIKey)
	if v := get(KeyProvider); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := get(KeyTier); v != "" {
		c.Tier = strings.ToLower(v)
	}
	if v := get(KeyPacing); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", KeyPacing, v, err)
		}
		c.Pacing = d
	}
	if v := get(KeyYears); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", KeyYears, v, err)
		}
		c.Years = n
	}
	if v := get(KeyCategories); v != "" {
		cats, err := ParseCategories(v)
		if err != nil {
			return nil, err
		}
		c.Categories = cats
	}

	c.LocalesFile = get(KeyLocalesFile)
	if v := get(KeyOutputDir); v != "" {
		c.OutputDir = v
	}
	c.CacheDir = get(KeyCacheDir)
	if v := get(KeyCacheBackend); v != "" {
		c.CacheBackend = strings.ToLower(v)
	}
	if v := get(KeyCacheTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", KeyCacheTTL, v, err)
		}
		c.CacheTTL = d
	}
	if v := get(KeyMixins); v != "" {
		on, err := parseSwitch(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", KeyMixins, err)
		}
		c.Mixins = on
	}

	c.WebDAVURL = get(KeyWebDAVURL)
	c.WebDAVUsername = get(KeyWebDAVUsername)
	c.WebDAVPassword = getenv(KeyWebDAVPassword)
	c.KafkaBrokers = get(KeyKafkaBrokers)
	if v := get(KeyKafkaTopic); v != "" {
		c.KafkaTopic = v
	}
	c.MetricsFile = get(KeyMetricsFile)
	if v := get(KeyLogLevel); v != "" {
		c.LogLevel = v
	}
	c.Schedule = get(KeySchedule)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.Tier {
	case TierFree, TierPaid:
	default:
		return fmt.Errorf("invalid %s %q: want %s or %s", KeyTier, c.Tier, TierFree, TierPaid)
	}
	if c.Pacing < 0 {
		return fmt.Errorf("invalid %s: negative duration", KeyPacing)
	}
	if c.Years < 1 {
		return fmt.Errorf("invalid %s %d: must be at least 1", KeyYears, c.Years)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%s is empty", KeyCategories)
	}
	switch c.CacheBackend {
	case CacheFile, CachePebble:
	default:
		return fmt.Errorf("invalid %s %q", KeyCacheBackend, c.CacheBackend)
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid %s %q: %w", KeySchedule, c.Schedule, err)
		}
	}
	return nil
}

// PacingDelay is the sleep between network requests; paid tiers do not pace.
func (c *Config) PacingDelay() time.Duration {
	if c.Tier == TierPaid {
		return 0
	}
	return c.Pacing
}

// ParseCategories parses a comma-separated category list, dropping duplicates.
func ParseCategories(s string) ([]models.Category, error) {
	var out []models.Category
	seen := map[models.Category]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cat, err := models.ParseCategory(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", KeyCategories, err)
		}
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s is empty", KeyCategories)
	}
	return out, nil
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("%q is not on or off", v)
}

// DefaultLocales is the locale set used when neither arguments nor a locales file name any.
func DefaultLocales() []models.Locale {
	return []models.Locale{
		{Code: "CA", Name: "Canada"},
		{Code: "US", Name: "United States"},
	}
}

// ParseLocaleArgs parses CODE=Name arguments. Codes are upper-cased.
func ParseLocaleArgs(args []string) ([]models.Locale, error) {
	locales := make([]models.Locale, 0, len(args))
	for _, arg := range args {
		code, name, ok := strings.Cut(arg, "=")
		code, name = strings.ToUpper(strings.TrimSpace(code)), strings.TrimSpace(name)
		if !ok || code == "" || name == "" {
			return nil, fmt.Errorf("invalid locale %q: want CODE=Name", arg)
		}
		locales = append(locales, models.Locale{Code: code, Name: name})
	}
	return dedupe(locales)
}

// LoadLocalesFile reads a YAML list of {code, name} entries.
func LoadLocalesFile(path string) ([]models.Locale, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locales file: %w", err)
	}
	var locales []models.Locale
	if err := yaml.Unmarshal(data, &locales); err != nil {
		return nil, fmt.Errorf("failed to parse locales file %s: %w", path, err)
	}
	for i := range locales {
		locales[i].Code = strings.ToUpper(strings.TrimSpace(locales[i].Code))
		locales[i].Name = strings.TrimSpace(locales[i].Name)
		if locales[i].Code == "" || locales[i].Name == "" {
			return nil, fmt.Errorf("locales file %s: entry %d needs code and name", path, i+1)
		}
	}
	return dedupe(locales)
}

// Locales picks the run's locales: arguments win over the locales file, which
// wins over DefaultLocales.
func (c *Config) Locales(args []string) ([]models.Locale, error) {
	if len(args) > 0 {
		return ParseLocaleArgs(args)
	}
	if c.LocalesFile != "" {
		return LoadLocalesFile(c.LocalesFile)
	}
	return DefaultLocales(), nil
}

func dedupe(locales []models.Locale) ([]models.Locale, error) {
	seen := map[string]bool{}
	for _, l := range locales {
		if seen[l.Code] {
			return nil, fmt.Errorf("locale %s listed twice", l.Code)
		}
		seen[l.Code] = true
	}
	return locales, nil
}
