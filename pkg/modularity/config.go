package modularity

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config manages run configuration using Viper.
type Config struct {
	v         *viper.Viper
	logOutput io.Writer
}

// Settings is the resolved, validated view of a Config.
type Settings struct {
	StopAtFirstNegativeDeltaQ bool     `validate:"-"`
	LogLevel                  string   `validate:"oneof=trace debug info warn error fatal panic disabled"`
	EnableProgress            bool     `validate:"-"`
	ProgressInterval          int      `validate:"gt=0"`
	InputFormat               string   `validate:"oneof=csv whitespace"`
	SkipHeader                bool     `validate:"-"`
	Directed                  bool     `validate:"-"`
	OutputRoot                string   `validate:"omitempty,min=1"`
	OutputFormats             []string `validate:"dive,oneof=json yaml tsv mr members"`
	MinClusterSize            int      `validate:"gte=0"`
	MetricsFile               string   `validate:"omitempty,min=1"`
	TrackMergesFile           string   `validate:"omitempty,min=1"`
	Verify                    bool     `validate:"-"`
}

var settingsValidator = validator.New()

// NewConfig creates a new configuration with defaults.
func NewConfig() *Config {
	v := viper.New()

	// Algorithm parameters
	v.SetDefault("algorithm.stop_at_first_negative_delta_q", false)

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.enable_progress", true)
	v.SetDefault("logging.progress_interval", 50)

	// Input parameters
	v.SetDefault("input.format", "csv")
	v.SetDefault("input.skip_header", false)
	v.SetDefault("input.directed", false)

	// Output parameters
	v.SetDefault("output.root", "")
	v.SetDefault("output.formats", []string{"json", "tsv", "mr"})
	v.SetDefault("output.min_cluster_size", 0)

	v.SetDefault("metrics.file", "")
	v.SetDefault("analysis.track_merges", "")
	v.SetDefault("analysis.verify", false)

	v.SetEnvPrefix("MODCLUSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v, logOutput: os.Stderr}
}

// LoadFromFile loads configuration from file.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// BindFlag makes a command-line flag the source for key when it is set.
func (c *Config) BindFlag(key string, flag *pflag.Flag) error {
	return c.v.BindPFlag(key, flag)
}

// Set allows dynamic configuration changes.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// SetLogOutput redirects loggers created afterwards.
func (c *Config) SetLogOutput(w io.Writer) {
	c.logOutput = w
}

func (c *Config) StopAtFirstNegativeDeltaQ() bool {
	return c.v.GetBool("algorithm.stop_at_first_negative_delta_q")
}

func (c *Config) LogLevel() string      { return c.v.GetString("logging.level") }
func (c *Config) EnableProgress() bool  { return c.v.GetBool("logging.enable_progress") }
func (c *Config) ProgressInterval() int { return c.v.GetInt("logging.progress_interval") }

func (c *Config) InputFormat() string { return c.v.GetString("input.format") }
func (c *Config) SkipHeader() bool    { return c.v.GetBool("input.skip_header") }
func (c *Config) Directed() bool      { return c.v.GetBool("input.directed") }

func (c *Config) OutputRoot() string      { return c.v.GetString("output.root") }
func (c *Config) OutputFormats() []string { return c.v.GetStringSlice("output.formats") }
func (c *Config) MinClusterSize() int     { return c.v.GetInt("output.min_cluster_size") }

func (c *Config) MetricsFile() string     { return c.v.GetString("metrics.file") }
func (c *Config) TrackMergesFile() string { return c.v.GetString("analysis.track_merges") }
func (c *Config) Verify() bool            { return c.v.GetBool("analysis.verify") }

// Settings resolves every key and validates the result.
func (c *Config) Settings() (Settings, error) {
	s := Settings{
		StopAtFirstNegativeDeltaQ: c.StopAtFirstNegativeDeltaQ(),
		LogLevel:                  strings.ToLower(c.LogLevel()),
		EnableProgress:            c.EnableProgress(),
		ProgressInterval:          c.ProgressInterval(),
		InputFormat:               strings.ToLower(c.InputFormat()),
		SkipHeader:                c.SkipHeader(),
		Directed:                  c.Directed(),
		OutputRoot:                c.OutputRoot(),
		OutputFormats:             c.OutputFormats(),
		MinClusterSize:            c.MinClusterSize(),
		MetricsFile:               c.MetricsFile(),
		TrackMergesFile:           c.TrackMergesFile(),
		Verify:                    c.Verify(),
	}
	if err := settingsValidator.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	_, err := c.Settings()
	return err
}

// CreateLogger creates a zerolog logger based on config.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        c.logOutput,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "modcluster").Logger()
}
