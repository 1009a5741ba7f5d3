// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout bounds each call to the remote batch API.
	defaultRequestTimeout = 120 * time.Second
	// DefaultMaxRequestsPerBatch is the remote limit on requests in one batch file.
	DefaultMaxRequestsPerBatch = 50000

	defaultRunsDir          = "runs"
	defaultDesignsPath      = "config/designs.yaml"
	defaultAPIBaseURL       = "https://api.openai.com"
	defaultEndpoint         = "/v1/chat/completions"
	defaultCompletionWindow = "24h"
	defaultTemperatureUpper = 1.2
	defaultModel            = "gpt-3.5-turbo-0125"
	defaultSeed             = 42
	defaultGroupBy          = "experiment"
)

// Config represents the top-level application configuration.
type Config struct {
	RunsDir               string         `json:"runsDir" mapstructure:"runsDir"`
	DesignsPath           string         `json:"designsPath" mapstructure:"designsPath"`
	Runs                  map[string]Run `json:"runs" mapstructure:"runs"`
	Models                []string       `json:"models" mapstructure:"models"`
	Instructions          []string       `json:"instructions" mapstructure:"instructions"`
	Seeds                 []int64        `json:"seeds" mapstructure:"seeds"`
	TemperatureLowerBound *float64       `json:"temperatureLowerBound,omitempty" mapstructure:"temperatureLowerBound"`
	TemperatureUpperBound *float64       `json:"temperatureUpperBound,omitempty" mapstructure:"temperatureUpperBound"`
	APIBaseURL            string         `json:"apiBaseURL,omitempty" mapstructure:"apiBaseURL"`
	Endpoint              string         `json:"endpoint,omitempty" mapstructure:"endpoint"`
	CompletionWindow      string         `json:"completionWindow,omitempty" mapstructure:"completionWindow"`
	MaxRequestsPerBatch   int            `json:"maxRequestsPerBatch,omitempty" mapstructure:"maxRequestsPerBatch"`
	TimeoutSeconds        int            `json:"timeout,omitempty" mapstructure:"timeout"`
	GroupBy               *string        `json:"groupBy,omitempty" mapstructure:"groupBy"`
	LogFile               string         `json:"logFile,omitempty" mapstructure:"logFile"`
	Debug                 bool           `json:"debug" mapstructure:"debug"`
	Metrics               bool           `json:"metrics" mapstructure:"metrics"`
	ConfigPath            string         `json:"-" mapstructure:"-"`
}

// Run names a subset of the designs sent to the model as one unit of work.
type Run struct {
	Domain string `json:"domain" mapstructure:"domain"`
	// State optionally restricts cage experiments to one session location.
	State string `json:"state,omitempty" mapstructure:"state"`
}

// DefaultRuns mirrors the historical run names.
func DefaultRuns() map[string]Run {
	return map[string]Run{
		"eg":         {Domain: "eg"},
		"wisconsin":  {Domain: "eg", State: "wisconsin"},
		"california": {Domain: "eg", State: "california"},
		"hs":         {Domain: "hs"},
	}
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RunsRoot returns the directory holding every run.
func (c Config) RunsRoot() string {
	if strings.TrimSpace(c.RunsDir) != "" {
		return c.RunsDir
	}
	return defaultRunsDir
}

// RunDir returns the directory of one run.
func (c Config) RunDir(run string) string {
	return filepath.Join(c.RunsRoot(), run)
}

// RunLogPath returns the log file of a run, unless logFile overrides it.
func (c Config) RunLogPath(run string) string {
	if path := strings.TrimSpace(c.LogFile); path != "" {
		return path
	}
	return filepath.Join(c.RunDir(run), run+".log")
}

// MetricsPath returns where remote call metrics of a run are kept.
func (c Config) MetricsPath(run string) string {
	return filepath.Join(c.RunDir(run), "api_metrics.json")
}

// DesignsFile returns the designs path, applying a default if not set.
func (c Config) DesignsFile() string {
	if strings.TrimSpace(c.DesignsPath) != "" {
		return c.DesignsPath
	}
	return defaultDesignsPath
}

// RunSettings looks up a run by name.
func (c Config) RunSettings(name string) (Run, error) {
	runs := c.Runs
	if len(runs) == 0 {
		runs = DefaultRuns()
	}
	run, ok := runs[name]
	if !ok {
		return Run{}, fmt.Errorf("unknown run %q (configured: %s)", name, strings.Join(sortedKeys(runs), ", "))
	}
	return run, nil
}

// RunNames returns the configured run names in sorted order.
func (c Config) RunNames() []string {
	if len(c.Runs) == 0 {
		return sortedKeys(DefaultRuns())
	}
	return sortedKeys(c.Runs)
}

// ModelNames returns the models to query.
func (c Config) ModelNames() []string {
	if len(c.Models) == 0 {
		return []string{defaultModel}
	}
	return c.Models
}

// InstructionNames returns the instruction variants to cross with every trial.
func (c Config) InstructionNames() []string {
	if len(c.Instructions) == 0 {
		return []string{"reasoning", "no_reasoning"}
	}
	return c.Instructions
}

// SeedValues returns the request seeds. An explicit empty list in the file
// disables seeding; an absent key uses the default.
func (c Config) SeedValues() []int64 {
	if c.Seeds == nil {
		return []int64{defaultSeed}
	}
	return c.Seeds
}

// TemperatureBounds returns the interval subject temperatures are drawn from.
func (c Config) TemperatureBounds() (float64, float64) {
	lower, upper := 0.0, defaultTemperatureUpper
	if c.TemperatureLowerBound != nil {
		lower = *c.TemperatureLowerBound
	}
	if c.TemperatureUpperBound != nil {
		upper = *c.TemperatureUpperBound
	}
	return lower, upper
}

// BaseURL returns the batch API base URL without a trailing slash.
func (c Config) BaseURL() string {
	if u := strings.TrimSpace(c.APIBaseURL); u != "" {
		return strings.TrimRight(u, "/")
	}
	return defaultAPIBaseURL
}

// RequestEndpoint returns the endpoint each batched request targets.
func (c Config) RequestEndpoint() string {
	if e := strings.TrimSpace(c.Endpoint); e != "" {
		return e
	}
	return defaultEndpoint
}

// Window returns the batch completion window.
func (c Config) Window() string {
	if w := strings.TrimSpace(c.CompletionWindow); w != "" {
		return w
	}
	return defaultCompletionWindow
}

// BatchCeiling returns the maximum number of requests in one batch.
func (c Config) BatchCeiling() int {
	if c.MaxRequestsPerBatch <= 0 {
		return DefaultMaxRequestsPerBatch
	}
	return c.MaxRequestsPerBatch
}

// GroupColumn returns the column final tables are split by. An explicit
// empty string produces a single table.
func (c Config) GroupColumn() string {
	if c.GroupBy == nil {
		return defaultGroupBy
	}
	return strings.TrimSpace(*c.GroupBy)
}

// Validate reports settings that cannot produce a run.
func (c Config) Validate() error {
	lower, upper := c.TemperatureBounds()
	if lower < 0 || upper < lower {
		return fmt.Errorf("invalid temperature bounds [%v, %v]", lower, upper)
	}
	for name, run := range c.Runs {
		if run.Domain != "eg" && run.Domain != "hs" {
			return fmt.Errorf("run %q: unknown domain %q", name, run.Domain)
		}
	}
	return nil
}

func sortedKeys(m map[string]Run) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
