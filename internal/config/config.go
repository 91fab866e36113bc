// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/mixmodel/spend-allocator/pkg/configprocessor"
	"github.com/mixmodel/spend-allocator/pkg/mathutil"
	"github.com/mixmodel/spend-allocator/pkg/transform"
)

// Configuration holds all configuration for spend-allocator.
type Configuration struct {
	Pipeline PipelineConfig  `yaml:"pipeline,omitempty"`
	Channels []ChannelConfig `yaml:"channels"`
	Budget   BudgetConfig    `yaml:"budget"`
	Solver   SolverConfig    `yaml:"solver,omitempty"`
	Logging  LoggingConfig   `yaml:"logging,omitempty"`
	Output   OutputConfig    `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.Normalize()
	return &configuration, nil
}

// LoadConfigurationFromReader decodes configuration YAML from an in-memory
// source. A dedicated viper instance keeps concurrent callers isolated.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.Normalize()
	return &configuration, nil
}

// Normalize applies defaults to every section that supports them.
func (conf *Configuration) Normalize() {
	conf.Pipeline.Normalize()
	conf.Solver.Normalize()
}

// Validate checks the configuration for errors that prevent allocation.
func (conf *Configuration) Validate() error {
	if len(conf.Channels) == 0 {
		return fmt.Errorf("at least one channel must be configured")
	}

	if _, err := conf.Pipeline.Build(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(conf.Channels))
	for _, channel := range conf.Channels {
		if strings.TrimSpace(channel.Name) == "" {
			return fmt.Errorf("every channel requires a name")
		}
		if _, ok := seen[channel.Name]; ok {
			return fmt.Errorf("duplicate channel name %s", channel.Name)
		}
		seen[channel.Name] = struct{}{}

		if _, err := channel.Build(); err != nil {
			return err
		}
	}

	if !mathutil.IsFinite(conf.Budget.Total) || conf.Budget.Total < 0 {
		return fmt.Errorf("budget total must be a finite non-negative number, got %g", conf.Budget.Total)
	}

	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (conf *Configuration) ValidateConfiguration() []string {
	// Convert config structs to configprocessor format
	channels := make([]configprocessor.ChannelInfo, 0, len(conf.Channels))
	for _, channel := range conf.Channels {
		info := configprocessor.ChannelInfo{Name: channel.Name}
		if channel.Adstock.canonicalType() == transform.AdstockGeometric {
			info.Decay = channel.Adstock.Params["decay"]
		}
		if bounds, ok := conf.lookupBounds(channel.Name); ok {
			info.HasBounds = true
			info.MinSpend = bounds.Min
			info.MaxSpend = bounds.Max
		}
		channels = append(channels, info)
	}

	// Use the configprocessor for validation
	processor := configprocessor.NewProcessor()
	return processor.ValidateConfiguration(configprocessor.PlanInfo{
		TotalBudget: conf.Budget.Total,
		NumDays:     conf.Pipeline.NumDays,
		MaxLag:      conf.Pipeline.lagWindow(),
		Channels:    channels,
	})
}

// lookupBounds finds the bounds entry for a channel. Viper lowercases
// configuration keys, so the match is case-insensitive.
func (conf *Configuration) lookupBounds(channelName string) (BoundsConfig, bool) {
	for key, bounds := range conf.Budget.Bounds {
		if strings.EqualFold(key, channelName) {
			return bounds, true
		}
	}
	return BoundsConfig{}, false
}
