package config

import (
	"math"
	"strings"
	"testing"

	"github.com/mixmodel/spend-allocator/pkg/constants"
	"github.com/mixmodel/spend-allocator/pkg/transform"
)

func intPtr(v int) *int {
	return &v
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		expectErr  bool
	}{
		{
			name:       "Missing file",
			configPath: "nonexistent.yaml",
			expectErr:  true,
		},
		{
			name:       "Example configuration",
			configPath: "../../test/test_config.yaml",
			expectErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)

			if tt.expectErr {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationStructure(t *testing.T) {
	config, err := LoadConfiguration("../../test/test_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.Pipeline.NumDays != 30 {
		t.Errorf("Pipeline.NumDays = %d, expected 30", config.Pipeline.NumDays)
	}
	if config.Pipeline.MaxLag == nil || *config.Pipeline.MaxLag != 4 {
		t.Errorf("Pipeline.MaxLag = %v, expected 4", config.Pipeline.MaxLag)
	}
	if config.Pipeline.Order != transform.OrderNameAdstockFirst {
		t.Errorf("Pipeline.Order = %q, expected %q", config.Pipeline.Order, transform.OrderNameAdstockFirst)
	}

	if len(config.Channels) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(config.Channels))
	}
	wantNames := []string{"tv", "radio", "search"}
	for i, name := range wantNames {
		if config.Channels[i].Name != name {
			t.Errorf("channel %d name = %q, expected %q", i, config.Channels[i].Name, name)
		}
	}

	if config.Channels[0].Adstock.Type != "geometric" {
		t.Errorf("tv adstock type = %q, expected geometric", config.Channels[0].Adstock.Type)
	}
	if decay := config.Channels[0].Adstock.Params["decay"]; decay != 0.5 {
		t.Errorf("tv decay = %v, expected 0.5", decay)
	}

	if config.Budget.Total != 100 {
		t.Errorf("Budget.Total = %v, expected 100", config.Budget.Total)
	}
	if len(config.Budget.Bounds) != 3 {
		t.Errorf("expected 3 bounds entries, got %d", len(config.Budget.Bounds))
	}

	if config.Solver.MaxIterations != 1000 {
		t.Errorf("Solver.MaxIterations = %d, expected 1000", config.Solver.MaxIterations)
	}
	if config.Output.Format != "pretty" {
		t.Errorf("Output.Format = %q, expected pretty", config.Output.Format)
	}
}

func TestLoadConfigurationFromReader(t *testing.T) {
	yamlDoc := `
pipeline:
  numDays: 10
channels:
  - name: tv
    adstock:
      type: geometric
      params:
        decay: 0.4
    saturation:
      type: tanh
      params:
        b: 5
        c: 2
budget:
  total: 50
`
	config, err := LoadConfigurationFromReader(strings.NewReader(yamlDoc))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	if config.Pipeline.NumDays != 10 {
		t.Errorf("Pipeline.NumDays = %d, expected 10", config.Pipeline.NumDays)
	}
	// Defaults are applied on load.
	if config.Pipeline.MaxLag == nil || *config.Pipeline.MaxLag != constants.DefaultMaxLag {
		t.Errorf("Pipeline.MaxLag = %v, expected default %d", config.Pipeline.MaxLag, constants.DefaultMaxLag)
	}
	if config.Solver.Tolerance != constants.DefaultTolerance {
		t.Errorf("Solver.Tolerance = %v, expected default %v", config.Solver.Tolerance, constants.DefaultTolerance)
	}
	if config.Budget.Bounds != nil {
		t.Errorf("Budget.Bounds = %v, expected nil when omitted", config.Budget.Bounds)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigurationFromReaderInvalidYAML(t *testing.T) {
	_, err := LoadConfigurationFromReader(strings.NewReader("channels: [unclosed"))
	if err == nil {
		t.Errorf("expected error for malformed YAML")
	}
}

func TestConfigurationValidate(t *testing.T) {
	validChannel := ChannelConfig{
		Name:       "tv",
		Adstock:    TransformConfig{Type: "geometric", Params: map[string]float64{"decay": 0.5}},
		Saturation: TransformConfig{Type: "logistic", Params: map[string]float64{"lam": 0.1, "beta": 1}},
	}
	base := func() Configuration {
		return Configuration{
			Pipeline: PipelineConfig{NumDays: 30, MaxLag: intPtr(4)},
			Channels: []ChannelConfig{validChannel},
			Budget:   BudgetConfig{Total: 100},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Configuration)
		expectErr bool
	}{
		{
			name:      "Valid configuration",
			mutate:    func(c *Configuration) {},
			expectErr: false,
		},
		{
			name:      "No channels",
			mutate:    func(c *Configuration) { c.Channels = nil },
			expectErr: true,
		},
		{
			name:      "Unnamed channel",
			mutate:    func(c *Configuration) { c.Channels[0].Name = " " },
			expectErr: true,
		},
		{
			name: "Duplicate channel names",
			mutate: func(c *Configuration) {
				c.Channels = append(c.Channels, c.Channels[0])
			},
			expectErr: true,
		},
		{
			name:      "Unknown adstock type",
			mutate:    func(c *Configuration) { c.Channels[0].Adstock.Type = "exponential" },
			expectErr: true,
		},
		{
			name: "Missing adstock parameter",
			mutate: func(c *Configuration) {
				c.Channels[0].Adstock.Params = map[string]float64{}
			},
			expectErr: true,
		},
		{
			name:      "Unknown saturation type",
			mutate:    func(c *Configuration) { c.Channels[0].Saturation.Type = "sigmoid" },
			expectErr: true,
		},
		{
			name: "Saturation parameter out of domain",
			mutate: func(c *Configuration) {
				c.Channels[0].Saturation.Params = map[string]float64{"lam": -1, "beta": 1}
			},
			expectErr: true,
		},
		{
			name:      "Unknown pipeline order",
			mutate:    func(c *Configuration) { c.Pipeline.Order = "sideways" },
			expectErr: true,
		},
		{
			name:      "Negative horizon",
			mutate:    func(c *Configuration) { c.Pipeline.NumDays = -5 },
			expectErr: true,
		},
		{
			name:      "Negative lag window",
			mutate:    func(c *Configuration) { c.Pipeline.MaxLag = intPtr(-1) },
			expectErr: true,
		},
		{
			name:      "Negative budget",
			mutate:    func(c *Configuration) { c.Budget.Total = -10 },
			expectErr: true,
		},
		{
			name:      "NaN budget",
			mutate:    func(c *Configuration) { c.Budget.Total = math.NaN() },
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("Validate() expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	config := Configuration{}
	config.Normalize()

	if config.Pipeline.NumDays != constants.DefaultNumDays {
		t.Errorf("NumDays = %d, expected default %d", config.Pipeline.NumDays, constants.DefaultNumDays)
	}
	if config.Pipeline.MaxLag == nil || *config.Pipeline.MaxLag != constants.DefaultMaxLag {
		t.Errorf("MaxLag = %v, expected default %d", config.Pipeline.MaxLag, constants.DefaultMaxLag)
	}
	if config.Solver.Tolerance != constants.DefaultTolerance {
		t.Errorf("Tolerance = %v, expected default %v", config.Solver.Tolerance, constants.DefaultTolerance)
	}
	if config.Solver.ConstraintTolerance != constants.DefaultConstraintTolerance {
		t.Errorf("ConstraintTolerance = %v, expected default %v", config.Solver.ConstraintTolerance, constants.DefaultConstraintTolerance)
	}
	if config.Solver.MaxIterations != constants.DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, expected default %d", config.Solver.MaxIterations, constants.DefaultMaxIterations)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	config := Configuration{
		Pipeline: PipelineConfig{NumDays: 7, MaxLag: intPtr(0), Order: "Saturation_First"},
		Solver:   SolverConfig{Tolerance: 1e-6, ConstraintTolerance: 1e-5, MaxIterations: 50},
	}
	config.Normalize()

	if config.Pipeline.NumDays != 7 {
		t.Errorf("NumDays = %d, expected 7", config.Pipeline.NumDays)
	}
	if config.Pipeline.MaxLag == nil || *config.Pipeline.MaxLag != 0 {
		t.Errorf("MaxLag = %v, expected explicit 0 to survive", config.Pipeline.MaxLag)
	}
	if config.Pipeline.Order != transform.OrderNameSaturationFirst {
		t.Errorf("Order = %q, expected canonical %q", config.Pipeline.Order, transform.OrderNameSaturationFirst)
	}
	if config.Solver.Tolerance != 1e-6 {
		t.Errorf("Tolerance = %v, expected 1e-6", config.Solver.Tolerance)
	}
	if config.Solver.MaxIterations != 50 {
		t.Errorf("MaxIterations = %d, expected 50", config.Solver.MaxIterations)
	}
}

func TestPipelineConfigBuild(t *testing.T) {
	tests := []struct {
		name      string
		pipeline  PipelineConfig
		wantOrder transform.Order
		expectErr bool
	}{
		{
			name:      "Defaults",
			pipeline:  PipelineConfig{},
			wantOrder: transform.AdstockFirst,
		},
		{
			name:      "Explicit saturation first",
			pipeline:  PipelineConfig{NumDays: 10, MaxLag: intPtr(2), Order: "saturation_first"},
			wantOrder: transform.SaturationFirst,
		},
		{
			name:      "Unknown order",
			pipeline:  PipelineConfig{NumDays: 10, Order: "backwards"},
			expectErr: true,
		},
		{
			name:      "Negative lag window",
			pipeline:  PipelineConfig{NumDays: 10, MaxLag: intPtr(-3)},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline, err := tt.pipeline.Build()

			if tt.expectErr {
				if err == nil {
					t.Errorf("Build() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if pipeline.Order != tt.wantOrder {
				t.Errorf("Build() order = %v, expected %v", pipeline.Order, tt.wantOrder)
			}
			if pipeline.NumDays < 1 {
				t.Errorf("Build() NumDays = %d, expected at least 1", pipeline.NumDays)
			}
		})
	}
}

func TestValidateConfigurationWarnings(t *testing.T) {
	config := Configuration{
		Pipeline: PipelineConfig{NumDays: 30, MaxLag: intPtr(2)},
		Channels: []ChannelConfig{
			{
				Name:       "tv",
				Adstock:    TransformConfig{Type: "geometric", Params: map[string]float64{"decay": 0.9}},
				Saturation: TransformConfig{Type: "logistic", Params: map[string]float64{"lam": 0.1, "beta": 1}},
			},
		},
		Budget: BudgetConfig{Total: 0},
	}

	warnings := config.ValidateConfiguration()

	// Zero budget plus a decay too slow for the lag window.
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %d: %v", len(warnings), warnings)
	}
	for _, warning := range warnings {
		t.Logf("Warning: %s", warning)
	}
}

func TestValidateConfigurationCleanConfig(t *testing.T) {
	config, err := LoadConfiguration("../../test/test_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	warnings := config.ValidateConfiguration()
	if len(warnings) != 0 {
		t.Errorf("expected no warnings for the example config, got %d: %v", len(warnings), warnings)
	}
}
