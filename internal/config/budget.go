package config

// BudgetConfig holds the total budget and optional per-channel spend bounds.
type BudgetConfig struct {
	Total  float64                 `yaml:"total"`
	Bounds map[string]BoundsConfig `yaml:"bounds,omitempty"`
}

// BoundsConfig caps one channel's spend.
type BoundsConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}
