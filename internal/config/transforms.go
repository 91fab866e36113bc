package config

import (
	"fmt"
	"strings"

	"github.com/mixmodel/spend-allocator/pkg/allocator"
	"github.com/mixmodel/spend-allocator/pkg/transform"
)

// TransformConfig selects one transform variant by type plus named parameters.
type TransformConfig struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params"`
}

// ChannelConfig holds one channel's name and transform pair.
type ChannelConfig struct {
	Name       string          `yaml:"name"`
	Adstock    TransformConfig `yaml:"adstock"`
	Saturation TransformConfig `yaml:"saturation"`
}

func (t *TransformConfig) canonicalType() string {
	return strings.ToLower(strings.TrimSpace(t.Type))
}

// BuildAdstock resolves the transform section into a carry-over transform.
func (t *TransformConfig) BuildAdstock() (transform.Adstock, error) {
	return transform.ParseAdstock(t.canonicalType(), t.Params)
}

// BuildSaturation resolves the transform section into a saturation transform.
func (t *TransformConfig) BuildSaturation() (transform.Saturation, error) {
	return transform.ParseSaturation(t.canonicalType(), t.Params)
}

// Build resolves the channel's transform pair into a channel spec.
func (c *ChannelConfig) Build() (allocator.ChannelSpec, error) {
	adstock, err := c.Adstock.BuildAdstock()
	if err != nil {
		return allocator.ChannelSpec{}, fmt.Errorf("channel %s adstock: %w", c.Name, err)
	}

	saturation, err := c.Saturation.BuildSaturation()
	if err != nil {
		return allocator.ChannelSpec{}, fmt.Errorf("channel %s saturation: %w", c.Name, err)
	}

	return allocator.ChannelSpec{
		Name:       c.Name,
		Adstock:    adstock,
		Saturation: saturation,
	}, nil
}
