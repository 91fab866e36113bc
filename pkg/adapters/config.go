// Package adapters provides adapter implementations between different package interfaces.
package adapters

import (
	"go.uber.org/zap"

	"github.com/mixmodel/spend-allocator/internal/config"
	"github.com/mixmodel/spend-allocator/pkg/allocator"
)

// ChannelsToSpecs converts channel configurations to allocator channel specs
func ChannelsToSpecs(channels []config.ChannelConfig) ([]allocator.ChannelSpec, error) {
	if channels == nil {
		return nil, nil
	}

	specs := make([]allocator.ChannelSpec, 0, len(channels))
	for _, channel := range channels {
		spec, err := channel.Build()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// BuildOptimizer assembles the budget optimizer described by a loaded
// configuration. Transform parameters are resolved here, once, so a
// configuration problem surfaces before any allocation runs.
func BuildOptimizer(logger *zap.Logger, conf *config.Configuration) (*allocator.BudgetOptimizer, error) {
	pipeline, err := conf.Pipeline.Build()
	if err != nil {
		return nil, err
	}

	specs, err := ChannelsToSpecs(conf.Channels)
	if err != nil {
		return nil, err
	}

	return allocator.New(logger, allocator.Config{
		Pipeline: pipeline,
		Channels: specs,
		Solver:   conf.Solver.Options(),
	})
}
