// Package allocator implements budget allocation across marketing channels:
// it searches for the spend split that maximizes the total modeled response
// under a total-budget constraint, per-channel bounds, and optional custom
// constraints.
package allocator

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/mixmodel/spend-allocator/pkg/solver"
	"github.com/mixmodel/spend-allocator/pkg/transform"
)

// ChannelSpec couples a channel name with its response transform variants.
type ChannelSpec struct {
	Name       string
	Adstock    transform.Adstock
	Saturation transform.Saturation
}

// Config describes a budget optimizer: the pipeline shared by all channels,
// the per-channel transforms, and the solver options.
type Config struct {
	Pipeline transform.Pipeline
	Channels []ChannelSpec
	Solver   solver.Options
}

// channelModel is the frozen per-channel state: the carry-over weights are
// resolved once at construction so evaluations never re-dispatch on
// transform names.
type channelModel struct {
	name    string
	weights []float64
	sat     transform.Saturation
}

// BudgetOptimizer allocates a total budget across channels to maximize the
// modeled response. The channel order given at construction is frozen and
// carried through to results. The optimizer is immutable after construction
// and safe for concurrent use.
type BudgetOptimizer struct {
	logger   *zap.Logger
	pipeline transform.Pipeline
	channels []channelModel
	solver   solver.Options
}

// New constructs a BudgetOptimizer from its configuration. All transform
// parameters are validated and every channel's carry-over weight window is
// resolved here, so configuration problems surface before any allocation
// runs.
func New(logger *zap.Logger, cfg Config) (*BudgetOptimizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, configError("%v", err)
	}
	if len(cfg.Channels) == 0 {
		return nil, configError("at least one channel is required")
	}

	channels := make([]channelModel, 0, len(cfg.Channels))
	seen := make(map[string]bool, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		if ch.Name == "" {
			return nil, configError("channel %d has no name", i)
		}
		if seen[ch.Name] {
			return nil, configError("duplicate channel name %q", ch.Name)
		}
		seen[ch.Name] = true
		if ch.Adstock == nil {
			return nil, configError("channel %q has no adstock transform", ch.Name)
		}
		if ch.Saturation == nil {
			return nil, configError("channel %q has no saturation transform", ch.Name)
		}
		if err := ch.Saturation.Validate(); err != nil {
			return nil, configError("channel %q: %v", ch.Name, err)
		}
		weights, err := ch.Adstock.Weights(cfg.Pipeline.MaxLag)
		if err != nil {
			return nil, configError("channel %q: %v", ch.Name, err)
		}
		channels = append(channels, channelModel{name: ch.Name, weights: weights, sat: ch.Saturation})
	}

	logger.Debug("budget optimizer constructed",
		zap.Int("channels", len(channels)),
		zap.Int("numDays", cfg.Pipeline.NumDays),
		zap.Int("maxLag", cfg.Pipeline.MaxLag),
		zap.String("transformOrder", cfg.Pipeline.Order.String()),
		zap.String("op", "allocator.New"),
	)

	return &BudgetOptimizer{
		logger:   logger,
		pipeline: cfg.Pipeline,
		channels: channels,
		solver:   cfg.Solver,
	}, nil
}

// Channels returns the frozen channel order.
func (b *BudgetOptimizer) Channels() []string {
	names := make([]string, len(b.channels))
	for i, ch := range b.channels {
		names[i] = ch.name
	}
	return names
}

// Evaluate returns the total modeled response of a spend vector given in
// the optimizer's channel order.
func (b *BudgetOptimizer) Evaluate(spend []float64) (float64, error) {
	if len(spend) != len(b.channels) {
		return 0, configError("got %d spend values for %d channels", len(spend), len(b.channels))
	}
	return b.response(spend), nil
}

// response sums the transformed series of every channel at the given spend
// levels. Channels are independent: each one sees only its own spend.
func (b *BudgetOptimizer) response(spend []float64) float64 {
	var total float64
	for i, ch := range b.channels {
		series := b.pipeline.Run(spend[i], ch.weights, ch.sat)
		total += floats.Sum(series)
	}
	return total
}

// contributions computes each channel's share of the total response at the
// given spend levels.
func (b *BudgetOptimizer) contributions(spend []float64) map[string]float64 {
	out := make(map[string]float64, len(b.channels))
	for i, ch := range b.channels {
		series := b.pipeline.Run(spend[i], ch.weights, ch.sat)
		out[ch.name] = floats.Sum(series)
	}
	return out
}
