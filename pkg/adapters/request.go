package adapters

import (
	"strings"

	"github.com/mixmodel/spend-allocator/internal/config"
	"github.com/mixmodel/spend-allocator/pkg/allocator"
)

// BuildRequest converts the budget section of a configuration into an
// allocation request. An absent bounds section stays nil so the allocator
// applies its defaults and reports that it did.
func BuildRequest(conf *config.Configuration) allocator.Request {
	req := allocator.Request{TotalBudget: conf.Budget.Total}

	if conf.Budget.Bounds != nil {
		bounds := make(map[string]allocator.Bounds, len(conf.Budget.Bounds))
		for key, b := range conf.Budget.Bounds {
			bounds[canonicalChannelName(conf, key)] = allocator.Bounds{Min: b.Min, Max: b.Max}
		}
		req.Bounds = bounds
	}

	return req
}

// canonicalChannelName maps a bounds key back to the configured channel name.
// Viper lowercases configuration keys, so the match is case-insensitive.
// Unrecognized keys pass through for the allocator to report.
func canonicalChannelName(conf *config.Configuration, key string) string {
	for _, channel := range conf.Channels {
		if strings.EqualFold(channel.Name, key) {
			return channel.Name
		}
	}
	return key
}
