// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/mixmodel/spend-allocator/pkg/allocator"
)

// FindAdvisory finds an advisory by code in the advisories slice.
// Returns a pointer to the first match if found, nil otherwise.
func FindAdvisory(advisories []allocator.Advisory, code allocator.AdvisoryCode) *allocator.Advisory {
	for i := range advisories {
		if advisories[i].Code == code {
			return &advisories[i]
		}
	}
	return nil
}

// TotalSpend sums the per-channel spends in an allocation map.
func TotalSpend(allocation map[string]float64) float64 {
	var total float64
	for _, spend := range allocation {
		total += spend
	}
	return total
}
