package testutil

import (
	"math"
	"testing"

	"github.com/mixmodel/spend-allocator/pkg/allocator"
)

func TestFindAdvisory(t *testing.T) {
	// Create test data
	advisories := []allocator.Advisory{
		{
			Code:    allocator.AdvisoryDefaultBounds,
			Message: "no budget bounds provided",
		},
		{
			Code:    allocator.AdvisoryDefaultConstraint,
			Message: "no custom constraints provided",
		},
		{
			Code:    allocator.AdvisoryUnknownChannel,
			Message: "bounds provided for unknown channel \"print\" are ignored",
		},
	}

	tests := []struct {
		name            string
		searchCode      allocator.AdvisoryCode
		expectFound     bool
		expectedMessage string
	}{
		{
			name:            "Find default bounds advisory",
			searchCode:      allocator.AdvisoryDefaultBounds,
			expectFound:     true,
			expectedMessage: "no budget bounds provided",
		},
		{
			name:            "Find default constraint advisory",
			searchCode:      allocator.AdvisoryDefaultConstraint,
			expectFound:     true,
			expectedMessage: "no custom constraints provided",
		},
		{
			name:            "Find unknown channel advisory",
			searchCode:      allocator.AdvisoryUnknownChannel,
			expectFound:     true,
			expectedMessage: "bounds provided for unknown channel \"print\" are ignored",
		},
		{
			name:        "Search for absent code",
			searchCode:  allocator.AdvisoryCode("no_such_code"),
			expectFound: false,
		},
		{
			name:        "Empty search code",
			searchCode:  allocator.AdvisoryCode(""),
			expectFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindAdvisory(advisories, tt.searchCode)

			if tt.expectFound {
				if result == nil {
					t.Errorf("FindAdvisory() expected to find code '%s' but got nil", tt.searchCode)
					return
				}
				if result.Code != tt.searchCode {
					t.Errorf("FindAdvisory() returned advisory with code '%s', expected '%s'",
						result.Code, tt.searchCode)
				}
				if result.Message != tt.expectedMessage {
					t.Errorf("FindAdvisory() returned message %q, expected %q",
						result.Message, tt.expectedMessage)
				}
			} else {
				if result != nil {
					t.Errorf("FindAdvisory() expected nil for code '%s' but got advisory with code '%s'",
						tt.searchCode, result.Code)
				}
			}
		})
	}
}

func TestFindAdvisoryEmptyAdvisories(t *testing.T) {
	// Test with empty advisories slice
	advisories := []allocator.Advisory{}

	result := FindAdvisory(advisories, allocator.AdvisoryDefaultBounds)
	if result != nil {
		t.Errorf("FindAdvisory() with empty advisories should return nil, got %v", result)
	}
}

func TestFindAdvisoryNilAdvisories(t *testing.T) {
	// Test with nil advisories slice
	var advisories []allocator.Advisory = nil

	result := FindAdvisory(advisories, allocator.AdvisoryDefaultConstraint)
	if result != nil {
		t.Errorf("FindAdvisory() with nil advisories should return nil, got %v", result)
	}
}

func TestFindAdvisoryReturnsPointer(t *testing.T) {
	// Test that FindAdvisory returns a pointer to the actual element
	advisories := []allocator.Advisory{
		{
			Code:    allocator.AdvisoryDefaultBounds,
			Message: "original message",
		},
	}

	found := FindAdvisory(advisories, allocator.AdvisoryDefaultBounds)
	if found == nil {
		t.Fatalf("FindAdvisory() returned nil")
	}

	// Verify we get the same pointer
	if &advisories[0] != found {
		t.Errorf("FindAdvisory() should return pointer to original element")
	}

	// Modify through the returned pointer and verify original is modified
	found.Message = "modified message"

	if advisories[0].Message != "modified message" {
		t.Errorf("Modifying through returned pointer should modify original")
	}
}

func TestFindAdvisoryWithDuplicateCodes(t *testing.T) {
	// Test behavior with duplicate codes (should return first match)
	advisories := []allocator.Advisory{
		{
			Code:    allocator.AdvisoryUnknownChannel,
			Message: "bounds provided for unknown channel \"ooh\" are ignored",
		},
		{
			Code:    allocator.AdvisoryUnknownChannel,
			Message: "bounds provided for unknown channel \"print\" are ignored",
		},
	}

	found := FindAdvisory(advisories, allocator.AdvisoryUnknownChannel)
	if found == nil {
		t.Fatalf("FindAdvisory() returned nil")
	}

	// Should return the first match
	if found.Message != "bounds provided for unknown channel \"ooh\" are ignored" {
		t.Errorf("FindAdvisory() should return first match, got message %q", found.Message)
	}

	// Verify it's actually the first element
	if &advisories[0] != found {
		t.Errorf("FindAdvisory() should return pointer to first matching element")
	}
}

func TestTotalSpend(t *testing.T) {
	tests := []struct {
		name       string
		allocation map[string]float64
		expected   float64
	}{
		{
			name: "Three channels",
			allocation: map[string]float64{
				"tv":     52.5,
				"radio":  17.5,
				"search": 30.0,
			},
			expected: 100.0,
		},
		{
			name: "Single channel",
			allocation: map[string]float64{
				"tv": 42.0,
			},
			expected: 42.0,
		},
		{
			name: "Zero spends",
			allocation: map[string]float64{
				"tv":    0,
				"radio": 0,
			},
			expected: 0,
		},
		{
			name: "Fractional spends",
			allocation: map[string]float64{
				"tv":    0.1,
				"radio": 0.2,
			},
			expected: 0.3,
		},
		{
			name:       "Empty allocation",
			allocation: map[string]float64{},
			expected:   0,
		},
		{
			name:       "Nil allocation",
			allocation: nil,
			expected:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := TotalSpend(tt.allocation)
			if math.Abs(total-tt.expected) > 1e-9 {
				t.Errorf("TotalSpend() = %v, expected %v", total, tt.expected)
			}
		})
	}
}
