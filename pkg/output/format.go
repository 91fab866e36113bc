// Package output provides utilities for formatting and displaying allocation results.
package output

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mixmodel/spend-allocator/pkg/allocator"
	"github.com/mixmodel/spend-allocator/pkg/mathutil"
)

// PrettyFormat outputs a human-readable rather than machine-readable table.
// Rows follow the configured channel order.
func PrettyFormat(result *allocator.Result) {
	p := message.NewPrinter(language.English)

	fmt.Printf("--- Optimal budget allocation ---\n")
	fmt.Printf("Channel         | Spend         | Share  | Response\n")
	fmt.Printf("_______         | _____         | _____  | ________\n")

	total := totalSpend(result)
	for _, name := range result.Channels {
		spend := result.Allocation[name]
		share := mathutil.CalculatePercentage(spend, total)
		_, _ = p.Printf("%-15s | $%.2f | %5.1f%% | %.4f\n", name, spend, share, result.Contributions[name])
	}

	_, _ = p.Printf("\nTotal spend: $%.2f\n", total)
	_, _ = p.Printf("Total response: %.4f\n", result.TotalResponse)
	fmt.Printf("Solver iterations: %d\n", result.Iterations)

	if len(result.Advisories) > 0 {
		fmt.Printf("\n")
		for _, advisory := range result.Advisories {
			fmt.Printf("Advisory (%s): %s\n", advisory.Code, advisory.Message)
		}
	}
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(result *allocator.Result) {
	fmt.Print(CsvString(result))
}

// CsvString renders the allocation as CSV, one row per channel in the
// configured order plus a trailing total row.
func CsvString(result *allocator.Result) string {
	var b strings.Builder

	b.WriteString(`"channel","spend","share","response"`)
	b.WriteString("\n")

	total := totalSpend(result)
	for _, name := range result.Channels {
		spend := result.Allocation[name]
		share := mathutil.CalculatePercentage(spend, total)
		fmt.Fprintf(&b, `"%s","%.2f","%.1f","%.6f"`, name, spend, share, result.Contributions[name])
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `"total","%.2f","%.1f","%.6f"`, total,
		mathutil.CalculatePercentage(total, total), result.TotalResponse)
	b.WriteString("\n")

	return b.String()
}

func totalSpend(result *allocator.Result) float64 {
	var total float64
	for _, name := range result.Channels {
		total += result.Allocation[name]
	}
	return total
}
