package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/hotscore/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	singleLine = "───────────────────────────────────────────────────────────"
	doubleLine = "═══════════════════════════════════════════════════════════"
)

// PrintHeader prints a titled block with sorted key-value fields
func PrintHeader(title string, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println()
	fmt.Println(doubleLine)
	fmt.Printf("  %s\n", title)
	fmt.Println(singleLine)
	for _, k := range keys {
		fmt.Printf("  %-10s : %s\n", k, fields[k])
	}
	fmt.Println(singleLine)
}

// PrintBatchLine prints one recompute batch
// Example: [Batch 3] processed=100 skipped=2 failed=0 last=MSFT more=true
func PrintBatchLine(n int, r *contracts.BatchResult) {
	last := "-"
	if r.LastProcessedID != nil {
		last = *r.LastProcessedID
	}
	fmt.Printf("[Batch %d] processed=%d skipped=%d failed=%d last=%s more=%t\n",
		n, r.Processed, r.Skipped, r.Failed, last, r.HasMore)
}

// PrintSweepSummary prints the totals of a sweep
func PrintSweepSummary(s contracts.SweepSummary) {
	fmt.Println()
	PrintSuccess(fmt.Sprintf("%d batch(es) in %.2fs: processed=%d skipped=%d failed=%d",
		s.Batches, s.Duration.Seconds(), s.Processed, s.Skipped, s.Failed))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}
