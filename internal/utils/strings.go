package utils

import (
	"sort"
	"strings"
)

// ParseList splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
func ParseList(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// ParseSymbols parses a comma-separated symbol list into unique upper-case
// tickers, sorted ascending.
func ParseSymbols(s string) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, v := range ParseList(s) {
		symbol := strings.ToUpper(v)
		if seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
