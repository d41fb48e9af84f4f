package config

import (
	"fmt"
	"strings"
)

// FormatReport formats a Result as a human-readable report for
// `micromux check-config`.
func FormatReport(result *Result) string {
	if len(result.Errors) == 0 && len(result.Warnings) == 0 {
		return "configuration OK"
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%d error(s), %d warning(s)", len(result.Errors), len(result.Warnings)))

	if len(result.Errors) > 0 {
		lines = append(lines, "", "errors:")
		for _, d := range result.Errors {
			lines = append(lines, "  "+d.String())
		}
	}
	if len(result.Warnings) > 0 {
		lines = append(lines, "", "warnings:")
		for _, d := range result.Warnings {
			lines = append(lines, "  "+d.String())
		}
	}

	return strings.Join(lines, "\n")
}

// FormatSummary formats a one-line summary of a Result.
func FormatSummary(result *Result) string {
	if len(result.Errors) == 0 && len(result.Warnings) == 0 {
		return "OK"
	}
	return fmt.Sprintf("%d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
}
