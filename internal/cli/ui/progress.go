package ui

import (
	"fmt"
	"strings"
)

const barWidth = 30

// ProgressLine formats a text progress bar for inline terminal updates.
// Callers reprint it with a carriage return to animate in place.
func ProgressLine(label string, current, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%s %d rows", label, current)
	}
	percent := float64(current) / float64(total)
	if percent > 1 {
		percent = 1
	}
	filled := int(percent * barWidth)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	return fmt.Sprintf("%s [%s] %3.0f%% (%d/%d rows)", label, bar, percent*100, current, total)
}

// ClearLine erases the current terminal line before a fresh print.
func ClearLine() {
	fmt.Print("\r\033[K")
}
