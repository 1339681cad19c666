// Package ui renders styled terminal output for the command layer.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FD75F")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00BFFF"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#005F87")).
			Padding(0, 1)

	credentialStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)
)

// Error prints an error message.
func Error(message string) {
	fmt.Println(errorStyle.Render("✗ " + message))
}

// Success prints a success message.
func Success(message string) {
	fmt.Println(successStyle.Render("✓ " + message))
}

// Warning prints a warning message.
func Warning(message string) {
	fmt.Println(warningStyle.Render("⚠ " + message))
}

// Info prints an info message.
func Info(message string) {
	fmt.Println(infoStyle.Render("• " + message))
}

// Header prints a styled section header.
func Header(message string) {
	fmt.Println(headerStyle.Render(message))
}

// Credential prints a one-time secret hand-off. The value appears only
// here; it is never logged or written to any file.
func Credential(label, value string) {
	fmt.Printf("%s %s\n", infoStyle.Render("• "+label+":"), credentialStyle.Render(value))
}

// Divider prints a horizontal rule.
func Divider() {
	fmt.Println(strings.Repeat("─", 64))
}
