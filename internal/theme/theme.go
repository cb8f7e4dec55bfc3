// Package theme provides the color palette for styled text output.
package theme

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/synapseinbox/internal/message"
)

// Theme defines the colors used by text output
type Theme struct {
	Base lipgloss.Color // Background

	// Text colors
	Text    lipgloss.Color // Primary text
	Subtext lipgloss.Color // Secondary text
	Overlay lipgloss.Color // Dimmed text

	// Semantic colors
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// Priority colors
	Low      lipgloss.Color
	Normal   lipgloss.Color
	High     lipgloss.Color
	Critical lipgloss.Color
}

// Catppuccin Mocha - the flagship dark theme
var CatppuccinMocha = Theme{
	Base:     lipgloss.Color("#1e1e2e"),
	Text:     lipgloss.Color("#cdd6f4"),
	Subtext:  lipgloss.Color("#a6adc8"),
	Overlay:  lipgloss.Color("#6c7086"),
	Primary:  lipgloss.Color("#89b4fa"), // Blue
	Success:  lipgloss.Color("#a6e3a1"), // Green
	Warning:  lipgloss.Color("#f9e2af"), // Yellow
	Error:    lipgloss.Color("#f38ba8"), // Red
	Info:     lipgloss.Color("#89dceb"), // Sky
	Low:      lipgloss.Color("#6c7086"),
	Normal:   lipgloss.Color("#cdd6f4"),
	High:     lipgloss.Color("#fab387"), // Peach
	Critical: lipgloss.Color("#f38ba8"),
}

// Catppuccin Latte - light theme
var CatppuccinLatte = Theme{
	Base:     lipgloss.Color("#eff1f5"),
	Text:     lipgloss.Color("#4c4f69"),
	Subtext:  lipgloss.Color("#6c6f85"),
	Overlay:  lipgloss.Color("#9ca0b0"),
	Primary:  lipgloss.Color("#1e66f5"),
	Success:  lipgloss.Color("#40a02b"),
	Warning:  lipgloss.Color("#df8e1d"),
	Error:    lipgloss.Color("#d20f39"),
	Info:     lipgloss.Color("#04a5e5"),
	Low:      lipgloss.Color("#9ca0b0"),
	Normal:   lipgloss.Color("#4c4f69"),
	High:     lipgloss.Color("#fe640b"),
	Critical: lipgloss.Color("#d20f39"),
}

// Plain uses the terminal's default colors everywhere.
var Plain = Theme{}

// IsPlain reports whether the theme carries no colors.
func (t Theme) IsPlain() bool {
	return t == Plain
}

// PriorityColor returns the color for a message priority.
func (t Theme) PriorityColor(p message.Priority) lipgloss.Color {
	switch p {
	case message.PriorityLow:
		return t.Low
	case message.PriorityHigh:
		return t.High
	case message.PriorityCritical:
		return t.Critical
	default:
		return t.Normal
	}
}

// NoColorEnabled returns true if color output should be disabled.
// Respects the NO_COLOR standard (https://no-color.org/):
// - If NO_COLOR exists in environment (any value), colors are disabled
// - SYNAPSE_NO_COLOR=1 also disables colors
// - SYNAPSE_NO_COLOR=0 forces colors ON (overrides NO_COLOR)
func NoColorEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("SYNAPSE_NO_COLOR"))) {
	case "0", "false", "no", "off":
		return false // Force colors on
	case "1", "true", "yes", "on":
		return true // Force colors off
	}

	_, noColorSet := os.LookupEnv("NO_COLOR")
	return noColorSet
}

// FromName returns a theme by name
func FromName(name string) Theme {
	// Always return Plain theme if NO_COLOR is enabled
	if NoColorEnabled() {
		return Plain
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "plain", "none", "no-color", "nocolor":
		return Plain
	case "latte", "light":
		return CatppuccinLatte
	case "mocha", "dark":
		return CatppuccinMocha
	default:
		return autoTheme()
	}
}

// Current returns the theme named by SYNAPSE_THEME, or fallback if unset.
func Current(fallback string) Theme {
	if name := os.Getenv("SYNAPSE_THEME"); name != "" {
		return FromName(name)
	}
	return FromName(fallback)
}

// detectDarkBackground inspects the terminal to determine if a dark background is in use.
// It is defined as a variable for testability.
var detectDarkBackground = func() bool {
	output := termenv.NewOutput(os.Stdout)
	return output.HasDarkBackground()
}

var (
	cachedAutoTheme Theme
	autoThemeOnce   sync.Once
)

// resetAutoTheme resets the cached auto theme for testing purposes.
var resetAutoTheme = func() {
	autoThemeOnce = sync.Once{}
	cachedAutoTheme = Theme{}
}

func autoTheme() Theme {
	autoThemeOnce.Do(func() {
		// Default to dark theme (Mocha) - safer for most terminals
		cachedAutoTheme = CatppuccinMocha

		defer func() {
			if recover() != nil {
				cachedAutoTheme = CatppuccinMocha
			}
		}()

		if !detectDarkBackground() {
			cachedAutoTheme = CatppuccinLatte
		}
	})
	return cachedAutoTheme
}
