// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output.
const (
	// ColorPrimary is purple - used for titles and top-level handles.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray - used for subtitles and tree connectors.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green - used for completed builds and links.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red - used for errors and failed builds.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber - used for warnings and dropped sources.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue - used for handles and build progress lines.
	ColorHighlight = lipgloss.Color("#3B82F6")

	// ColorVerbose is light gray - used for verbose output.
	ColorVerbose = lipgloss.Color("#9CA3AF")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// HandleStyle is for build handles.
	HandleStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// VerboseStyle is for verbose output and supplementary information.
	VerboseStyle = lipgloss.NewStyle().
			Foreground(ColorVerbose)

	// buildingLineStyle highlights the build tool's "BUILDING" lines.
	buildingLineStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorHighlight)

	// branchBoxStyle frames one rendered branch tree.
	branchBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)
)
