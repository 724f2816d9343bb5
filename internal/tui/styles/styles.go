package styles

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	SwitchRed = lipgloss.Color("#D2232A")
	Amber     = lipgloss.Color("#E5A00D")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(SwitchRed)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Amber)
)

// Progress bar gradient endpoints
const (
	ProgressStart = "#E5A00D"
	ProgressEnd   = "#D2232A"
)

// Spinner style
var (
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(SwitchRed)
)

// SpinnerFrames are the braille frames used wherever a spinner is drawn by hand
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Status marks
const (
	DoneMark    = "✓"
	FailedMark  = "✗"
	SkippedMark = "–"
)
