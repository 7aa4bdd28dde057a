package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	tint "github.com/lrstanley/bubbletint"

	"sideai/internal/settings"
)

// Theme registry for the application
var Theme *tint.Registry

// Common style elements used across all views
var (
	TitleStyle                   lipgloss.Style
	TitleWithPaddingStyle        lipgloss.Style
	ActiveLabelStyle             lipgloss.Style
	InactiveLabelStyle           lipgloss.Style
	errorStyle                   lipgloss.Style
	ErrorMessageStyle            lipgloss.Style
	statusBarStyle               lipgloss.Style
	helpStyle                    lipgloss.Style
	HelpTextSimpleStyle          lipgloss.Style
	ActiveButtonStyle            lipgloss.Style
	InactiveButtonStyle          lipgloss.Style
	UserMessageLabelStyle        lipgloss.Style
	AssistantMessageLabelStyle   lipgloss.Style
	UserMessageContentStyle      lipgloss.Style
	AssistantMessageContentStyle lipgloss.Style
	TimestampStyle               lipgloss.Style
	MetadataStyle                lipgloss.Style
	SpinnerStyle                 lipgloss.Style
	ViewportBorderStyle          lipgloss.Style
	ScrollIndicatorStyle         lipgloss.Style

	// Overlay styles (mini settings)
	OverlayBorderStyle       lipgloss.Style
	OverlayTitleStyle        lipgloss.Style
	OverlayMessageStyle      lipgloss.Style
	OverlayFieldLabelStyle   lipgloss.Style
	OverlaySelectedItemStyle lipgloss.Style
	OverlayNormalItemStyle   lipgloss.Style
)

func init() {
	tint.NewDefaultRegistry()
	ApplyTheme(settings.ThemeAuto)
}

// ApplyTheme switches the tint registry to match the configured theme
// and rebuilds every style from it. Auto and dark share the same dark
// tint; light uses a light-background tint.
func ApplyTheme(theme settings.Theme) {
	switch theme {
	case settings.ThemeLight:
		tint.SetTint(tint.TintTomorrow)
	default:
		tint.SetTint(tint.TintChalk)
	}
	Theme = tint.DefaultRegistry

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(tint.Purple())

	TitleWithPaddingStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(tint.Purple()).
		Padding(0, 1)

	ActiveLabelStyle = lipgloss.NewStyle().
		Foreground(tint.White()).
		Bold(true)

	InactiveLabelStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	errorStyle = lipgloss.NewStyle().
		Foreground(tint.Red()).
		Bold(true).
		Padding(1)

	ErrorMessageStyle = lipgloss.NewStyle().
		Foreground(tint.Red())

	statusBarStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(1, 0, 0, 1)

	HelpTextSimpleStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	ActiveButtonStyle = lipgloss.NewStyle().
		Foreground(tint.Bg()).
		Background(tint.Purple()).
		Bold(true)

	InactiveButtonStyle = lipgloss.NewStyle().
		Foreground(tint.Purple())

	UserMessageLabelStyle = lipgloss.NewStyle().
		Foreground(tint.White()).
		Bold(true)

	AssistantMessageLabelStyle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Bold(true)

	UserMessageContentStyle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 1).
		MarginBottom(1)

	AssistantMessageContentStyle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 1).
		MarginBottom(1)

	TimestampStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	MetadataStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(tint.Purple())

	ViewportBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.White()).
		Padding(0, 1)

	ScrollIndicatorStyle = lipgloss.NewStyle().
		Foreground(tint.White()).
		Bold(false)

	OverlayBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.Yellow()).
		Padding(1, 2)

	OverlayTitleStyle = lipgloss.NewStyle().
		Foreground(tint.Yellow()).
		Bold(true)

	OverlayMessageStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Align(lipgloss.Center)

	OverlayFieldLabelStyle = lipgloss.NewStyle().
		Foreground(tint.White()).
		Bold(true)

	OverlaySelectedItemStyle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Background(tint.BrightBlack()).
		Bold(true)

	OverlayNormalItemStyle = lipgloss.NewStyle().
		Foreground(tint.Fg())
}

// ConfigureListStyles configures all list styles to match the application theme
func ConfigureListStyles(l *list.Model) {
	l.Styles.Title = TitleStyle
	l.Styles.TitleBar = lipgloss.NewStyle().
		Padding(0, 0, 1, 0)

	l.Styles.PaginationStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	l.Styles.HelpStyle = helpStyle

	l.Styles.StatusBar = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 1, 0)

	l.Styles.DividerDot = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		SetString(" • ")
}

// CreateThemedDelegate creates a themed list delegate with application colors
func CreateThemedDelegate() list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	d.Styles.SelectedTitle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Bold(true).
		BorderLeft(true).
		BorderForeground(tint.Purple()).
		Padding(0, 0, 0, 1)

	d.Styles.SelectedDesc = lipgloss.NewStyle().
		Foreground(tint.Yellow()).
		BorderLeft(true).
		BorderForeground(tint.Purple()).
		Padding(0, 0, 0, 1)

	d.Styles.NormalTitle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 0, 0, 2)

	d.Styles.NormalDesc = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	d.Styles.DimmedTitle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	d.Styles.DimmedDesc = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	return d
}

// GetFieldLabelStyle returns the appropriate style for a field label based on whether it's active
func GetFieldLabelStyle(isActive bool) lipgloss.Style {
	if isActive {
		return ActiveLabelStyle
	}
	return InactiveLabelStyle
}

// RenderFieldLabel renders a field label with the appropriate style
func RenderFieldLabel(label string, isActive bool) string {
	return GetFieldLabelStyle(isActive).Render(label)
}

// RenderButton renders a button with the appropriate style
func RenderButton(label string, isActive bool) string {
	if isActive {
		return ActiveButtonStyle.Render(" " + label + " ")
	}
	return InactiveButtonStyle.Render("[ " + label + " ]")
}

// RenderError renders an error message
func RenderError(msg string) string {
	return ErrorMessageStyle.Render("  ✗ " + msg)
}

// RenderViewportWithBorder renders content with a viewport border style
func RenderViewportWithBorder(content string) string {
	return ViewportBorderStyle.Render(content)
}

// GetUserMessageContentStyle returns a style for user message content with given width
func GetUserMessageContentStyle(width int) lipgloss.Style {
	return UserMessageContentStyle.
		Width(width - 10).
		Align(lipgloss.Right)
}

// GetAssistantMessageContentStyle returns a style for assistant message content with given width
func GetAssistantMessageContentStyle(width int) lipgloss.Style {
	return AssistantMessageContentStyle.
		Width(width - 10)
}

// GetOverlayBorderStyle returns border style with dynamic width
func GetOverlayBorderStyle(width int) lipgloss.Style {
	return OverlayBorderStyle.Width(width - 4)
}

// GetOverlayItemStyle returns item style with dynamic width
func GetOverlayItemStyle(width int, selected bool) lipgloss.Style {
	baseWidth := width - 8
	if selected {
		return OverlaySelectedItemStyle.Width(baseWidth)
	}
	return OverlayNormalItemStyle.Width(baseWidth)
}
