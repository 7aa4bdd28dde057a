package markdown

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"sideai/internal/logging"
	"sideai/internal/settings"
)

// Renderer turns markdown message content into styled terminal text.
// A nil inner renderer means every Render call falls back to plain
// text, so construction failures degrade instead of crashing.
type Renderer struct {
	renderer *glamour.TermRenderer
}

func NewRenderer(theme settings.Theme, width int) *Renderer {
	return &Renderer{renderer: createTermRenderer(theme, width)}
}

func createTermRenderer(theme settings.Theme, width int) *glamour.TermRenderer {
	renderer, err := glamour.NewTermRenderer(
		styleOption(theme),
		glamour.WithWordWrap(width-10),
	)
	if err == nil {
		return renderer
	}

	logging.Error("Failed to create markdown renderer with themed style: %v, trying fallback", err)

	renderer, err = glamour.NewTermRenderer(
		glamour.WithWordWrap(width - 10),
	)
	if err == nil {
		return renderer
	}

	logging.Error("Failed to create markdown renderer with basic style: %v, using no style", err)

	renderer, err = glamour.NewTermRenderer()
	if err != nil {
		logging.Error("Critical: Failed to create basic markdown renderer: %v", err)
		return nil
	}

	return renderer
}

// styleOption maps the theme setting onto a glamour style. Auto lets
// glamour detect the terminal background.
func styleOption(theme settings.Theme) glamour.TermRendererOption {
	switch theme {
	case settings.ThemeLight:
		return glamour.WithStandardStyle("light")
	case settings.ThemeDark:
		return glamour.WithStandardStyle("dark")
	default:
		return glamour.WithAutoStyle()
	}
}

// Render converts markdown to terminal output, falling back to the
// raw content on any failure.
func (r *Renderer) Render(content string) (result string) {
	defer func() {
		if p := recover(); p != nil {
			logging.Error("Panic in markdown rendering: %v", p)
			result = content
		}
	}()

	if r == nil || r.renderer == nil {
		return content
	}
	if content == "" {
		return content
	}

	rendered, err := r.renderer.Render(content)
	if err != nil {
		logging.Error("Markdown rendering error: %v, falling back to plain text", err)
		return content
	}

	return strings.TrimRight(rendered, "\n")
}
