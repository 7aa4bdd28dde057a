package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"sideai/internal/logging"
	"sideai/internal/openai"
	"sideai/internal/settings"
)

type miniSettingsField int

const (
	fieldMiniAPIKey miniSettingsField = iota
	fieldMiniAPIURL
	fieldMiniModel
	fieldMiniModelAdd
	fieldMiniVerifyButton
	fieldMiniSaveButton
)

// MiniSettingsModel is the quick-settings overlay foreground: just the
// connection essentials, without leaving the chat.
type MiniSettingsModel struct {
	settingsStore *settings.Store

	apiKeyInput   textinput.Model
	apiURLInput   textinput.Model
	modelAddInput textinput.Model
	models        []string
	modelIndex    int

	currentField miniSettingsField
	status       string
	statusIsErr  bool
	verifying    bool

	width  int
	height int
}

// MiniSettingsSaved is sent after the overlay persisted its values
type MiniSettingsSaved struct{}

// MiniSettingsClosed is sent when the overlay is dismissed without saving
type MiniSettingsClosed struct{}

type miniVerifyResult struct {
	Err error
}

func NewMiniSettingsModel(settingsStore *settings.Store) MiniSettingsModel {
	apiKeyInput := textinput.New()
	apiKeyInput.Placeholder = "sk-..."
	apiKeyInput.EchoMode = textinput.EchoPassword
	apiKeyInput.CharLimit = 200
	apiKeyInput.Width = 40

	apiURLInput := textinput.New()
	apiURLInput.Placeholder = "https://api.openai.com/v1"
	apiURLInput.CharLimit = 300
	apiURLInput.Width = 40

	modelAddInput := textinput.New()
	modelAddInput.Placeholder = "Add model..."
	modelAddInput.CharLimit = 100
	modelAddInput.Width = 40

	return MiniSettingsModel{
		settingsStore: settingsStore,
		apiKeyInput:   apiKeyInput,
		apiURLInput:   apiURLInput,
		modelAddInput: modelAddInput,
	}
}

func (m MiniSettingsModel) Init() tea.Cmd {
	return textinput.Blink
}

// Reload pulls current values from the settings store into the form.
func (m *MiniSettingsModel) Reload() {
	cfg, err := m.settingsStore.Load()
	if err != nil {
		logging.Error("Failed to load settings for overlay: %v", err)
		return
	}

	m.apiKeyInput.SetValue(cfg.APIKey)
	m.apiURLInput.SetValue(cfg.APIURL)
	m.modelAddInput.SetValue("")
	m.models = cfg.Models
	m.modelIndex = 0
	for i, model := range m.models {
		if model == cfg.ActiveModel {
			m.modelIndex = i
			break
		}
	}
	m.currentField = fieldMiniAPIKey
	m.status = ""
	m.verifying = false
	m.updateFocus()
}

func (m MiniSettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case miniVerifyResult:
		m.verifying = false
		if msg.Err != nil {
			m.status = msg.Err.Error()
			m.statusIsErr = true
		} else {
			m.status = "Verified ✓"
			m.statusIsErr = false
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return MiniSettingsClosed{} }

		case "tab", "down":
			m.nextField()
			return m, nil

		case "shift+tab", "up":
			m.prevField()
			return m, nil

		case "left", "right":
			if m.currentField == fieldMiniModel && len(m.models) > 0 {
				if msg.String() == "right" {
					m.modelIndex = (m.modelIndex + 1) % len(m.models)
				} else {
					m.modelIndex = (m.modelIndex - 1 + len(m.models)) % len(m.models)
				}
				return m, nil
			}

		case "enter":
			switch m.currentField {
			case fieldMiniModelAdd:
				m.addModel()
				return m, nil
			case fieldMiniVerifyButton:
				if !m.verifying {
					m.verifying = true
					m.status = ""
					return m, m.verify()
				}
				return m, nil
			case fieldMiniSaveButton:
				return m, m.save()
			default:
				m.nextField()
				return m, nil
			}
		}
	}

	switch m.currentField {
	case fieldMiniAPIKey:
		m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
	case fieldMiniAPIURL:
		m.apiURLInput, cmd = m.apiURLInput.Update(msg)
	case fieldMiniModelAdd:
		m.modelAddInput, cmd = m.modelAddInput.Update(msg)
	}
	return m, cmd
}

// addModel appends the typed model name to the list and selects it.
// A name that is already configured is just selected.
func (m *MiniSettingsModel) addModel() {
	name := strings.TrimSpace(m.modelAddInput.Value())
	if name == "" {
		return
	}
	for i, model := range m.models {
		if model == name {
			m.modelIndex = i
			m.modelAddInput.SetValue("")
			return
		}
	}
	m.models = append(m.models, name)
	m.modelIndex = len(m.models) - 1
	m.modelAddInput.SetValue("")
}

func (m MiniSettingsModel) View() string {
	overlayWidth := m.width / 2
	if overlayWidth < 50 {
		overlayWidth = 50
	}

	var content strings.Builder
	content.WriteString(OverlayTitleStyle.Render("Quick Settings"))
	content.WriteString("\n\n")

	content.WriteString(RenderFieldLabel("API Key:", m.currentField == fieldMiniAPIKey) + "\n")
	content.WriteString(m.apiKeyInput.View() + "\n\n")

	content.WriteString(RenderFieldLabel("API URL:", m.currentField == fieldMiniAPIURL) + "\n")
	content.WriteString(m.apiURLInput.View() + "\n\n")

	content.WriteString(RenderFieldLabel("Model:", m.currentField == fieldMiniModel) + " ")
	if len(m.models) == 0 {
		content.WriteString(OverlayMessageStyle.Render("Please add a model"))
	} else {
		content.WriteString(GetOverlayItemStyle(overlayWidth, m.currentField == fieldMiniModel).
			Render("◀ " + m.models[m.modelIndex] + " ▶"))
	}
	content.WriteString("\n\n")

	content.WriteString(RenderFieldLabel("Add model:", m.currentField == fieldMiniModelAdd) + "\n")
	content.WriteString(m.modelAddInput.View() + "\n\n")

	verifyLabel := "Verify"
	if m.verifying {
		verifyLabel = "Verifying..."
	}
	content.WriteString(RenderButton(verifyLabel, m.currentField == fieldMiniVerifyButton))
	content.WriteString("  ")
	content.WriteString(RenderButton("Save", m.currentField == fieldMiniSaveButton))
	content.WriteString("\n")

	if m.status != "" {
		content.WriteString("\n")
		if m.statusIsErr {
			content.WriteString(RenderError(m.status))
		} else {
			content.WriteString(HelpTextSimpleStyle.Render("  " + m.status))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(HelpTextSimpleStyle.Render("Tab: Next • ←/→: Model • Enter: Select/Add • Esc: Close"))

	return GetOverlayBorderStyle(overlayWidth).Render(content.String())
}

func (m *MiniSettingsModel) nextField() {
	m.currentField++
	if m.currentField > fieldMiniSaveButton {
		m.currentField = fieldMiniAPIKey
	}
	m.updateFocus()
}

func (m *MiniSettingsModel) prevField() {
	m.currentField--
	if m.currentField < fieldMiniAPIKey {
		m.currentField = fieldMiniSaveButton
	}
	m.updateFocus()
}

func (m *MiniSettingsModel) updateFocus() {
	m.apiKeyInput.Blur()
	m.apiURLInput.Blur()
	m.modelAddInput.Blur()

	switch m.currentField {
	case fieldMiniAPIKey:
		m.apiKeyInput.Focus()
	case fieldMiniAPIURL:
		m.apiURLInput.Focus()
	case fieldMiniModelAdd:
		m.modelAddInput.Focus()
	}
}

// verify issues the one-token ping against the values currently in
// the form, not the persisted ones.
func (m MiniSettingsModel) verify() tea.Cmd {
	apiURL := settings.NormalizeAPIURL(m.apiURLInput.Value())
	apiKey := strings.TrimSpace(m.apiKeyInput.Value())
	model := ""
	if len(m.models) > 0 {
		model = m.models[m.modelIndex]
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client := openai.NewClient(apiURL, apiKey)
		return miniVerifyResult{Err: client.Verify(ctx, model)}
	}
}

func (m MiniSettingsModel) save() tea.Cmd {
	values := map[string]string{
		settings.KeyAPIKey: strings.TrimSpace(m.apiKeyInput.Value()),
		settings.KeyAPIURL: strings.TrimSpace(m.apiURLInput.Value()),
		settings.KeyModels: strings.Join(m.models, ", "),
	}
	if len(m.models) > 0 {
		values[settings.KeyActiveModel] = m.models[m.modelIndex]
	}

	return func() tea.Msg {
		if err := m.settingsStore.Save(values); err != nil {
			return miniVerifyResult{Err: err}
		}
		return MiniSettingsSaved{}
	}
}

// MiniSettingsOverlayModel wraps the quick settings with the overlay library
type MiniSettingsOverlayModel struct {
	miniSettings MiniSettingsModel
	visible      bool
}

func NewMiniSettingsOverlayModel(settingsStore *settings.Store) MiniSettingsOverlayModel {
	return MiniSettingsOverlayModel{
		miniSettings: NewMiniSettingsModel(settingsStore),
	}
}

func (m *MiniSettingsOverlayModel) Open() {
	m.miniSettings.Reload()
	m.visible = true
}

func (m *MiniSettingsOverlayModel) Hide() {
	m.visible = false
}

func (m *MiniSettingsOverlayModel) IsVisible() bool {
	return m.visible
}

func (m *MiniSettingsOverlayModel) UpdateSize(width, height int) {
	m.miniSettings.width = width
	m.miniSettings.height = height
}

func (m *MiniSettingsOverlayModel) UpdateMiniSettings(msg tea.Msg) tea.Cmd {
	if !m.visible {
		return nil
	}

	var cmd tea.Cmd
	var mdl tea.Model
	mdl, cmd = m.miniSettings.Update(msg)
	m.miniSettings = mdl.(MiniSettingsModel)
	return cmd
}

func (m MiniSettingsOverlayModel) RenderOverlay(backgroundView string) string {
	if !m.visible {
		return backgroundView
	}

	overlayModel := overlay.New(
		m.miniSettings,
		&staticViewModel{content: backgroundView},
		overlay.Center,
		overlay.Top,
		0,
		1,
	)

	return overlayModel.View()
}

// staticViewModel is a simple model that renders static content (background)
type staticViewModel struct {
	content string
}

func (m staticViewModel) Init() tea.Cmd {
	return nil
}

func (m staticViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m staticViewModel) View() string {
	return m.content
}
