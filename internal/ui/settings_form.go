package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"sideai/internal/logging"
	"sideai/internal/openai"
	"sideai/internal/settings"
)

type settingsField int

const (
	fieldAPIKey settingsField = iota
	fieldAPIURL
	fieldModels
	fieldActiveModel
	fieldTemperature
	fieldMaxTokens
	fieldTopP
	fieldPresencePenalty
	fieldFrequencyPenalty
	fieldStream
	fieldRenderUserMarkdown
	fieldVerifyButton
	fieldSaveButton
)

// SettingsFormModel is the full settings screen. Optional generation
// parameters left blank stay unset and are omitted from requests.
type SettingsFormModel struct {
	settingsStore *settings.Store

	apiKeyInput           textinput.Model
	apiURLInput           textinput.Model
	modelsInput           textinput.Model
	activeModelIndex      int
	temperatureInput      textinput.Model
	maxTokensInput        textinput.Model
	topPInput             textinput.Model
	presencePenaltyInput  textinput.Model
	frequencyPenaltyInput textinput.Model
	streamEnabled         bool
	renderUserMarkdown    bool

	currentField settingsField

	temperatureError string
	maxTokensError   string
	topPError        string
	penaltyError     string

	status      string
	statusIsErr bool
	verifying   bool

	width  int
	height int
}

type SettingsSaved struct{}

type settingsVerifyResult struct {
	Err error
}

func newFormInput(placeholder string, limit, width int) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = limit
	input.Width = width
	return input
}

func NewSettingsFormModel(settingsStore *settings.Store, width, height int) SettingsFormModel {
	m := SettingsFormModel{
		settingsStore:         settingsStore,
		apiKeyInput:           newFormInput("sk-...", 200, 50),
		apiURLInput:           newFormInput("https://api.openai.com/v1", 300, 50),
		modelsInput:           newFormInput("gpt-4o, gpt-4o-mini", 500, 50),
		temperatureInput:      newFormInput("unset", 6, 10),
		maxTokensInput:        newFormInput("unset", 8, 10),
		topPInput:             newFormInput("unset", 6, 10),
		presencePenaltyInput:  newFormInput("unset", 6, 10),
		frequencyPenaltyInput: newFormInput("unset", 6, 10),
		width:                 width,
		height:                height,
	}
	m.apiKeyInput.EchoMode = textinput.EchoPassword
	m.apiKeyInput.Focus()
	m.load()
	return m
}

// load fills the form from the persisted settings.
func (m *SettingsFormModel) load() {
	cfg, err := m.settingsStore.Load()
	if err != nil {
		logging.Error("Failed to load settings for form: %v", err)
		return
	}

	m.apiKeyInput.SetValue(cfg.APIKey)
	m.apiURLInput.SetValue(cfg.APIURL)
	m.modelsInput.SetValue(strings.Join(cfg.Models, ", "))
	m.temperatureInput.SetValue(formatFloat(cfg.Temperature))
	m.maxTokensInput.SetValue(formatInt(cfg.MaxTokens))
	m.topPInput.SetValue(formatFloat(cfg.TopP))
	m.presencePenaltyInput.SetValue(formatFloat(cfg.PresencePenalty))
	m.frequencyPenaltyInput.SetValue(formatFloat(cfg.FrequencyPenalty))
	m.streamEnabled = cfg.Stream
	m.renderUserMarkdown = cfg.RenderUserMarkdown

	m.activeModelIndex = 0
	for i, model := range cfg.Models {
		if model == cfg.ActiveModel {
			m.activeModelIndex = i
			break
		}
	}
}

func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func formatInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func (m SettingsFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SettingsFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case settingsVerifyResult:
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
		case "ctrl+x":
			return m, tea.Quit

		case "esc":
			return m, func() tea.Msg { return BackToChat{} }

		case "tab", "shift+tab":
			if msg.String() == "tab" {
				m.nextField()
			} else {
				m.prevField()
			}
			return m, nil

		case "left", "right":
			if m.currentField == fieldActiveModel {
				models := m.parsedModels()
				if len(models) > 0 {
					if msg.String() == "right" {
						m.activeModelIndex = (m.activeModelIndex + 1) % len(models)
					} else {
						m.activeModelIndex = (m.activeModelIndex - 1 + len(models)) % len(models)
					}
				}
				return m, nil
			}

		case " ":
			switch m.currentField {
			case fieldStream:
				m.streamEnabled = !m.streamEnabled
				return m, nil
			case fieldRenderUserMarkdown:
				m.renderUserMarkdown = !m.renderUserMarkdown
				return m, nil
			}

		case "enter":
			switch m.currentField {
			case fieldVerifyButton:
				if !m.verifying {
					m.verifying = true
					m.status = ""
					return m, m.verify()
				}
				return m, nil
			case fieldSaveButton:
				return m, m.save()
			default:
				m.nextField()
				return m, nil
			}
		}
	}

	switch m.currentField {
	case fieldAPIKey:
		var cmd tea.Cmd
		m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
		cmds = append(cmds, cmd)
	case fieldAPIURL:
		var cmd tea.Cmd
		m.apiURLInput, cmd = m.apiURLInput.Update(msg)
		cmds = append(cmds, cmd)
	case fieldModels:
		var cmd tea.Cmd
		m.modelsInput, cmd = m.modelsInput.Update(msg)
		cmds = append(cmds, cmd)
	case fieldTemperature:
		var cmd tea.Cmd
		m.temperatureInput, cmd = m.temperatureInput.Update(msg)
		cmds = append(cmds, cmd)
		m.temperatureError = ""
	case fieldMaxTokens:
		var cmd tea.Cmd
		m.maxTokensInput, cmd = m.maxTokensInput.Update(msg)
		cmds = append(cmds, cmd)
		m.maxTokensError = ""
	case fieldTopP:
		var cmd tea.Cmd
		m.topPInput, cmd = m.topPInput.Update(msg)
		cmds = append(cmds, cmd)
		m.topPError = ""
	case fieldPresencePenalty:
		var cmd tea.Cmd
		m.presencePenaltyInput, cmd = m.presencePenaltyInput.Update(msg)
		cmds = append(cmds, cmd)
		m.penaltyError = ""
	case fieldFrequencyPenalty:
		var cmd tea.Cmd
		m.frequencyPenaltyInput, cmd = m.frequencyPenaltyInput.Update(msg)
		cmds = append(cmds, cmd)
		m.penaltyError = ""
	}

	return m, tea.Batch(cmds...)
}

func (m SettingsFormModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Settings") + "\n\n")

	b.WriteString(RenderFieldLabel("API Key:", m.currentField == fieldAPIKey) + "\n")
	b.WriteString(m.apiKeyInput.View() + "\n\n")

	b.WriteString(RenderFieldLabel("API URL:", m.currentField == fieldAPIURL) + "\n")
	b.WriteString(m.apiURLInput.View() + "\n\n")

	b.WriteString(RenderFieldLabel("Models (comma separated):", m.currentField == fieldModels) + "\n")
	b.WriteString(m.modelsInput.View() + "\n\n")

	b.WriteString(RenderFieldLabel("Active Model:", m.currentField == fieldActiveModel) + " ")
	models := m.parsedModels()
	if len(models) == 0 {
		b.WriteString(MetadataStyle.Render("none configured"))
	} else {
		index := m.activeModelIndex
		if index >= len(models) {
			index = 0
		}
		b.WriteString(GetOverlayItemStyle(m.width/2, m.currentField == fieldActiveModel).
			Render("◀ " + models[index] + " ▶"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderNumberField("Temperature (0-2):", m.temperatureInput, fieldTemperature, m.temperatureError))
	b.WriteString(m.renderNumberField("Max Tokens:", m.maxTokensInput, fieldMaxTokens, m.maxTokensError))
	b.WriteString(m.renderNumberField("Top P (0-1):", m.topPInput, fieldTopP, m.topPError))
	b.WriteString(m.renderNumberField("Presence Penalty (-2..2):", m.presencePenaltyInput, fieldPresencePenalty, m.penaltyError))
	b.WriteString(m.renderNumberField("Frequency Penalty (-2..2):", m.frequencyPenaltyInput, fieldFrequencyPenalty, ""))

	b.WriteString(RenderFieldLabel("Stream responses:", m.currentField == fieldStream) + " " + checkbox(m.streamEnabled) + "\n\n")
	b.WriteString(RenderFieldLabel("Render user markdown:", m.currentField == fieldRenderUserMarkdown) + " " + checkbox(m.renderUserMarkdown) + "\n\n")

	verifyLabel := "Verify"
	if m.verifying {
		verifyLabel = "Verifying..."
	}
	b.WriteString(RenderButton(verifyLabel, m.currentField == fieldVerifyButton))
	b.WriteString("  ")
	b.WriteString(RenderButton("Save", m.currentField == fieldSaveButton))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString("\n")
		if m.statusIsErr {
			b.WriteString(RenderError(m.status))
		} else {
			b.WriteString(HelpTextSimpleStyle.Render("  " + m.status))
		}
		b.WriteString("\n")
	}

	helpText := "Tab/Shift+Tab: Navigate • ←/→: Model • Space: Toggle • Enter: Next/Save • Esc: Back • Ctrl+X: Exit"
	b.WriteString(helpStyle.Render(helpText))

	return b.String()
}

func (m SettingsFormModel) renderNumberField(label string, input textinput.Model, field settingsField, fieldError string) string {
	var b strings.Builder
	b.WriteString(RenderFieldLabel(label, m.currentField == field) + "\n")
	b.WriteString(input.View() + "\n")
	if fieldError != "" {
		b.WriteString(RenderError(fieldError) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func checkbox(checked bool) string {
	if checked {
		return "[✓]"
	}
	return "[ ]"
}

func (m *SettingsFormModel) nextField() {
	m.currentField++
	if m.currentField > fieldSaveButton {
		m.currentField = fieldAPIKey
	}
	m.updateFocus()
}

func (m *SettingsFormModel) prevField() {
	m.currentField--
	if m.currentField < fieldAPIKey {
		m.currentField = fieldSaveButton
	}
	m.updateFocus()
}

func (m *SettingsFormModel) updateFocus() {
	m.apiKeyInput.Blur()
	m.apiURLInput.Blur()
	m.modelsInput.Blur()
	m.temperatureInput.Blur()
	m.maxTokensInput.Blur()
	m.topPInput.Blur()
	m.presencePenaltyInput.Blur()
	m.frequencyPenaltyInput.Blur()

	switch m.currentField {
	case fieldAPIKey:
		m.apiKeyInput.Focus()
	case fieldAPIURL:
		m.apiURLInput.Focus()
	case fieldModels:
		m.modelsInput.Focus()
	case fieldTemperature:
		m.temperatureInput.Focus()
	case fieldMaxTokens:
		m.maxTokensInput.Focus()
	case fieldTopP:
		m.topPInput.Focus()
	case fieldPresencePenalty:
		m.presencePenaltyInput.Focus()
	case fieldFrequencyPenalty:
		m.frequencyPenaltyInput.Focus()
	}
}

func (m SettingsFormModel) parsedModels() []string {
	return settings.ParseModels(m.modelsInput.Value(), "")
}

// validate checks the numeric fields. Blank means unset and is always
// valid.
func (m *SettingsFormModel) validate() bool {
	ok := true

	if err := validateFloat(m.temperatureInput.Value(), 0, 2); err != "" {
		m.temperatureError = err
		ok = false
	}
	if value := strings.TrimSpace(m.maxTokensInput.Value()); value != "" {
		if tokens, err := strconv.Atoi(value); err != nil || tokens <= 0 {
			m.maxTokensError = "Max tokens must be a positive integer"
			ok = false
		}
	}
	if err := validateFloat(m.topPInput.Value(), 0, 1); err != "" {
		m.topPError = err
		ok = false
	}
	if err := validateFloat(m.presencePenaltyInput.Value(), -2, 2); err != "" {
		m.penaltyError = err
		ok = false
	}
	if err := validateFloat(m.frequencyPenaltyInput.Value(), -2, 2); err != "" {
		m.penaltyError = err
		ok = false
	}

	return ok
}

func validateFloat(value string, min, max float64) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "Must be a number"
	}
	if parsed < min || parsed > max {
		return fmt.Sprintf("Must be between %g and %g", min, max)
	}
	return ""
}

func (m SettingsFormModel) verify() tea.Cmd {
	apiURL := settings.NormalizeAPIURL(m.apiURLInput.Value())
	apiKey := strings.TrimSpace(m.apiKeyInput.Value())
	model := ""
	if models := m.parsedModels(); len(models) > 0 {
		index := m.activeModelIndex
		if index >= len(models) {
			index = 0
		}
		model = models[index]
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client := openai.NewClient(apiURL, apiKey)
		return settingsVerifyResult{Err: client.Verify(ctx, model)}
	}
}

func (m *SettingsFormModel) save() tea.Cmd {
	if !m.validate() {
		return nil
	}

	values := map[string]string{
		settings.KeyAPIKey:             strings.TrimSpace(m.apiKeyInput.Value()),
		settings.KeyAPIURL:             strings.TrimSpace(m.apiURLInput.Value()),
		settings.KeyModels:             strings.TrimSpace(m.modelsInput.Value()),
		settings.KeyTemperature:        strings.TrimSpace(m.temperatureInput.Value()),
		settings.KeyMaxTokens:          strings.TrimSpace(m.maxTokensInput.Value()),
		settings.KeyTopP:               strings.TrimSpace(m.topPInput.Value()),
		settings.KeyPresencePenalty:    strings.TrimSpace(m.presencePenaltyInput.Value()),
		settings.KeyFrequencyPenalty:   strings.TrimSpace(m.frequencyPenaltyInput.Value()),
		settings.KeyStream:             strconv.FormatBool(m.streamEnabled),
		settings.KeyRenderUserMarkdown: strconv.FormatBool(m.renderUserMarkdown),
	}
	if models := m.parsedModels(); len(models) > 0 {
		index := m.activeModelIndex
		if index >= len(models) {
			index = 0
		}
		values[settings.KeyActiveModel] = models[index]
	} else {
		values[settings.KeyActiveModel] = ""
	}

	settingsStore := m.settingsStore
	return func() tea.Msg {
		if err := settingsStore.Save(values); err != nil {
			return settingsVerifyResult{Err: err}
		}
		return SettingsSaved{}
	}
}
