package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"sideai/internal/chat"
	"sideai/internal/export"
	"sideai/internal/logging"
	"sideai/internal/markdown"
	"sideai/internal/settings"
)

const (
	titleHeight    = 4
	textareaHeight = 5
	helpHeight     = 2
	padding        = 2
)

type ChatViewModel struct {
	store         *chat.Store
	sender        *chat.Sender
	settingsStore *settings.Store
	cfg           *settings.Settings
	exportDir     string

	viewport     viewport.Model
	textarea     textarea.Model
	spinner      spinner.Model
	miniSettings MiniSettingsOverlayModel

	width  int
	height int

	sending      bool
	streamBuffer *strings.Builder
	tokenCount   int

	status        string
	statusIsError bool
	errorEntry    string

	mdRenderer *markdown.Renderer

	ctx        context.Context
	cancelFunc context.CancelFunc
}

type ChatTokenReceived struct {
	Token      string
	StreamChan <-chan string
	DoneChan   <-chan error
}

type ChatResponseComplete struct{}

type ChatResponseError struct {
	Err error
}

type OpenHistory struct{}

type OpenSettings struct{}

type RenderTickMsg struct{}

func NewChatViewModel(store *chat.Store, sender *chat.Sender, settingsStore *settings.Store, cfg *settings.Settings, exportDir string, width, height int) ChatViewModel {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// Keep only essential editing keys
	ta.KeyMap.CharacterForward = key.NewBinding(key.WithKeys("right"))
	ta.KeyMap.CharacterBackward = key.NewBinding(key.WithKeys("left"))
	ta.KeyMap.LineStart = key.NewBinding(key.WithKeys("home"))
	ta.KeyMap.LineEnd = key.NewBinding(key.WithKeys("end"))
	ta.KeyMap.DeleteCharacterBackward = key.NewBinding(key.WithKeys("backspace"))
	ta.KeyMap.DeleteCharacterForward = key.NewBinding(key.WithKeys("delete"))
	ta.KeyMap.LineNext = key.NewBinding()
	ta.KeyMap.LinePrevious = key.NewBinding()
	ta.KeyMap.InsertNewline = key.NewBinding()

	viewportHeight := height - titleHeight - textareaHeight - helpHeight - padding
	vp := viewport.New(width-6, viewportHeight)
	vp.SetContent("")
	vp.MouseWheelDelta = 2
	vp.KeyMap.Down = key.NewBinding(key.WithKeys("down"))
	vp.KeyMap.Up = key.NewBinding(key.WithKeys("up"))
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	vp.KeyMap.PageUp = key.NewBinding(key.WithKeys("pgup"))
	vp.KeyMap.HalfPageDown = key.NewBinding()
	vp.KeyMap.HalfPageUp = key.NewBinding()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	ctx, cancel := context.WithCancel(context.Background())

	ms := NewMiniSettingsOverlayModel(settingsStore)
	ms.UpdateSize(width, height)

	m := ChatViewModel{
		store:         store,
		sender:        sender,
		settingsStore: settingsStore,
		cfg:           cfg,
		exportDir:     exportDir,
		viewport:      vp,
		textarea:      ta,
		spinner:       sp,
		miniSettings:  ms,
		width:         width,
		height:        height,
		streamBuffer:  &strings.Builder{},
		mdRenderer:    markdown.NewRenderer(cfg.Theme, width),
		ctx:           ctx,
		cancelFunc:    cancel,
	}
	m.renderMessages()
	return m
}

func (m ChatViewModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

func (m ChatViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.(type) {
	case MiniSettingsSaved:
		m.miniSettings.Hide()
		m.textarea.Focus()
		m.reloadSettings()
		m.setStatus("Settings saved", false)
		return m, nil

	case MiniSettingsClosed:
		m.miniSettings.Hide()
		m.textarea.Focus()
		return m, nil
	}

	if m.miniSettings.IsVisible() {
		cmd := m.miniSettings.UpdateMiniSettings(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := msg.Height - titleHeight - textareaHeight - helpHeight - padding
		m.viewport.Width = msg.Width - 6
		m.viewport.Height = viewportHeight
		m.textarea.SetWidth(msg.Width - 4)
		m.miniSettings.UpdateSize(msg.Width, msg.Height)
		m.mdRenderer = markdown.NewRenderer(m.cfg.Theme, msg.Width)
		m.renderMessages()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+x", "ctrl+c":
			m.cancelFunc()
			return m, tea.Quit

		case "ctrl+h":
			if !m.sending {
				return m, func() tea.Msg { return OpenHistory{} }
			}
			return m, nil

		case "ctrl+s":
			if !m.sending {
				return m, func() tea.Msg { return OpenSettings{} }
			}
			return m, nil

		case "ctrl+o":
			if !m.sending {
				m.miniSettings.Open()
				return m, nil
			}
			return m, nil

		case "ctrl+n":
			if !m.sending {
				if _, err := m.store.Create(); err != nil {
					m.setStatus(err.Error(), true)
					return m, nil
				}
				m.errorEntry = ""
				m.renderMessages()
				m.setStatus("New conversation", false)
			}
			return m, nil

		case "ctrl+l":
			if !m.sending {
				if err := m.store.Clear(); err != nil {
					m.setStatus(err.Error(), true)
					return m, nil
				}
				m.errorEntry = ""
				m.renderMessages()
				m.setStatus("Conversation cleared", false)
			}
			return m, nil

		case "ctrl+e":
			m.exportConversation()
			return m, nil

		case "ctrl+t":
			m.cycleTheme()
			return m, nil

		case "ctrl+p":
			m.cycleModel()
			return m, nil

		case "enter":
			if !m.sending && strings.TrimSpace(m.textarea.Value()) != "" {
				content := m.textarea.Value()
				m.textarea.Reset()
				m.sending = true
				m.errorEntry = ""
				m.streamBuffer.Reset()
				m.tokenCount = 0
				m.setStatus("Thinking...", false)

				return m, tea.Batch(
					m.startSend(content),
					scheduleRenderTick(),
				)
			}
		}

	case RenderTickMsg:
		// Picks up the user message the sender appended before the
		// network call produced anything.
		if m.sending {
			m.renderMessages()
			m.viewport.GotoBottom()
		}
		return m, nil

	case ChatTokenReceived:
		cleanToken := strings.ReplaceAll(msg.Token, "�", "")
		if cleanToken != "" {
			m.streamBuffer.WriteString(cleanToken)
		}
		m.tokenCount++
		m.renderMessages()
		m.viewport.GotoBottom()
		return m, waitForStreamToken(msg.StreamChan, msg.DoneChan)

	case ChatResponseComplete:
		m.sending = false
		m.streamBuffer.Reset()
		m.tokenCount = 0
		m.renderMessages()
		m.viewport.GotoBottom()
		m.setStatus("", false)
		return m, nil

	case ChatResponseError:
		m.sending = false
		m.streamBuffer.Reset()
		m.tokenCount = 0
		m.errorEntry = msg.Err.Error()
		m.renderMessages()
		m.viewport.GotoBottom()
		m.setStatus(msg.Err.Error(), true)

		// A refused send for missing settings surfaces the quick
		// settings overlay right away.
		var configErr *chat.ConfigError
		if errors.As(msg.Err, &configErr) {
			m.miniSettings.Open()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if !m.sending {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m ChatViewModel) View() string {
	var b strings.Builder

	title := DefaultTitleOrActive(m.store)
	b.WriteString(TitleWithPaddingStyle.Render(title) + "\n")

	statusLine := fmt.Sprintf("Model: %s | Theme: %s | Stream: %s",
		displayModel(m.cfg),
		m.cfg.Theme,
		onOff(m.cfg.Stream),
	)
	if m.sending {
		statusLine += fmt.Sprintf(" | %s Thinking... (%d tokens)", m.spinner.View(), m.tokenCount)
	} else if m.status != "" {
		if m.statusIsError {
			statusLine += " | " + ErrorMessageStyle.Render(m.status)
		} else {
			statusLine += " | " + m.status
		}
	}
	b.WriteString(statusBarStyle.Render(statusLine) + "\n\n")

	b.WriteString(RenderViewportWithBorder(m.viewport.View()))
	b.WriteString("\n")

	if scrollInfo := m.renderScrollIndicator(); scrollInfo != "" {
		b.WriteString(scrollInfo)
	}
	b.WriteString("\n\n")

	b.WriteString(m.textarea.View() + "\n")

	helpText := "Enter: Send • Ctrl+N: New • Ctrl+L: Clear • Ctrl+H: History • Ctrl+S: Settings • Ctrl+O: Quick Settings • Ctrl+P: Model • Ctrl+T: Theme • Ctrl+E: Export • Ctrl+X: Exit"
	b.WriteString(helpStyle.Render(helpText))

	return m.miniSettings.RenderOverlay(b.String())
}

// DefaultTitleOrActive returns the active conversation title for the
// header, falling back to the default title.
func DefaultTitleOrActive(store *chat.Store) string {
	if active := store.Active(); active != nil {
		return active.Title
	}
	return chat.DefaultTitle
}

func displayModel(cfg *settings.Settings) string {
	if cfg.ActiveModel != "" {
		return cfg.ActiveModel
	}
	return "none"
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func (m *ChatViewModel) setStatus(status string, isError bool) {
	m.status = status
	m.statusIsError = isError
}

// reloadSettings refreshes the settings snapshot after the overlay or
// the settings form saved changes.
func (m *ChatViewModel) reloadSettings() {
	cfg, err := m.settingsStore.Load()
	if err != nil {
		logging.Error("Failed to reload settings: %v", err)
		return
	}
	m.cfg = cfg
	ApplyTheme(cfg.Theme)
	m.mdRenderer = markdown.NewRenderer(cfg.Theme, m.width)
	m.renderMessages()
}

func (m *ChatViewModel) cycleTheme() {
	next := settings.NextTheme(m.cfg.Theme)
	if err := m.settingsStore.SetTheme(next); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.cfg.Theme = next
	ApplyTheme(next)
	m.mdRenderer = markdown.NewRenderer(next, m.width)
	m.renderMessages()
	m.setStatus(fmt.Sprintf("Theme: %s", next), false)
}

func (m *ChatViewModel) cycleModel() {
	if len(m.cfg.Models) == 0 {
		m.setStatus("No models configured", true)
		return
	}

	next := m.cfg.Models[0]
	for i, model := range m.cfg.Models {
		if model == m.cfg.ActiveModel {
			next = m.cfg.Models[(i+1)%len(m.cfg.Models)]
			break
		}
	}
	if err := m.settingsStore.SetActiveModel(next); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.cfg.ActiveModel = next
	m.setStatus(fmt.Sprintf("Model: %s", next), false)
}

func (m *ChatViewModel) exportConversation() {
	path, err := export.Write(m.exportDir, m.store.ActiveMessages())
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("Exported to %s", path), false)
}

func (m ChatViewModel) startSend(content string) tea.Cmd {
	streamChan := make(chan string, 10)
	doneChan := make(chan error, 1)

	go func() {
		err := m.sender.Send(m.ctx, content, func(delta string) {
			streamChan <- delta
		})
		close(streamChan)
		doneChan <- err
	}()

	return waitForStreamToken(streamChan, doneChan)
}

// waitForStreamToken creates a command that waits for the next stream token
func waitForStreamToken(streamChan <-chan string, doneChan <-chan error) tea.Cmd {
	return func() tea.Msg {
		token, ok := <-streamChan
		if !ok {
			if err := <-doneChan; err != nil {
				return ChatResponseError{Err: err}
			}
			return ChatResponseComplete{}
		}
		return ChatTokenReceived{
			Token:      token,
			StreamChan: streamChan,
			DoneChan:   doneChan,
		}
	}
}

func scheduleRenderTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return RenderTickMsg{}
	})
}

func (m *ChatViewModel) renderMessages() {
	var b strings.Builder

	for _, msg := range m.store.ActiveMessages() {
		if msg.Role == chat.RoleUser {
			label := UserMessageLabelStyle.Render("You:")

			content := msg.Content
			if m.cfg.RenderUserMarkdown {
				content = m.mdRenderer.Render(content)
			}

			b.WriteString(GetUserMessageContentStyle(m.width).Render(label + "\n" + content))
			b.WriteString("\n\n")
		} else {
			label := AssistantMessageLabelStyle.Render("Assistant:")
			content := m.mdRenderer.Render(msg.Content)

			b.WriteString(GetAssistantMessageContentStyle(m.width).Render(label + "\n" + content))
			b.WriteString("\n\n")
		}
	}

	// In-progress assistant text while the stream is running.
	if m.sending && m.streamBuffer.Len() > 0 {
		label := AssistantMessageLabelStyle.Render("Assistant:")
		b.WriteString(GetAssistantMessageContentStyle(m.width).Render(label + "\n" + m.streamBuffer.String()))
		b.WriteString("\n\n")
	}

	if m.errorEntry != "" {
		b.WriteString(RenderError(m.errorEntry))
		b.WriteString("\n\n")
	}

	m.viewport.SetContent(b.String())
}

func (m ChatViewModel) renderScrollIndicator() string {
	if m.viewport.TotalLineCount() <= m.viewport.Height {
		return ""
	}

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	return ScrollIndicatorStyle.Render(fmt.Sprintf("Scroll: %d%% ↕", scrollPercent))
}
