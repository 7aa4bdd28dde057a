package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"sideai/internal/chat"
	"sideai/internal/config"
	"sideai/internal/logging"
	"sideai/internal/settings"
	"sideai/internal/storage"
	"sideai/internal/ui"
)

type appState int

const (
	stateChat appState = iota
	stateHistory
	stateSettings
)

type model struct {
	state appState

	settingsStore *settings.Store
	chatStore     *chat.Store
	sender        *chat.Sender
	exportDir     string

	// UI models
	chatViewModel     ui.ChatViewModel
	historyListModel  ui.HistoryListModel
	settingsFormModel ui.SettingsFormModel

	// Screen size
	width  int
	height int

	// Error state
	err error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		log.Fatalf("Failed to resolve data directory: %v", err)
	}

	if cfg.DebugLog {
		if err := logging.InitLogger(dataDir); err != nil {
			log.Fatalf("Failed to initialize logging: %v", err)
		}
		defer logging.Close()
	}

	dbPath := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	kv, err := storage.NewBadgerStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer kv.Close()

	settingsStore := settings.NewStore(kv)
	userSettings, err := settingsStore.Load()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	ui.ApplyTheme(userSettings.Theme)

	chatStore := chat.NewStore(kv)
	if err := chatStore.Load(); err != nil {
		log.Fatalf("Failed to load conversations: %v", err)
	}

	sender := chat.NewSender(chatStore, settingsStore)

	initialModel := model{
		state:         stateChat,
		settingsStore: settingsStore,
		chatStore:     chatStore,
		sender:        sender,
		exportDir:     dataDir,
		width:         80,
		height:        24,
	}
	initialModel.chatViewModel = ui.NewChatViewModel(chatStore, sender, settingsStore, userSettings, dataDir, 80, 24)

	p := tea.NewProgram(initialModel, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}

func (m model) Init() tea.Cmd {
	return m.chatViewModel.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		switch m.state {
		case stateChat:
			newModel, cmd := m.chatViewModel.Update(msg)
			m.chatViewModel = newModel.(ui.ChatViewModel)
			return m, cmd
		case stateHistory:
			newModel, cmd := m.historyListModel.Update(msg)
			m.historyListModel = newModel.(ui.HistoryListModel)
			return m, cmd
		case stateSettings:
			newModel, cmd := m.settingsFormModel.Update(msg)
			m.settingsFormModel = newModel.(ui.SettingsFormModel)
			return m, cmd
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case ui.OpenHistory:
		m.state = stateHistory
		m.historyListModel = ui.NewHistoryListModel(m.chatStore, m.width, m.height)
		return m, m.historyListModel.Init()

	case ui.OpenSettings:
		m.state = stateSettings
		m.settingsFormModel = ui.NewSettingsFormModel(m.settingsStore, m.width, m.height)
		return m, m.settingsFormModel.Init()

	case ui.ConversationSelected:
		m.state = stateChat
		return m, m.rebuildChatView()

	case ui.BackToChat:
		m.state = stateChat
		return m, m.rebuildChatView()

	case ui.SettingsSaved:
		m.state = stateChat
		return m, m.rebuildChatView()
	}

	switch m.state {
	case stateChat:
		newModel, cmd := m.chatViewModel.Update(msg)
		m.chatViewModel = newModel.(ui.ChatViewModel)
		return m, cmd

	case stateHistory:
		newModel, cmd := m.historyListModel.Update(msg)
		m.historyListModel = newModel.(ui.HistoryListModel)
		return m, cmd

	case stateSettings:
		newModel, cmd := m.settingsFormModel.Update(msg)
		m.settingsFormModel = newModel.(ui.SettingsFormModel)
		return m, cmd
	}

	return m, nil
}

// rebuildChatView recreates the chat view with fresh settings so a
// theme or model change made elsewhere takes effect immediately.
func (m *model) rebuildChatView() tea.Cmd {
	userSettings, err := m.settingsStore.Load()
	if err != nil {
		m.err = err
		return tea.Quit
	}
	ui.ApplyTheme(userSettings.Theme)

	m.chatViewModel = ui.NewChatViewModel(m.chatStore, m.sender, m.settingsStore, userSettings, m.exportDir, m.width, m.height)
	return m.chatViewModel.Init()
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress Ctrl+C to quit", m.err)
	}

	switch m.state {
	case stateChat:
		return m.chatViewModel.View()
	case stateHistory:
		return m.historyListModel.View()
	case stateSettings:
		return m.settingsFormModel.View()
	}

	return "Loading..."
}
