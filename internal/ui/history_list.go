package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sideai/internal/chat"
)

// HistoryListModel lists every conversation in display order with
// search, pinning, renaming and deletion.
type HistoryListModel struct {
	store *chat.Store
	list  list.Model

	searchInput textinput.Model
	searching   bool

	renameInput textinput.Model
	renamingID  string

	width  int
	height int
}

type conversationItem struct {
	conversation *chat.Conversation
}

func (i conversationItem) Title() string {
	title := i.conversation.Title
	if i.conversation.Pinned {
		title = "★ " + title
	}
	return title
}

func (i conversationItem) Description() string {
	updated := time.UnixMilli(i.conversation.UpdatedAt).Format("2006-01-02 15:04")
	return fmt.Sprintf("Updated: %s | Messages: %d", updated, len(i.conversation.Messages))
}

func (i conversationItem) FilterValue() string { return i.conversation.Title }

type ConversationSelected struct {
	ID string
}

type BackToChat struct{}

func NewHistoryListModel(store *chat.Store, width, height int) HistoryListModel {
	l := list.New(nil, CreateThemedDelegate(), width, height-6)
	l.Title = "Conversations"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	ConfigureListStyles(&l)

	l.KeyMap.CursorUp = key.NewBinding(key.WithKeys("up"))
	l.KeyMap.CursorDown = key.NewBinding(key.WithKeys("down"))
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("pgdown"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("pgup"))
	l.KeyMap.GoToStart = key.NewBinding()
	l.KeyMap.GoToEnd = key.NewBinding()
	l.KeyMap.Filter = key.NewBinding()
	l.KeyMap.ShowFullHelp = key.NewBinding()
	l.KeyMap.CloseFullHelp = key.NewBinding()
	l.KeyMap.Quit = key.NewBinding()
	l.KeyMap.ForceQuit = key.NewBinding()

	searchInput := textinput.New()
	searchInput.Placeholder = "Search conversations..."
	searchInput.CharLimit = 100
	searchInput.Width = 40

	renameInput := textinput.New()
	renameInput.Placeholder = chat.DefaultTitle
	renameInput.CharLimit = 100
	renameInput.Width = 40

	m := HistoryListModel{
		store:       store,
		list:        l,
		searchInput: searchInput,
		renameInput: renameInput,
		width:       width,
		height:      height,
	}
	m.refresh()
	return m
}

func (m HistoryListModel) Init() tea.Cmd {
	return nil
}

// refresh rebuilds the list from the store, honoring the search term.
func (m *HistoryListModel) refresh() {
	conversations := m.store.Search(m.searchInput.Value())
	items := make([]list.Item, len(conversations))
	for i, conversation := range conversations {
		items[i] = conversationItem{conversation: conversation}
	}
	m.list.SetItems(items)
	if m.list.Index() >= len(items) {
		m.list.Select(0)
	}
}

func (m *HistoryListModel) selected() *chat.Conversation {
	item := m.list.SelectedItem()
	if item == nil {
		return nil
	}
	return item.(conversationItem).conversation
}

func (m HistoryListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if m.renamingID != "" {
			return m.updateRenaming(msg)
		}
		if m.searching {
			return m.updateSearching(msg)
		}

		switch msg.String() {
		case "ctrl+x":
			return m, tea.Quit

		case "esc":
			return m, func() tea.Msg { return BackToChat{} }

		case "/":
			m.searching = true
			m.searchInput.Focus()
			return m, textinput.Blink

		case "enter":
			if conversation := m.selected(); conversation != nil {
				id := conversation.ID
				if err := m.store.SetActive(id); err != nil {
					return m, nil
				}
				return m, func() tea.Msg { return ConversationSelected{ID: id} }
			}
			return m, nil

		case "ctrl+n":
			conversation, err := m.store.Create()
			if err != nil {
				return m, nil
			}
			return m, func() tea.Msg { return ConversationSelected{ID: conversation.ID} }

		case "ctrl+d":
			if conversation := m.selected(); conversation != nil {
				m.store.Remove(conversation.ID)
				m.refresh()
			}
			return m, nil

		case "ctrl+p":
			if conversation := m.selected(); conversation != nil {
				m.store.TogglePin(conversation.ID)
				m.refresh()
			}
			return m, nil

		case "ctrl+r":
			if conversation := m.selected(); conversation != nil {
				m.renamingID = conversation.ID
				m.renameInput.SetValue(conversation.Title)
				m.renameInput.CursorEnd()
				m.renameInput.Focus()
				return m, textinput.Blink
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m HistoryListModel) updateSearching(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.SetValue("")
		m.searchInput.Blur()
		m.refresh()
		return m, nil

	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.refresh()
	return m, cmd
}

func (m HistoryListModel) updateRenaming(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.renamingID = ""
		m.renameInput.Blur()
		return m, nil

	case "enter":
		m.store.Rename(m.renamingID, m.renameInput.Value())
		m.renamingID = ""
		m.renameInput.Blur()
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m HistoryListModel) View() string {
	var header string
	switch {
	case m.renamingID != "":
		header = OverlayFieldLabelStyle.Render("Rename: ") + m.renameInput.View()
	case m.searching || m.searchInput.Value() != "":
		header = OverlayFieldLabelStyle.Render("Search: ") + m.searchInput.View()
	default:
		header = HelpTextSimpleStyle.Render("Press / to search")
	}

	helpText := "↑/↓: Navigate • Enter: Open • /: Search • Ctrl+N: New • Ctrl+P: Pin • Ctrl+R: Rename • Ctrl+D: Delete • Esc: Back • Ctrl+X: Exit"

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.list.View(),
		helpStyle.Render(helpText),
	)
}
