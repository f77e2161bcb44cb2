// Package browse provides an interactive subreddit browser using Bubble Tea TUI.
// It renders feed store snapshots and turns key presses into store actions.
package browse

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/reddit-feeds/pkg/feedstore"
	"github.com/lepinkainen/reddit-feeds/pkg/feedtypes"
)

// Store is the part of the feed store the browser drives.
type Store interface {
	Subscribe() (<-chan feedstore.State, func())
	SelectCategory(name string)
	RequestRefresh()
	FetchPosts()
}

// ViewMode represents the current view mode
type ViewMode int

// View modes for the browser TUI
const (
	ListViewMode ViewMode = iota
	DetailViewMode
)

// stateMsg carries a new store snapshot.
type stateMsg feedstore.State

// closedMsg is sent when the store stops publishing.
type closedMsg struct{}

// statusMsg shows a transient message in the footer.
type statusMsg string

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTab     = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// Model represents the Bubble Tea model for the browser TUI
type Model struct {
	store       Store
	updates     <-chan feedstore.State
	unsubscribe func()
	initial     string

	state         feedstore.State
	cursor        int
	viewMode      ViewMode
	selectedIndex int // Index of the post currently being viewed in detail
	width         int
	height        int
	spinner       spinner.Model
	spinning      bool
	status        string
	open          func(url string) error
}

// NewModel subscribes to store and creates a browser model. initial is
// selected when the program starts; empty keeps the store's selection.
func NewModel(store Store, initial string) Model {
	updates, unsubscribe := store.Subscribe()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	return Model{
		store:         store,
		updates:       updates,
		unsubscribe:   unsubscribe,
		initial:       initial,
		viewMode:      ListViewMode,
		selectedIndex: -1,
		spinner:       sp,
		open:          OpenBrowser,
	}
}

// Close releases the store subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// waitForState blocks until the store publishes a new snapshot.
func waitForState(updates <-chan feedstore.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return stateMsg(st)
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForState(m.updates)}
	if m.initial != "" {
		cmds = append(cmds, m.selectCmd(m.initial))
	}
	return tea.Batch(cmds...)
}

func (m Model) selectCmd(name string) tea.Cmd {
	return func() tea.Msg {
		m.store.SelectCategory(name)
		return nil
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		m.store.RequestRefresh()
		m.store.FetchPosts()
		return nil
	}
}

func (m Model) openCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if url == "" {
			return statusMsg("no link for this post")
		}
		if err := m.open(url); err != nil {
			return statusMsg(fmt.Sprintf("failed to open browser: %s", err))
		}
		return statusMsg("opened " + url)
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		return m.applyState(feedstore.State(msg))

	case closedMsg:
		return m, tea.Quit

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.state.IsFetching {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.viewMode {
		case ListViewMode:
			return m.updateListView(msg)
		case DetailViewMode:
			return m.updateDetailView(msg)
		}
	}

	return m, nil
}

func (m Model) applyState(st feedstore.State) (tea.Model, tea.Cmd) {
	if st.Selected != m.state.Selected {
		m.cursor = 0
		m.viewMode = ListViewMode
		m.selectedIndex = -1
	}
	m.state = st

	posts := st.Posts()
	m.cursor = min(m.cursor, max(len(posts)-1, 0))
	if m.viewMode == DetailViewMode && m.selectedIndex >= len(posts) {
		m.viewMode = ListViewMode
		m.selectedIndex = -1
	}

	cmds := []tea.Cmd{waitForState(m.updates)}
	if st.IsFetching && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

// switchCategory selects the category offset positions away from the current one
func (m Model) switchCategory(offset int) tea.Cmd {
	categories := m.state.AvailableCategories()
	if len(categories) == 0 {
		return nil
	}

	i := slices.Index(categories, m.state.Selected)
	next := ((i+offset)%len(categories) + len(categories)) % len(categories)
	if categories[next] == m.state.Selected {
		return nil
	}
	return m.selectCmd(categories[next])
}

func (m Model) currentPost() (feedtypes.Post, bool) {
	posts := m.state.Posts()
	idx := m.cursor
	if m.viewMode == DetailViewMode {
		idx = m.selectedIndex
	}
	if idx < 0 || idx >= len(posts) {
		return feedtypes.Post{}, false
	}
	return posts[idx], true
}

// updateListView handles key presses in list view mode
func (m Model) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "left", "h", "shift+tab":
		return m, m.switchCategory(-1)

	case "right", "l", "tab":
		return m, m.switchCategory(1)

	case "r":
		return m, m.refreshCmd()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.state.Posts())-1 {
			m.cursor++
		}

	case "enter":
		if _, ok := m.currentPost(); ok {
			m.selectedIndex = m.cursor
			m.viewMode = DetailViewMode
		}

	case "o":
		if post, ok := m.currentPost(); ok {
			return m, m.openCmd(post.CommentsLink())
		}
	}

	return m, nil
}

// updateDetailView handles key presses in detail view mode
func (m Model) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "esc", "backspace":
		m.viewMode = ListViewMode

	case "o":
		if post, ok := m.currentPost(); ok {
			return m, m.openCmd(post.CommentsLink())
		}
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	switch m.viewMode {
	case ListViewMode:
		return m.renderListView()
	case DetailViewMode:
		return m.renderDetailView()
	}
	return ""
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(m.state.Categories))
	for _, name := range m.state.AvailableCategories() {
		label := "r/" + name
		if name == m.state.Selected {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderStatus describes the selected feed
func (m Model) renderStatus() string {
	feed := m.state.Feed()

	switch {
	case m.state.IsFetching:
		return m.spinner.View() + " Fetching r/" + m.state.InFlight + "..."
	case feed.Failed():
		return errorStyle.Render("Error: " + feed.Error + " (r: retry)")
	case !feed.Fetched():
		return "Not loaded yet (r: fetch)"
	case len(feed.Items) == 0:
		return fmt.Sprintf("No posts • updated %s", formatTimeAgo(feed.LastUpdated))
	default:
		return fmt.Sprintf("%d posts • updated %s", len(feed.Items), formatTimeAgo(feed.LastUpdated))
	}
}

// renderListView renders the list view
func (m Model) renderListView() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Reddit Feeds"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	posts := m.state.Posts()
	visibleStart, visibleEnd := visibleRange(m.cursor, len(posts), m.height-8)

	for i := visibleStart; i < visibleEnd; i++ {
		line := FormatCompactListItem(i, posts[i])
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("→ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render("←/→ or h/l: subreddit • ↑/↓ or j/k: navigate • enter: details • r: refresh • o: open • q: quit"))

	return b.String()
}

// visibleRange keeps the cursor in the middle of the screen when possible.
// A non-positive maxVisible shows everything.
func visibleRange(cursor, total, maxVisible int) (int, int) {
	if maxVisible <= 0 || maxVisible >= total {
		return 0, total
	}

	start := max(cursor-maxVisible/2, 0)
	end := start + maxVisible
	if end > total {
		end = total
		start = max(end-maxVisible, 0)
	}
	return start, end
}

// renderDetailView renders the detail view
func (m Model) renderDetailView() string {
	post, ok := m.currentPost()
	if !ok {
		return "No post selected"
	}

	var b strings.Builder
	b.WriteString(FormatDetailedItem(post))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render("esc: back to list • o: open comments • q: quit"))

	return b.String()
}

// Run starts the Bubble Tea program
func Run(store Store, initial string) error {
	m := NewModel(store, initial)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
