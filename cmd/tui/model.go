// Package tui provides an interactive terminal front end for wechat article search.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Laisky/wechat-article-search/library/search"
)

const (
	defaultMaxResults = 10
	searchTimeout     = 3 * time.Minute
	queryCharLimit    = 100
)

// Searcher runs one search.
type Searcher interface {
	Search(ctx context.Context, req search.Request) *search.Result
}

// ViewState represents the current view state of the TUI
type ViewState int

const (
	// ViewInput is the query input view
	ViewInput ViewState = iota
	// ViewSearching is shown while a search is running
	ViewSearching
	// ViewResults lists the articles of the last search
	ViewResults
)

// ArticleItem adapts an article to list.Item
type ArticleItem struct {
	article search.Article
}

// Title returns the article title (implements list.Item)
func (i ArticleItem) Title() string { return i.article.Title }

// Description returns source, date and url (implements list.Item)
func (i ArticleItem) Description() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{i.article.Source, i.article.Date, i.article.URL} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " · ")
}

// FilterValue returns the filter value (implements list.Item)
func (i ArticleItem) FilterValue() string { return i.article.Title }

// searchDoneMsg carries a finished search back into Update
type searchDoneMsg struct {
	result *search.Result
}

// Model is the main TUI model following the Bubble Tea architecture
type Model struct {
	state ViewState

	searcher   Searcher
	maxResults int

	input     textinput.Model
	filterIdx int

	spinner spinner.Model
	results list.Model
	theme   Theme

	// last finished search
	result *search.Result

	width  int
	height int

	quitting bool
}

// keyMap defines the key bindings for the TUI
type keyMap struct {
	Enter  key.Binding
	Back   key.Binding
	Filter key.Binding
	Quit   key.Binding
	Exit   key.Binding
}

var keys = keyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "search"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "new search"),
	),
	Filter: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "time filter"),
	),
	// Quit is only honoured outside of the query input
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	Exit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// filterCycle is the order tab walks through, starting with no filter
var filterCycle = append([]search.TimeFilter{search.TimeFilterNone}, search.TimeFilters...)

// NewModel creates a new TUI model searching through searcher
func NewModel(searcher Searcher) Model {
	theme := DefaultTheme()

	input := textinput.New()
	input.Placeholder = "人工智能"
	input.Focus()
	input.CharLimit = queryCharLimit
	input.Width = 50
	input.Prompt = "🔍 "
	input.PromptStyle = theme.Prompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(theme.ItemTitle.GetForeground()).
		BorderForeground(theme.ItemTitle.GetForeground())
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(theme.ItemSource.GetForeground())

	results := list.New(nil, delegate, 0, 0)
	results.SetShowStatusBar(false)
	results.SetFilteringEnabled(false)
	results.Styles.Title = theme.ListTitle

	return Model{
		state:      ViewInput,
		searcher:   searcher,
		maxResults: defaultMaxResults,
		input:      input,
		spinner:    sp,
		results:    results,
		theme:      theme,
	}
}

// Filter returns the currently selected time filter
func (m Model) Filter() search.TimeFilter {
	return filterCycle[m.filterIdx]
}

// State returns the current view state
func (m Model) State() ViewState {
	return m.state
}

// Result returns the last finished search, nil before the first one
func (m Model) Result() *search.Result {
	return m.result
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Exit) {
			m.quitting = true
			return m, tea.Quit
		}

		switch m.state {
		case ViewInput:
			return m.handleInputView(msg)
		case ViewResults:
			return m.handleResultView(msg)
		case ViewSearching:
			// ignore keys while the browser is busy
			return m, nil
		}

	case spinner.TickMsg:
		if m.state == ViewSearching {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case searchDoneMsg:
		return m.showResults(msg.result), nil
	}

	if m.state == ViewInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleInputView handles key events in the query input
func (m Model) handleInputView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Filter):
		m.filterIdx = (m.filterIdx + 1) % len(filterCycle)
		return m, nil

	case key.Matches(msg, keys.Enter):
		query := strings.TrimSpace(m.input.Value())
		if query == "" {
			return m, nil
		}

		m.state = ViewSearching
		m.input.Blur()
		return m, tea.Batch(m.spinner.Tick, m.runSearch(search.Request{
			Query:      query,
			MaxResults: m.maxResults,
			TimeFilter: m.Filter(),
		}))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleResultView handles key events in the result list
func (m Model) handleResultView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.state = ViewInput
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

// runSearch returns the command executing req off the UI loop
func (m Model) runSearch(req search.Request) tea.Cmd {
	searcher := m.searcher
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()

		return searchDoneMsg{result: searcher.Search(ctx, req)}
	}
}

// showResults switches to the result list
func (m Model) showResults(res *search.Result) Model {
	m.result = res
	m.state = ViewResults

	items := make([]list.Item, 0, len(res.Articles))
	for _, a := range res.Articles {
		items = append(items, ArticleItem{article: a})
	}
	m.results.SetItems(items)
	m.results.Select(0)
	m.results.Title = fmt.Sprintf("「%s」 %d 篇", res.Query, len(res.Articles))

	return m
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return m.theme.Hint.Render("Goodbye! 👋\n")
	}

	switch m.state {
	case ViewInput:
		return m.renderInput()
	case ViewSearching:
		return m.renderSearching()
	case ViewResults:
		return m.renderResults()
	default:
		return "Unknown state"
	}
}

// renderInput renders the query input view
func (m Model) renderInput() string {
	var sb strings.Builder

	sb.WriteString(m.theme.Banner.Render("微信文章搜索") + "\n\n")
	sb.WriteString(m.theme.Prompt.Render("Query:") + "\n")
	sb.WriteString(m.input.View() + "\n\n")
	sb.WriteString(m.theme.Prompt.Render("Time filter: ") + m.theme.FilterBar(m.Filter()) + "\n")

	if m.result != nil && m.result.Outcome.Failed() {
		sb.WriteString("\n" + m.theme.LastFailed.Render("last search failed: "+string(m.result.Outcome)) + "\n")
	}

	sb.WriteString(m.theme.Help.Render("enter: search • tab: time filter • ctrl+c: quit"))

	return m.theme.Frame.Render(sb.String())
}

// renderSearching renders the running state view
func (m Model) renderSearching() string {
	return m.theme.Frame.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.spinner.View()+" Searching「"+strings.TrimSpace(m.input.Value())+"」...",
			m.theme.Hint.Render("the browser may need a few seconds to start"),
		),
	)
}

// renderResults renders the result list, or the outcome when there is nothing to list
func (m Model) renderResults() string {
	if m.result == nil {
		return "No result"
	}

	help := m.theme.Help.Render("↑/↓ navigate • esc: new search • q: quit")
	if len(m.result.Articles) > 0 {
		status := m.theme.Summary.Render(fmt.Sprintf("%s · %s",
			m.result.Outcome, m.result.Elapsed.Round(time.Millisecond)))
		return lipgloss.JoinVertical(lipgloss.Left, m.results.View(), status, help)
	}

	var title string
	if m.result.Outcome.Failed() {
		title = m.theme.Failure.Render("❌ search " + string(m.result.Outcome))
	} else {
		title = m.theme.EmptyResults.Render(search.RenderText(m.result.Query, nil))
	}

	return m.theme.Frame.Render(
		lipgloss.JoinVertical(lipgloss.Left, title, "", help),
	)
}
