package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Laisky/wechat-article-search/library/search"
)

var (
	wechatGreen = lipgloss.Color("#07C160")
	linkBlue    = lipgloss.Color("#576B95") // wechat link color
	warnOrange  = lipgloss.Color("#FA9D3B")
	failRed     = lipgloss.Color("#FA5151")
	textLight   = lipgloss.Color("#F7F7F7")
	textMuted   = lipgloss.Color("#888888")
	frameGray   = lipgloss.Color("#4C4C4C")
)

// Theme groups the styles of each view so a view only reaches for its own.
type Theme struct {
	Frame lipgloss.Style
	Help  lipgloss.Style

	// query view
	Banner     lipgloss.Style
	Prompt     lipgloss.Style
	FilterOn   lipgloss.Style
	FilterOff  lipgloss.Style
	LastFailed lipgloss.Style

	// searching view
	Spinner lipgloss.Style
	Hint    lipgloss.Style

	// results view
	ListTitle    lipgloss.Style
	ItemTitle    lipgloss.Style
	ItemSource   lipgloss.Style
	Summary      lipgloss.Style
	Failure      lipgloss.Style
	EmptyResults lipgloss.Style
}

// DefaultTheme is the WeChat flavoured palette used by NewModel.
func DefaultTheme() Theme {
	return Theme{
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frameGray).
			Padding(1, 2),
		Help: lipgloss.NewStyle().Foreground(textMuted).MarginTop(1),

		Banner: lipgloss.NewStyle().
			Bold(true).
			Foreground(textLight).
			Background(wechatGreen).
			Padding(0, 2).
			MarginBottom(1),
		Prompt:     lipgloss.NewStyle().Foreground(wechatGreen).Bold(true),
		FilterOn:   lipgloss.NewStyle().Foreground(textLight).Background(wechatGreen).Padding(0, 1),
		FilterOff:  lipgloss.NewStyle().Foreground(textMuted).Padding(0, 1),
		LastFailed: lipgloss.NewStyle().Foreground(warnOrange),

		Spinner: lipgloss.NewStyle().Foreground(wechatGreen),
		Hint:    lipgloss.NewStyle().Foreground(textMuted).Italic(true),

		ListTitle:    lipgloss.NewStyle().Bold(true).Foreground(textLight).Background(wechatGreen).Padding(0, 1),
		ItemTitle:    lipgloss.NewStyle().Foreground(wechatGreen).BorderForeground(wechatGreen),
		ItemSource:   lipgloss.NewStyle().Foreground(linkBlue),
		Summary:      lipgloss.NewStyle().Foreground(textMuted).Background(frameGray).Padding(0, 1),
		Failure:      lipgloss.NewStyle().Foreground(failRed).Bold(true),
		EmptyResults: lipgloss.NewStyle().Foreground(warnOrange).Bold(true),
	}
}

// FilterBar renders every time filter, highlighting active.
func (t Theme) FilterBar(active search.TimeFilter) string {
	chips := make([]string, 0, len(filterCycle))
	for _, f := range filterCycle {
		style := t.FilterOff
		if f == active {
			style = t.FilterOn
		}
		chips = append(chips, style.Render(filterLabel(f)))
	}
	return strings.Join(chips, " ")
}

func filterLabel(f search.TimeFilter) string {
	if f == search.TimeFilterNone {
		return "any time"
	}
	return string(f)
}
