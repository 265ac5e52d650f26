// Package browse is an interactive terminal browser over the posting store:
// a filterable list backed by the query engine, with a detail view per
// posting.
package browse

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"internwatch/internal/model"
	"internwatch/internal/query"
)

// Lines per posting item in the list view (title + subtitle + blank separator).
const postingItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(12)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// QueryFunc runs a query against the store; the browser never mutates it.
type QueryFunc func(ctx context.Context, f query.Filter) ([]model.Posting, error)

type browseModel struct {
	queryFn  QueryFunc
	sources  []string // "" first = no source filter
	srcIdx   int
	postings []model.Posting

	filterInput textinput.Model
	listView    viewport.Model
	detailView  viewport.Model
	view        viewState
	cursor      int
	width       int
	height      int
	ready       bool
	queryErr    string
}

func newBrowseModel(queryFn QueryFunc, sources []string) browseModel {
	ti := textinput.New()
	ti.Placeholder = `keywords, use "quotes" for phrases`
	ti.CharLimit = 120
	ti.Width = 40

	return browseModel{
		queryFn:     queryFn,
		sources:     append([]string{""}, sources...),
		filterInput: ti,
	}
}

func (m browseModel) Init() tea.Cmd {
	return m.runQuery()
}

type queryDoneMsg struct {
	postings []model.Posting
	err      error
}

func (m browseModel) runQuery() tea.Cmd {
	queryFn := m.queryFn
	raw := m.filterInput.Value()
	source := m.sources[m.srcIdx]
	return func() tea.Msg {
		keywords, err := query.ParseKeywords(raw)
		if err != nil {
			return queryDoneMsg{err: err}
		}
		postings, err := queryFn(context.Background(), query.Filter{
			Keywords: keywords,
			Limit:    query.MaxLimit,
			Source:   source,
		})
		return queryDoneMsg{postings: postings, err: err}
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case queryDoneMsg:
		if msg.err != nil {
			m.queryErr = msg.err.Error()
		} else {
			m.queryErr = ""
			m.postings = msg.postings
			if m.cursor >= len(m.postings) {
				m.cursor = max(0, len(m.postings)-1)
			}
		}
		m.refreshList()
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterInput.Focused() {
		switch msg.String() {
		case "enter":
			m.filterInput.Blur()
			m.cursor = 0
			return m, m.runQuery()
		case "esc":
			m.filterInput.SetValue("")
			m.filterInput.Blur()
			m.cursor = 0
			return m, m.runQuery()
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		return m, m.filterInput.Focus()
	case "s":
		m.srcIdx = (m.srcIdx + 1) % len(m.sources)
		m.cursor = 0
		return m, m.runQuery()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.refreshList()
		}
	case "down", "j":
		if m.cursor < len(m.postings)-1 {
			m.cursor++
			m.refreshList()
		}
	case "o":
		if m.cursor < len(m.postings) && m.postings[m.cursor].URL != "" {
			openURL(m.postings[m.cursor].URL)
		}
	case "enter":
		if m.cursor < len(m.postings) {
			m.view = viewDetail
			m.detailView.SetContent(m.renderDetail(m.postings[m.cursor]))
			m.detailView.GotoTop()
		}
	}
	return m, nil
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "enter":
		m.view = viewList
		return m, nil
	case "o":
		if m.cursor < len(m.postings) && m.postings[m.cursor].URL != "" {
			openURL(m.postings[m.cursor].URL)
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.detailView, cmd = m.detailView.Update(msg)
		return m, cmd
	}
}

func (m *browseModel) recalcLayout() {
	// Title bar, filter line, status bar, borders.
	listHeight := max(m.height-6, postingItemHeight)
	m.listView = viewport.New(m.width-4, listHeight)
	m.detailView = viewport.New(m.width-4, max(m.height-4, 4))
	m.ready = true
	m.refreshList()
}

func (m *browseModel) refreshList() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for i, p := range m.postings {
		title := fmt.Sprintf("%s — %s", p.Company, p.Title)
		subtitle := fmt.Sprintf("%s · %s · ingested %s", p.Location, p.Source, p.IngestedAt.Format("Jan 02 15:04"))
		if i == m.cursor {
			b.WriteString(selectedTitleStyle.Render("> " + title))
			b.WriteString("\n")
			b.WriteString(selectedSubtitleStyle.Render("  " + subtitle))
		} else {
			b.WriteString(itemTitleStyle.Render("  " + title))
			b.WriteString("\n")
			b.WriteString(itemSubtitleStyle.Render("  " + subtitle))
		}
		b.WriteString("\n\n")
	}
	m.listView.SetContent(b.String())

	// Keep the cursor visible.
	top := m.cursor * postingItemHeight
	if top < m.listView.YOffset {
		m.listView.SetYOffset(top)
	} else if bottom := top + postingItemHeight; bottom > m.listView.YOffset+m.listView.Height {
		m.listView.SetYOffset(bottom - m.listView.Height)
	}
}

func (m browseModel) renderDetail(p model.Posting) string {
	var b strings.Builder
	b.WriteString(detailTitleStyle.Render(fmt.Sprintf("%s — %s", p.Company, p.Title)))
	b.WriteString("\n")

	row := func(label, value string) {
		if value == "" {
			value = "—"
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("Location", p.Location)
	row("Source", p.Source)
	row("URL", p.URL)
	posted := p.PostedAt.Format("Mon, 02 Jan 2006")
	if p.ApproxDate {
		posted += " (approximate)"
	}
	row("Posted", posted)
	row("Ingested", p.IngestedAt.Format("Mon, 02 Jan 2006 15:04"))
	row("ID", p.ID)

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("o open in browser  esc back  q quit"))
	return b.String()
}

func (m browseModel) View() string {
	if !m.ready {
		return "loading..."
	}

	if m.view == viewDetail {
		return borderStyle.Width(m.width - 2).Render(m.detailView.View())
	}

	sourceLabel := m.sources[m.srcIdx]
	if sourceLabel == "" {
		sourceLabel = "all"
	}
	title := titleBarStyle.Render(fmt.Sprintf("internwatch — %d postings (source: %s)", len(m.postings), sourceLabel))

	filterLine := "filter: " + m.filterInput.View()
	if m.queryErr != "" {
		filterLine += "  " + errorStyle.Render(m.queryErr)
	}

	status := statusBarStyle.Width(m.width).Render(
		"↑/↓/j/k navigate  enter detail  / filter  s cycle source  o open  q quit")

	return title + "\n" +
		filterLine + "\n" +
		borderStyle.Width(m.width-2).Render(m.listView.View()) + "\n" +
		status
}

// Run starts the interactive browser. queryFn answers filter queries;
// sources is the configured source list for the source-cycle key.
func Run(queryFn QueryFunc, sources []string) error {
	m := newBrowseModel(queryFn, sources)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// openURL opens the posting in the default browser. Errors are ignored; the
// URL stays visible in the detail view either way.
func openURL(url string) {
	switch runtime.GOOS {
	case "darwin":
		exec.Command("open", url).Start()
	case "windows":
		exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		exec.Command("xdg-open", url).Start()
	}
}
