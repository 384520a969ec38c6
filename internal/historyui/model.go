// Package historyui provides the Bubble Tea game history interface.
package historyui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/settings"
	"github.com/verte-zerg/tuinote/internal/stats"
)

const (
	tabOverview = iota
	tabGames
	tabRounds
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Filter narrows the games shown.
type Filter struct {
	// Clef keeps games played in one clef mode; empty keeps all.
	Clef model.ClefMode
	// Last keeps the N most recent games; zero keeps all.
	Last int
	// Completed hides games that were never finished.
	Completed bool
}

// Apply returns the entries matching f, most recent first.
func (f Filter) Apply(entries []model.GameEntry) []model.GameEntry {
	out := make([]model.GameEntry, 0, len(entries))
	for _, e := range entries {
		if f.Clef != "" && e.Clef != f.Clef {
			continue
		}
		if f.Completed && !e.Completed {
			continue
		}
		out = append(out, e)
		if f.Last > 0 && len(out) == f.Last {
			break
		}
	}
	return out
}

// Model implements the Bubble Tea history UI.
type Model struct {
	all      []model.GameEntry
	filter   Filter
	games    []model.GameEntry
	report   stats.Report
	notation model.NotationMode

	tabs      []string
	activeTab int
	viewports []viewport.Model
	gameTable table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a history UI over a snapshot of the log.
func NewModel(entries []model.GameEntry, filter Filter, notation model.NotationMode) *Model {
	m := &Model{
		all:      entries,
		filter:   filter,
		notation: notation,
		tabs:     []string{"Overview", "Games", "Rounds"},
	}
	m.initInputs()
	m.initViewports()
	m.gameTable = buildGameTable(nil, 0, 1)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l", "tab":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabGames && len(m.games) > 0 {
				m.renderTabContents()
				m.setTab(tabRounds)
				return m, tea.ClearScreen
			}
			return m, nil
		case "g", "home":
			if m.activeTab == tabGames {
				m.gameTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabGames {
				m.gameTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabGames {
				var cmd tea.Cmd
				m.gameTable, cmd = m.gameTable.Update(msg)
				m.renderTabContents()
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Clef (treble/bass/both): "),
		newFilterInput("Last: "),
		newFilterInput("Completed only (y/n): "),
	}
	m.setInputsFromFilter()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromFilter() {
	m.filterInputs[0].SetValue(string(m.filter.Clef))
	if m.filter.Last > 0 {
		m.filterInputs[1].SetValue(strconv.Itoa(m.filter.Last))
	} else {
		m.filterInputs[1].SetValue("")
	}
	if m.filter.Completed {
		m.filterInputs[2].SetValue("y")
	} else {
		m.filterInputs[2].SetValue("n")
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.gameTable.SetWidth(m.width)
	m.gameTable.SetHeight(max(1, vpHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.setTab(next)
}

func (m *Model) setTab(tab int) {
	m.activeTab = tab
	if m.activeTab == tabGames {
		m.gameTable.Focus()
	} else {
		m.gameTable.Blur()
	}
}

func (m *Model) refresh() {
	m.games = m.filter.Apply(m.all)
	m.report = stats.BuildReport(m.games)
	m.gameTable.SetRows(gameRows(m.games))
	if m.gameTable.Cursor() >= len(m.games) {
		m.gameTable.SetCursor(max(len(m.games)-1, 0))
	}
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	m.viewports[tabRounds].SetContent(m.renderSelectedRounds())
}

func (m *Model) selected() (model.GameEntry, bool) {
	idx := m.gameTable.Cursor()
	if idx < 0 || idx >= len(m.games) {
		return model.GameEntry{}, false
	}
	return m.games[idx], true
}

func (m *Model) renderSelectedRounds() string {
	e, ok := m.selected()
	if !ok {
		return "No games found."
	}
	return renderRounds(e, m.notation)
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	clef := string(m.filter.Clef)
	if clef == "" {
		clef = "any"
	}
	last := "all"
	if m.filter.Last > 0 {
		last = strconv.Itoa(m.filter.Last)
	}
	summary := fmt.Sprintf("Filter: clef=%s  last=%s  completed=%t  games=%d", clef, last, m.filter.Completed, len(m.games))
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Filter: /  Quit: q"
	if m.activeTab == tabGames {
		help = "Nav: left/right  Select: up/down  Rounds: enter  Filter: /  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabGames {
		if len(m.games) == 0 {
			return fitLines("No games found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.gameTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func renderOverview(r stats.Report, width int) string {
	if r.Completed == 0 {
		return "No completed games found."
	}
	avgTime := "N/A"
	if r.HasResponse {
		avgTime = stats.FormatSeconds(r.AvgResponseMs)
	}
	cards := []string{
		metricCard("Games", strconv.Itoa(r.Completed)),
		metricCard("Avg Accuracy", fmt.Sprintf("%.1f%%", r.AvgAccuracy)),
		metricCard("Best Accuracy", fmt.Sprintf("%d%%", r.BestAccuracy)),
		metricCard("Avg Response", avgTime),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		summary = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	if len(r.Trend) > 1 {
		summary += "\n\n" + cardTitleStyle.Render("Accuracy trend (oldest first)") + "\n" + stats.Sparkline(r.Trend)
	}
	return summary
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderRounds(e model.GameEntry, notation model.NotationMode) string {
	lines := []string{
		fmt.Sprintf("%s  %s  %d/%d (%d%%)",
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			e.Clef,
			e.Score, e.TotalRounds, stats.Accuracy(e.Score, e.TotalRounds)),
		"",
	}
	if len(e.Rounds) == 0 {
		return strings.Join(append(lines, "No rounds recorded."), "\n")
	}
	for _, r := range e.Rounds {
		mark := "✗"
		if r.Correct {
			mark = "✓"
		}
		elapsed := "N/A"
		if r.ResponseTimeMs != nil {
			elapsed = stats.FormatSeconds(*r.ResponseTimeMs)
		}
		lines = append(lines, fmt.Sprintf("%2d  %s  %-6s  %-18s  %-8s  %s",
			r.Round, mark, r.Clef, shownLabel(r, notation), r.SelectedNote, elapsed))
	}
	return strings.Join(lines, "\n")
}

func shownLabel(r model.RoundRecord, notation model.NotationMode) string {
	if r.NoteInfo == "" {
		return r.ShownNote
	}
	return settings.Label(model.Note{SolfeoName: r.ShownNote, PitchName: r.NoteInfo}, notation)
}

func buildGameTable(games []model.GameEntry, width, height int) table.Model {
	t := table.New(
		table.WithColumns(gameColumns()),
		table.WithRows(gameRows(games)),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(gameTableStyles())
	return t
}

func gameColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 16},
		{Title: "Clef", Width: 6},
		{Title: "Score", Width: 7},
		{Title: "Accuracy", Width: 8},
		{Title: "Avg Time", Width: 8},
		{Title: "Status", Width: 11},
	}
}

func gameRows(games []model.GameEntry) []table.Row {
	rows := make([]table.Row, 0, len(games))
	for _, e := range games {
		avg := "N/A"
		if ms, ok := stats.AverageCorrectResponseMs(e.Rounds); ok {
			avg = stats.FormatSeconds(ms)
		}
		status := "in progress"
		if e.Completed {
			status = "completed"
		}
		rows = append(rows, table.Row{
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			string(e.Clef),
			fmt.Sprintf("%d/%d", e.Score, e.TotalRounds),
			fmt.Sprintf("%d%%", stats.Accuracy(e.Score, e.TotalRounds)),
			avg,
			status,
		})
	}
	return rows
}

func gameTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		f, err := m.parseFilter()
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filter = f
		m.filterMode = false
		m.filterError = ""
		m.refresh()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == idx {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) parseFilter() (Filter, error) {
	return ParseFilter(
		m.filterInputs[0].Value(),
		m.filterInputs[1].Value(),
		m.filterInputs[2].Value(),
	)
}

// ParseFilter validates raw filter inputs.
func ParseFilter(clef, last, completed string) (Filter, error) {
	var f Filter
	switch c := strings.ToLower(strings.TrimSpace(clef)); c {
	case "", "any":
	case string(model.ModeTreble), string(model.ModeBass), string(model.ModeBoth):
		f.Clef = model.ClefMode(c)
	default:
		return Filter{}, fmt.Errorf("clef must be treble, bass, both or empty")
	}
	if v := strings.TrimSpace(last); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Filter{}, fmt.Errorf("last must be a non-negative integer")
		}
		f.Last = n
	}
	switch strings.ToLower(strings.TrimSpace(completed)) {
	case "", "n", "no":
	case "y", "yes":
		f.Completed = true
	default:
		return Filter{}, fmt.Errorf("completed must be y or n")
	}
	return f, nil
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
