// Package tui provides the Bubble Tea quiz interface.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuinote/internal/game"
	"github.com/verte-zerg/tuinote/internal/history"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/settings"
	statsPkg "github.com/verte-zerg/tuinote/internal/stats"
	"github.com/verte-zerg/tuinote/internal/store"
)

type screen int

const (
	screenSetup screen = iota
	screenQuiz
	screenSummary
)

const maxRounds = 50

// advanceMsg fires when a pending transition is due.
type advanceMsg struct {
	t game.Transition
}

// MIDIKeyMsg carries a note-on key number from a MIDI keyboard.
type MIDIKeyMsg struct {
	Key int
}

// Options holds optional collaborators of the UI.
type Options struct {
	// KV persists settings changes. Nil disables persistence.
	KV store.KV
	// ExportDir receives CSV exports. Empty means the working directory.
	ExportDir string
	// MIDIPort is the connected MIDI input, shown in the footer.
	MIDIPort string
}

// Model implements the Bubble Tea quiz UI.
type Model struct {
	ctx       context.Context
	session   *game.Session
	kv        store.KV
	exportDir string
	midiPort  string

	width  int
	height int

	screen screen
	cursor int
	status string
}

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	staffStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Underline(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs the quiz UI around a session.
func NewModel(session *game.Session, opts Options) *Model {
	dir := opts.ExportDir
	if dir == "" {
		dir = "."
	}
	return &Model{
		ctx:       context.Background(),
		session:   session,
		kv:        opts.KV,
		exportDir: dir,
		midiPort:  opts.MIDIPort,
	}
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
		return m, nil
	case advanceMsg:
		if !m.session.Apply(m.ctx, msg.t) {
			return m, nil
		}
		if m.session.Phase() == game.Complete {
			m.screen = screenSummary
		}
		m.cursor = max(min(m.cursor, len(m.session.AnswerChoices())-1), 0)
		return m, nil
	case MIDIKeyMsg:
		if m.screen != screenQuiz {
			return m, nil
		}
		return m, m.answerMIDI(msg.Key)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.screen {
		case screenQuiz:
			return m, m.updateQuiz(msg)
		case screenSummary:
			return m, m.updateSummary(msg)
		default:
			return m, m.updateSetup(msg)
		}
	default:
		return m, nil
	}
}

func (m *Model) updateSetup(msg tea.KeyMsg) tea.Cmd {
	st := m.session.Settings()
	switch msg.String() {
	case "q", "esc":
		return tea.Quit
	case "enter", " ":
		m.startGame()
		return nil
	case "c":
		st.CycleClef()
	case "n":
		st.CycleNotation()
	case "s":
		st.SetSoundEnabled(!st.SoundEnabled())
	case "+", "=", "right", "l":
		m.session.SetTotalRounds(min(m.session.TotalRounds()+1, maxRounds))
		return nil
	case "-", "left", "h":
		if r := m.session.TotalRounds(); r > 1 {
			m.session.SetTotalRounds(r - 1)
		}
		return nil
	case "x":
		m.export()
		return nil
	default:
		octave, err := strconv.Atoi(msg.String())
		if err != nil || !slices.Contains(st.AvailableOctaves(), octave) {
			return nil
		}
		st.ToggleOctave(octave)
	}
	m.saveSettings()
	return nil
}

func (m *Model) updateQuiz(msg tea.KeyMsg) tea.Cmd {
	choices := m.session.AnswerChoices()
	switch msg.String() {
	case "esc":
		m.session.Abandon()
		m.screen = screenSetup
		m.status = "Game abandoned"
		return nil
	case "left", "h":
		m.moveCursor(-1, len(choices))
	case "right", "l":
		m.moveCursor(1, len(choices))
	case "up", "k":
		m.moveCursor(-m.rowWidth(choices), len(choices))
	case "down", "j":
		m.moveCursor(m.rowWidth(choices), len(choices))
	case "p":
		if !m.session.ListenNote() {
			m.status = "Sound is off"
		}
	case "enter", " ":
		if m.cursor < len(choices) {
			return m.submit(choices[m.cursor])
		}
	}
	return nil
}

func (m *Model) updateSummary(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "enter", "r":
		m.startGame()
	case "esc", "m":
		m.screen = screenSetup
	case "x":
		m.export()
	}
	return nil
}

func (m *Model) startGame() {
	m.session.StartGame(m.ctx)
	m.screen = screenQuiz
	m.cursor = 0
	m.status = ""
}

func (m *Model) submit(answer model.Note) tea.Cmd {
	t, ok := m.session.SubmitAnswer(answer)
	if !ok {
		return nil
	}
	m.status = ""
	return tea.Tick(t.Delay, func(time.Time) tea.Msg {
		return advanceMsg{t: t}
	})
}

func (m *Model) answerMIDI(key int) tea.Cmd {
	st := m.session.State()
	note, ok := m.session.Catalog().FromMIDI(st.ActiveClef, key)
	if !ok {
		m.status = fmt.Sprintf("MIDI key %d is outside the %s clef", key, st.ActiveClef)
		return nil
	}
	return m.submit(note)
}

func (m *Model) moveCursor(delta, n int) {
	if n == 0 || delta == 0 {
		return
	}
	next := m.cursor + delta
	if next < 0 || next >= n {
		return
	}
	m.cursor = next
}

func (m *Model) rowWidth(choices []model.Note) int {
	cells := buildAnswerCells(choices, m.session.Settings().Notation(), m.cursor, m.session.State())
	return max(rowsOf(cells, m.contentWidth()), 1)
}

func (m *Model) export() {
	path := filepath.Join(m.exportDir, history.ExportFileName(time.Now()))
	ok, err := m.session.History().ExportFile(path)
	switch {
	case err != nil:
		logErrf("failed to export history: %v\n", err)
		m.status = "Export failed"
	case !ok:
		m.status = "No completed games to export"
	default:
		m.status = "Exported to " + path
	}
}

func (m *Model) saveSettings() {
	if m.kv == nil {
		return
	}
	if err := m.session.Settings().Save(m.ctx, m.kv); err != nil {
		logErrf("failed to save settings: %v\n", err)
	}
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(int(float64(m.width)*0.70), 1)
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.screen {
	case screenQuiz:
		content = m.viewQuiz()
	case screenSummary:
		content = m.viewSummary()
	default:
		content = m.viewSetup()
	}
	if m.status != "" {
		content += "\n\n" + pendingStyle.Render(m.status)
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	content = lipgloss.NewStyle().Width(m.contentWidth()).Render(content)
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) viewSetup() string {
	st := m.session.Settings()
	octaves := make([]string, 0, len(st.AvailableOctaves()))
	for _, o := range st.AvailableOctaves() {
		mark := " "
		if slices.Contains(st.Octaves(), o) {
			mark = "x"
		}
		octaves = append(octaves, fmt.Sprintf("[%s] %d", mark, o))
	}
	sound := "off"
	if st.SoundEnabled() {
		sound = "on"
	}
	lines := []string{
		headerStyle.Render("Note reading quiz"),
		"",
		fmt.Sprintf("Clef      %s", st.Clef()),
		fmt.Sprintf("Octaves   %s", strings.Join(octaves, "  ")),
		fmt.Sprintf("Notation  %s", st.Notation()),
		fmt.Sprintf("Sound     %s", sound),
		fmt.Sprintf("Rounds    %d", m.session.TotalRounds()),
		"",
		footerStyle.Render("enter start · c clef · 2-6 octaves · n notation · s sound · +/- rounds · x export · q quit"),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) viewQuiz() string {
	st := m.session.State()
	if st.CurrentNote == nil {
		return ""
	}
	notation := m.session.Settings().Notation()
	lines := []string{
		headerStyle.Render(fmt.Sprintf("Round %d/%d · %s clef", st.CurrentRound+1, st.TotalRounds, st.ActiveClef)),
		"",
	}
	for _, row := range renderStaff(st.ActiveClef, st.CurrentNote.StaffPosition) {
		lines = append(lines, staffStyle.Render(row))
	}
	lines = append(lines, "", m.resultLine(st, notation), "")

	cells := buildAnswerCells(m.session.AnswerChoices(), notation, m.cursor, st)
	lines = append(lines, wrapCells(cells, m.contentWidth())...)
	lines = append(lines, "", footerStyle.Render("arrows move · enter answer · p listen · esc menu"))
	return strings.Join(lines, "\n")
}

func (m *Model) resultLine(st model.SessionState, notation model.NotationMode) string {
	if !st.ShowResult || st.CurrentNote == nil {
		return pendingStyle.Render("Which note is this?")
	}
	if st.IsCorrect {
		return correctStyle.Render("Correct!")
	}
	return incorrectStyle.Render("Wrong, it was " + settings.Label(*st.CurrentNote, notation))
}

func (m *Model) viewSummary() string {
	st := m.session.State()
	lines := []string{
		headerStyle.Render("Game over"),
		"",
		fmt.Sprintf("Score %d/%d (%d%%)", st.Score, st.TotalRounds, statsPkg.Accuracy(st.Score, st.TotalRounds)),
		statsPkg.ScoreMessage(st.Score, st.TotalRounds),
	}
	if entries := m.session.History().Entries(); len(entries) > 0 {
		last := entries[0]
		if avg, ok := statsPkg.AverageCorrectResponseMs(last.Rounds); ok {
			lines = append(lines, "Average correct response "+statsPkg.FormatSeconds(avg))
		}
		lines = append(lines, statsPkg.RoundMarks(last.Rounds))
	}
	lines = append(lines, "", footerStyle.Render("enter play again · x export · esc menu · q quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	segments := []string{}
	if m.screen == screenQuiz {
		st := m.session.State()
		segments = append(segments, fmt.Sprintf("Score %d", st.Score))
	}
	report := statsPkg.BuildReport(m.session.History().Entries())
	if report.Completed > 0 {
		segments = append(segments, fmt.Sprintf("Games %d · Avg %.1f%% · Best %d%%", report.Completed, report.AvgAccuracy, report.BestAccuracy))
	}
	if m.midiPort != "" {
		segments = append(segments, "MIDI "+m.midiPort)
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
