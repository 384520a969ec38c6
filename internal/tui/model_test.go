package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuinote/internal/game"
	"github.com/verte-zerg/tuinote/internal/generator"
	"github.com/verte-zerg/tuinote/internal/history"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/notes"
	"github.com/verte-zerg/tuinote/internal/settings"
	"github.com/verte-zerg/tuinote/internal/store"
)

func newTestModel(t *testing.T, rounds int) (*Model, *store.Memory) {
	t.Helper()
	kv := store.NewMemory()
	st := settings.FromValues(model.Settings{
		SelectedOctaves: []int{4},
		SelectedClef:    model.ModeTreble,
		NotationType:    model.NotationLetter,
	})
	session := game.New(st, notes.New(), history.New(kv, nil), game.WithGenerator(generator.NewSeeded(3)))
	session.SetTotalRounds(rounds)
	return NewModel(session, Options{KV: kv, ExportDir: t.TempDir()}), kv
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func answerCurrent(t *testing.T, m *Model) {
	t.Helper()
	cur := m.session.State().CurrentNote
	if cur == nil {
		t.Fatalf("no current note")
	}
	for i, n := range m.session.AnswerChoices() {
		if sameNote(n, *cur) {
			m.cursor = i
		}
	}
	if cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatalf("expected a delayed advance command")
	}
}

func firePending(t *testing.T, m *Model) {
	t.Helper()
	tr, ok := m.session.Pending()
	if !ok {
		t.Fatalf("expected a pending transition")
	}
	send(m, advanceMsg{t: tr})
}

func TestPlayThroughGame(t *testing.T) {
	m, _ := newTestModel(t, 2)
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenQuiz {
		t.Fatalf("expected quiz screen, got %d", m.screen)
	}
	if !strings.Contains(m.View(), "Round 1/2") {
		t.Fatalf("missing round header: %s", m.View())
	}

	answerCurrent(t, m)
	if !strings.Contains(m.View(), "Correct!") {
		t.Fatalf("expected result line: %s", m.View())
	}
	firePending(t, m)
	if m.session.State().CurrentRound != 1 {
		t.Fatalf("expected round 2")
	}

	answerCurrent(t, m)
	firePending(t, m)
	if m.screen != screenSummary {
		t.Fatalf("expected summary screen, got %d", m.screen)
	}
	view := m.View()
	if !containsAll(view, []string{"Game over", "Score 2/2 (100%)", "✓✓"}) {
		t.Fatalf("summary missing segments: %s", view)
	}
}

func TestStaleAdvanceIgnored(t *testing.T) {
	m, _ := newTestModel(t, 3)
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	answerCurrent(t, m)
	stale, _ := m.session.Pending()

	send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenSetup {
		t.Fatalf("expected setup screen after esc")
	}
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	send(m, advanceMsg{t: stale})
	if m.session.State().CurrentRound != 0 {
		t.Fatalf("stale advance moved the new game")
	}
}

func TestSetupKeysPersistSettings(t *testing.T) {
	m, kv := newTestModel(t, 5)
	send(m, keyRunes("c"))
	if m.session.Settings().Clef() != model.ModeBass {
		t.Fatalf("expected bass clef, got %s", m.session.Settings().Clef())
	}
	send(m, keyRunes("n"))
	send(m, keyRunes("s"))

	loaded := settings.Load(context.Background(), kv, nil)
	if loaded.Clef() != model.ModeBass {
		t.Fatalf("persisted clef = %s", loaded.Clef())
	}
	if loaded.Notation() != model.NotationBoth {
		t.Fatalf("persisted notation = %s", loaded.Notation())
	}
	if !loaded.SoundEnabled() {
		t.Fatalf("expected sound toggled on")
	}
}

func TestSetupOctaveToggle(t *testing.T) {
	m, _ := newTestModel(t, 5)
	send(m, keyRunes("5"))
	got := m.session.Settings().Octaves()
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Fatalf("octaves = %v", got)
	}
	send(m, keyRunes("2"))
	if len(m.session.Settings().Octaves()) != 2 {
		t.Fatalf("octave outside the clef must be ignored")
	}
}

func TestSetupRounds(t *testing.T) {
	m, _ := newTestModel(t, 1)
	send(m, keyRunes("-"))
	if m.session.TotalRounds() != 1 {
		t.Fatalf("rounds must stay at least 1")
	}
	send(m, keyRunes("+"))
	send(m, keyRunes("+"))
	if m.session.TotalRounds() != 3 {
		t.Fatalf("rounds = %d", m.session.TotalRounds())
	}
}

func TestMIDIAnswer(t *testing.T) {
	m, _ := newTestModel(t, 1)
	if cmd := send(m, MIDIKeyMsg{Key: 60}); cmd != nil {
		t.Fatalf("MIDI keys are ignored outside a game")
	}
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	cur := *m.session.State().CurrentNote
	if cmd := send(m, MIDIKeyMsg{Key: notes.MIDINumber(cur)}); cmd == nil {
		t.Fatalf("expected MIDI answer to submit")
	}
	if !m.session.State().IsCorrect {
		t.Fatalf("expected a correct answer")
	}

	m2, _ := newTestModel(t, 1)
	send(m2, tea.KeyMsg{Type: tea.KeyEnter})
	send(m2, MIDIKeyMsg{Key: 61})
	if m2.session.State().ShowResult {
		t.Fatalf("accidentals must not submit")
	}
	if !strings.Contains(m2.status, "outside") {
		t.Fatalf("unexpected status %q", m2.status)
	}
}

func TestExportFromSummary(t *testing.T) {
	m, _ := newTestModel(t, 1)
	send(m, keyRunes("x"))
	if m.status != "No completed games to export" {
		t.Fatalf("unexpected status %q", m.status)
	}
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	answerCurrent(t, m)
	firePending(t, m)
	send(m, keyRunes("x"))
	if !strings.HasPrefix(m.status, "Exported to ") {
		t.Fatalf("unexpected status %q", m.status)
	}
	path := strings.TrimPrefix(m.status, "Exported to ")
	if filepath.Dir(path) != m.exportDir {
		t.Fatalf("export written to %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file: %v", err)
	}
}

func TestRenderFooterFormats(t *testing.T) {
	m, _ := newTestModel(t, 1)
	m.midiPort = "Keystation"
	if out := m.renderFooter(); !strings.Contains(out, "MIDI Keystation") {
		t.Fatalf("footer missing MIDI port: %s", out)
	}
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	answerCurrent(t, m)
	firePending(t, m)
	out := m.renderFooter()
	if !containsAll(out, []string{"Games 1", "Avg 100.0%", "Best 100%"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
