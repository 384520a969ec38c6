package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuinote/internal/audio"
	"github.com/verte-zerg/tuinote/internal/generator"
	"github.com/verte-zerg/tuinote/internal/history"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/notes"
	"github.com/verte-zerg/tuinote/internal/settings"
	"github.com/verte-zerg/tuinote/internal/store"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Add(d time.Duration) { c.t = c.t.Add(d) }

type recordingPlayer struct {
	mu    sync.Mutex
	tones []float64
}

func (p *recordingPlayer) PlayTone(hz float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tones = append(p.tones, hz)
}

func (p *recordingPlayer) Tones() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.tones...)
}

type fixture struct {
	session *Session
	kv      *store.Memory
	clock   *fakeClock
	player  *recordingPlayer
}

func newFixture(t *testing.T, v model.Settings) fixture {
	t.Helper()
	kv := store.NewMemory()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)}
	player := &recordingPlayer{}
	s := New(
		settings.FromValues(v),
		notes.New(),
		history.New(kv, t.Logf),
		WithClock(clock.Now),
		WithPlayer(player),
		WithGenerator(generator.NewSeeded(7)),
		WithLogf(t.Logf),
	)
	return fixture{session: s, kv: kv, clock: clock, player: player}
}

func openEntry(t *testing.T, s *Session) model.GameEntry {
	t.Helper()
	entries := s.History().Entries()
	require.NotEmpty(t, entries)
	require.False(t, entries[0].Completed)
	return entries[0]
}

func trebleOnly(octaves ...int) model.Settings {
	return model.Settings{
		SoundEnabled:    false,
		SelectedOctaves: octaves,
		SelectedClef:    model.ModeTreble,
		NotationType:    model.NotationBoth,
	}
}

func answerCorrect(t *testing.T, s *Session) Transition {
	t.Helper()
	st := s.State()
	require.NotNil(t, st.CurrentNote)
	tr, ok := s.SubmitAnswer(*st.CurrentNote)
	require.True(t, ok)
	return tr
}

func wrongAnswer(t *testing.T, s *Session) model.Note {
	t.Helper()
	cur := s.State().CurrentNote
	require.NotNil(t, cur)
	for _, n := range s.AnswerChoices() {
		if n.SolfeoName != cur.SolfeoName || n.Octave != cur.Octave {
			return n
		}
	}
	t.Fatalf("no wrong answer available")
	return model.Note{}
}

func TestNewSessionIsIdle(t *testing.T) {
	f := newFixture(t, trebleOnly(4))
	st := f.session.State()
	assert.Equal(t, Idle, f.session.Phase())
	assert.False(t, st.GameActive)
	assert.False(t, st.GameComplete)
	assert.Nil(t, st.CurrentNote)
	assert.Equal(t, DefaultTotalRounds, st.TotalRounds)

	_, ok := f.session.SubmitAnswer(model.Note{SolfeoName: "Do", Octave: 4})
	assert.False(t, ok)
	assert.Equal(t, 0, f.session.History().Len())
}

func TestThreeCorrectRounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4))
	s := f.session
	s.SetTotalRounds(3)
	s.StartGame(ctx)

	for round := 0; round < 3; round++ {
		st := s.State()
		require.Equal(t, round, st.CurrentRound)
		require.NotNil(t, st.CurrentNote)
		assert.Equal(t, 4, st.CurrentNote.Octave)
		assert.Equal(t, model.Treble, st.CurrentNote.Clef)

		f.clock.Add(1200 * time.Millisecond)
		tr := answerCorrect(t, s)
		if round < 2 {
			assert.Equal(t, NextRound, tr.Kind)
		} else {
			assert.Equal(t, FinishGame, tr.Kind)
		}
		assert.Equal(t, AdvanceDelay, tr.Delay)
		assert.True(t, s.State().ShowResult)
		assert.True(t, s.State().IsCorrect)
		require.True(t, s.Advance(ctx))
	}

	st := s.State()
	assert.Equal(t, 3, st.Score)
	assert.True(t, st.GameComplete)
	assert.False(t, st.GameActive)
	assert.Equal(t, Complete, s.Phase())

	entries := s.History().Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.True(t, e.Completed)
	assert.Equal(t, 3, e.Score)
	assert.Equal(t, 3, e.TotalRounds)
	assert.Equal(t, model.ModeTreble, e.Clef)
	require.Len(t, e.Rounds, 3)
	for i, r := range e.Rounds {
		assert.Equal(t, i+1, r.Round)
		assert.True(t, r.Correct)
		require.NotNil(t, r.ResponseTimeMs)
		assert.Equal(t, int64(1200), *r.ResponseTimeMs)
		assert.Equal(t, r.ShownNote, r.SelectedNote)
		assert.NotEmpty(t, r.NoteInfo)
	}

	raw, err := f.kv.Get(ctx, history.StorageKey)
	require.NoError(t, err)
	persisted, err := history.Decode([]byte(raw))
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.True(t, persisted[0].Completed)
}

func TestDoubleSubmitIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4))
	s := f.session
	s.SetTotalRounds(2)
	s.StartGame(ctx)

	cur := *s.State().CurrentNote
	first, ok := s.SubmitAnswer(cur)
	require.True(t, ok)
	_, ok = s.SubmitAnswer(cur)
	assert.False(t, ok)

	entry := openEntry(t, s)
	assert.Len(t, entry.Rounds, 1)
	assert.Equal(t, 1, s.State().Score)

	pending, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, first, pending)
}

func TestWrongAnswerScoresNothing(t *testing.T) {
	ctx := context.Background()
	v := trebleOnly(4)
	v.SoundEnabled = true
	f := newFixture(t, v)
	s := f.session
	s.SetTotalRounds(1)
	s.StartGame(ctx)

	shown := *s.State().CurrentNote
	_, ok := s.SubmitAnswer(wrongAnswer(t, s))
	require.True(t, ok)
	st := s.State()
	assert.False(t, st.IsCorrect)
	assert.Equal(t, 0, st.Score)

	tones := f.player.Tones()
	require.Len(t, tones, 2)
	assert.Equal(t, shown.FrequencyHz, tones[0])
	assert.Equal(t, float64(audio.ErrorToneHz), tones[1])

	require.True(t, s.Advance(ctx))
	entries := s.History().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].Score)
	assert.True(t, entries[0].Completed)
	assert.False(t, entries[0].Rounds[0].Correct)
}

func TestScoreMatchesCorrectRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4, 5))
	s := f.session
	s.SetTotalRounds(6)
	s.StartGame(ctx)

	for i := 0; i < 6; i++ {
		if i%2 == 0 {
			answerCorrect(t, s)
		} else {
			_, ok := s.SubmitAnswer(wrongAnswer(t, s))
			require.True(t, ok)
		}
		require.True(t, s.Advance(ctx))
	}

	e := s.History().Entries()[0]
	correct := 0
	for _, r := range e.Rounds {
		if r.Correct {
			correct++
		}
	}
	assert.Equal(t, correct, e.Score)
	assert.Equal(t, 3, e.Score)
	assert.Equal(t, 3, s.State().Score)
	assert.LessOrEqual(t, len(e.Rounds), e.TotalRounds)
}

func TestBothModeAlternatesClef(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, model.Settings{
		SelectedOctaves: []int{3, 4},
		SelectedClef:    model.ModeBoth,
		NotationType:    model.NotationBoth,
	})
	s := f.session
	s.SetTotalRounds(4)
	s.StartGame(ctx)

	want := []model.Clef{model.Treble, model.Bass, model.Treble, model.Bass}
	for i, clef := range want {
		st := s.State()
		assert.Equal(t, clef, st.ActiveClef, "round %d", i)
		require.NotNil(t, st.CurrentNote)
		assert.Equal(t, clef, st.CurrentNote.Clef)
		if clef == model.Treble {
			assert.GreaterOrEqual(t, st.CurrentNote.Octave, 4)
		} else {
			assert.LessOrEqual(t, st.CurrentNote.Octave, 3)
		}
		answerCorrect(t, s)
		require.True(t, s.Advance(ctx))
	}

	e := s.History().Entries()[0]
	assert.Equal(t, model.ModeBoth, e.Clef)
	for i, r := range e.Rounds {
		assert.Equal(t, want[i], r.Clef)
	}
}

func TestStartGameAfterCompleteDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4))
	s := f.session
	s.SetTotalRounds(1)
	s.StartGame(ctx)
	answerCorrect(t, s)
	require.True(t, s.Advance(ctx))
	require.Equal(t, 1, s.History().Len())

	s.StartGame(ctx)
	assert.Equal(t, 1, s.History().Len())
	assert.True(t, s.History().Entries()[0].Completed)
	assert.Equal(t, InProgress, s.Phase())
	assert.Equal(t, 0, s.State().Score)

	answerCorrect(t, s)
	assert.Equal(t, 2, s.History().Len(), "second game opens its own entry")
}

func TestAbandonedGameKeepsOpenEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(5))
	s := f.session
	s.SetTotalRounds(3)
	s.StartGame(ctx)
	answerCorrect(t, s)
	require.True(t, s.Advance(ctx))

	s.StartGame(ctx)
	answerCorrect(t, s)

	entries := s.History().Entries()
	require.Len(t, entries, 2)
	assert.Len(t, entries[0].Rounds, 1, "new game does not append to the abandoned one")
	assert.False(t, entries[1].Completed)
	assert.Len(t, entries[1].Rounds, 1)
}

func TestStaleTransitionIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4))
	s := f.session
	s.SetTotalRounds(3)
	s.StartGame(ctx)

	stale := answerCorrect(t, s)
	s.StartGame(ctx)
	_, ok := s.Pending()
	assert.False(t, ok, "restart clears the pending transition")

	fresh := answerCorrect(t, s)
	assert.False(t, s.Apply(ctx, stale))
	assert.Equal(t, 0, s.State().CurrentRound)
	assert.True(t, s.Apply(ctx, fresh))
	assert.Equal(t, 1, s.State().CurrentRound)
}

func TestTickWaitsForDueTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4))
	s := New(
		settings.FromValues(trebleOnly(4)),
		notes.New(),
		history.New(f.kv, t.Logf),
		WithClock(f.clock.Now),
		WithAdvanceDelay(200*time.Millisecond),
	)
	s.SetTotalRounds(2)
	s.StartGame(ctx)
	tr := answerCorrect(t, s)
	assert.Equal(t, 200*time.Millisecond, tr.Delay)

	assert.False(t, s.Tick(ctx, f.clock.Now().Add(199*time.Millisecond)))
	assert.True(t, s.State().ShowResult)
	assert.True(t, s.Tick(ctx, tr.DueAt))
	assert.False(t, s.State().ShowResult)
	assert.Equal(t, 1, s.State().CurrentRound)
}

func TestCloseStopsTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4))
	s := f.session
	s.SetTotalRounds(1)
	s.StartGame(ctx)
	tr := answerCorrect(t, s)

	s.Close()
	assert.False(t, s.Apply(ctx, tr))
	assert.False(t, s.Advance(ctx))
	assert.False(t, s.State().GameComplete)
	_, err := f.kv.Get(ctx, history.StorageKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetTotalRounds(t *testing.T) {
	f := newFixture(t, trebleOnly(4))
	f.session.SetTotalRounds(10)
	assert.Equal(t, 10, f.session.TotalRounds())
	f.session.SetTotalRounds(0)
	assert.Equal(t, DefaultTotalRounds, f.session.TotalRounds())
	f.session.SetTotalRounds(-3)
	assert.Equal(t, DefaultTotalRounds, f.session.TotalRounds())
}

func TestListenNote(t *testing.T) {
	ctx := context.Background()
	v := trebleOnly(4)
	f := newFixture(t, v)
	s := f.session
	assert.False(t, s.ListenNote(), "no note yet")

	s.StartGame(ctx)
	assert.False(t, s.ListenNote(), "sound disabled")

	s.Settings().SetSoundEnabled(true)
	require.True(t, s.ListenNote())
	tones := f.player.Tones()
	require.Len(t, tones, 1)
	assert.Equal(t, s.State().CurrentNote.FrequencyHz, tones[0])
}

func TestResponseTimeWithoutStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4))
	s := f.session
	s.StartGame(ctx)
	s.noteStartTime = time.Time{}
	answerCorrect(t, s)

	entry := openEntry(t, s)
	assert.Nil(t, entry.Rounds[0].ResponseTimeMs)
}

func TestAnswerChoicesContainCurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(5, 6))
	s := f.session
	s.StartGame(ctx)
	cur := s.State().CurrentNote
	require.NotNil(t, cur)
	assert.Contains(t, s.AnswerChoices(), *cur)
	for _, n := range s.AnswerChoices() {
		assert.Contains(t, []int{5, 6}, n.Octave)
	}
}

func TestExportHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4))
	s := f.session
	_, ok := s.ExportHistory()
	assert.False(t, ok)

	s.SetTotalRounds(1)
	s.StartGame(ctx)
	answerCorrect(t, s)
	_, ok = s.ExportHistory()
	assert.False(t, ok, "in-progress games are not exported")

	require.True(t, s.Advance(ctx))
	csv, ok := s.ExportHistory()
	require.True(t, ok)
	assert.Contains(t, csv, history.CSVHeader)
	assert.Contains(t, csv, "2026-03-01 10:00:00")
}

func TestAbandon(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, trebleOnly(4))
	s := f.session
	s.SetTotalRounds(3)
	s.StartGame(ctx)
	answerCorrect(t, s)

	s.Abandon()
	assert.Equal(t, Abandoned, s.Phase())
	assert.False(t, s.Advance(ctx))
	_, ok := s.SubmitAnswer(*s.State().CurrentNote)
	assert.False(t, ok)

	entries := s.History().Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Completed)

	s.StartGame(ctx)
	assert.Equal(t, InProgress, s.Phase())
}
