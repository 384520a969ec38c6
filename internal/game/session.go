// Package game implements the quiz round and game state machine.
package game

import (
	"context"
	"time"

	"github.com/verte-zerg/tuinote/internal/audio"
	"github.com/verte-zerg/tuinote/internal/generator"
	"github.com/verte-zerg/tuinote/internal/history"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/notes"
	"github.com/verte-zerg/tuinote/internal/settings"
)

// AdvanceDelay is the pause between an answer and the next round.
const AdvanceDelay = 1500 * time.Millisecond

// DefaultTotalRounds is used until SetTotalRounds is called.
const DefaultTotalRounds = 5

// Phase is the coarse game state.
type Phase int

// Phases. Idle only holds before the first StartGame.
const (
	Idle Phase = iota
	InProgress
	Complete
	Abandoned
)

func (p Phase) String() string {
	switch p {
	case InProgress:
		return "in progress"
	case Complete:
		return "complete"
	case Abandoned:
		return "abandoned"
	default:
		return "idle"
	}
}

// TransitionKind names what a pending transition does when applied.
type TransitionKind int

// Transition kinds.
const (
	NextRound TransitionKind = iota + 1
	FinishGame
)

// Transition is the delayed step scheduled by SubmitAnswer.
type Transition struct {
	Seq   uint64
	Kind  TransitionKind
	Round int
	Delay time.Duration
	DueAt time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithGenerator sets the note generator.
func WithGenerator(g *generator.Generator) Option {
	return func(s *Session) { s.gen = g }
}

// WithPlayer sets the tone player.
func WithPlayer(p audio.Player) Option {
	return func(s *Session) { s.player = p }
}

// WithAdvanceDelay overrides AdvanceDelay. Non-positive values are ignored.
func WithAdvanceDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithLogf sets the logger for non-fatal failures.
func WithLogf(logf func(string, ...any)) Option {
	return func(s *Session) { s.logf = logf }
}

// Session is one player's game. It owns the settings and history it is given
// and reads the shared catalog. It is driven from a single goroutine.
type Session struct {
	settings *settings.Settings
	catalog  *notes.Catalog
	history  *history.Log

	gen    *generator.Generator
	player audio.Player
	now    func() time.Time
	delay  time.Duration
	logf   func(string, ...any)

	totalRounds    int
	currentRound   int
	score          int
	gameActive     bool
	gameComplete   bool
	currentNote    *model.Note
	selectedAnswer *model.Note
	showResult     bool
	isCorrect      bool
	activeClef     model.Clef
	noteStartTime  time.Time

	started   bool
	entryOpen bool
	pending   *Transition
	seq       uint64
	closed    bool
}

// New builds an idle session.
func New(st *settings.Settings, catalog *notes.Catalog, hist *history.Log, opts ...Option) *Session {
	s := &Session{
		settings:    st,
		catalog:     catalog,
		history:     hist,
		gen:         generator.New(),
		player:      audio.Nop{},
		now:         time.Now,
		delay:       AdvanceDelay,
		totalRounds: DefaultTotalRounds,
		activeClef:  model.Treble,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Settings returns the owned settings state.
func (s *Session) Settings() *settings.Settings { return s.settings }

// History returns the owned history log.
func (s *Session) History() *history.Log { return s.history }

// Catalog returns the shared note catalog.
func (s *Session) Catalog() *notes.Catalog { return s.catalog }

// Phase reports the coarse game state.
func (s *Session) Phase() Phase {
	switch {
	case s.gameActive:
		return InProgress
	case s.gameComplete:
		return Complete
	case s.started:
		return Abandoned
	default:
		return Idle
	}
}

// State returns a snapshot of the session.
func (s *Session) State() model.SessionState {
	st := model.SessionState{
		CurrentRound:  s.currentRound,
		TotalRounds:   s.totalRounds,
		Score:         s.score,
		GameActive:    s.gameActive,
		GameComplete:  s.gameComplete,
		ShowResult:    s.showResult,
		IsCorrect:     s.isCorrect,
		ActiveClef:    s.activeClef,
		NoteStartTime: s.noteStartTime,
	}
	if s.currentNote != nil {
		n := *s.currentNote
		st.CurrentNote = &n
	}
	if s.selectedAnswer != nil {
		n := *s.selectedAnswer
		st.SelectedAnswer = &n
	}
	return st
}

// TotalRounds returns the configured number of rounds.
func (s *Session) TotalRounds() int { return s.totalRounds }

// SetTotalRounds sets the rounds per game; values below 1 become the default.
func (s *Session) SetTotalRounds(n int) {
	s.totalRounds = NormalizeRounds(n)
}

// NormalizeRounds clamps a round count to a usable value.
func NormalizeRounds(n int) int {
	if n < 1 {
		return DefaultTotalRounds
	}
	return n
}

// StartGame begins a new game. A completed previous game with a nonzero
// score is finalized into the history first.
func (s *Session) StartGame(ctx context.Context) {
	if s.closed {
		return
	}
	if s.gameComplete && s.score > 0 {
		s.history.CompleteCurrent()
		s.persist(ctx)
	}

	s.started = true
	s.pending = nil
	s.entryOpen = false
	s.currentRound = 0
	s.score = 0
	s.currentNote = nil
	s.selectedAnswer = nil
	s.showResult = false
	s.isCorrect = false
	s.gameActive = true
	s.gameComplete = false
	s.activeClef = s.settings.ActiveClefForRound(0)

	s.DrawNote()
}

// AnswerChoices lists the notes offered as answers for the current round.
func (s *Session) AnswerChoices() []model.Note {
	clef := s.settings.ActiveClefForRound(s.currentRound)
	return generator.Pool(s.catalog.ForClef(clef), clef, s.settings.Clef(), s.settings.Octaves())
}

// DrawNote picks the note for the current round and starts its timer.
func (s *Session) DrawNote() (model.Note, bool) {
	if s.closed {
		return model.Note{}, false
	}
	clef := s.settings.ActiveClefForRound(s.currentRound)
	note, ok := s.gen.Draw(s.catalog.ForClef(clef), clef, s.settings.Clef(), s.settings.Octaves())
	if !ok {
		return model.Note{}, false
	}
	s.activeClef = clef
	s.currentNote = &note
	s.selectedAnswer = nil
	s.showResult = false
	s.isCorrect = false
	s.noteStartTime = s.now()

	if s.settings.SoundEnabled() {
		s.player.PlayTone(note.FrequencyHz)
	}
	return note, true
}

// SubmitAnswer scores an answer for the current note and schedules the
// delayed transition. It returns false, changing nothing, while a result is
// already showing or no note is active.
func (s *Session) SubmitAnswer(answer model.Note) (Transition, bool) {
	if s.closed || !s.gameActive || s.showResult || s.currentNote == nil {
		return Transition{}, false
	}
	now := s.now()
	current := *s.currentNote
	correct := answer.SolfeoName == current.SolfeoName && answer.Octave == current.Octave

	var responseMs *int64
	if !s.noteStartTime.IsZero() {
		elapsed := max(now.Sub(s.noteStartTime).Milliseconds(), 0)
		responseMs = &elapsed
	}

	selected := answer
	s.selectedAnswer = &selected
	s.showResult = true
	s.isCorrect = correct
	if correct {
		s.score++
	}

	if !s.entryOpen {
		s.history.Open(now, s.totalRounds, s.settings.Clef())
		s.entryOpen = true
	}
	s.history.RecordRound(model.RoundRecord{
		Round:          s.currentRound + 1,
		Clef:           s.activeClef,
		ShownNote:      current.SolfeoName,
		NoteInfo:       current.PitchName,
		SelectedNote:   answer.SolfeoName,
		Correct:        correct,
		ResponseTimeMs: responseMs,
	})

	if !correct && s.settings.SoundEnabled() {
		s.player.PlayTone(audio.ErrorToneHz)
	}

	kind := NextRound
	if s.currentRound+1 >= s.totalRounds {
		kind = FinishGame
	}
	s.seq++
	t := Transition{
		Seq:   s.seq,
		Kind:  kind,
		Round: s.currentRound,
		Delay: s.delay,
		DueAt: now.Add(s.delay),
	}
	s.pending = &t
	return t, true
}

// Pending returns the scheduled transition, if any.
func (s *Session) Pending() (Transition, bool) {
	if s.pending == nil {
		return Transition{}, false
	}
	return *s.pending, true
}

// Apply runs t if it is still the pending transition. Stale transitions
// from an earlier round or game are ignored.
func (s *Session) Apply(ctx context.Context, t Transition) bool {
	if s.pending == nil || s.pending.Seq != t.Seq {
		return false
	}
	return s.Advance(ctx)
}

// Tick applies the pending transition once its due time has passed.
func (s *Session) Tick(ctx context.Context, now time.Time) bool {
	if s.pending == nil || now.Before(s.pending.DueAt) {
		return false
	}
	return s.Advance(ctx)
}

// Advance applies the pending transition immediately: either the next round
// is drawn or the game is finalized and the history persisted.
func (s *Session) Advance(ctx context.Context) bool {
	if s.closed || s.pending == nil {
		return false
	}
	t := *s.pending
	s.pending = nil

	switch t.Kind {
	case FinishGame:
		s.gameActive = false
		s.gameComplete = true
		s.history.CompleteCurrent()
		s.entryOpen = false
		s.persist(ctx)
	default:
		s.currentRound++
		s.showResult = false
		s.selectedAnswer = nil
		s.isCorrect = false
		s.DrawNote()
	}
	return true
}

// Abandon ends the active game without completing it. Its history entry,
// if any, stays open and is never exported.
func (s *Session) Abandon() {
	if !s.gameActive {
		return
	}
	s.pending = nil
	s.gameActive = false
	s.showResult = false
	s.entryOpen = false
}

// ListenNote replays the current note when sound is enabled.
func (s *Session) ListenNote() bool {
	if s.closed || s.currentNote == nil || !s.settings.SoundEnabled() {
		return false
	}
	s.player.PlayTone(s.currentNote.FrequencyHz)
	return true
}

// ExportHistory renders completed games as CSV; false when there are none.
func (s *Session) ExportHistory() (string, bool) {
	return s.history.Export()
}

// Close tears the session down. Later calls, including pending transitions,
// become no-ops.
func (s *Session) Close() {
	s.closed = true
	s.pending = nil
}

func (s *Session) persist(ctx context.Context) {
	if err := s.history.Save(ctx); err != nil && s.logf != nil {
		s.logf("failed to save history: %v\n", err)
	}
}
