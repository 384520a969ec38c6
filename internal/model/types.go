// Package model defines shared data structures.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Clef is the staff clef a note is drawn on.
type Clef string

// Supported clefs.
const (
	Treble Clef = "treble"
	Bass   Clef = "bass"
)

// ClefMode is the user-selected clef policy for a game.
type ClefMode string

// Supported clef modes. Both alternates treble and bass by round.
const (
	ModeTreble ClefMode = "treble"
	ModeBass   ClefMode = "bass"
	ModeBoth   ClefMode = "both"
)

// NotationMode controls how note names are displayed.
type NotationMode string

// Supported notation display modes.
const (
	NotationSolfeo NotationMode = "solfeo"
	NotationLetter NotationMode = "letter"
	NotationBoth   NotationMode = "both"
)

// Note is one playable entry of the static catalog.
type Note struct {
	PitchName     string  `json:"name"`
	SolfeoName    string  `json:"solfeo"`
	Octave        int     `json:"octave"`
	Clef          Clef    `json:"clef"`
	StaffPosition float64 `json:"position"`
	OnLine        bool    `json:"onLine"`
	FrequencyHz   float64 `json:"frequency"`
}

// Settings holds the user-chosen quiz options.
type Settings struct {
	SoundEnabled    bool         `json:"soundEnabled"`
	SelectedOctaves []int        `json:"selectedOctaves"`
	SelectedClef    ClefMode     `json:"selectedClef"`
	NotationType    NotationMode `json:"notationType"`
}

// RoundRecord captures one answered round. It is not modified after creation.
type RoundRecord struct {
	Round          int    `json:"round"`
	Clef           Clef   `json:"clef"`
	ShownNote      string `json:"shownNote"`
	NoteInfo       string `json:"noteInfo,omitempty"`
	SelectedNote   string `json:"selectedNote"`
	Correct        bool   `json:"correct"`
	ResponseTimeMs *int64 `json:"responseTimeMs"`
}

// GameEntry is one game in the history log.
type GameEntry struct {
	ID          string        `json:"id,omitempty"`
	StartedAt   time.Time     `json:"date"`
	TotalRounds int           `json:"totalRounds"`
	Score       int           `json:"score"`
	Rounds      []RoundRecord `json:"rounds"`
	Completed   bool          `json:"completed"`
	Clef        ClefMode      `json:"clef"`
}

// UnmarshalJSON decodes an entry, accepting RFC 3339 strings or Unix
// milliseconds for the date. An unreadable date leaves StartedAt zero
// instead of rejecting the entry.
func (e *GameEntry) UnmarshalJSON(data []byte) error {
	type plain GameEntry
	aux := struct {
		*plain
		Date json.RawMessage `json:"date"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.StartedAt = parseEntryDate(aux.Date)
	return nil
}

func parseEntryDate(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return time.Time{}
		}
		return t
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}

// SessionState is a read-only snapshot of the running game.
type SessionState struct {
	CurrentRound   int
	TotalRounds    int
	Score          int
	GameActive     bool
	GameComplete   bool
	CurrentNote    *Note
	SelectedAnswer *Note
	ShowResult     bool
	IsCorrect      bool
	ActiveClef     Clef
	NoteStartTime  time.Time
}
