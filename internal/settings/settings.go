// Package settings holds the quiz settings state and its clef/octave policy.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/store"
)

// StorageKey is the local storage key for persisted settings.
const StorageKey = "music-quiz-settings"

// Octave bounds shared by both clefs. Octaves up to BassMaxOctave belong to
// the bass range, octaves from TrebleMinOctave to the treble range.
const (
	MinOctave       = 2
	MaxOctave       = 6
	BassMaxOctave   = 3
	TrebleMinOctave = 4
)

var (
	trebleDefault = []int{4, 5}
	bassDefault   = []int{2, 3}
	bothDefault   = []int{3, 4}
)

// Settings is the mutable settings state. It is not safe for concurrent use.
type Settings struct {
	v model.Settings
}

// Defaults returns the initial settings values.
func Defaults() model.Settings {
	return model.Settings{
		SoundEnabled:    true,
		SelectedOctaves: slices.Clone(trebleDefault),
		SelectedClef:    model.ModeTreble,
		NotationType:    model.NotationBoth,
	}
}

// New returns settings initialized to Defaults.
func New() *Settings {
	return &Settings{v: Defaults()}
}

// FromValues builds settings from raw values, normalizing every field.
func FromValues(v model.Settings) *Settings {
	s := &Settings{v: model.Settings{SoundEnabled: v.SoundEnabled}}
	s.v.SelectedClef = NormalizeClefMode(string(v.SelectedClef))
	s.v.NotationType = NormalizeNotation(string(v.NotationType))
	s.v.SelectedOctaves = NormalizeOctaves(v.SelectedOctaves, s.v.SelectedClef)
	return s
}

// Values returns a copy of the current settings.
func (s *Settings) Values() model.Settings {
	out := s.v
	out.SelectedOctaves = slices.Clone(s.v.SelectedOctaves)
	return out
}

// Clef returns the selected clef mode.
func (s *Settings) Clef() model.ClefMode { return s.v.SelectedClef }

// Octaves returns a copy of the selected octaves, ascending.
func (s *Settings) Octaves() []int { return slices.Clone(s.v.SelectedOctaves) }

// SoundEnabled reports whether tones should be played.
func (s *Settings) SoundEnabled() bool { return s.v.SoundEnabled }

// Notation returns the notation display mode.
func (s *Settings) Notation() model.NotationMode { return s.v.NotationType }

// SetSoundEnabled toggles sound.
func (s *Settings) SetSoundEnabled(enabled bool) {
	s.v.SoundEnabled = enabled
}

// SetNotation sets the notation mode, defaulting to both on unknown values.
func (s *Settings) SetNotation(mode model.NotationMode) {
	s.v.NotationType = NormalizeNotation(string(mode))
}

// SetSelectedOctaves replaces the octave selection. Empty or fully
// out-of-range input is replaced with the clef default.
func (s *Settings) SetSelectedOctaves(octaves []int) {
	s.v.SelectedOctaves = NormalizeOctaves(octaves, s.v.SelectedClef)
}

// ToggleOctave adds or removes one octave. Removing the last octave is ignored.
func (s *Settings) ToggleOctave(octave int) {
	if slices.Contains(s.v.SelectedOctaves, octave) {
		if len(s.v.SelectedOctaves) == 1 {
			return
		}
		next := slices.DeleteFunc(slices.Clone(s.v.SelectedOctaves), func(o int) bool { return o == octave })
		s.SetSelectedOctaves(next)
		return
	}
	s.SetSelectedOctaves(append(slices.Clone(s.v.SelectedOctaves), octave))
}

// SetClef switches the clef mode and adjusts the octave selection when it is
// incompatible with the new clef.
func (s *Settings) SetClef(mode model.ClefMode) {
	clef := NormalizeClefMode(string(mode))
	current := slices.Clone(s.v.SelectedOctaves)
	next := current

	switch clef {
	case model.ModeBass:
		if len(current) == 0 || slices.Min(current) >= TrebleMinOctave {
			next = slices.Clone(bassDefault)
		}
	case model.ModeTreble:
		if len(current) == 0 || slices.Max(current) <= BassMaxOctave {
			next = slices.Clone(trebleDefault)
		}
	case model.ModeBoth:
		if len(current) == 0 {
			next = slices.Clone(bothDefault)
			break
		}
		if !slices.ContainsFunc(current, func(o int) bool { return o <= BassMaxOctave }) {
			next = append(next, BassMaxOctave)
		}
		if !slices.ContainsFunc(current, func(o int) bool { return o >= TrebleMinOctave }) {
			next = append(next, TrebleMinOctave)
		}
	}

	s.v.SelectedClef = clef
	s.v.SelectedOctaves = NormalizeOctaves(next, clef)
}

// CycleClef advances treble -> bass -> both -> treble.
func (s *Settings) CycleClef() {
	switch s.v.SelectedClef {
	case model.ModeTreble:
		s.SetClef(model.ModeBass)
	case model.ModeBass:
		s.SetClef(model.ModeBoth)
	default:
		s.SetClef(model.ModeTreble)
	}
}

// CycleNotation advances solfeo -> letter -> both -> solfeo.
func (s *Settings) CycleNotation() {
	switch s.v.NotationType {
	case model.NotationSolfeo:
		s.SetNotation(model.NotationLetter)
	case model.NotationLetter:
		s.SetNotation(model.NotationBoth)
	default:
		s.SetNotation(model.NotationSolfeo)
	}
}

// AvailableOctaves lists the octaves the current clef mode offers.
func (s *Settings) AvailableOctaves() []int {
	return AvailableOctaves(s.v.SelectedClef)
}

// AvailableOctaves lists the octaves offered for a clef mode.
func AvailableOctaves(mode model.ClefMode) []int {
	switch mode {
	case model.ModeTreble:
		return []int{4, 5, 6}
	case model.ModeBass:
		return []int{2, 3, 4}
	default:
		return []int{2, 3, 4, 5, 6}
	}
}

// ActiveClefForRound resolves the clef used for a 0-based round number.
// Under ModeBoth even rounds are treble and odd rounds are bass.
func (s *Settings) ActiveClefForRound(round int) model.Clef {
	return ActiveClefForRound(s.v.SelectedClef, round)
}

// ActiveClefForRound resolves the clef for a mode and 0-based round number.
func ActiveClefForRound(mode model.ClefMode, round int) model.Clef {
	switch mode {
	case model.ModeBass:
		return model.Bass
	case model.ModeBoth:
		if round%2 == 0 {
			return model.Treble
		}
		return model.Bass
	default:
		return model.Treble
	}
}

// NormalizeClefMode parses a clef mode, defaulting to treble.
func NormalizeClefMode(raw string) model.ClefMode {
	switch model.ClefMode(strings.ToLower(strings.TrimSpace(raw))) {
	case model.ModeBass:
		return model.ModeBass
	case model.ModeBoth:
		return model.ModeBoth
	default:
		return model.ModeTreble
	}
}

// NormalizeNotation parses a notation mode, defaulting to both.
func NormalizeNotation(raw string) model.NotationMode {
	switch model.NotationMode(strings.ToLower(strings.TrimSpace(raw))) {
	case model.NotationSolfeo:
		return model.NotationSolfeo
	case model.NotationLetter:
		return model.NotationLetter
	default:
		return model.NotationBoth
	}
}

// NormalizeOctaves sorts, deduplicates and range-checks an octave set.
// The result is never empty.
func NormalizeOctaves(octaves []int, mode model.ClefMode) []int {
	out := make([]int, 0, len(octaves))
	for _, o := range octaves {
		if o < MinOctave || o > MaxOctave {
			continue
		}
		out = append(out, o)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return DefaultOctaves(mode)
	}
	return out
}

// DefaultOctaves returns the fallback octave set for an empty selection:
// the treble set for treble, the bass set for every other mode.
func DefaultOctaves(mode model.ClefMode) []int {
	if mode == model.ModeTreble {
		return slices.Clone(trebleDefault)
	}
	return slices.Clone(bassDefault)
}

// Label renders a note name according to the notation mode.
func Label(n model.Note, mode model.NotationMode) string {
	switch mode {
	case model.NotationSolfeo:
		return n.SolfeoName
	case model.NotationLetter:
		return n.PitchName
	default:
		return fmt.Sprintf("%s (%s)", n.SolfeoName, n.PitchName)
	}
}

// Load reads persisted settings. Missing or corrupt data yields defaults.
func Load(ctx context.Context, kv store.KV, logf func(string, ...any)) *Settings {
	raw, err := kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && logf != nil {
			logf("failed to load settings: %v\n", err)
		}
		return New()
	}
	var v model.Settings
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		if logf != nil {
			logf("discarding corrupt settings: %v\n", err)
		}
		return New()
	}
	return FromValues(v)
}

// Save persists the settings.
func (s *Settings) Save(ctx context.Context, kv store.KV) error {
	data, err := json.Marshal(s.v)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return kv.Put(ctx, StorageKey, string(data))
}
