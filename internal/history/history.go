// Package history keeps the rolling log of played games.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/store"
)

// StorageKey is the local storage key for the serialized log.
const StorageKey = "historialQuizMusical"

// MaxEntries is the number of games kept; older games are evicted.
const MaxEntries = 10

// Log is the in-memory history, most recent game first.
// It is not safe for concurrent use.
type Log struct {
	entries []model.GameEntry
	kv      store.KV
	logf    func(string, ...any)
}

// New returns an empty log persisted to kv.
func New(kv store.KV, logf func(string, ...any)) *Log {
	return &Log{kv: kv, logf: logf}
}

// Load reads the persisted log. Absent data yields an empty log; corrupt
// data is logged, removed from storage and replaced by an empty log.
func Load(ctx context.Context, kv store.KV, logf func(string, ...any)) *Log {
	l := New(kv, logf)
	raw, err := kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.log("failed to load history: %v\n", err)
		}
		return l
	}
	entries, err := Decode([]byte(raw))
	if err != nil {
		l.log("discarding corrupt history: %v\n", err)
		if derr := kv.Delete(ctx, StorageKey); derr != nil {
			l.log("failed to remove corrupt history: %v\n", derr)
		}
		return l
	}
	l.entries = entries
	return l
}

// Decode parses a serialized log and normalizes its entries.
func Decode(data []byte) ([]model.GameEntry, error) {
	var entries []model.GameEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Rounds == nil {
			entries[i].Rounds = []model.RoundRecord{}
		}
		if entries[i].Score < 0 {
			entries[i].Score = 0
		}
		if entries[i].TotalRounds < 1 {
			entries[i].TotalRounds = max(1, len(entries[i].Rounds))
		}
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries, nil
}

// Encode serializes entries in the persisted layout.
func Encode(entries []model.GameEntry) ([]byte, error) {
	if entries == nil {
		entries = []model.GameEntry{}
	}
	return json.Marshal(entries)
}

// Save overwrites the persisted log with the current entries.
func (l *Log) Save(ctx context.Context) error {
	data, err := Encode(l.entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := l.kv.Put(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Clear drops every entry and removes the persisted log.
func (l *Log) Clear(ctx context.Context) error {
	l.entries = nil
	return l.kv.Delete(ctx, StorageKey)
}

// Len returns the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// Entries returns a deep copy of the log, most recent first.
func (l *Log) Entries() []model.GameEntry {
	out := make([]model.GameEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Completed returns only the completed entries, most recent first.
func (l *Log) Completed() []model.GameEntry {
	var out []model.GameEntry
	for _, e := range l.entries {
		if e.Completed {
			out = append(out, cloneEntry(e))
		}
	}
	return out
}

// Append prepends an entry and evicts the oldest entries beyond MaxEntries.
func (l *Log) Append(entry model.GameEntry) {
	l.entries = append([]model.GameEntry{cloneEntry(entry)}, l.entries...)
	if len(l.entries) > MaxEntries {
		l.entries = l.entries[:MaxEntries]
	}
}

// Open starts a new in-progress entry at the head of the log.
func (l *Log) Open(startedAt time.Time, totalRounds int, clef model.ClefMode) {
	l.Append(model.GameEntry{
		ID:          uuid.NewString(),
		StartedAt:   startedAt,
		TotalRounds: max(1, totalRounds),
		Rounds:      []model.RoundRecord{},
		Clef:        clef,
	})
}

// RecordRound appends a round to the in-progress head entry and bumps its
// score on a correct answer. It reports false when no entry is open.
func (l *Log) RecordRound(rec model.RoundRecord) bool {
	if len(l.entries) == 0 || l.entries[0].Completed {
		return false
	}
	head := &l.entries[0]
	head.Rounds = append(head.Rounds, rec)
	if rec.Correct {
		head.Score++
	}
	return true
}

// CompleteCurrent freezes the in-progress head entry.
func (l *Log) CompleteCurrent() bool {
	if len(l.entries) == 0 || l.entries[0].Completed {
		return false
	}
	l.entries[0].Completed = true
	return true
}

func (l *Log) log(format string, args ...any) {
	if l.logf != nil {
		l.logf(format, args...)
	}
}

func cloneEntry(e model.GameEntry) model.GameEntry {
	e.Rounds = slices.Clone(e.Rounds)
	if e.Rounds == nil {
		e.Rounds = []model.RoundRecord{}
	}
	for i := range e.Rounds {
		if e.Rounds[i].ResponseTimeMs != nil {
			v := *e.Rounds[i].ResponseTimeMs
			e.Rounds[i].ResponseTimeMs = &v
		}
	}
	return e
}
