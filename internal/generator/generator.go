// Package generator draws quiz notes from the catalog.
package generator

import (
	"math/rand"
	"slices"
	"time"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/settings"
)

// Generator selects notes uniformly at random.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Pool returns the notes eligible for a round: catalog notes whose octave is
// selected and, in ModeBoth, also inside the active clef's hand range. When
// nothing qualifies the whole clef catalog is returned.
func Pool(catalog []model.Note, clef model.Clef, mode model.ClefMode, octaves []int) []model.Note {
	out := make([]model.Note, 0, len(catalog))
	for _, n := range catalog {
		if !inClefRange(n.Octave, clef, mode) {
			continue
		}
		if !slices.Contains(octaves, n.Octave) {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return slices.Clone(catalog)
	}
	return out
}

func inClefRange(octave int, clef model.Clef, mode model.ClefMode) bool {
	if mode != model.ModeBoth {
		return true
	}
	if clef == model.Treble {
		return octave >= settings.TrebleMinOctave
	}
	return octave <= settings.BassMaxOctave
}

// Pick draws one note from the pool. It reports false for an empty pool.
func (g *Generator) Pick(pool []model.Note) (model.Note, bool) {
	if len(pool) == 0 {
		return model.Note{}, false
	}
	return pool[g.rnd.Intn(len(pool))], true
}

// Draw builds the pool for a round and picks from it.
func (g *Generator) Draw(catalog []model.Note, clef model.Clef, mode model.ClefMode, octaves []int) (model.Note, bool) {
	return g.Pick(Pool(catalog, clef, mode, octaves))
}
