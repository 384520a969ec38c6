package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/notes"
)

func TestPoolFiltersOctaves(t *testing.T) {
	cat := notes.New()
	pool := Pool(cat.ForClef(model.Treble), model.Treble, model.ModeTreble, []int{5})
	require.Len(t, pool, 7)
	for _, n := range pool {
		assert.Equal(t, 5, n.Octave)
	}
}

func TestPoolBothModeCrossChecksClefRange(t *testing.T) {
	cat := notes.New()

	// Octave 4 exists in the bass catalog but belongs to the treble hand.
	pool := Pool(cat.ForClef(model.Bass), model.Bass, model.ModeBoth, []int{3, 4})
	require.NotEmpty(t, pool)
	for _, n := range pool {
		assert.Equal(t, 3, n.Octave)
	}

	pool = Pool(cat.ForClef(model.Treble), model.Treble, model.ModeBoth, []int{3, 4})
	require.NotEmpty(t, pool)
	for _, n := range pool {
		assert.Equal(t, 4, n.Octave)
	}
}

func TestPoolFallsBackToFullCatalog(t *testing.T) {
	cat := notes.New()
	full := cat.ForClef(model.Bass)
	pool := Pool(full, model.Bass, model.ModeBass, []int{6})
	assert.Equal(t, full, pool)

	pool = Pool(cat.ForClef(model.Treble), model.Treble, model.ModeBoth, []int{2, 3})
	assert.Len(t, pool, len(cat.ForClef(model.Treble)))
}

func TestDrawMatchesClefAndOctave(t *testing.T) {
	cat := notes.New()
	g := NewSeeded(7)
	for i := 0; i < 200; i++ {
		n, ok := g.Draw(cat.ForClef(model.Bass), model.Bass, model.ModeBass, []int{2})
		require.True(t, ok)
		assert.Equal(t, model.Bass, n.Clef)
		assert.Equal(t, 2, n.Octave)
	}
}

func TestDrawCoversPool(t *testing.T) {
	cat := notes.New()
	g := NewSeeded(1)
	pool := Pool(cat.ForClef(model.Treble), model.Treble, model.ModeTreble, []int{6})
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		n, _ := g.Pick(pool)
		seen[n.PitchName] = true
	}
	assert.Len(t, seen, len(pool))
}

func TestPickEmpty(t *testing.T) {
	_, ok := New().Pick(nil)
	assert.False(t, ok)
}
