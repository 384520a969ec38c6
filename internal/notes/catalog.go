// Package notes provides the static note catalog for each clef.
package notes

import (
	"math"
	"strings"

	"github.com/verte-zerg/tuinote/internal/model"
)

// Staff line range for a five-line staff. Integer positions are lines,
// half positions are spaces; position 0 is the bottom line.
const (
	BottomLine = 0.0
	TopLine    = 4.0
)

type entry struct {
	name   string
	solfeo string
	pos    float64
	freq   float64
}

// Lines from bottom to top: E4 G4 B4 D5 F5.
var trebleTable = []entry{
	{"C4", "Do", -1, 261.63},
	{"D4", "Re", -0.5, 293.66},
	{"E4", "Mi", 0, 329.63},
	{"F4", "Fa", 0.5, 349.23},
	{"G4", "Sol", 1, 392.00},
	{"A4", "La", 1.5, 440.00},
	{"B4", "Si", 2, 493.88},
	{"C5", "Do", 2.5, 523.25},
	{"D5", "Re", 3, 587.33},
	{"E5", "Mi", 3.5, 659.26},
	{"F5", "Fa", 4, 698.46},
	{"G5", "Sol", 4.5, 783.99},
	{"A5", "La", 5, 880.00},
	{"B5", "Si", 5.5, 987.77},
	{"C6", "Do", 6, 1046.50},
	{"D6", "Re", 6.5, 1174.66},
	{"E6", "Mi", 7, 1318.51},
	{"F6", "Fa", 7.5, 1396.91},
	{"G6", "Sol", 8, 1567.98},
}

// Lines from bottom to top: G2 B2 D3 F3 A3.
var bassTable = []entry{
	{"C2", "Do", -2, 65.41},
	{"D2", "Re", -1.5, 73.42},
	{"E2", "Mi", -1, 82.41},
	{"F2", "Fa", -0.5, 87.31},
	{"G2", "Sol", 0, 98.00},
	{"A2", "La", 0.5, 110.00},
	{"B2", "Si", 1, 123.47},
	{"C3", "Do", 1.5, 130.81},
	{"D3", "Re", 2, 146.83},
	{"E3", "Mi", 2.5, 164.81},
	{"F3", "Fa", 3, 174.61},
	{"G3", "Sol", 3.5, 196.00},
	{"A3", "La", 4, 220.00},
	{"B3", "Si", 4.5, 246.94},
	{"C4", "Do", 5, 261.63},
	{"D4", "Re", 5.5, 293.66},
	{"E4", "Mi", 6, 329.63},
}

// Catalog holds the immutable note tables. It is safe for concurrent reads.
type Catalog struct {
	treble []model.Note
	bass   []model.Note
}

// New builds the catalog.
func New() *Catalog {
	return &Catalog{
		treble: build(model.Treble, trebleTable),
		bass:   build(model.Bass, bassTable),
	}
}

func build(clef model.Clef, table []entry) []model.Note {
	out := make([]model.Note, 0, len(table))
	for _, e := range table {
		out = append(out, model.Note{
			PitchName:     e.name,
			SolfeoName:    e.solfeo,
			Octave:        octaveOf(e.name),
			Clef:          clef,
			StaffPosition: e.pos,
			OnLine:        e.pos == math.Trunc(e.pos),
			FrequencyHz:   e.freq,
		})
	}
	return out
}

func octaveOf(name string) int {
	oct := 0
	for _, r := range name {
		if r >= '0' && r <= '9' {
			oct = oct*10 + int(r-'0')
		}
	}
	return oct
}

// ForClef returns the notes of a clef ordered from lowest to highest.
// The returned slice is a copy.
func (c *Catalog) ForClef(clef model.Clef) []model.Note {
	src := c.treble
	if clef == model.Bass {
		src = c.bass
	}
	out := make([]model.Note, len(src))
	copy(out, src)
	return out
}

// Find looks up a note by pitch name (for example "C4") within a clef.
func (c *Catalog) Find(name string, clef model.Clef) (model.Note, bool) {
	src := c.treble
	if clef == model.Bass {
		src = c.bass
	}
	for _, n := range src {
		if strings.EqualFold(n.PitchName, name) {
			return n, true
		}
	}
	return model.Note{}, false
}

// Octaves lists the distinct octaves present for a clef, ascending.
func (c *Catalog) Octaves(clef model.Clef) []int {
	var out []int
	for _, n := range c.ForClef(clef) {
		if len(out) == 0 || out[len(out)-1] != n.Octave {
			out = append(out, n.Octave)
		}
	}
	return out
}

// LedgerLines reports how many ledger lines a staff position needs and
// whether they sit above the staff.
func LedgerLines(pos float64) (count int, above bool) {
	switch {
	case pos < BottomLine:
		return int(math.Floor(BottomLine - pos)), false
	case pos > TopLine:
		count = int(math.Floor(pos - TopLine))
		return count, count > 0
	default:
		return 0, false
	}
}

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// MIDINumber returns the MIDI key number of a note, with C4 = 60.
func MIDINumber(n model.Note) int {
	if n.PitchName == "" {
		return -1
	}
	semi, ok := semitones[n.PitchName[0]]
	if !ok {
		return -1
	}
	return (n.Octave+1)*12 + semi
}

// FromMIDI finds the catalog note of a clef for a MIDI key number.
// Accidentals and out-of-range keys are not in the catalog.
func (c *Catalog) FromMIDI(clef model.Clef, key int) (model.Note, bool) {
	for _, n := range c.ForClef(clef) {
		if MIDINumber(n) == key {
			return n, true
		}
	}
	return model.Note{}, false
}
