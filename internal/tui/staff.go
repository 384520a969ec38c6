package tui

import (
	"math"
	"strings"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/notes"
)

const (
	staffWidth  = 25
	ledgerHalf  = 2
	noteGlyph   = 'o'
	lineGlyph   = '-'
	clefColumns = 3
)

// renderStaff draws a five-line staff with the note at pos. Rows run from
// top to bottom in half-step increments; ledger lines are drawn only
// between the staff and the note.
func renderStaff(clef model.Clef, pos float64) []string {
	top := math.Max(notes.TopLine, math.Ceil(pos)) + 0.5
	bottom := math.Min(notes.BottomLine, math.Floor(pos)) - 0.5
	col := staffWidth / 2

	rows := make([]string, 0, int((top-bottom)*2)+1)
	for p := top; p >= bottom; p -= 0.5 {
		row := []rune(strings.Repeat(" ", staffWidth))
		isLine := p == math.Trunc(p)
		switch {
		case isLine && p >= notes.BottomLine && p <= notes.TopLine:
			for i := range row {
				row[i] = lineGlyph
			}
		case isLine && isLedger(p, pos):
			for i := col - ledgerHalf; i <= col+ledgerHalf; i++ {
				row[i] = lineGlyph
			}
		}
		if p == pos {
			row[col] = noteGlyph
		}
		rows = append(rows, clefMark(clef, p)+string(row))
	}
	return rows
}

func isLedger(p, pos float64) bool {
	if p < notes.BottomLine {
		return p >= pos
	}
	if p > notes.TopLine {
		return p <= pos
	}
	return false
}

// clefMark labels the reference line of the clef: G on the second line for
// treble, F on the fourth line for bass.
func clefMark(clef model.Clef, p float64) string {
	ref, mark := 1.0, "G"
	if clef == model.Bass {
		ref, mark = 3.0, "F"
	}
	if p == ref {
		return mark + strings.Repeat(" ", clefColumns-1)
	}
	return strings.Repeat(" ", clefColumns)
}
