package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/settings"
)

const cellGap = 2

type answerCell struct {
	s     string
	width int
}

// buildAnswerCells styles the answer buttons. After an answer the chosen
// button and the right one are marked.
func buildAnswerCells(choices []model.Note, notation model.NotationMode, cursor int, st model.SessionState) []answerCell {
	out := make([]answerCell, 0, len(choices))
	for i, n := range choices {
		label := "[" + settings.Label(n, notation) + "]"
		style := pendingStyle
		switch {
		case st.ShowResult && st.CurrentNote != nil && sameNote(n, *st.CurrentNote):
			style = correctStyle
		case st.ShowResult && st.SelectedAnswer != nil && sameNote(n, *st.SelectedAnswer):
			style = incorrectStyle
		case !st.ShowResult && i == cursor:
			style = cursorStyle
		}
		out = append(out, answerCell{
			s:     style.Render(label),
			width: runewidth.StringWidth(label),
		})
	}
	return out
}

func sameNote(a, b model.Note) bool {
	return a.SolfeoName == b.SolfeoName && a.Octave == b.Octave
}

func renderCells(cells []answerCell) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.s
	}
	return strings.Join(parts, strings.Repeat(" ", cellGap))
}

// wrapCells lays cells out in rows no wider than width. A cell wider than
// width gets a row of its own.
func wrapCells(cells []answerCell, width int) []string {
	if width <= 0 {
		return []string{renderCells(cells)}
	}
	var rows []string
	line := make([]answerCell, 0, len(cells))
	lineWidth := 0
	for _, c := range cells {
		next := c.width
		if len(line) > 0 {
			next += cellGap
		}
		if lineWidth+next > width && len(line) > 0 {
			rows = append(rows, renderCells(line))
			line = line[:0]
			lineWidth = 0
			next = c.width
		}
		line = append(line, c)
		lineWidth += next
	}
	if len(line) > 0 {
		rows = append(rows, renderCells(line))
	}
	return rows
}

// rowsOf returns how many cells fit on the first row; used for up/down
// navigation in the answer grid.
func rowsOf(cells []answerCell, width int) int {
	if width <= 0 || len(cells) == 0 {
		return len(cells)
	}
	n, lineWidth := 0, 0
	for _, c := range cells {
		next := c.width
		if n > 0 {
			next += cellGap
		}
		if lineWidth+next > width && n > 0 {
			break
		}
		lineWidth += next
		n++
	}
	return n
}
