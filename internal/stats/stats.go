// Package stats contains history metrics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/verte-zerg/tuinote/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Accuracy returns round(score/total*100), or 0 when total is not positive.
func Accuracy(score, totalRounds int) int {
	if totalRounds <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(totalRounds) * 100))
}

// AverageCorrectResponseMs averages response times of correct rounds that
// have one. It reports false when no such round exists.
func AverageCorrectResponseMs(rounds []model.RoundRecord) (int64, bool) {
	var sum, count int64
	for _, r := range rounds {
		if !r.Correct || r.ResponseTimeMs == nil || *r.ResponseTimeMs <= 0 {
			continue
		}
		sum += *r.ResponseTimeMs
		count++
	}
	if count == 0 {
		return 0, false
	}
	return int64(math.Round(float64(sum) / float64(count))), true
}

// FormatSeconds renders milliseconds as seconds with one decimal ("1.5s").
func FormatSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 1, 64) + "s"
}

// ScoreMessage picks the end-of-game message for a score.
func ScoreMessage(score, totalRounds int) string {
	s := float64(score)
	t := float64(totalRounds)
	switch {
	case score == totalRounds:
		return "Perfect score! You are a music master!"
	case s > t*0.8:
		return "Excellent work! Almost perfect!"
	case s > t/2:
		return "Good job! Keep practicing!"
	case s > t*0.3:
		return "You are on the right track. Practice a bit more."
	default:
		return "Don't give up, keep practicing and you will improve!"
	}
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints aggregate figures for completed games.
func RenderSummary(w io.Writer, r Report) error {
	if r.Completed == 0 {
		_, err := fmt.Fprintln(w, "No completed games found.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Games: %d", r.Completed),
		fmt.Sprintf("Avg Accuracy: %.1f%%", r.AvgAccuracy),
		fmt.Sprintf("Best Accuracy: %d%%", r.BestAccuracy),
	}
	if r.HasResponse {
		lines = append(lines, fmt.Sprintf("Avg Correct Response: %s", FormatSeconds(r.AvgResponseMs)))
	}
	if len(r.Trend) > 1 {
		lines = append(lines, fmt.Sprintf("Trend: %s", Sparkline(r.Trend)))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderGameTable prints one line per game, most recent first.
func RenderGameTable(w io.Writer, entries []model.GameEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No games found.")
		return err
	}
	headers := []string{"Date", "Clef", "Score", "Accuracy", "Avg Time", "Status", "Rounds"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		avg := "N/A"
		if ms, ok := AverageCorrectResponseMs(e.Rounds); ok {
			avg = FormatSeconds(ms)
		}
		status := "in progress"
		if e.Completed {
			status = "completed"
		}
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			string(e.Clef),
			fmt.Sprintf("%d/%d", e.Score, e.TotalRounds),
			fmt.Sprintf("%d%%", Accuracy(e.Score, e.TotalRounds)),
			avg,
			status,
			RoundMarks(e.Rounds),
		})
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RoundMarks renders one ✓ or ✗ per round.
func RoundMarks(rounds []model.RoundRecord) string {
	var b strings.Builder
	for _, r := range rounds {
		if r.Correct {
			b.WriteRune('✓')
		} else {
			b.WriteRune('✗')
		}
	}
	return b.String()
}
