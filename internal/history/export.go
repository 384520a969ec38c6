package history

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/stats"
)

// CSVHeader is the first line of an export.
const CSVHeader = "Fecha,Puntuación,Total Rondas,% Acierto,Clave,Rondas,Notas Mostradas,Notas Seleccionadas,Resultados,Tiempos (ms)"

// DateLayout is the local time layout used for the date column.
const DateLayout = "2006-01-02 15:04:05"

// ExportFileName names an export file after the UTC date it was made.
func ExportFileName(now time.Time) string {
	return "historial-quiz-musical-" + now.UTC().Format("2006-01-02") + ".csv"
}

// ExportFile writes the CSV export to path, replacing any existing file.
// It reports false, writing nothing, when there are no completed games.
func (l *Log) ExportFile(path string) (bool, error) {
	data, ok := l.Export()
	if !ok {
		return false, nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create export dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "export-*.csv")
	if err != nil {
		return false, fmt.Errorf("failed to create temp export: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.WriteString(data); err != nil {
		return false, fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return false, fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return false, fmt.Errorf("failed to move export: %w", err)
	}
	return true, nil
}

// Export renders the completed entries of the log as CSV. It reports false
// when there is nothing to export.
func (l *Log) Export() (string, bool) {
	return ExportCSV(l.Completed())
}

// ExportCSV renders completed entries as CSV text.
func ExportCSV(entries []model.GameEntry) (string, bool) {
	var b strings.Builder
	n, err := WriteCSV(&b, entries)
	if err != nil || n == 0 {
		return "", false
	}
	return b.String(), true
}

// WriteCSV writes the header and one row per completed entry. It returns
// the number of data rows written.
func WriteCSV(w io.Writer, entries []model.GameEntry) (int, error) {
	rows := 0
	for _, e := range entries {
		if !e.Completed {
			continue
		}
		if rows == 0 {
			if _, err := fmt.Fprintln(w, CSVHeader); err != nil {
				return 0, err
			}
		}
		if _, err := fmt.Fprintln(w, csvRow(e)); err != nil {
			return rows, err
		}
		rows++
	}
	return rows, nil
}

func csvRow(e model.GameEntry) string {
	numbers := make([]string, len(e.Rounds))
	shown := make([]string, len(e.Rounds))
	selected := make([]string, len(e.Rounds))
	results := make([]string, len(e.Rounds))
	times := make([]string, len(e.Rounds))
	for i, r := range e.Rounds {
		numbers[i] = strconv.Itoa(r.Round)
		shown[i] = r.ShownNote
		selected[i] = r.SelectedNote
		results[i] = "Incorrecto"
		if r.Correct {
			results[i] = "Correcto"
		}
		times[i] = "N/A"
		if r.ResponseTimeMs != nil {
			times[i] = strconv.FormatInt(*r.ResponseTimeMs, 10)
		}
	}
	clef := string(e.Clef)
	if clef == "" {
		clef = string(model.ModeTreble)
	}
	fields := []string{
		quote(formatDate(e.StartedAt)),
		strconv.Itoa(e.Score),
		strconv.Itoa(e.TotalRounds),
		fmt.Sprintf("%d%%", stats.Accuracy(e.Score, e.TotalRounds)),
		quote(clef),
		quote(strings.Join(numbers, "|")),
		quote(strings.Join(shown, "|")),
		quote(strings.Join(selected, "|")),
		quote(strings.Join(results, "|")),
		quote(strings.Join(times, "|")),
	}
	return strings.Join(fields, ",")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(DateLayout)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
