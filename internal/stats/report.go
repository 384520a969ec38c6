// Package stats contains history metrics and reporting.
package stats

import (
	"github.com/verte-zerg/tuinote/internal/model"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Games         []model.GameEntry
	Completed     int
	AvgAccuracy   float64
	BestAccuracy  int
	AvgResponseMs int64
	HasResponse   bool
	// Trend holds per-game accuracy, oldest first, smoothed over TrendWindow.
	Trend []float64
}

// TrendWindow is the moving-average window for the accuracy trend.
const TrendWindow = 3

// BuildReport prepares aggregates from a history log, most recent first.
func BuildReport(entries []model.GameEntry) Report {
	r := Report{Games: entries}
	var accSum float64
	var respSum, respCount int64
	trend := make([]float64, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.Completed {
			continue
		}
		acc := Accuracy(e.Score, e.TotalRounds)
		r.Completed++
		accSum += float64(acc)
		if acc > r.BestAccuracy {
			r.BestAccuracy = acc
		}
		trend = append(trend, float64(acc))
		for _, round := range e.Rounds {
			if round.Correct && round.ResponseTimeMs != nil && *round.ResponseTimeMs > 0 {
				respSum += *round.ResponseTimeMs
				respCount++
			}
		}
	}
	if r.Completed > 0 {
		r.AvgAccuracy = accSum / float64(r.Completed)
	}
	if respCount > 0 {
		r.AvgResponseMs = respSum / respCount
		r.HasResponse = true
	}
	r.Trend = MovingAverage(trend, TrendWindow)
	return r
}
