package service

import (
	"testing"
	"time"

	"github.com/kube-rca/remediator/internal/model"
	"github.com/stretchr/testify/assert"
)

var statsNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func resolved(status model.Status, created time.Time, after time.Duration, source model.SuggestionSource) model.Incident {
	return model.Incident{
		Status:           status,
		SuggestionSource: source,
		CreatedAt:        created,
		Timeline: []model.TimelineEntry{
			{Event: model.EventCreated, Timestamp: created},
			{Event: string(status), Timestamp: created.Add(after)},
		},
	}
}

func TestComputeStats(t *testing.T) {
	day := statsNow.Add(-2 * time.Hour)
	incidents := []model.Incident{
		resolved(model.StatusCompleted, day, 60*time.Second, model.SourceAdvisory),
		resolved(model.StatusCompleted, day, 120*time.Second, model.SourceFallback),
		resolved(model.StatusFailed, day.AddDate(0, 0, -1), 30*time.Second, model.SourceAdvisory),
		resolved(model.StatusRejected, day.AddDate(0, 0, -3), 90*time.Second, model.SourceAdvisory),
	}

	stats := ComputeStats(incidents, statsNow)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 4, stats.TotalResolved)
	assert.Equal(t, 50.0, stats.SuccessRate)
	assert.Equal(t, 75.0, stats.AvgMTTRSeconds)
	assert.Equal(t, 1, stats.FallbackCount)
	assert.Equal(t, 25.0, stats.FallbackRate)

	assert.Equal(t, 2, stats.StatusCounts[model.StatusCompleted])
	assert.Equal(t, 1, stats.StatusCounts[model.StatusFailed])
	assert.Equal(t, 1, stats.StatusCounts[model.StatusRejected])
	assert.Equal(t, 0, stats.StatusCounts[model.StatusExecuting])
	assert.Len(t, stats.StatusCounts, len(model.AllStatuses))

	assert.Len(t, stats.DailyCounts, 7)
	assert.Equal(t, 2, stats.DailyCounts["2026-03-10"])
	assert.Equal(t, 1, stats.DailyCounts["2026-03-09"])
	assert.Equal(t, 0, stats.DailyCounts["2026-03-08"])
	assert.Equal(t, 1, stats.DailyCounts["2026-03-07"])
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil, statsNow)

	assert.Equal(t, 0, stats.Total)
	assert.Zero(t, stats.SuccessRate)
	assert.Zero(t, stats.AvgMTTRSeconds)
	assert.Zero(t, stats.FallbackRate)
	assert.Len(t, stats.DailyCounts, 7)
	for day, n := range stats.DailyCounts {
		assert.Zero(t, n, day)
	}
}

func TestComputeStatsIgnoresOpenIncidents(t *testing.T) {
	open := model.Incident{
		Status:    model.StatusPendingApproval,
		CreatedAt: statsNow.Add(-time.Hour),
		Timeline:  []model.TimelineEntry{{Event: model.EventCreated, Timestamp: statsNow.Add(-time.Hour)}},
	}
	old := resolved(model.StatusAutoRemediated, statsNow.AddDate(0, 0, -30), 10*time.Second, model.SourceAdvisory)

	stats := ComputeStats([]model.Incident{open, old}, statsNow)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.TotalResolved)
	assert.Equal(t, 100.0, stats.SuccessRate)
	assert.Equal(t, 10.0, stats.AvgMTTRSeconds)
	assert.Equal(t, 1, stats.DailyCounts["2026-03-10"])
	assert.NotContains(t, stats.DailyCounts, "2026-02-08")
}
