package service

import (
	"math"
	"time"

	"github.com/kube-rca/remediator/internal/model"
)

const dailyWindowDays = 7

// ComputeStats - 전체 incident 목록으로 대시보드 지표 계산 (순수 함수)
//   - success_rate: (completed + auto_remediated) / 종료 상태 전체, %
//   - avg_mttr_seconds: 종료 incident의 (마지막 timeline 시각 - created_at) 평균
//   - daily_counts: UTC 생성일 기준 최근 7일 (없는 날은 0, 범위 밖은 제외)
func ComputeStats(incidents []model.Incident, now time.Time) model.IncidentStats {
	stats := model.IncidentStats{
		Total:        len(incidents),
		StatusCounts: make(map[model.Status]int, len(model.AllStatuses)),
		DailyCounts:  make(map[string]int),
	}
	for _, st := range model.AllStatuses {
		stats.StatusCounts[st] = 0
	}

	today := now.UTC().Truncate(24 * time.Hour)
	for i := 0; i < dailyWindowDays; i++ {
		stats.DailyCounts[today.AddDate(0, 0, -i).Format(time.DateOnly)] = 0
	}

	var terminal, success int
	var mttrTotal float64
	var mttrCount int
	for i := range incidents {
		inc := &incidents[i]
		stats.StatusCounts[inc.Status]++
		if day := inc.CreatedAt.UTC().Format(time.DateOnly); hasKey(stats.DailyCounts, day) {
			stats.DailyCounts[day]++
		}

		if inc.SuggestionSource == model.SourceFallback {
			stats.FallbackCount++
		}
		if !inc.Status.IsTerminal() {
			continue
		}
		terminal++
		if inc.Status.IsSuccess() {
			success++
		}
		if resolvedAt, ok := inc.ResolvedAt(); ok {
			mttrTotal += resolvedAt.Sub(inc.CreatedAt).Seconds()
			mttrCount++
		}
	}

	stats.TotalResolved = terminal
	stats.SuccessRate = percent(success, terminal)
	stats.FallbackRate = percent(stats.FallbackCount, stats.Total)
	if mttrCount > 0 {
		stats.AvgMTTRSeconds = round1(mttrTotal / float64(mttrCount))
	}
	return stats
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return round1(float64(n) / float64(d) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func hasKey(m map[string]int, k string) bool {
	_, ok := m[k]
	return ok
}
