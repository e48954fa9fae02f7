package model

// IncidentStats - 대시보드 Metrics 화면용 집계 결과
// 모든 비율/평균은 분모가 0이면 0으로 보고
type IncidentStats struct {
	Total          int            `json:"total"`
	StatusCounts   map[Status]int `json:"status_counts"`
	DailyCounts    map[string]int `json:"daily_counts"`
	AvgMTTRSeconds float64        `json:"avg_mttr_seconds"`
	SuccessRate    float64        `json:"success_rate"`
	TotalResolved  int            `json:"total_resolved"`

	// fallback으로 생성된 remediation 비율 (advisory 품질 지표)
	FallbackCount int     `json:"fallback_count"`
	FallbackRate  float64 `json:"fallback_rate"`
}
