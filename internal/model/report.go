package model

import "time"

// ReportSection - 보고서 단락
type ReportSection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// IncidentReport - 종료된 Incident의 사후 보고서
type IncidentReport struct {
	IncidentID string          `json:"incident_id"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt time.Time       `json:"resolved_at"`
	Duration   string          `json:"duration"`
	Sections   []ReportSection `json:"sections"`
	Markdown   string          `json:"markdown"`
	HTML       string          `json:"html,omitempty"`
}
