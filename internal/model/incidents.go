package model

import (
	"fmt"
	"time"
)

// ============================================================================
// Incident 모델 (장애 단위)
// ============================================================================

// Status - Incident 상태값 (wire contract, 변경 금지)
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusExecuting       Status = "executing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusRejected        Status = "rejected"
	StatusTimeout         Status = "timeout"
	StatusAutoRemediated  Status = "auto_remediated"
)

// AllStatuses - status_counts 등 집계에서 사용하는 전체 상태 목록
var AllStatuses = []Status{
	StatusPendingApproval,
	StatusExecuting,
	StatusCompleted,
	StatusFailed,
	StatusRejected,
	StatusTimeout,
	StatusAutoRemediated,
}

// ParseStatus - 쿼리 파라미터 등 문자열을 Status로 변환
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

// IsTerminal - 더 이상 전이가 불가능한 상태인지 여부
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected, StatusTimeout, StatusAutoRemediated:
		return true
	}
	return false
}

// IsSuccess - 성공으로 집계되는 종료 상태 (사람 승인/무인 모두 포함)
func (s Status) IsSuccess() bool {
	return s == StatusCompleted || s == StatusAutoRemediated
}

// transitions - 허용되는 상태 전이 목록
// "" 는 아직 저장되지 않은 신규 레코드를 의미
var transitions = map[Status][]Status{
	"":                    {StatusPendingApproval, StatusExecuting},
	StatusPendingApproval: {StatusExecuting, StatusRejected},
	StatusExecuting:       {StatusCompleted, StatusAutoRemediated, StatusFailed, StatusTimeout},
}

// CanTransition - from -> to 전이가 상태 머신에 정의되어 있는지 확인
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Timeline 이벤트 이름
const (
	EventCreated  = "created"
	EventApproved = "approved"
	EventRejected = "rejected"
)

// SuggestionSource - ai_suggestion 출처 (fallback 사용률 지표에 사용)
type SuggestionSource string

const (
	SourceAdvisory SuggestionSource = "advisory"
	SourceFallback SuggestionSource = "fallback"
	SourceNone     SuggestionSource = "none"
)

// TimelineEntry - Incident 이력 항목 (append-only)
type TimelineEntry struct {
	Event     string    `json:"event" dynamo:"event"`
	Timestamp time.Time `json:"timestamp" dynamo:"timestamp"`
	Detail    string    `json:"detail,omitempty" dynamo:"detail,omitempty"`
}

// Incident - 저장소에 기록되는 Incident 레코드
// 필드 이름과 status 값은 기존 observer와의 호환을 위해 그대로 유지
type Incident struct {
	IncidentID        string           `json:"incident_id" dynamo:"incident_id,hash"`
	AlarmName         string           `json:"alarm_name" dynamo:"alarm_name"`
	AlarmDescription  string           `json:"alarm_description" dynamo:"alarm_description"`
	TargetID          string           `json:"target_id" dynamo:"target_id"`
	Category          string           `json:"category" dynamo:"category"`
	Status            Status           `json:"status" dynamo:"status"`
	Diagnostics       string           `json:"diagnostics" dynamo:"diagnostics"`
	AISuggestion      string           `json:"ai_suggestion" dynamo:"ai_suggestion"`
	AIReasoning       string           `json:"ai_reasoning" dynamo:"ai_reasoning"`
	SuggestionSource  SuggestionSource `json:"suggestion_source" dynamo:"suggestion_source"`
	CustomCommand     string           `json:"custom_command,omitempty" dynamo:"custom_command,omitempty"`
	RemediationOutput string           `json:"remediation_output" dynamo:"remediation_output"`
	Timeline          []TimelineEntry  `json:"timeline" dynamo:"timeline"`
	CreatedAt         time.Time        `json:"created_at" dynamo:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" dynamo:"updated_at"`
}

// Command - 실행 대상 명령 (운영자 override가 있으면 우선)
func (i *Incident) Command() string {
	if i.CustomCommand != "" {
		return i.CustomCommand
	}
	return i.AISuggestion
}

// ResolvedAt - 종료 시각 (마지막 timeline 항목), 종료 전이면 false
func (i *Incident) ResolvedAt() (time.Time, bool) {
	if !i.Status.IsTerminal() || len(i.Timeline) == 0 {
		return time.Time{}, false
	}
	return i.Timeline[len(i.Timeline)-1].Timestamp, true
}

// NewIncidentID - (alarm name, target id, 생성 시각 버킷)으로 결정적 ID 생성
// 같은 window 안에서 중복 전달된 alarm은 같은 ID를 갖게 됨
func NewIncidentID(alarmName, targetID string, createdAt time.Time, window time.Duration) string {
	bucket := createdAt.UTC()
	if window > 0 {
		bucket = bucket.Truncate(window)
	}
	return fmt.Sprintf("%d_%s_%s", bucket.Unix(), alarmName, targetID)
}

// IncidentUpdate - 조건부 전이 시 적용할 변경분
// nil 필드는 변경하지 않음, Timeline은 기존 목록 뒤에 append
type IncidentUpdate struct {
	Status            Status
	CustomCommand     *string
	RemediationOutput *string
	Timeline          []TimelineEntry
	UpdatedAt         time.Time
}

// Apply - 메모리 상의 레코드에 변경분 적용 (저장소 구현 공용)
func (u IncidentUpdate) Apply(inc *Incident) {
	inc.Status = u.Status
	if u.CustomCommand != nil {
		inc.CustomCommand = *u.CustomCommand
	}
	if u.RemediationOutput != nil {
		inc.RemediationOutput = *u.RemediationOutput
	}
	inc.Timeline = append(inc.Timeline, u.Timeline...)
	inc.UpdatedAt = u.UpdatedAt
}

// IncidentFilter - 목록 조회 필터 (Status가 비어 있으면 전체)
type IncidentFilter struct {
	Status Status
}

// ============================================================================
// API Request / Response
// ============================================================================

// IncidentListResponse - Incident 목록 조회 응답
type IncidentListResponse struct {
	Incidents []Incident `json:"incidents"`
}

// ApproveIncidentRequest - 승인 요청 (custom_command 지정 시 AI 제안 대신 실행)
type ApproveIncidentRequest struct {
	CustomCommand string `json:"custom_command"`
}

// IncidentDecisionResponse - 승인/거절 API 응답
type IncidentDecisionResponse struct {
	Status     Status `json:"status"`
	Message    string `json:"message"`
	IncidentID string `json:"incident_id"`
}

// AlarmIngestResponse - alarm 수신 API 응답
type AlarmIngestResponse struct {
	Status     string `json:"status"`
	IncidentID string `json:"incident_id,omitempty"`
	Incident   Status `json:"incident_status,omitempty"`
	Duplicate  bool   `json:"duplicate"`
}
