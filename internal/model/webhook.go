package model

// WebhookHeader - 헤더 키-값 쌍
type WebhookHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WebhookConfig - Incident 상태 변경을 전달할 외부 웹훅 설정
type WebhookConfig struct {
	ID      int             `json:"id"`
	URL     string          `json:"url"`
	Method  string          `json:"method"`
	Headers []WebhookHeader `json:"headers"`
	Body    string          `json:"body"`
}

// IncidentEvent - 상태 전이 완료 시 observer에게 전달되는 최소 이벤트
type IncidentEvent struct {
	Type       string `json:"type"`
	IncidentID string `json:"incident_id"`
	Status     Status `json:"status"`
}

const EventTypeIncidentUpdate = "incident_update"
