package model

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusErrorResponse - 상태 충돌 시 현재 상태를 함께 반환
type StatusErrorResponse struct {
	Error  string `json:"error"`
	Status Status `json:"status"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AlertWebhookResponse struct {
	Status     string   `json:"status"`
	AlertCount int      `json:"alertCount"`
	Created    int      `json:"created"`
	Duplicates int      `json:"duplicates"`
	Skipped    int      `json:"skipped"`
	Incidents  []string `json:"incident_ids"`
}
