package model

import "time"

// AdvisoryRequest - advisory(AI) 호출 입력
type AdvisoryRequest struct {
	AlarmName   string `json:"alarm_name"`
	Category    string `json:"category"`
	TargetID    string `json:"target_id"`
	Diagnostics string `json:"diagnostics"`
}

// AdvisoryResponse - advisory 응답 (JSON 형식 강제)
type AdvisoryResponse struct {
	Reasoning string `json:"reasoning"`
	Command   string `json:"command"`
}

// ExecRequest - 원격 실행 요청 (명령은 순서대로 실행, 출력은 하나로 합침)
type ExecRequest struct {
	TargetID string        `json:"target_id"`
	Commands []string      `json:"commands"`
	Budget   time.Duration `json:"-"`
}

// ExecResult - 원격 실행 결과
// Succeeded=false 이면 Error에 원격 측 실패 사유
type ExecResult struct {
	Output    string `json:"output"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}
