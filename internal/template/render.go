// Package template provides incident report rendering and webhook body templating.
//
// webhook body 변수 형식:
//
//	{{incident.id}}, {{incident.alarm_name}}, {{incident.target_id}},
//	{{incident.category}}, {{incident.status}}, {{incident.suggestion}},
//	{{incident.suggestion_source}}, {{incident.output}},
//	{{incident.created_at}}, {{incident.updated_at}}
//
// 값은 JSON 문자열 escape 후 치환 (body가 JSON 템플릿인 경우가 대부분)
package template

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kube-rca/remediator/internal/model"
)

// IncidentData - 템플릿 렌더링에 사용할 Incident 데이터
type IncidentData struct {
	ID               string
	AlarmName        string
	TargetID         string
	Category         string
	Status           string
	Suggestion       string
	SuggestionSource string
	Output           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IncidentDataFromModel - model.Incident에서 IncidentData 생성
func IncidentDataFromModel(inc *model.Incident) IncidentData {
	return IncidentData{
		ID:               inc.IncidentID,
		AlarmName:        inc.AlarmName,
		TargetID:         inc.TargetID,
		Category:         inc.Category,
		Status:           string(inc.Status),
		Suggestion:       inc.Command(),
		SuggestionSource: string(inc.SuggestionSource),
		Output:           inc.RemediationOutput,
		CreatedAt:        inc.CreatedAt,
		UpdatedAt:        inc.UpdatedAt,
	}
}

// RenderBody - webhook body 템플릿의 변수를 실제 값으로 치환
// incident가 nil이면 모든 변수는 빈 문자열로 치환
func RenderBody(body string, incident *IncidentData) string {
	var d IncidentData
	if incident != nil {
		d = *incident
	}
	pairs := []string{
		"{{incident.id}}", escape(d.ID),
		"{{incident.alarm_name}}", escape(d.AlarmName),
		"{{incident.target_id}}", escape(d.TargetID),
		"{{incident.category}}", escape(d.Category),
		"{{incident.status}}", escape(d.Status),
		"{{incident.suggestion}}", escape(d.Suggestion),
		"{{incident.suggestion_source}}", escape(d.SuggestionSource),
		"{{incident.output}}", escape(d.Output),
		"{{incident.created_at}}", formatTime(d.CreatedAt),
		"{{incident.updated_at}}", formatTime(d.UpdatedAt),
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

func escape(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b[1 : len(b)-1])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
