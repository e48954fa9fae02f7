package template

import (
	"testing"
	"time"

	"github.com/kube-rca/remediator/internal/model"
)

func TestRenderBody(t *testing.T) {
	inc := &model.Incident{
		IncidentID:        "1_HighDisk_i-1",
		AlarmName:         "HighDisk",
		TargetID:          "i-1",
		Status:            model.StatusFailed,
		AISuggestion:      "echo \"hi\"",
		RemediationOutput: "line1\nline2",
		CreatedAt:         time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	data := IncidentDataFromModel(inc)

	tests := []struct {
		name string
		body string
		data *IncidentData
		want string
	}{
		{
			name: "basic",
			body: `{"id":"{{incident.id}}","status":"{{incident.status}}"}`,
			data: &data,
			want: `{"id":"1_HighDisk_i-1","status":"failed"}`,
		},
		{
			name: "escaped values",
			body: `{"cmd":"{{incident.suggestion}}","out":"{{incident.output}}"}`,
			data: &data,
			want: `{"cmd":"echo \"hi\"","out":"line1\nline2"}`,
		},
		{
			name: "time",
			body: `{{incident.created_at}}|{{incident.updated_at}}`,
			data: &data,
			want: `2026-03-01T10:00:00Z|`,
		},
		{
			name: "nil incident",
			body: `{"id":"{{incident.id}}"}`,
			data: nil,
			want: `{"id":""}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderBody(tt.body, tt.data); got != tt.want {
				t.Fatalf("RenderBody() = %q, want %q", got, tt.want)
			}
		})
	}
}
