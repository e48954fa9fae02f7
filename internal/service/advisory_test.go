package service

import (
	"context"
	"testing"
	"time"

	"github.com/kube-rca/remediator/internal/model"
	"github.com/kube-rca/remediator/internal/planner"
	"github.com/stretchr/testify/assert"
)

func TestAdvisorySuggest(t *testing.T) {
	p := planner.New("logs")
	disk, _ := p.Fallback(planner.DiskPressure)

	tests := []struct {
		name     string
		advisor  Advisor
		category planner.Category
		want     Suggestion
	}{
		{
			name:     "advisory answer is used",
			advisor:  staticAdvisor("  journalctl --vacuum-size=200M "),
			category: planner.DiskPressure,
			want:     Suggestion{Command: "journalctl --vacuum-size=200M", Reasoning: "advisor reasoning", Source: model.SourceAdvisory},
		},
		{
			name:     "provider error falls back",
			advisor:  failingAdvisor(),
			category: planner.DiskPressure,
			want:     Suggestion{Command: disk.Command, Reasoning: FallbackReasoning, Source: model.SourceFallback},
		},
		{
			name:     "empty command falls back",
			advisor:  staticAdvisor("   "),
			category: planner.DiskPressure,
			want:     Suggestion{Command: disk.Command, Reasoning: FallbackReasoning, Source: model.SourceFallback},
		},
		{
			name:     "no provider falls back",
			advisor:  nil,
			category: planner.DiskPressure,
			want:     Suggestion{Command: disk.Command, Reasoning: FallbackReasoning, Source: model.SourceFallback},
		},
		{
			name:     "unclassified without fallback",
			advisor:  failingAdvisor(),
			category: planner.Unclassified,
			want:     Suggestion{Source: model.SourceNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewAdvisoryService(tt.advisor, p, time.Second)
			got := s.Suggest(context.Background(), tt.category, model.AdvisoryRequest{AlarmName: "HighDisk", TargetID: "i-1"})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvisoryTimeoutIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := advisorFunc(func(context.Context, model.AdvisoryRequest) (string, string, error) {
		<-release
		return "echo late", "", nil
	})

	s := NewAdvisoryService(slow, planner.New("logs"), 20*time.Millisecond)
	start := time.Now()
	got := s.Suggest(context.Background(), planner.ServiceDown, model.AdvisoryRequest{AlarmName: "NginxDown"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, model.SourceFallback, got.Source)
	assert.Equal(t, "systemctl restart nginx", got.Command)
}
