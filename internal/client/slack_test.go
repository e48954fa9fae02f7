package client

import (
	"context"
	"testing"

	"github.com/kube-rca/remediator/internal/config"
	"github.com/kube-rca/remediator/internal/model"
	"github.com/slack-go/slack"
)

func TestToSlackMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bold-only",
			input: "This is **bold** text.",
			want:  "This is *bold* text.",
		},
		{
			name:  "inline-code-protected",
			input: "Use `2 ** 3` and **bold**.",
			want:  "Use `2 ** 3` and *bold*.",
		},
		{
			name:  "code-block-protected",
			input: "```python\n2 ** 3\n```\n**bold**",
			want:  "```python\n2 ** 3\n```\n*bold*",
		},
		{
			name:  "mixed-inline-and-bold",
			input: "**Bold** and `code **`",
			want:  "*Bold* and `code **`",
		},
		{
			name:  "heading-converted",
			input: "### 1) 요약 (Summary)\n내용",
			want:  "*1) 요약 (Summary)*\n내용",
		},
		{
			name:  "heading-protected-in-code-block",
			input: "```\n### 1) 요약 (Summary)\n```\n**bold**",
			want:  "```\n### 1) 요약 (Summary)\n```\n*bold*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toSlackMarkdown(tt.input); got != tt.want {
				t.Fatalf("toSlackMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeSlackAPI - 옵션 개수로 쓰레드 답글 여부 기록 (attachment + thread_ts)
type fakeSlackAPI struct {
	threaded []bool
	ts       string
}

func (f *fakeSlackAPI) PostMessageContext(_ context.Context, _ string, options ...slack.MsgOption) (string, string, error) {
	f.threaded = append(f.threaded, len(options) == 2)
	return "C1", f.ts, nil
}

func TestSendIncidentThreads(t *testing.T) {
	api := &fakeSlackAPI{ts: "111.222"}
	c := &SlackClient{api: api, channelID: "C1"}
	inc := &model.Incident{IncidentID: "inc-1", AlarmName: "HighDisk", Status: model.StatusPendingApproval}
	ctx := context.Background()

	if err := c.SendIncident(ctx, inc); err != nil {
		t.Fatalf("SendIncident error: %v", err)
	}
	inc.Status = model.StatusExecuting
	if err := c.SendIncident(ctx, inc); err != nil {
		t.Fatalf("SendIncident error: %v", err)
	}
	inc.Status = model.StatusCompleted
	if err := c.SendIncident(ctx, inc); err != nil {
		t.Fatalf("SendIncident error: %v", err)
	}

	want := []bool{false, true, true}
	for i, threaded := range want {
		if api.threaded[i] != threaded {
			t.Fatalf("message %d threaded = %v, want %v", i, api.threaded[i], threaded)
		}
	}
	if _, ok := c.GetThreadTS("inc-1"); ok {
		t.Fatalf("thread should be dropped after terminal status")
	}
}

func TestSlackNotConfigured(t *testing.T) {
	c := NewSlackClient(config.SlackConfig{})
	if c.IsConfigured() {
		t.Fatalf("empty config must not be configured")
	}
	if err := c.SendIncident(context.Background(), &model.Incident{IncidentID: "x"}); err == nil {
		t.Fatalf("expected error when not configured")
	}
}
