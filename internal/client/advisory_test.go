package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kube-rca/remediator/internal/model"
	openai "github.com/sashabaranov/go-openai"
)

func TestParseAdvice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: `{"reasoning":"r","command":"free -m"}`, want: "free -m"},
		{name: "fenced", input: "```json\n{\"reasoning\":\"r\",\"command\":\"df -h\"}\n```", want: "df -h"},
		{name: "garbage", input: "I think you should reboot", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAdvice(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Command != tt.want {
				t.Fatalf("command = %q, want %q", got.Command, tt.want)
			}
		})
	}
}

type fakeCompleter struct {
	req     openai.ChatCompletionRequest
	content string
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content}},
	}}, nil
}

func TestOpenAIAdvisorSuggest(t *testing.T) {
	fake := &fakeCompleter{content: `{"reasoning":"nginx is down","command":"systemctl restart nginx"}`}
	advisor := &OpenAIAdvisor{client: fake, model: "gpt-4o-mini", logBucket: "logs"}

	cmd, reasoning, err := advisor.Suggest(context.Background(), model.AdvisoryRequest{AlarmName: "NginxDown", Diagnostics: "inactive (dead)"})
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if cmd != "systemctl restart nginx" || reasoning != "nginx is down" {
		t.Fatalf("unexpected suggestion: %q %q", cmd, reasoning)
	}
	if len(fake.req.Messages) != 2 || fake.req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("unexpected messages: %+v", fake.req.Messages)
	}
}

func TestAgentClientSuggestAndRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/suggest":
			_ = json.NewEncoder(w).Encode(model.AdvisoryResponse{Reasoning: "r", Command: "free -m"})
		case "/execute":
			var req AgentExecuteRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(model.ExecResult{Output: req.Commands[0] + " ok", Succeeded: true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewAgentClient(srv.URL)
	cmd, _, err := c.Suggest(context.Background(), model.AdvisoryRequest{})
	if err != nil || cmd != "free -m" {
		t.Fatalf("Suggest = %q, %v", cmd, err)
	}

	res, err := c.Run(context.Background(), model.ExecRequest{TargetID: "i-1", Commands: []string{"uptime"}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.Succeeded || res.Output != "uptime ok" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestAgentClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, _, err := NewAgentClient(srv.URL).Suggest(context.Background(), model.AdvisoryRequest{}); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}
