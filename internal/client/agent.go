// Agent 서비스와 HTTP 통신하는 클라이언트 정의
//
// 설정:
//   - AGENT_URL: Agent 서비스 URL (예: http://sre-agent.sre.svc:8000)
//
// Agent가 제공하는 기능:
//   - POST /suggest: 진단 결과 기반 remediation 제안 (advisory)
//   - POST /execute: 대상에서 명령 실행 (executor)

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kube-rca/remediator/internal/model"
)

// AgentClient 구조체 정의
type AgentClient struct {
	baseURL    string
	httpClient *http.Client
}

// AgentExecuteRequest - POST /execute 요청
type AgentExecuteRequest struct {
	TargetID       string   `json:"target_id"`
	Commands       []string `json:"commands"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

// AgentClient 객체 생성
func NewAgentClient(baseURL string) *AgentClient {
	if baseURL == "" {
		baseURL = "http://sre-agent.sre.svc:8000"
	}

	return &AgentClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // AI 분석 시간 고려, 실제 상한은 호출자의 ctx
		},
	}
}

// Agent 설정 여부 체크
func (c *AgentClient) IsConfigured() bool {
	return c.baseURL != ""
}

// POST /suggest - remediation 제안 요청 (동기)
func (c *AgentClient) Suggest(ctx context.Context, req model.AdvisoryRequest) (string, string, error) {
	var resp model.AdvisoryResponse
	if err := c.post(ctx, "/suggest", req, &resp); err != nil {
		return "", "", err
	}
	return resp.Command, resp.Reasoning, nil
}

// POST /execute - 명령 실행 요청
// ctx deadline 초과 시 ctx 에러 반환 (Agent 측 명령이 멈췄다는 보장은 없음)
func (c *AgentClient) Run(ctx context.Context, req model.ExecRequest) (*model.ExecResult, error) {
	var resp model.ExecResult
	err := c.post(ctx, "/execute", AgentExecuteRequest{
		TargetID:       req.TargetID,
		Commands:       req.Commands,
		TimeoutSeconds: int(req.Budget.Seconds()),
	}, &resp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &model.ExecResult{}, ctxErr
		}
		return nil, err
	}
	return &resp, nil
}

func (c *AgentClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal agent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to agent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
