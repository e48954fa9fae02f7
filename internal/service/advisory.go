package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kube-rca/remediator/internal/model"
	"github.com/kube-rca/remediator/internal/observability"
	"github.com/kube-rca/remediator/internal/planner"
)

// FallbackReasoning - fallback 명령 사용 시 ai_reasoning 고정 문구
const FallbackReasoning = "advisory capability unavailable; using fallback"

// Advisor - 진단 결과를 받아 명령과 근거를 제안하는 외부 capability
type Advisor interface {
	Suggest(ctx context.Context, req model.AdvisoryRequest) (command, reasoning string, err error)
}

// Suggestion - advisory 또는 fallback 결과 (Source로 출처 구분)
type Suggestion struct {
	Command   string
	Reasoning string
	Source    model.SuggestionSource
}

type AdvisoryService struct {
	advisor Advisor
	planner *planner.Planner
	timeout time.Duration
}

// NewAdvisoryService - advisor가 nil이면 항상 fallback 사용
func NewAdvisoryService(advisor Advisor, p *planner.Planner, timeout time.Duration) *AdvisoryService {
	return &AdvisoryService{advisor: advisor, planner: p, timeout: timeout}
}

// Suggest - advisory 호출, 실패 시 분류별 fallback으로 대체
// 실패는 호출자에게 에러로 올리지 않음 (Source로만 구분)
func (s *AdvisoryService) Suggest(ctx context.Context, category planner.Category, req model.AdvisoryRequest) Suggestion {
	command, reasoning, err := s.ask(ctx, req)
	if err == nil {
		return Suggestion{Command: command, Reasoning: reasoning, Source: model.SourceAdvisory}
	}

	reason := "unavailable"
	if errors.Is(err, ErrAdvisoryEmptyResponse) {
		reason = "empty_response"
	}
	log.Printf("[Advisory] Falling back (alarm=%s, target=%s, reason=%s): %v", req.AlarmName, req.TargetID, reason, err)

	fallback, ok := s.planner.Fallback(category)
	if !ok {
		observability.AdvisoryFallbacks.WithLabelValues("no_fallback").Inc()
		return Suggestion{Source: model.SourceNone}
	}
	observability.AdvisoryFallbacks.WithLabelValues(reason).Inc()
	return Suggestion{Command: fallback.Command, Reasoning: FallbackReasoning, Source: model.SourceFallback}
}

// ask - timeout으로 제한된 advisory 호출
// advisor가 ctx를 무시하더라도 timeout 시점에 반환
func (s *AdvisoryService) ask(ctx context.Context, req model.AdvisoryRequest) (string, string, error) {
	if s.advisor == nil {
		return "", "", fmt.Errorf("%w: no provider configured", ErrAdvisoryUnavailable)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type answer struct {
		command   string
		reasoning string
		err       error
	}
	done := make(chan answer, 1)
	go func() {
		command, reasoning, err := s.advisor.Suggest(ctx, req)
		done <- answer{command, reasoning, err}
	}()

	select {
	case <-ctx.Done():
		return "", "", fmt.Errorf("%w: %v", ErrAdvisoryUnavailable, ctx.Err())
	case a := <-done:
		if a.err != nil {
			if errors.Is(a.err, ErrAdvisoryEmptyResponse) {
				return "", "", a.err
			}
			return "", "", fmt.Errorf("%w: %v", ErrAdvisoryUnavailable, a.err)
		}
		command := strings.TrimSpace(a.command)
		if command == "" {
			return "", "", ErrAdvisoryEmptyResponse
		}
		return command, strings.TrimSpace(a.reasoning), nil
	}
}
