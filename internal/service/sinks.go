// Notifier 구독자 (Slack, 외부 webhook)
//
// 이벤트는 {incident_id, status}만 담고 있으므로 전송 직전에 저장소에서 최신 레코드를 다시 읽음
// 전송 실패는 재시도 후 로그만 남김 (전이/실행 흐름에 영향 없음)

package service

import (
	"context"
	"log"
	"time"

	"github.com/Songmu/retry"
	"github.com/kube-rca/remediator/internal/model"
)

// IncidentSink - incident 상태 변경 전달 대상
type IncidentSink interface {
	Name() string
	Deliver(ctx context.Context, inc *model.Incident) error
}

type SinkRunner struct {
	repo     IncidentStore
	sink     IncidentSink
	attempts uint
	interval time.Duration
}

func NewSinkRunner(repo IncidentStore, sink IncidentSink) *SinkRunner {
	return &SinkRunner{repo: repo, sink: sink, attempts: 3, interval: time.Second}
}

// Run - 구독이 닫히거나 ctx가 끝날 때까지 이벤트 전달
func (r *SinkRunner) Run(ctx context.Context, sub *Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			r.deliver(ctx, ev)
		}
	}
}

func (r *SinkRunner) deliver(ctx context.Context, ev model.IncidentEvent) {
	inc, err := r.repo.Get(ctx, ev.IncidentID)
	if err != nil {
		log.Printf("[%s] Failed to load incident (incident_id=%s): %v", r.sink.Name(), ev.IncidentID, err)
		return
	}
	// 이벤트 이후 이미 다음 상태로 넘어갔더라도 이벤트 시점의 상태로 전달
	inc.Status = ev.Status

	err = retry.Retry(r.attempts, r.interval, func() error {
		return r.sink.Deliver(ctx, inc)
	})
	if err != nil {
		log.Printf("[%s] Failed to deliver (incident_id=%s, status=%s): %v", r.sink.Name(), inc.IncidentID, ev.Status, err)
	}
}

type slackSender interface {
	IsConfigured() bool
	SendIncident(ctx context.Context, inc *model.Incident) error
}

// SlackSink - Slack 채널로 incident 상태 전송
type SlackSink struct {
	client slackSender
}

func NewSlackSink(client slackSender) *SlackSink {
	return &SlackSink{client: client}
}

func (s *SlackSink) Name() string {
	return "SlackSink"
}

func (s *SlackSink) Deliver(ctx context.Context, inc *model.Incident) error {
	if !s.client.IsConfigured() {
		return nil
	}
	return s.client.SendIncident(ctx, inc)
}
