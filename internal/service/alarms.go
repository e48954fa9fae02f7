// Alarm 수신 처리
// handler에서 받은 Alertmanager / SNS(CloudWatch) 페이로드를 AlarmEvent로 변환 후 Gate.Create 호출
//
// 처리 흐름:
//  1. firing(ALARM) 상태가 아닌 알림은 건너뜀
//  2. 대상(target_id)을 찾지 못한 알림은 건너뜀
//     CloudWatch alarm은 TargetResolver로 ASG/TargetGroup을 instance 목록으로 변환 (instance별 incident)
//  3. Gate.Create (중복 전달은 기존 incident 반환)
//  4. 생성/중복/건너뜀 카운트 반환

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kube-rca/remediator/internal/model"
	"github.com/kube-rca/remediator/internal/planner"
)

// cloudWatchTimeLayout - CloudWatch StateChangeTime 형식 (2026-03-01T10:00:00.000+0000)
const cloudWatchTimeLayout = "2006-01-02T15:04:05.000-0700"

var ErrInvalidSNSMessage = errors.New("invalid sns message")

// TargetResolver - CloudWatch alarm dimension을 EC2 instance ID 목록으로 변환
type TargetResolver interface {
	Resolve(ctx context.Context, alarm model.CloudWatchAlarm) ([]string, error)
}

// AlarmService 구조체 정의
type AlarmService struct {
	gate     *Gate
	resolver TargetResolver
}

// AlarmService 객체 생성
// resolver가 nil이면 InstanceId dimension만 사용
func NewAlarmService(gate *Gate, resolver TargetResolver) *AlarmService {
	return &AlarmService{gate: gate, resolver: resolver}
}

// Ingest - 범용 AlarmEvent 단건 처리
func (s *AlarmService) Ingest(ctx context.Context, ev model.AlarmEvent) (*model.Incident, bool, error) {
	return s.gate.Create(ctx, ev)
}

// ProcessAlertmanager - Alertmanager 웹훅의 firing 알림을 incident로 변환
func (s *AlarmService) ProcessAlertmanager(ctx context.Context, webhook model.AlertmanagerWebhook) model.AlertWebhookResponse {
	resp := model.AlertWebhookResponse{Status: "received", AlertCount: len(webhook.Alerts), Incidents: []string{}}

	for _, alert := range webhook.Alerts {
		if alert.Status != "firing" {
			resp.Skipped++
			continue
		}
		ev := alarmFromAlert(alert, webhook.CommonLabels)
		if ev.TargetID == "" {
			log.Printf("Skipping alert without target (alertname=%s, fingerprint=%s)", ev.AlarmName, alert.Fingerprint)
			resp.Skipped++
			continue
		}
		s.record(ctx, ev, &resp)
	}
	return resp
}

// ProcessSNS - SNS로 전달된 CloudWatch Alarm을 incident로 변환
func (s *AlarmService) ProcessSNS(ctx context.Context, msg model.SNSMessage) (model.AlertWebhookResponse, error) {
	resp := model.AlertWebhookResponse{Status: "received", Incidents: []string{}}
	if msg.Type != "" && msg.Type != "Notification" {
		log.Printf("Ignoring SNS message type=%s (topic=%s)", msg.Type, msg.TopicArn)
		resp.Status = "ignored"
		return resp, nil
	}

	var alarm model.CloudWatchAlarm
	if err := json.Unmarshal([]byte(msg.Message), &alarm); err != nil {
		return resp, fmt.Errorf("%w: %v", ErrInvalidSNSMessage, err)
	}
	resp.AlertCount = 1

	if alarm.NewStateValue != "ALARM" {
		resp.Skipped++
		return resp, nil
	}
	firedAt := msg.Timestamp
	if t, err := time.Parse(cloudWatchTimeLayout, alarm.StateChangeTime); err == nil {
		firedAt = t
	}

	targets, err := s.resolveTargets(ctx, alarm)
	if err != nil {
		log.Printf("Failed to resolve targets (alarm=%s): %v", alarm.AlarmName, err)
		resp.Skipped++
		return resp, nil
	}
	if len(targets) == 0 {
		log.Printf("No valid dimension found for target resolution (alarm=%s)", alarm.AlarmName)
		resp.Skipped++
		return resp, nil
	}

	for _, target := range targets {
		s.record(ctx, model.AlarmEvent{
			AlarmName:   alarm.AlarmName,
			TargetID:    target,
			Description: alarm.AlarmDescription,
			FiredAt:     firedAt,
		}, &resp)
	}
	return resp, nil
}

func (s *AlarmService) resolveTargets(ctx context.Context, alarm model.CloudWatchAlarm) ([]string, error) {
	if s.resolver != nil {
		return s.resolver.Resolve(ctx, alarm)
	}
	if id := alarm.Dimension("InstanceId"); id != "" {
		return []string{id}, nil
	}
	return nil, nil
}

func (s *AlarmService) record(ctx context.Context, ev model.AlarmEvent, resp *model.AlertWebhookResponse) {
	inc, created, err := s.gate.Create(ctx, ev)
	switch {
	case errors.Is(err, planner.ErrUnclassified):
		log.Printf("Skipping unclassified alarm (alarm=%s, target=%s)", ev.AlarmName, ev.TargetID)
		resp.Skipped++
		return
	case err != nil:
		log.Printf("Failed to create incident (alarm=%s, target=%s): %v", ev.AlarmName, ev.TargetID, err)
		resp.Skipped++
		return
	}

	if created {
		resp.Created++
	} else {
		resp.Duplicates++
	}
	resp.Incidents = append(resp.Incidents, inc.IncidentID)
}

// alarmFromAlert - 라벨 우선순위: 개별 alert > commonLabels
func alarmFromAlert(alert model.Alert, common map[string]string) model.AlarmEvent {
	label := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(alert.Labels[k]); v != "" {
				return v
			}
			if v := strings.TrimSpace(common[k]); v != "" {
				return v
			}
		}
		return ""
	}
	description := alert.Annotations["description"]
	if description == "" {
		description = alert.Annotations["summary"]
	}
	return model.AlarmEvent{
		AlarmName:   label("alertname"),
		Category:    label("category"),
		TargetID:    label("target_id", "instance_id", "instance", "pod"),
		Description: description,
		FiredAt:     alert.StartsAt,
	}
}
