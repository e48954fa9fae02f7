// Alarm 수신 페이로드 구조체 정의
// handler, service 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의
//
// 지원하는 입력:
//   - AlarmEvent: 범용 alarm 이벤트 ({alarm_name, category, target_id, description})
//   - AlertmanagerWebhook: Prometheus Alertmanager 웹훅
//   - SNSMessage: CloudWatch Alarm이 SNS를 통해 전달되는 경우

package model

import (
	"strings"
	"time"
)

// AlarmEvent - 엔진으로 들어오는 alarm 이벤트
// 같은 alarm이 중복 전달될 수 있으며 idempotent create로 중복 제거
type AlarmEvent struct {
	AlarmName   string `json:"alarm_name" binding:"required"`
	Category    string `json:"category"`
	TargetID    string `json:"target_id" binding:"required"`
	Description string `json:"description"`

	// FiredAt: alarm 발생 시각, 비어 있으면 수신 시각 사용
	FiredAt time.Time `json:"fired_at"`
}

// AlertmanagerWebhook - Alertmanager 웹훅 페이로드
// 여러 개의 알림이 그룹으로 묶여서 전송 가능
type AlertmanagerWebhook struct {
	Version  string `json:"version"`
	GroupKey string `json:"groupKey"`
	Status   string `json:"status"`
	Receiver string `json:"receiver"`

	// 그룹 내 모든 알림에 공통으로 존재하는 라벨
	CommonLabels map[string]string `json:"commonLabels"`

	// 개별 알림 리스트
	Alerts []Alert `json:"alerts"`
}

// Alert - 개별 알림
type Alert struct {
	Status string `json:"status"`

	// - alertname: 알림 이름 (예: "HighDiskUsage")
	// - category: 분류 키 (예: "disk-pressure"), 없으면 alertname으로 추정
	// - instance / target: 대상 리소스
	Labels map[string]string `json:"labels"`

	// - summary, description
	Annotations map[string]string `json:"annotations"`

	StartsAt     time.Time `json:"startsAt"`
	EndsAt       time.Time `json:"endsAt"`
	GeneratorURL string    `json:"generatorURL"`
	Fingerprint  string    `json:"fingerprint"`
}

// SNSMessage - SNS HTTP 구독으로 전달되는 envelope
type SNSMessage struct {
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	TopicArn  string `json:"TopicArn"`

	// Message: CloudWatchAlarm JSON 문자열
	Message   string    `json:"Message"`
	Timestamp time.Time `json:"Timestamp"`
}

// CloudWatchAlarm - SNS Message 본문
type CloudWatchAlarm struct {
	AlarmName        string            `json:"AlarmName"`
	AlarmDescription string            `json:"AlarmDescription"`
	AlarmArn         string            `json:"AlarmArn"`
	AWSAccountID     string            `json:"AWSAccountId"`
	NewStateValue    string            `json:"NewStateValue"`
	Region           string            `json:"Region"`
	StateChangeTime  string            `json:"StateChangeTime"`
	Trigger          CloudWatchTrigger `json:"Trigger"`
}

type CloudWatchTrigger struct {
	Dimensions []CloudWatchDimension `json:"Dimensions"`
}

type CloudWatchDimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AccountID - AWSAccountId, 없으면 AlarmArn의 계정 필드
func (a CloudWatchAlarm) AccountID() string {
	if a.AWSAccountID != "" {
		return a.AWSAccountID
	}
	return arnField(a.AlarmArn, 4)
}

// RegionCode - AlarmArn의 region, 없으면 코드 형식의 Region 값
// Region은 "US East (N. Virginia)" 같은 표시용 이름일 수 있음
func (a CloudWatchAlarm) RegionCode() string {
	if r := arnField(a.AlarmArn, 3); r != "" {
		return r
	}
	if a.Region != "" && !strings.ContainsAny(a.Region, " ()") {
		return a.Region
	}
	return ""
}

func arnField(arn string, i int) string {
	parts := strings.Split(arn, ":")
	if len(parts) <= i {
		return ""
	}
	return parts[i]
}

// Dimension - Trigger.Dimensions에서 name으로 값 조회
func (a CloudWatchAlarm) Dimension(name string) string {
	for _, d := range a.Trigger.Dimensions {
		if d.Name == name {
			return d.Value
		}
	}
	return ""
}
