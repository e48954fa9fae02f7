package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kube-rca/remediator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAlertmanager(t *testing.T) {
	f := newGateFixture(testGateConfig(true), staticAdvisor("echo fix"))
	svc := NewAlarmService(f.gate, nil)

	webhook := model.AlertmanagerWebhook{
		Status:       "firing",
		CommonLabels: map[string]string{"category": "disk-pressure"},
		Alerts: []model.Alert{
			{
				Status:      "firing",
				Labels:      map[string]string{"alertname": "RootVolumeFull", "instance": "i-0abc"},
				Annotations: map[string]string{"summary": "root volume full"},
				StartsAt:    firedAt,
			},
			{
				Status:   "firing",
				Labels:   map[string]string{"alertname": "RootVolumeFull", "instance": "i-0abc"},
				StartsAt: firedAt.Add(time.Second),
			},
			{Status: "resolved", Labels: map[string]string{"alertname": "RootVolumeFull", "instance": "i-0abc"}},
			{Status: "firing", Labels: map[string]string{"alertname": "NoTarget"}},
			{Status: "firing", Labels: map[string]string{"alertname": "Mystery", "instance": "i-9", "category": "cpu"}},
		},
	}

	resp := svc.ProcessAlertmanager(context.Background(), webhook)

	assert.Equal(t, "received", resp.Status)
	assert.Equal(t, 5, resp.AlertCount)
	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, 1, resp.Duplicates)
	assert.Equal(t, 3, resp.Skipped)
	require.Len(t, resp.Incidents, 2)
	assert.Equal(t, resp.Incidents[0], resp.Incidents[1])

	inc, err := f.store.Get(context.Background(), resp.Incidents[0])
	require.NoError(t, err)
	assert.Equal(t, "disk-pressure", inc.Category)
	assert.Equal(t, "root volume full", inc.AlarmDescription)
	assert.Equal(t, firedAt, inc.CreatedAt)
}

func TestProcessSNS(t *testing.T) {
	f := newGateFixture(testGateConfig(true), staticAdvisor("echo fix"))
	svc := NewAlarmService(f.gate, nil)
	ctx := context.Background()

	alarm := `{
		"AlarmName": "sre-demo-NginxDown",
		"AlarmDescription": "nginx process count is zero",
		"NewStateValue": "ALARM",
		"StateChangeTime": "2026-03-01T10:00:00.000+0000",
		"Trigger": {"Dimensions": [{"name": "InstanceId", "value": "i-0abc"}]}
	}`

	resp, err := svc.ProcessSNS(ctx, model.SNSMessage{Type: "Notification", Message: alarm})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Created)
	require.Len(t, resp.Incidents, 1)

	inc, err := f.store.Get(ctx, resp.Incidents[0])
	require.NoError(t, err)
	assert.Equal(t, "service-down", inc.Category)
	assert.Equal(t, "i-0abc", inc.TargetID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), inc.CreatedAt.UTC())

	resp, err = svc.ProcessSNS(ctx, model.SNSMessage{Type: "SubscriptionConfirmation"})
	require.NoError(t, err)
	assert.Equal(t, "ignored", resp.Status)

	resp, err = svc.ProcessSNS(ctx, model.SNSMessage{Type: "Notification", Message: `{"AlarmName":"x","NewStateValue":"OK"}`})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Skipped)

	_, err = svc.ProcessSNS(ctx, model.SNSMessage{Message: "not json"})
	assert.ErrorIs(t, err, ErrInvalidSNSMessage)
}

// dimensionResolver - dimension 값별 instance 목록
type dimensionResolver struct {
	targets map[string][]string
	err     error
}

func (r dimensionResolver) Resolve(_ context.Context, alarm model.CloudWatchAlarm) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, d := range alarm.Trigger.Dimensions {
		if ids, ok := r.targets[d.Value]; ok {
			return ids, nil
		}
	}
	return nil, nil
}

func snsAlarm(name, dimension, value string) model.SNSMessage {
	return model.SNSMessage{
		Type: "Notification",
		Message: `{
			"AlarmName": "` + name + `",
			"AlarmArn": "arn:aws:cloudwatch:ap-south-1:123456789012:alarm:` + name + `",
			"NewStateValue": "ALARM",
			"StateChangeTime": "2026-03-01T10:00:00.000+0000",
			"Trigger": {"Dimensions": [{"name": "` + dimension + `", "value": "` + value + `"}]}
		}`,
	}
}

func TestProcessSNSResolvesTargets(t *testing.T) {
	resolver := dimensionResolver{targets: map[string][]string{
		"sre-demo-asg":                           {"i-0a1", "i-0a2"},
		"targetgroup/sre-demo-tg/42f85d5ede20f6": {"i-0b1"},
	}}

	tests := []struct {
		name      string
		msg       model.SNSMessage
		wantCount int
		targets   []string
		category  string
	}{
		{
			name:      "auto scaling group fans out per instance",
			msg:       snsAlarm("sre-demo-HighDiskUsage", "AutoScalingGroupName", "sre-demo-asg"),
			wantCount: 2,
			targets:   []string{"i-0a1", "i-0a2"},
			category:  "disk-pressure",
		},
		{
			name:      "target group resolves unhealthy instances",
			msg:       snsAlarm("sre-demo-NginxDown", "TargetGroup", "targetgroup/sre-demo-tg/42f85d5ede20f6"),
			wantCount: 1,
			targets:   []string{"i-0b1"},
			category:  "service-down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newGateFixture(testGateConfig(true), staticAdvisor("echo fix"))
			svc := NewAlarmService(f.gate, resolver)

			resp, err := svc.ProcessSNS(ctx, tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, resp.Created)
			assert.Zero(t, resp.Skipped)
			require.Len(t, resp.Incidents, tt.wantCount)

			var got []string
			for _, id := range resp.Incidents {
				inc, err := f.store.Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, tt.category, inc.Category)
				got = append(got, inc.TargetID)
			}
			assert.ElementsMatch(t, tt.targets, got)
		})
	}
}

func TestProcessSNSSkipsUnresolvedTargets(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(testGateConfig(true), staticAdvisor("echo fix"))

	empty := NewAlarmService(f.gate, dimensionResolver{})
	resp, err := empty.ProcessSNS(ctx, snsAlarm("sre-demo-HighDiskUsage", "AutoScalingGroupName", "scaled-to-zero"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Skipped)
	assert.Zero(t, resp.Created)

	failing := NewAlarmService(f.gate, dimensionResolver{err: errors.New("AccessDenied")})
	resp, err = failing.ProcessSNS(ctx, snsAlarm("sre-demo-NginxDown", "TargetGroup", "targetgroup/x/1"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Skipped)

	// resolver 없이 ASG dimension은 대상 없음
	plain := NewAlarmService(f.gate, nil)
	resp, err = plain.ProcessSNS(ctx, snsAlarm("sre-demo-HighDiskUsage", "AutoScalingGroupName", "sre-demo-asg"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Skipped)
}
