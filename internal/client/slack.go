// 외부 Slack API와 통신하는 클라이언트 정의
//
// 설정 (config.SlackConfig):
//   - SLACK_BOT_TOKEN: Slack Bot Token (xoxb-...)
//   - SLACK_CHANNEL_ID: Slack 채널 ID (C...)
//
// incident 하나당 하나의 쓰레드를 사용:
//   - 첫 메시지 전송 후 thread_ts 저장
//   - 이후 상태 변경은 같은 쓰레드로 답글, 종료 상태에서 thread_ts 삭제

package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/kube-rca/remediator/internal/config"
	"github.com/slack-go/slack"
)

type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackClient 구조체 정의
type SlackClient struct {
	api       slackAPI
	channelID string

	// threadMap: incident_id -> thread_ts
	threadMap sync.Map
}

// SlackClient 객체 생성
func NewSlackClient(cfg config.SlackConfig) *SlackClient {
	c := &SlackClient{channelID: cfg.ChannelID}
	if cfg.BotToken != "" {
		c.api = slack.New(cfg.BotToken)
	}
	return c
}

// SlackClient에 Bot Token과 Channel ID가 모두 설정되어 있는지 체크
func (c *SlackClient) IsConfigured() bool {
	return c.api != nil && c.channelID != ""
}

// post - 메시지 전송 후 timestamp 반환
func (c *SlackClient) post(ctx context.Context, threadTS string, attachment slack.Attachment) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("slack bot token or channel ID not configured")
	}
	options := []slack.MsgOption{slack.MsgOptionAttachments(attachment)}
	if threadTS != "" {
		options = append(options, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := c.api.PostMessageContext(ctx, c.channelID, options...)
	if err != nil {
		return "", fmt.Errorf("failed to PostMessage: %w", err)
	}
	return ts, nil
}

func (c *SlackClient) StoreThreadTS(incidentID, threadTS string) {
	c.threadMap.Store(incidentID, threadTS)
}

func (c *SlackClient) GetThreadTS(incidentID string) (string, bool) {
	val, ok := c.threadMap.Load(incidentID)
	if !ok {
		return "", false
	}
	return val.(string), true
}

func (c *SlackClient) DeleteThreadTS(incidentID string) {
	c.threadMap.Delete(incidentID)
}
