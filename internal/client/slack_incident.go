// Slack Incident 메시지 관련 메서드 정의

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kube-rca/remediator/internal/model"
	"github.com/slack-go/slack"
)

const maxSlackOutput = 2500

// SendIncident - incident 상태를 Slack으로 전송
//   - 첫 메시지: 새 메시지 전송 후 thread_ts 저장
//   - 이후: 기존 쓰레드에 답글, 종료 상태면 thread_ts 삭제
func (c *SlackClient) SendIncident(ctx context.Context, inc *model.Incident) error {
	threadTS, hasThread := c.GetThreadTS(inc.IncidentID)

	ts, err := c.post(ctx, threadTS, incidentAttachment(inc))
	if err != nil {
		return err
	}

	if inc.Status.IsTerminal() {
		c.DeleteThreadTS(inc.IncidentID)
	} else if !hasThread && ts != "" {
		c.StoreThreadTS(inc.IncidentID, ts)
	}
	return nil
}

func incidentAttachment(inc *model.Incident) slack.Attachment {
	fields := []slack.AttachmentField{
		{Title: "Target", Value: inc.TargetID, Short: true},
		{Title: "Status", Value: string(inc.Status), Short: true},
	}
	if inc.Category != "" {
		fields = append(fields, slack.AttachmentField{Title: "Category", Value: inc.Category, Short: true})
	}
	if inc.SuggestionSource != "" {
		fields = append(fields, slack.AttachmentField{Title: "Source", Value: string(inc.SuggestionSource), Short: true})
	}
	if cmd := inc.Command(); cmd != "" {
		fields = append(fields, slack.AttachmentField{Title: "Command", Value: "`" + cmd + "`"})
	}

	text := toSlackMarkdown(inc.AIReasoning)
	if inc.Status.IsTerminal() && inc.RemediationOutput != "" {
		text = "```\n" + truncate(inc.RemediationOutput, maxSlackOutput) + "\n```"
	}

	return slack.Attachment{
		Color:      colorByStatus(inc.Status),
		Title:      fmt.Sprintf("%s %s (%s)", emojiByStatus(inc.Status), inc.AlarmName, inc.IncidentID),
		Text:       text,
		Fields:     fields,
		Footer:     "remediator",
		Ts:         json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
		MarkdownIn: []string{"text", "fields"},
	}
}

// Status에 따른 적절한 메시지 색상 반환
func colorByStatus(status model.Status) string {
	switch status {
	case model.StatusCompleted, model.StatusAutoRemediated:
		return "#36a64f" // green
	case model.StatusFailed, model.StatusTimeout:
		return "#dc3545" // red
	case model.StatusPendingApproval:
		return "#ffc107" // yellow
	default:
		return "#17a2b8" // blue
	}
}

// Status에 따른 적절한 메시지 이모지 반환
func emojiByStatus(status model.Status) string {
	switch status {
	case model.StatusCompleted, model.StatusAutoRemediated:
		return "✅"
	case model.StatusFailed, model.StatusTimeout:
		return "❌"
	case model.StatusRejected:
		return "🚫"
	case model.StatusPendingApproval:
		return "⏸️"
	default:
		return "🔥"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}

var (
	slackBoldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	slackHeadingRe = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
)

// toSlackMarkdown - markdown을 Slack mrkdwn으로 변환 (코드 영역은 그대로 유지)
func toSlackMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	inBlock := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inBlock = !inBlock
			continue
		}
		if inBlock {
			continue
		}
		if m := slackHeadingRe.FindStringSubmatch(line); m != nil {
			lines[i] = "*" + m[1] + "*"
			continue
		}
		parts := strings.Split(line, "`")
		for j := 0; j < len(parts); j += 2 {
			parts[j] = slackBoldRe.ReplaceAllString(parts[j], "*$1*")
		}
		lines[i] = strings.Join(parts, "`")
	}
	return strings.Join(lines, "\n")
}
