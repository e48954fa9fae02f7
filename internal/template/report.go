package template

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/kube-rca/remediator/internal/model"
)

var ErrReportNotReady = errors.New("report not ready")

// ReportNotReadyError - 종료되지 않은 incident에 대한 보고서 요청
type ReportNotReadyError struct {
	IncidentID string
	Status     model.Status
}

func (e *ReportNotReadyError) Error() string {
	return fmt.Sprintf("incident %s is %s; report is available once it is terminal", e.IncidentID, e.Status)
}

func (e *ReportNotReadyError) Is(target error) bool {
	return target == ErrReportNotReady
}

var reportTemplate = template.Must(template.New("report").Parse(`# Post-Incident Report: {{.IncidentID}}
{{range .Sections}}
## {{.Title}}

{{.Body}}
{{end}}`))

// BuildReport - 종료된 incident를 보고서로 구성
// 레코드에 없는 항목은 생략 (추정해서 채우지 않음)
func BuildReport(inc *model.Incident) (*model.IncidentReport, error) {
	resolvedAt, ok := inc.ResolvedAt()
	if !ok {
		return nil, &ReportNotReadyError{IncidentID: inc.IncidentID, Status: inc.Status}
	}

	report := &model.IncidentReport{
		IncidentID: inc.IncidentID,
		Status:     inc.Status,
		CreatedAt:  inc.CreatedAt,
		ResolvedAt: resolvedAt,
		Duration:   resolvedAt.Sub(inc.CreatedAt).Round(time.Second).String(),
	}

	sections := []model.ReportSection{
		{Title: "Summary", Body: summarySection(inc, report)},
		{Title: "Diagnostics", Body: codeBlock(inc.Diagnostics)},
		{Title: "Decision Rationale", Body: decisionSection(inc)},
		{Title: "Remediation", Body: remediationSection(inc)},
		{Title: "Outcome", Body: outcomeSection(inc)},
		{Title: "Timeline", Body: timelineSection(inc)},
	}
	for _, s := range sections {
		if strings.TrimSpace(s.Body) != "" {
			report.Sections = append(report.Sections, s)
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	report.Markdown = buf.String()
	return report, nil
}

func summarySection(inc *model.Incident, r *model.IncidentReport) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("- **%s:** %s", label, value))
		}
	}
	add("Alarm", inc.AlarmName)
	add("Description", inc.AlarmDescription)
	add("Target", inc.TargetID)
	add("Category", inc.Category)
	add("Status", string(inc.Status))
	add("Created", inc.CreatedAt.UTC().Format(time.RFC3339))
	add("Resolved", r.ResolvedAt.UTC().Format(time.RFC3339))
	add("Duration", r.Duration)
	return strings.Join(lines, "\n")
}

func decisionSection(inc *model.Incident) string {
	var parts []string
	if inc.AIReasoning != "" {
		parts = append(parts, inc.AIReasoning)
	}
	if inc.SuggestionSource != "" {
		parts = append(parts, fmt.Sprintf("Suggestion source: %s", inc.SuggestionSource))
	}
	for _, e := range inc.Timeline {
		switch e.Event {
		case model.EventApproved:
			parts = append(parts, withDetail("Approved by operator", e))
		case model.EventRejected:
			parts = append(parts, withDetail("Rejected by operator", e))
		}
	}
	if inc.Status == model.StatusAutoRemediated {
		parts = append(parts, "Dispatched automatically without operator approval.")
	}
	return strings.Join(parts, "\n\n")
}

func withDetail(text string, e model.TimelineEntry) string {
	line := fmt.Sprintf("%s at %s", text, e.Timestamp.UTC().Format(time.RFC3339))
	if e.Detail != "" {
		line += " (" + e.Detail + ")"
	}
	return line + "."
}

func remediationSection(inc *model.Incident) string {
	var parts []string
	if inc.AISuggestion != "" {
		parts = append(parts, "Suggested command:\n\n"+codeBlock(inc.AISuggestion))
	}
	if inc.CustomCommand != "" {
		parts = append(parts, "Operator override:\n\n"+codeBlock(inc.CustomCommand))
	}
	return strings.Join(parts, "\n\n")
}

func outcomeSection(inc *model.Incident) string {
	var parts []string
	switch inc.Status {
	case model.StatusCompleted:
		parts = append(parts, "The approved command completed successfully.")
	case model.StatusAutoRemediated:
		parts = append(parts, "The command completed successfully on the unattended path.")
	case model.StatusFailed:
		parts = append(parts, "The command reported a failure.")
	case model.StatusTimeout:
		parts = append(parts, "The command exceeded its execution budget. The remote command is not guaranteed to have stopped.")
	case model.StatusRejected:
		parts = append(parts, "No command was executed.")
	}
	if inc.RemediationOutput != "" {
		parts = append(parts, "Output:\n\n"+codeBlock(inc.RemediationOutput))
	}
	return strings.Join(parts, "\n\n")
}

func timelineSection(inc *model.Incident) string {
	if len(inc.Timeline) == 0 {
		return ""
	}
	lines := []string{"| Time | Event | Detail |", "|---|---|---|"}
	for _, e := range inc.Timeline {
		detail := strings.ReplaceAll(e.Detail, "|", "\\|")
		lines = append(lines, fmt.Sprintf("| %s | %s | %s |", e.Timestamp.UTC().Format(time.RFC3339), e.Event, detail))
	}
	return strings.Join(lines, "\n")
}

func codeBlock(s string) string {
	s = strings.TrimRight(s, "\n")
	if strings.TrimSpace(s) == "" {
		return ""
	}
	fence := "```"
	if strings.Contains(s, fence) {
		fence = "~~~~"
	}
	return fence + "\n" + s + "\n" + fence
}
