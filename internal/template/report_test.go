package template

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kube-rca/remediator/internal/model"
)

func terminalIncident() *model.Incident {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.Incident{
		IncidentID:        "1772359200_HighDiskUsage_i-1",
		AlarmName:         "HighDiskUsage",
		TargetID:          "i-1",
		Category:          "disk-pressure",
		Status:            model.StatusCompleted,
		Diagnostics:       "Filesystem  Use%\n/dev/xvda1  97%",
		AISuggestion:      "truncate -s 0 /var/log/garbage.log",
		AIReasoning:       "Log file is filling the disk.",
		SuggestionSource:  model.SourceAdvisory,
		RemediationOutput: "done",
		CreatedAt:         created,
		Timeline: []model.TimelineEntry{
			{Event: model.EventCreated, Timestamp: created},
			{Event: model.EventApproved, Timestamp: created.Add(time.Minute), Detail: "operator=alice"},
			{Event: string(model.StatusCompleted), Timestamp: created.Add(90 * time.Second)},
		},
	}
}

func TestBuildReportSections(t *testing.T) {
	report, err := BuildReport(terminalIncident())
	if err != nil {
		t.Fatalf("BuildReport error: %v", err)
	}

	want := []string{"Summary", "Diagnostics", "Decision Rationale", "Remediation", "Outcome", "Timeline"}
	if len(report.Sections) != len(want) {
		t.Fatalf("sections = %d, want %d", len(report.Sections), len(want))
	}
	for i, title := range want {
		if report.Sections[i].Title != title {
			t.Fatalf("section %d = %s, want %s", i, report.Sections[i].Title, title)
		}
		if !strings.Contains(report.Markdown, "## "+title) {
			t.Fatalf("markdown missing section %s", title)
		}
	}
	if report.Duration != "1m30s" {
		t.Fatalf("duration = %s", report.Duration)
	}
	if !strings.Contains(report.Markdown, "operator=alice") {
		t.Fatalf("approval detail missing from report")
	}
}

func TestBuildReportOmitsAbsentFields(t *testing.T) {
	inc := terminalIncident()
	inc.Status = model.StatusRejected
	inc.Diagnostics = ""
	inc.RemediationOutput = ""
	inc.AlarmDescription = ""
	inc.Timeline = []model.TimelineEntry{
		inc.Timeline[0],
		{Event: model.EventRejected, Timestamp: inc.CreatedAt.Add(time.Minute)},
	}

	report, err := BuildReport(inc)
	if err != nil {
		t.Fatalf("BuildReport error: %v", err)
	}
	for _, s := range report.Sections {
		if s.Title == "Diagnostics" {
			t.Fatalf("empty diagnostics should be omitted")
		}
	}
	if strings.Contains(report.Markdown, "Description") || strings.Contains(report.Markdown, "Output:") {
		t.Fatalf("report invented absent fields:\n%s", report.Markdown)
	}
}

func TestBuildReportNotReady(t *testing.T) {
	inc := terminalIncident()
	inc.Status = model.StatusExecuting

	_, err := BuildReport(inc)
	if !errors.Is(err, ErrReportNotReady) {
		t.Fatalf("expected ErrReportNotReady, got %v", err)
	}
	var notReady *ReportNotReadyError
	if !errors.As(err, &notReady) || notReady.Status != model.StatusExecuting {
		t.Fatalf("error should carry current status: %v", err)
	}
}

func TestRenderHTMLSanitizes(t *testing.T) {
	inc := terminalIncident()
	inc.RemediationOutput = "ok"
	inc.AIReasoning = "<script>alert(1)</script>restart"
	report, err := BuildReport(inc)
	if err != nil {
		t.Fatalf("BuildReport error: %v", err)
	}

	html := RenderHTML(report.Markdown)
	if strings.Contains(html, "<script>") {
		t.Fatalf("script tag survived sanitize: %s", html)
	}
	if !strings.Contains(html, "<h2>Summary</h2>") || !strings.Contains(html, "<table>") {
		t.Fatalf("expected rendered headings and table: %s", html)
	}
}
