package model

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{"", StatusPendingApproval, true},
		{"", StatusExecuting, true},
		{"", StatusCompleted, false},
		{StatusPendingApproval, StatusExecuting, true},
		{StatusPendingApproval, StatusRejected, true},
		{StatusPendingApproval, StatusCompleted, false},
		{StatusExecuting, StatusCompleted, true},
		{StatusExecuting, StatusAutoRemediated, true},
		{StatusExecuting, StatusFailed, true},
		{StatusExecuting, StatusTimeout, true},
		{StatusExecuting, StatusPendingApproval, false},
		{StatusExecuting, StatusRejected, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, from := range AllStatuses {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range AllStatuses {
			if CanTransition(from, to) {
				t.Fatalf("terminal %q must not transition to %q", from, to)
			}
		}
	}
}

func TestNothingReentersPendingApproval(t *testing.T) {
	for _, from := range AllStatuses {
		if CanTransition(from, StatusPendingApproval) {
			t.Fatalf("%q -> pending_approval must be invalid", from)
		}
	}
}

func TestNewIncidentIDBucketsWithinWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 10, 0, time.UTC)
	a := NewIncidentID("HighDisk", "i-1", base, 5*time.Minute)
	b := NewIncidentID("HighDisk", "i-1", base.Add(2*time.Minute), 5*time.Minute)
	c := NewIncidentID("HighDisk", "i-1", base.Add(6*time.Minute), 5*time.Minute)
	d := NewIncidentID("HighDisk", "i-2", base, 5*time.Minute)

	if a != b {
		t.Fatalf("same bucket should give same id: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("next bucket should give new id: %s", c)
	}
	if a == d {
		t.Fatalf("different target should give new id: %s", d)
	}
	if want := "1772359200_HighDisk_i-1"; a != want {
		t.Fatalf("id = %s, want %s", a, want)
	}
}

func TestIncidentCommandPrefersOverride(t *testing.T) {
	inc := Incident{AISuggestion: "systemctl restart nginx"}
	if inc.Command() != "systemctl restart nginx" {
		t.Fatalf("expected ai suggestion")
	}
	inc.CustomCommand = "systemctl reload nginx"
	if inc.Command() != "systemctl reload nginx" {
		t.Fatalf("expected override")
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("auto_remediated"); err != nil || s != StatusAutoRemediated {
		t.Fatalf("unexpected: %v %v", s, err)
	}
	if _, err := ParseStatus("firing"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
