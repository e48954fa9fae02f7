package planner

import (
	"errors"
	"strings"
	"testing"
)

func TestPlanKnownCategories(t *testing.T) {
	p := New("my-bucket")
	for _, c := range Categories() {
		plan, err := p.Plan(c, "i-123")
		if err != nil {
			t.Fatalf("Plan(%s) error: %v", c, err)
		}
		if len(plan.Diagnostics) == 0 {
			t.Fatalf("Plan(%s) has no diagnostics", c)
		}
		if plan.Fallback.Command == "" {
			t.Fatalf("Plan(%s) has no fallback", c)
		}
		if plan.TargetID != "i-123" {
			t.Fatalf("Plan(%s) target = %s", c, plan.TargetID)
		}
	}

	plan, _ := p.Plan(DiskPressure, "i-123")
	if !strings.Contains(plan.Fallback.Command, "s3://my-bucket/") {
		t.Fatalf("disk fallback should archive to configured bucket: %s", plan.Fallback.Command)
	}
}

func TestPlanUnclassified(t *testing.T) {
	p := New("")
	plan, err := p.Plan(Unclassified, "i-1")
	if !errors.Is(err, ErrUnclassified) {
		t.Fatalf("expected ErrUnclassified, got %v", err)
	}
	if len(plan.Diagnostics) != 0 || plan.Fallback.Command != "" {
		t.Fatalf("unclassified plan must be empty: %+v", plan)
	}
	if _, ok := p.Fallback(Unclassified); ok {
		t.Fatalf("unclassified must have no fallback")
	}
}

func TestPlanReturnsCopy(t *testing.T) {
	p := New("")
	plan, _ := p.Plan(MemoryPressure, "i-1")
	plan.Diagnostics[0] = "rm -rf /"
	again, _ := p.Plan(MemoryPressure, "i-1")
	if again.Diagnostics[0] != "free -m" {
		t.Fatalf("catalog mutated through plan: %s", again.Diagnostics[0])
	}
}

func TestClassifyAlarmName(t *testing.T) {
	tests := []struct {
		name string
		want Category
	}{
		{"sre-demo-HighDiskUsage", DiskPressure},
		{"NginxDown", ServiceDown},
		{"ServiceUnhealthy", ServiceDown},
		{"HighMemory", MemoryPressure},
		{"CPUCredits", Unclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyAlarmName(tt.name); got != tt.want {
				t.Fatalf("ClassifyAlarmName(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestResolvePrefersExplicitCategory(t *testing.T) {
	if got := Resolve("memory-pressure", "HighDiskUsage"); got != MemoryPressure {
		t.Fatalf("explicit category ignored: %s", got)
	}
	if got := Resolve("", "HighDiskUsage"); got != DiskPressure {
		t.Fatalf("name fallback failed: %s", got)
	}
	if got := Resolve("cpu", "HighDiskUsage"); got != Unclassified {
		t.Fatalf("unknown explicit category must be unclassified: %s", got)
	}
}

func TestParseCatalogOverrides(t *testing.T) {
	raw := []byte(`
service-down:
  diagnostics:
    - "systemctl status apache2"
  fallback:
    command: "systemctl restart apache2"
    reasoning: "Restart apache."
`)
	overrides, err := ParseCatalog(raw)
	if err != nil {
		t.Fatalf("ParseCatalog error: %v", err)
	}
	p := NewWithCatalog("", overrides)

	plan, _ := p.Plan(ServiceDown, "web-1")
	if plan.Fallback.Command != "systemctl restart apache2" || plan.Diagnostics[0] != "systemctl status apache2" {
		t.Fatalf("override not applied: %+v", plan)
	}
	disk, _ := p.Plan(DiskPressure, "web-1")
	if disk.Diagnostics[0] != "df -h /" {
		t.Fatalf("untouched category should keep defaults: %+v", disk)
	}
}

func TestParseCatalogRejectsUnknownCategory(t *testing.T) {
	_, err := ParseCatalog([]byte("cpu-pressure:\n  diagnostics: [\"top -bn1\"]\n"))
	if !errors.Is(err, ErrUnclassified) {
		t.Fatalf("expected ErrUnclassified, got %v", err)
	}
}
