// Alarm 분류 -> 진단 명령 / fallback remediation 매핑
//
// 분류는 닫힌 enum(Category)으로 관리하고, 알 수 없는 분류는 Unclassified로 호출자에게 알림
// (무시하지 않음 - audit용 incident 생성 여부는 호출자가 결정)

package planner

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnclassified = errors.New("unclassified alarm")

// Category - alarm 분류 키
type Category int

const (
	Unclassified Category = iota
	DiskPressure
	MemoryPressure
	ServiceDown
)

var categoryNames = map[Category]string{
	DiskPressure:   "disk-pressure",
	MemoryPressure: "memory-pressure",
	ServiceDown:    "service-down",
}

// Categories - 분류 가능한 전체 목록
func Categories() []Category {
	return []Category{DiskPressure, MemoryPressure, ServiceDown}
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unclassified"
}

// ParseCategory - "disk-pressure" 형태의 문자열을 Category로 변환
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for c, name := range categoryNames {
		if name == key {
			return c, nil
		}
	}
	return Unclassified, fmt.Errorf("%w: category %q", ErrUnclassified, s)
}

// ClassifyAlarmName - category가 없는 alarm(CloudWatch 등)은 이름으로 추정
func ClassifyAlarmName(name string) Category {
	switch {
	case strings.Contains(name, "Disk"):
		return DiskPressure
	case strings.Contains(name, "Nginx"), strings.Contains(name, "Service"):
		return ServiceDown
	case strings.Contains(name, "Memory"):
		return MemoryPressure
	}
	return Unclassified
}

// Resolve - 명시된 category가 있으면 우선, 없으면 alarm 이름으로 추정
func Resolve(category, alarmName string) Category {
	if category != "" {
		if c, err := ParseCategory(category); err == nil {
			return c
		}
		return Unclassified
	}
	return ClassifyAlarmName(alarmName)
}

// Remediation - fallback 명령과 설명
type Remediation struct {
	Command   string `yaml:"command"`
	Reasoning string `yaml:"reasoning"`
}

// Plan - 대상에 실행할 읽기 전용 진단 명령 목록 + fallback
type Plan struct {
	Category    Category
	TargetID    string
	Diagnostics []string
	Fallback    Remediation
}

// Entry - 분류별 카탈로그 항목
type Entry struct {
	Diagnostics []string    `yaml:"diagnostics"`
	Fallback    Remediation `yaml:"fallback"`
}

type Planner struct {
	catalog map[Category]Entry
}

// New - 기본 카탈로그로 Planner 생성 (logBucket은 disk fallback의 아카이브 대상)
func New(logBucket string) *Planner {
	return &Planner{catalog: DefaultCatalog(logBucket)}
}

// NewWithCatalog - override 카탈로그 사용 (없는 항목은 기본값 유지)
func NewWithCatalog(logBucket string, overrides map[Category]Entry) *Planner {
	p := New(logBucket)
	for c, e := range overrides {
		base := p.catalog[c]
		if len(e.Diagnostics) > 0 {
			base.Diagnostics = e.Diagnostics
		}
		if e.Fallback.Command != "" {
			base.Fallback = e.Fallback
		}
		p.catalog[c] = base
	}
	return p
}

func (p *Planner) Plan(category Category, targetID string) (Plan, error) {
	entry, ok := p.catalog[category]
	if !ok {
		return Plan{Category: Unclassified, TargetID: targetID}, ErrUnclassified
	}
	diagnostics := make([]string, len(entry.Diagnostics))
	copy(diagnostics, entry.Diagnostics)
	return Plan{
		Category:    category,
		TargetID:    targetID,
		Diagnostics: diagnostics,
		Fallback:    entry.Fallback,
	}, nil
}

// Fallback - 분류별 결정적 remediation (Unclassified면 false)
func (p *Planner) Fallback(category Category) (Remediation, bool) {
	entry, ok := p.catalog[category]
	if !ok || entry.Fallback.Command == "" {
		return Remediation{}, false
	}
	return entry.Fallback, true
}

func DefaultCatalog(logBucket string) map[Category]Entry {
	if logBucket == "" {
		logBucket = "sre-incident-logs-archive"
	}
	return map[Category]Entry{
		DiskPressure: {
			Diagnostics: []string{"df -h /", "ls -lRh /var/log/ | head -n 20"},
			Fallback: Remediation{
				Command:   fmt.Sprintf("export PATH=$PATH:/usr/local/bin; aws s3 cp /var/log/garbage.log s3://%s/garbage.log-$(date +%%s) && > /var/log/garbage.log", logBucket),
				Reasoning: "Disk usage critical. Archiving garbage.log to S3 and clearing file to free space.",
			},
		},
		ServiceDown: {
			Diagnostics: []string{"systemctl status nginx", "journalctl -u nginx -n 20"},
			Fallback: Remediation{
				Command:   "systemctl restart nginx",
				Reasoning: "Nginx service is down. Restarting service to restore availability.",
			},
		},
		MemoryPressure: {
			Diagnostics: []string{"free -m", "ps aux --sort=-%mem | head -n 10"},
			Fallback: Remediation{
				Command:   "pkill -f 'stress-ng' || pkill -f 'python3'",
				Reasoning: "Memory exhaustion detected. Terminating stress-ng process.",
			},
		},
	}
}
