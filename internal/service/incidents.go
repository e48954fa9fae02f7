package service

import (
	"context"
	"errors"
	"time"

	"github.com/kube-rca/remediator/internal/db"
	"github.com/kube-rca/remediator/internal/model"
	tmpl "github.com/kube-rca/remediator/internal/template"
)

// IncidentService - 조회 전용 (목록, 상세, 지표, 보고서)
// 목록 조회가 realtime 채널의 재동기화 기준
type IncidentService struct {
	repo IncidentStore
	now  func() time.Time
}

func NewIncidentService(repo IncidentStore) *IncidentService {
	return &IncidentService{repo: repo, now: time.Now}
}

func (s *IncidentService) List(ctx context.Context, filter model.IncidentFilter) ([]model.Incident, error) {
	return s.repo.List(ctx, filter)
}

func (s *IncidentService) Get(ctx context.Context, id string) (*model.Incident, error) {
	inc, err := s.repo.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	return inc, err
}

func (s *IncidentService) Stats(ctx context.Context) (model.IncidentStats, error) {
	list, err := s.repo.List(ctx, model.IncidentFilter{})
	if err != nil {
		return model.IncidentStats{}, err
	}
	return ComputeStats(list, s.now()), nil
}

// Report - 종료된 incident의 보고서 (html=true면 sanitize된 HTML 포함)
func (s *IncidentService) Report(ctx context.Context, id string, html bool) (*model.IncidentReport, error) {
	inc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := tmpl.BuildReport(inc)
	if err != nil {
		return nil, err
	}
	if html {
		report.HTML = tmpl.RenderHTML(report.Markdown)
	}
	return report, nil
}
