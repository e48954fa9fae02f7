package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kube-rca/remediator/internal/model"
	tmpl "github.com/kube-rca/remediator/internal/template"
)

// WebhookConfigSource - 웹훅 설정 조회 (환경변수 고정값 또는 Postgres webhook_configs)
type WebhookConfigSource interface {
	GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
}

// StaticWebhookConfigs - 고정된 웹훅 설정 목록
type StaticWebhookConfigs []model.WebhookConfig

func (s StaticWebhookConfigs) GetWebhookConfigs(context.Context) ([]model.WebhookConfig, error) {
	return s, nil
}

// WebhookDeliveryService - 설정된 Webhook으로 incident 상태 변경을 전송하는 서비스
type WebhookDeliveryService struct {
	source     WebhookConfigSource
	httpClient *http.Client
}

// NewWebhookDeliveryService 생성자
func NewWebhookDeliveryService(source WebhookConfigSource) *WebhookDeliveryService {
	return &WebhookDeliveryService{
		source: source,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *WebhookDeliveryService) Name() string {
	return "WebhookDelivery"
}

// Deliver - 모든 webhook config에 렌더링된 body를 HTTP로 전송
// 개별 config 실패 시 나머지는 계속 전송하고 마지막 에러를 반환
func (s *WebhookDeliveryService) Deliver(ctx context.Context, inc *model.Incident) error {
	configs, err := s.source.GetWebhookConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load webhook configs: %w", err)
	}
	data := tmpl.IncidentDataFromModel(inc)

	var lastErr error
	for _, cfg := range configs {
		if cfg.URL == "" {
			log.Printf("[WebhookDelivery] Skipping config id=%d: URL is empty", cfg.ID)
			continue
		}

		rendered := tmpl.RenderBody(cfg.Body, &data)
		if err := s.sendHTTP(ctx, cfg, rendered); err != nil {
			log.Printf("[WebhookDelivery] Failed to deliver to %s (config id=%d): %v", cfg.URL, cfg.ID, err)
			lastErr = err
		} else {
			log.Printf("[WebhookDelivery] Delivered to %s (config id=%d, incident_id=%s)", cfg.URL, cfg.ID, inc.IncidentID)
		}
	}
	return lastErr
}

// sendHTTP - 단일 webhook config로 HTTP 요청 전송
func (s *WebhookDeliveryService) sendHTTP(ctx context.Context, cfg model.WebhookConfig, body string) error {
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}

	// Content-Type 기본값 설정 (없으면 application/json)
	hasContentType := false
	for _, h := range cfg.Headers {
		if h.Key != "" {
			req.Header.Set(h.Key, h.Value)
		}
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
