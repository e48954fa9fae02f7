package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kube-rca/remediator/internal/model"
)

// EnsureWebhookSchema - webhook_configs 테이블 생성 (없으면)
func (p *Postgres) EnsureWebhookSchema(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS webhook_configs (
			id         SERIAL       PRIMARY KEY,
			url        TEXT         NOT NULL DEFAULT '',
			method     TEXT         NOT NULL DEFAULT 'POST',
			headers    JSONB        NOT NULL DEFAULT '[]',
			body       TEXT         NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create webhook_configs table: %w", err)
	}
	return nil
}

// GetWebhookConfigs - incident 상태 변경을 전달할 웹훅 설정 전체 조회 (최신순)
// 전달 시점마다 조회하므로 테이블 변경은 재시작 없이 반영
func (p *Postgres) GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT id, url, method, headers, body
		FROM webhook_configs
		ORDER BY updated_at DESC;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook configs: %w", err)
	}
	defer rows.Close()

	configs := []model.WebhookConfig{}
	for rows.Next() {
		var cfg model.WebhookConfig
		var headersJSON []byte
		if err := rows.Scan(&cfg.ID, &cfg.URL, &cfg.Method, &headersJSON, &cfg.Body); err != nil {
			return nil, fmt.Errorf("failed to scan webhook config: %w", err)
		}
		if err := json.Unmarshal(headersJSON, &cfg.Headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}
