package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kube-rca/remediator/internal/model"
)

// Postgres 구조체의 필드 타입을 NewPostgresPool의 리턴 타입과 맞춥니다.
type Postgres struct {
	Pool *pgxpool.Pool
}

const incidentColumns = `
	incident_id, alarm_name, alarm_description, target_id, category, status,
	diagnostics, ai_suggestion, ai_reasoning, suggestion_source, custom_command,
	remediation_output, timeline, created_at, updated_at`

// EnsureIncidentSchema - incidents 테이블 생성 (없으면)
func (db *Postgres) EnsureIncidentSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS incidents (
			incident_id TEXT PRIMARY KEY,
			alarm_name TEXT NOT NULL DEFAULT '',
			alarm_description TEXT NOT NULL DEFAULT '',
			target_id TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			diagnostics TEXT NOT NULL DEFAULT '',
			ai_suggestion TEXT NOT NULL DEFAULT '',
			ai_reasoning TEXT NOT NULL DEFAULT '',
			suggestion_source TEXT NOT NULL DEFAULT '',
			custom_command TEXT NOT NULL DEFAULT '',
			remediation_output TEXT NOT NULL DEFAULT '',
			timeline JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS incidents_status_idx ON incidents(status)`,
		`CREATE INDEX IF NOT EXISTS incidents_created_at_idx ON incidents(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// CreateIfAbsent - incident_id가 없을 때만 저장
// 이미 있으면 기존 레코드를 그대로 반환 (created=false)
func (db *Postgres) CreateIfAbsent(ctx context.Context, inc *model.Incident) (*model.Incident, bool, error) {
	timeline, err := json.Marshal(inc.Timeline)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal timeline: %w", err)
	}

	query := `
		INSERT INTO incidents (` + incidentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (incident_id) DO NOTHING
		RETURNING incident_id
	`

	var id string
	err = db.Pool.QueryRow(ctx, query,
		inc.IncidentID,
		inc.AlarmName,
		inc.AlarmDescription,
		inc.TargetID,
		inc.Category,
		inc.Status,
		inc.Diagnostics,
		inc.AISuggestion,
		inc.AIReasoning,
		inc.SuggestionSource,
		inc.CustomCommand,
		inc.RemediationOutput,
		timeline,
		inc.CreatedAt,
		inc.UpdatedAt,
	).Scan(&id)
	if IsNoRows(err) {
		existing, err := db.Get(ctx, inc.IncidentID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	created := *inc
	return &created, true, nil
}

func (db *Postgres) Get(ctx context.Context, id string) (*model.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE incident_id = $1`

	inc, err := scanIncident(db.Pool.QueryRow(ctx, query, id))
	if IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inc, nil
}

// Transition - 현재 상태가 expected일 때만 변경분을 적용 (단일 UPDATE 문으로 원자적 처리)
// 조건 불일치 시 실제 상태를 담은 StatusConflictError 반환
func (db *Postgres) Transition(ctx context.Context, id string, expected model.Status, update model.IncidentUpdate) (*model.Incident, error) {
	entries, err := json.Marshal(update.Timeline)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timeline: %w", err)
	}

	query := `
		UPDATE incidents
		SET
			status = $3,
			custom_command = COALESCE($4, custom_command),
			remediation_output = COALESCE($5, remediation_output),
			timeline = timeline || $6::jsonb,
			updated_at = $7
		WHERE incident_id = $1 AND status = $2
		RETURNING ` + incidentColumns

	inc, err := scanIncident(db.Pool.QueryRow(ctx, query,
		id,
		expected,
		update.Status,
		update.CustomCommand,
		update.RemediationOutput,
		entries,
		update.UpdatedAt,
	))
	if err == nil {
		return inc, nil
	}
	if !IsNoRows(err) {
		return nil, err
	}

	var current model.Status
	err = db.Pool.QueryRow(ctx, `SELECT status FROM incidents WHERE incident_id = $1`, id).Scan(&current)
	if IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, &StatusConflictError{IncidentID: id, Expected: expected, Current: current}
}

func (db *Postgres) List(ctx context.Context, filter model.IncidentFilter) ([]model.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Incident{}
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *inc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func scanIncident(row pgx.Row) (*model.Incident, error) {
	var i model.Incident
	var timeline []byte
	err := row.Scan(
		&i.IncidentID,
		&i.AlarmName,
		&i.AlarmDescription,
		&i.TargetID,
		&i.Category,
		&i.Status,
		&i.Diagnostics,
		&i.AISuggestion,
		&i.AIReasoning,
		&i.SuggestionSource,
		&i.CustomCommand,
		&i.RemediationOutput,
		&timeline,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(timeline, &i.Timeline); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timeline: %w", err)
	}
	return &i, nil
}
