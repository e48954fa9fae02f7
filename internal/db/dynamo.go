// DynamoDB 기반 incident 저장소
//
// 설정 (config.DynamoConfig):
//   - DYNAMODB_TABLE (default: sre-incidents)
//   - AWS_REGION
//   - DYNAMODB_ENDPOINT: 로컬 DynamoDB 사용 시 (테이블이 없으면 생성)

package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/guregu/dynamo/v2"
	"github.com/kube-rca/remediator/internal/config"
	"github.com/kube-rca/remediator/internal/model"
)

type Dynamo struct {
	db    *dynamo.DB
	table string
}

func NewDynamo(ctx context.Context, cfg config.DynamoConfig) (*Dynamo, error) {
	if cfg.Endpoint != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(orDefault(cfg.Region, "dummy")),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "dummy")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws configuration: %w", err)
		}
		d := &Dynamo{
			db: dynamo.New(awsCfg, func(o *dynamodb.Options) {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}),
			table: cfg.Table,
		}
		if err := d.ensureTable(ctx); err != nil {
			return nil, fmt.Errorf("failed to setup schema: %w", err)
		}
		return d, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}
	return &Dynamo{db: dynamo.New(awsCfg), table: cfg.Table}, nil
}

func (d *Dynamo) ensureTable(ctx context.Context) error {
	if _, err := d.db.Table(d.table).Describe().Run(ctx); err == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return d.db.CreateTable(d.table, model.Incident{}).OnDemand(true).Run(ctx)
}

func (d *Dynamo) CreateIfAbsent(ctx context.Context, inc *model.Incident) (*model.Incident, bool, error) {
	err := d.db.Table(d.table).Put(inc).If("attribute_not_exists('incident_id')").Run(ctx)
	if dynamo.IsCondCheckFailed(err) {
		existing, err := d.Get(ctx, inc.IncidentID)
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

func (d *Dynamo) Get(ctx context.Context, id string) (*model.Incident, error) {
	var inc model.Incident
	err := d.db.Table(d.table).Get("incident_id", id).One(ctx, &inc)
	if errors.Is(err, dynamo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

// Transition - 'status' 조건부 UpdateItem
// 조건이 실패하면 현재 레코드를 다시 읽어 충돌 상태를 돌려줌
func (d *Dynamo) Transition(ctx context.Context, id string, expected model.Status, update model.IncidentUpdate) (*model.Incident, error) {
	u := d.db.Table(d.table).Update("incident_id", id).
		Set("status", update.Status).
		Set("updated_at", update.UpdatedAt)
	if update.CustomCommand != nil {
		u = u.Set("custom_command", *update.CustomCommand)
	}
	if update.RemediationOutput != nil {
		u = u.Set("remediation_output", *update.RemediationOutput)
	}
	if len(update.Timeline) > 0 {
		u = u.Append("timeline", update.Timeline)
	}

	var out model.Incident
	err := u.If("'status' = ?", expected).Value(ctx, &out)
	if err == nil {
		return &out, nil
	}
	if !dynamo.IsCondCheckFailed(err) {
		return nil, err
	}

	current, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, &StatusConflictError{IncidentID: id, Expected: expected, Current: current.Status}
}

func (d *Dynamo) List(ctx context.Context, filter model.IncidentFilter) ([]model.Incident, error) {
	scan := d.db.Table(d.table).Scan()
	if filter.Status != "" {
		scan = scan.Filter("'status' = ?", filter.Status)
	}

	list := []model.Incident{}
	if err := scan.All(ctx, &list); err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}
