// 환경변수 기반 설정 로드
//
// .env 파일이 있으면 먼저 읽고(godotenv), viper로 기본값과 환경변수를 합쳐서 Config를 구성
// 승인 모드(APPROVAL_MODE)는 전역 플래그가 아니라 Config 값으로 Gate 생성 시 전달

package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Gate      GateConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Dynamo    DynamoConfig
	Advisory  AdvisoryConfig
	Executor  ExecutorConfig
	Planner   PlannerConfig
	Slack     SlackConfig
	Webhook   WebhookConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// GateConfig - 승인 게이트/디스패처 동작 설정
type GateConfig struct {
	ApprovalRequired   bool
	ExecutionBudget    time.Duration
	DiagnosticBudget   time.Duration
	DedupWindow        time.Duration
	RecordUnclassified bool
}

type StoreConfig struct {
	// Driver: postgres | dynamodb | memory
	Driver string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type DynamoConfig struct {
	Table    string
	Region   string
	Endpoint string
}

type AdvisoryConfig struct {
	// Provider: gemini | openai | agent | none
	Provider     string
	Timeout      time.Duration
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	AgentURL     string
}

type ExecutorConfig struct {
	// Driver: ssm | agent
	Driver       string
	Region       string
	AgentURL     string
	PollInterval time.Duration
}

type PlannerConfig struct {
	CatalogPath string
	LogBucket   string
}

type SlackConfig struct {
	BotToken  string
	ChannelID string
}

type WebhookConfig struct {
	URL    string
	Method string
	Body   string

	// FromDatabase: STORE=postgres 일 때 webhook_configs 테이블의 설정을 함께 사용
	FromDatabase bool
}

type RateLimitConfig struct {
	Disabled bool
	Requests int
	Window   time.Duration
}

type AuthConfig struct {
	OperatorJWTSecret string
}

func Load() Config {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return Config{
		Server: ServerConfig{
			Addr:           v.GetString("HTTP_ADDR"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Gate: GateConfig{
			ApprovalRequired:   v.GetBool("APPROVAL_MODE"),
			ExecutionBudget:    v.GetDuration("EXECUTION_BUDGET"),
			DiagnosticBudget:   v.GetDuration("DIAGNOSTIC_BUDGET"),
			DedupWindow:        v.GetDuration("DEDUP_WINDOW"),
			RecordUnclassified: v.GetBool("RECORD_UNCLASSIFIED"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE")),
		},
		Postgres: PostgresConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("PGHOST"),
			Port:        v.GetString("PGPORT"),
			User:        v.GetString("PGUSER"),
			Password:    v.GetString("PGPASSWORD"),
			Database:    v.GetString("PGDATABASE"),
			SSLMode:     v.GetString("PGSSLMODE"),
		},
		Dynamo: DynamoConfig{
			Table:    v.GetString("DYNAMODB_TABLE"),
			Region:   v.GetString("AWS_REGION"),
			Endpoint: v.GetString("DYNAMODB_ENDPOINT"),
		},
		Advisory: AdvisoryConfig{
			Provider:     strings.ToLower(v.GetString("ADVISORY_PROVIDER")),
			Timeout:      v.GetDuration("ADVISORY_TIMEOUT"),
			GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
			GeminiModel:  v.GetString("GEMINI_MODEL"),
			OpenAIAPIKey: v.GetString("OPENAI_API_KEY"),
			OpenAIModel:  v.GetString("OPENAI_MODEL"),
			AgentURL:     v.GetString("AGENT_URL"),
		},
		Executor: ExecutorConfig{
			Driver:       strings.ToLower(v.GetString("EXECUTOR")),
			Region:       v.GetString("AWS_REGION"),
			AgentURL:     v.GetString("AGENT_URL"),
			PollInterval: v.GetDuration("SSM_POLL_INTERVAL"),
		},
		Planner: PlannerConfig{
			CatalogPath: v.GetString("PLANNER_CATALOG_PATH"),
			LogBucket:   v.GetString("LOG_ARCHIVE_BUCKET"),
		},
		Slack: SlackConfig{
			BotToken:  v.GetString("SLACK_BOT_TOKEN"),
			ChannelID: v.GetString("SLACK_CHANNEL_ID"),
		},
		Webhook: WebhookConfig{
			URL:    v.GetString("WEBHOOK_URL"),
			Method: v.GetString("WEBHOOK_METHOD"),
			Body:   v.GetString("WEBHOOK_BODY"),

			FromDatabase: v.GetBool("WEBHOOK_CONFIGS_FROM_DB"),
		},
		RateLimit: RateLimitConfig{
			Disabled: v.GetBool("RATE_LIMIT_DISABLED"),
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Auth: AuthConfig{
			OperatorJWTSecret: v.GetString("OPERATOR_JWT_SECRET"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("APPROVAL_MODE", true)
	v.SetDefault("EXECUTION_BUDGET", 2*time.Minute)
	v.SetDefault("DIAGNOSTIC_BUDGET", 2*time.Minute)
	v.SetDefault("DEDUP_WINDOW", 5*time.Minute)
	v.SetDefault("RECORD_UNCLASSIFIED", false)

	v.SetDefault("STORE", "postgres")
	v.SetDefault("PGHOST", "localhost")
	v.SetDefault("PGPORT", "5432")
	v.SetDefault("PGSSLMODE", "disable")

	v.SetDefault("DYNAMODB_TABLE", "sre-incidents")
	v.SetDefault("AWS_REGION", "ap-south-1")

	v.SetDefault("ADVISORY_PROVIDER", "gemini")
	v.SetDefault("ADVISORY_TIMEOUT", 60*time.Second)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-pro")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("AGENT_URL", "http://sre-agent.sre.svc:8000")

	v.SetDefault("EXECUTOR", "ssm")
	v.SetDefault("SSM_POLL_INTERVAL", 2*time.Second)

	v.SetDefault("LOG_ARCHIVE_BUCKET", "sre-incident-logs-archive")

	v.SetDefault("WEBHOOK_METHOD", "POST")
	v.SetDefault("WEBHOOK_BODY", `{"incident_id":"{{incident.id}}","status":"{{incident.status}}"}`)

	v.SetDefault("RATE_LIMIT_REQUESTS", 60)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
