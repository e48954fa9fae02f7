package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kube-rca/remediator/internal/client"
	"github.com/kube-rca/remediator/internal/config"
	"github.com/kube-rca/remediator/internal/db"
	"github.com/kube-rca/remediator/internal/handler"
	"github.com/kube-rca/remediator/internal/planner"
	"github.com/kube-rca/remediator/internal/service"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := newPlanner(cfg.Planner)
	if err != nil {
		return err
	}
	executor, err := newExecutor(ctx, cfg.Executor)
	if err != nil {
		return err
	}
	advisor := newAdvisor(ctx, cfg)
	resolver, err := newTargetResolver(ctx, cfg.Executor)
	if err != nil {
		return err
	}

	hub := service.NewHub(0)
	gate := service.NewGate(cfg.Gate, store, p, service.NewAdvisoryService(advisor, p, cfg.Advisory.Timeout), executor, hub)

	limiter := handler.NewRateLimiter(cfg.RateLimit)
	router := handler.Router{
		Alarms:         handler.NewAlarmHandler(service.NewAlarmService(gate, resolver)),
		Incidents:      handler.NewIncidentHandler(service.NewIncidentService(store), gate),
		Realtime:       handler.NewRealtimeHandler(hub, cfg.Server.AllowedOrigins),
		Health:         handler.Health(gate, hub),
		OperatorSecret: cfg.Auth.OperatorJWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if !cfg.RateLimit.Disabled {
		router.RateLimiter = limiter
		go limiter.Start()
		defer limiter.Stop()
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router.Engine()}
	g, gctx := errgroup.WithContext(ctx)

	sinks, err := newSinks(ctx, cfg, store)
	if err != nil {
		return err
	}
	// sink는 signal과 무관하게 hub.Close로 구독이 닫힐 때까지 남은 이벤트 전달
	sinkCtx, cancelSinks := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSinks()
	var sinkWG sync.WaitGroup
	for _, sink := range sinks {
		runner := service.NewSinkRunner(store, sink)
		sub := hub.Subscribe()
		log.Printf("Notifier sink enabled: %s", sink.Name())
		sinkWG.Add(1)
		go func() {
			defer sinkWG.Done()
			runner.Run(sinkCtx, sub)
		}()
	}

	g.Go(func() error {
		log.Printf("Listening on %s (approval_required=%t, store=%s, executor=%s, advisory=%s)",
			cfg.Server.Addr, gate.ApprovalRequired(), cfg.Store.Driver, cfg.Executor.Driver, cfg.Advisory.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		// 진행 중인 dispatch가 종료 상태를 기록한 뒤 구독 종료
		gate.Wait()
		hub.Close()

		drained := make(chan struct{})
		go func() {
			sinkWG.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-shutdownCtx.Done():
			log.Printf("Notifier sinks did not drain within %s", shutdownTimeout)
			cancelSinks()
			<-drained
		}
		return err
	})

	return g.Wait()
}

func runMigrate(ctx context.Context) error {
	cfg := config.Load()
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := &db.Postgres{Pool: pool}
		if err := pg.EnsureIncidentSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure incident schema: %w", err)
		}
		if err := pg.EnsureWebhookSchema(ctx); err != nil {
			return err
		}
	case "dynamodb":
		// 로컬 endpoint면 NewDynamo가 테이블 생성, AWS 테이블은 IaC에서 관리
		if _, err := db.NewDynamo(ctx, cfg.Dynamo); err != nil {
			return err
		}
	default:
		return fmt.Errorf("migrate is not supported for store %q", cfg.Store.Driver)
	}
	log.Printf("Migration finished (store=%s)", cfg.Store.Driver)
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (service.IncidentStore, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := &db.Postgres{Pool: pool}
		if err := pg.EnsureIncidentSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ensure incident schema: %w", err)
		}
		return pg, pool.Close, nil
	case "dynamodb":
		d, err := db.NewDynamo(ctx, cfg.Dynamo)
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	case "memory":
		log.Printf("Using in-memory store: incidents are lost on restart")
		return db.NewMemory(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newPlanner(cfg config.PlannerConfig) (*planner.Planner, error) {
	if cfg.CatalogPath == "" {
		return planner.New(cfg.LogBucket), nil
	}
	overrides, err := planner.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Planner catalog loaded from %s (%d categories)", cfg.CatalogPath, len(overrides))
	return planner.NewWithCatalog(cfg.LogBucket, overrides), nil
}

func newExecutor(ctx context.Context, cfg config.ExecutorConfig) (service.Executor, error) {
	switch cfg.Driver {
	case "ssm":
		return client.NewSSMExecutor(ctx, cfg)
	case "agent":
		return client.NewAgentClient(cfg.AgentURL), nil
	}
	return nil, fmt.Errorf("unknown executor driver %q", cfg.Driver)
}

// newTargetResolver - ssm 실행 환경에서만 ASG/TargetGroup 조회 (그 외에는 InstanceId dimension만 사용)
func newTargetResolver(ctx context.Context, cfg config.ExecutorConfig) (service.TargetResolver, error) {
	if cfg.Driver != "ssm" {
		return nil, nil
	}
	return client.NewAWSTargetResolver(ctx, cfg)
}

// newAdvisor - provider 초기화 실패는 치명적이지 않음 (nil이면 항상 fallback)
func newAdvisor(ctx context.Context, cfg config.Config) service.Advisor {
	var (
		advisor service.Advisor
		err     error
	)
	switch cfg.Advisory.Provider {
	case "gemini":
		advisor, err = client.NewGeminiAdvisor(ctx, cfg.Advisory, cfg.Planner.LogBucket)
	case "openai":
		advisor, err = client.NewOpenAIAdvisor(cfg.Advisory, cfg.Planner.LogBucket)
	case "agent":
		advisor = client.NewAgentClient(cfg.Advisory.AgentURL)
	case "none", "":
		log.Printf("Advisory disabled: fallback remediations only")
		return nil
	default:
		err = fmt.Errorf("unknown provider %q", cfg.Advisory.Provider)
	}
	if err != nil {
		log.Printf("Advisory unavailable, using fallback remediations: %v", err)
		return nil
	}
	return advisor
}

func newSinks(ctx context.Context, cfg config.Config, store service.IncidentStore) ([]service.IncidentSink, error) {
	var sinks []service.IncidentSink
	if slack := client.NewSlackClient(cfg.Slack); slack.IsConfigured() {
		sinks = append(sinks, service.NewSlackSink(slack))
	}

	if cfg.Webhook.URL != "" {
		sinks = append(sinks, service.NewWebhookDeliveryService(service.StaticWebhookConfigs{{
			URL:    cfg.Webhook.URL,
			Method: cfg.Webhook.Method,
			Body:   cfg.Webhook.Body,
		}}))
	}
	if cfg.Webhook.FromDatabase {
		pg, ok := store.(*db.Postgres)
		if !ok {
			return nil, fmt.Errorf("WEBHOOK_CONFIGS_FROM_DB requires STORE=postgres (got %q)", cfg.Store.Driver)
		}
		if err := pg.EnsureWebhookSchema(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, service.NewWebhookDeliveryService(pg))
	}
	return sinks, nil
}
