// Approval Gate & Dispatcher
//
// incident의 모든 상태 전이는 여기서만 일어남
//   - Create: 진단 -> advisory -> 저장 (incident_id 기준 idempotent)
//   - Decide: pending_approval 에서만 승인/거절 (저장소 조건부 전이로 CAS)
//   - dispatch: 실행 예산 안에서 원격 실행 후 종료 상태 기록
//
// timeout은 orchestrator가 기다리는 것을 포기한 것일 뿐, 원격 명령이 멈췄다는 보장은 없음
// timeout 이후 도착한 결과는 기록만 하고 적용하지 않음 (late_results_total)

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kube-rca/remediator/internal/config"
	"github.com/kube-rca/remediator/internal/db"
	"github.com/kube-rca/remediator/internal/model"
	"github.com/kube-rca/remediator/internal/observability"
	"github.com/kube-rca/remediator/internal/planner"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidAlarm - alarm_name/target_id 누락
var ErrInvalidAlarm = errors.New("alarm name and target id are required")

const (
	diagnosticTimeoutText = "Diagnostic Timeout"
	emptyOutputText       = "(no output)"

	// dispatchGrace - executor가 ctx를 무시할 때 예산 이후 추가로 기다리는 시간
	dispatchGrace = 2 * time.Second
)

// IncidentStore - 저장소 인터페이스 (create-if-absent + 조건부 전이)
type IncidentStore interface {
	CreateIfAbsent(ctx context.Context, inc *model.Incident) (*model.Incident, bool, error)
	Get(ctx context.Context, id string) (*model.Incident, error)
	Transition(ctx context.Context, id string, expected model.Status, update model.IncidentUpdate) (*model.Incident, error)
	List(ctx context.Context, filter model.IncidentFilter) ([]model.Incident, error)
}

// Executor - 대상에서 명령을 실행하는 원격 실행 capability
// ctx deadline 초과 시 가능한 만큼의 부분 출력과 ctx 에러를 함께 반환
type Executor interface {
	Run(ctx context.Context, req model.ExecRequest) (*model.ExecResult, error)
}

// Publisher - 전이 완료 이벤트 수신자 (Hub)
type Publisher interface {
	Publish(ev model.IncidentEvent)
}

// DecisionAction - 운영자 결정
type DecisionAction string

const (
	DecisionApprove DecisionAction = "approve"
	DecisionReject  DecisionAction = "reject"
)

// Decision - Decide 입력 (OverrideCommand는 승인 시에만 사용)
type Decision struct {
	Action          DecisionAction
	OverrideCommand string
	Operator        string
}

type Gate struct {
	cfg       config.GateConfig
	store     IncidentStore
	planner   *planner.Planner
	advisory  *AdvisoryService
	executor  Executor
	publisher Publisher

	now   func() time.Time
	grace time.Duration

	group singleflight.Group
	wg    sync.WaitGroup
}

func NewGate(cfg config.GateConfig, store IncidentStore, p *planner.Planner, advisory *AdvisoryService, executor Executor, publisher Publisher) *Gate {
	return &Gate{
		cfg:       cfg,
		store:     store,
		planner:   p,
		advisory:  advisory,
		executor:  executor,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		grace:     dispatchGrace,
	}
}

// ApprovalRequired - 현재 gate의 승인 모드
func (g *Gate) ApprovalRequired() bool {
	return g.cfg.ApprovalRequired
}

// Wait - 백그라운드 dispatch가 모두 끝날 때까지 대기
func (g *Gate) Wait() {
	g.wg.Wait()
}

type createResult struct {
	incident *model.Incident
	created  bool
	claimed  atomic.Bool
}

// Create - alarm 수신 시 incident 생성
// 같은 incident_id가 이미 있으면 기존 레코드를 그대로 반환 (진단/실행 없음, created=false)
func (g *Gate) Create(ctx context.Context, ev model.AlarmEvent) (*model.Incident, bool, error) {
	ev.AlarmName = strings.TrimSpace(ev.AlarmName)
	ev.TargetID = strings.TrimSpace(ev.TargetID)
	if ev.AlarmName == "" || ev.TargetID == "" {
		return nil, false, ErrInvalidAlarm
	}

	createdAt := g.now()
	if !ev.FiredAt.IsZero() {
		createdAt = ev.FiredAt.UTC()
	}
	id := model.NewIncidentID(ev.AlarmName, ev.TargetID, createdAt, g.cfg.DedupWindow)

	// 같은 프로세스 안의 중복 전달은 하나로 합치고, 프로세스 간 경합은 저장소가 정리
	// 진단/실행은 요청 취소와 무관하게 끝까지 진행
	detached := context.WithoutCancel(ctx)
	v, err, _ := g.group.Do(id, func() (any, error) {
		inc, created, err := g.create(detached, id, createdAt, ev)
		if err != nil {
			return nil, err
		}
		return &createResult{incident: inc, created: created}, nil
	})
	if err != nil {
		return nil, false, err
	}

	r := v.(*createResult)
	out := *r.incident
	out.Timeline = append([]model.TimelineEntry(nil), r.incident.Timeline...)
	return &out, r.created && r.claimed.CompareAndSwap(false, true), nil
}

func (g *Gate) create(ctx context.Context, id string, createdAt time.Time, ev model.AlarmEvent) (*model.Incident, bool, error) {
	existing, err := g.store.Get(ctx, id)
	if err == nil {
		log.Printf("[Gate] Duplicate alarm delivery (incident_id=%s)", id)
		return existing, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to load incident: %w", err)
	}

	category := planner.Resolve(ev.Category, ev.AlarmName)
	inc := &model.Incident{
		IncidentID:       id,
		AlarmName:        ev.AlarmName,
		AlarmDescription: ev.Description,
		TargetID:         ev.TargetID,
		Category:         category.String(),
		SuggestionSource: model.SourceNone,
		CreatedAt:        createdAt,
	}

	plan, err := g.planner.Plan(category, ev.TargetID)
	switch {
	case errors.Is(err, planner.ErrUnclassified):
		if !g.cfg.RecordUnclassified {
			return nil, false, fmt.Errorf("%w: alarm %s", planner.ErrUnclassified, ev.AlarmName)
		}
		// audit 용 레코드: 진단/제안 없이 운영자 판단 대기
		inc.Status = model.StatusPendingApproval
		return g.persist(ctx, inc, "unclassified alarm recorded for audit")
	case err != nil:
		return nil, false, err
	}

	inc.Diagnostics = g.runDiagnostics(ctx, plan)
	suggestion := g.advisory.Suggest(ctx, category, model.AdvisoryRequest{
		AlarmName:   ev.AlarmName,
		Category:    category.String(),
		TargetID:    ev.TargetID,
		Diagnostics: inc.Diagnostics,
	})
	inc.AISuggestion = suggestion.Command
	inc.AIReasoning = suggestion.Reasoning
	inc.SuggestionSource = suggestion.Source

	inc.Status = model.StatusPendingApproval
	detail := "source=" + string(suggestion.Source)
	if !g.cfg.ApprovalRequired {
		if inc.AISuggestion != "" {
			inc.Status = model.StatusExecuting
		} else {
			// 실행할 명령이 없으면 자동 실행 대신 운영자 판단 대기
			log.Printf("[Gate] No command for auto dispatch, parking for approval (incident_id=%s)", id)
			detail += "; no command for auto dispatch"
		}
	}

	return g.persist(ctx, inc, detail)
}

func (g *Gate) persist(ctx context.Context, inc *model.Incident, detail string) (*model.Incident, bool, error) {
	now := g.now()
	inc.Timeline = []model.TimelineEntry{{Event: model.EventCreated, Timestamp: now, Detail: detail}}
	inc.UpdatedAt = now

	stored, created, err := g.store.CreateIfAbsent(ctx, inc)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create incident: %w", err)
	}
	if !created {
		log.Printf("[Gate] Incident created concurrently elsewhere (incident_id=%s)", inc.IncidentID)
		return stored, false, nil
	}

	log.Printf("[Gate] Incident created (incident_id=%s, status=%s, source=%s)", stored.IncidentID, stored.Status, stored.SuggestionSource)
	g.committed("", stored)

	if stored.Status == model.StatusExecuting {
		g.dispatchAsync(stored)
	}
	return stored, true, nil
}

// runDiagnostics - 진단 명령 실행 결과를 텍스트로 반환 (실패해도 에러로 올리지 않음)
func (g *Gate) runDiagnostics(ctx context.Context, plan planner.Plan) string {
	if g.executor == nil {
		return "Diagnostics unavailable: no executor configured"
	}
	if g.cfg.DiagnosticBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.DiagnosticBudget)
		defer cancel()
	}

	res, err := g.executor.Run(ctx, model.ExecRequest{
		TargetID: plan.TargetID,
		Commands: plan.Diagnostics,
		Budget:   g.cfg.DiagnosticBudget,
	})
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		if res != nil && res.Output != "" {
			return diagnosticTimeoutText + "\n" + res.Output
		}
		return diagnosticTimeoutText
	case err != nil:
		log.Printf("[Gate] Diagnostics failed (target=%s): %v", plan.TargetID, err)
		return fmt.Sprintf("Diagnostic Error: %v", err)
	case !res.Succeeded && res.Error != "":
		return strings.TrimSpace(res.Output + "\n" + res.Error)
	}
	return res.Output
}

// Decide - pending_approval 상태의 incident 승인/거절
// 다른 상태이거나 동시 요청에 진 경우 InvalidTransitionError (레코드 변경 없음)
func (g *Gate) Decide(ctx context.Context, id string, d Decision) (*model.Incident, error) {
	inc, err := g.store.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	target := model.StatusExecuting
	if d.Action == DecisionReject {
		target = model.StatusRejected
	} else if d.Action != DecisionApprove {
		return nil, fmt.Errorf("unknown decision: %q", d.Action)
	}
	if !model.CanTransition(inc.Status, target) {
		return nil, &InvalidTransitionError{IncidentID: id, Current: inc.Status, Attempted: target}
	}

	now := g.now()
	update := model.IncidentUpdate{Status: target, UpdatedAt: now}
	var details []string
	if d.Operator != "" {
		details = append(details, "operator="+d.Operator)
	}

	switch d.Action {
	case DecisionApprove:
		override := strings.TrimSpace(d.OverrideCommand)
		if override == "" && inc.AISuggestion == "" {
			return nil, ErrNoCommand
		}
		if override != "" {
			update.CustomCommand = &override
			details = append(details, "custom command")
		}
		update.Timeline = []model.TimelineEntry{{Event: model.EventApproved, Timestamp: now, Detail: strings.Join(details, "; ")}}
	case DecisionReject:
		update.Timeline = []model.TimelineEntry{{Event: model.EventRejected, Timestamp: now, Detail: strings.Join(details, "; ")}}
	}

	next, err := g.transition(ctx, id, model.StatusPendingApproval, target, update)
	if err != nil {
		return nil, err
	}
	log.Printf("[Gate] Incident %s (incident_id=%s, operator=%s)", d.Action, id, d.Operator)

	if next.Status == model.StatusExecuting {
		g.dispatchAsync(next)
	}
	return next, nil
}

func (g *Gate) dispatchAsync(inc *model.Incident) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if _, err := g.dispatch(context.Background(), inc); err != nil {
			log.Printf("[Gate] Dispatch failed (incident_id=%s): %v", inc.IncidentID, err)
		}
	}()
}

// dispatch - executing 상태 incident의 명령을 실행하고 종료 상태 기록
// executing으로 전이시킨 호출(persist, Decide)만 그 결과 레코드로 호출
// 승인 경로는 completed, 자동 경로는 auto_remediated로 종료
func (g *Gate) dispatch(ctx context.Context, inc *model.Incident) (*model.Incident, error) {
	current, err := g.store.Get(ctx, inc.IncidentID)
	if err != nil {
		return nil, err
	}
	if current.Status != model.StatusExecuting {
		return nil, &InvalidTransitionError{IncidentID: inc.IncidentID, Current: current.Status, Attempted: model.StatusExecuting}
	}

	success := model.StatusAutoRemediated
	if approved(current) {
		success = model.StatusCompleted
	}

	start := time.Now()
	output, outcome, detail := g.execute(ctx, current, success)
	observability.DispatchDuration.WithLabelValues(string(outcome)).Observe(time.Since(start).Seconds())

	now := g.now()
	next, err := g.transition(ctx, inc.IncidentID, model.StatusExecuting, outcome, model.IncidentUpdate{
		Status:            outcome,
		RemediationOutput: &output,
		Timeline:          []model.TimelineEntry{{Event: string(outcome), Timestamp: now, Detail: detail}},
		UpdatedAt:         now,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Gate] Dispatch finished (incident_id=%s, status=%s)", next.IncidentID, next.Status)
	return next, nil
}

// execute - 실행 예산 안에서 명령 실행
// 반환: remediation_output, 종료 상태, timeline detail
func (g *Gate) execute(ctx context.Context, inc *model.Incident, success model.Status) (string, model.Status, string) {
	command := inc.Command()
	if g.executor == nil {
		return ErrRemoteExecutionFailed.Error() + ": no executor configured", model.StatusFailed, "no executor"
	}
	if command == "" {
		return ErrNoCommand.Error(), model.StatusFailed, "no command"
	}

	budget := g.cfg.ExecutionBudget
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type result struct {
		res *model.ExecResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := g.executor.Run(runCtx, model.ExecRequest{
			TargetID: inc.TargetID,
			Commands: []string{command},
			Budget:   budget,
		})
		done <- result{res, err}
	}()

	timer := time.NewTimer(budget + g.grace)
	defer timer.Stop()

	select {
	case r := <-done:
		partial := ""
		if r.res != nil {
			partial = r.res.Output
		}
		switch {
		case errors.Is(r.err, context.DeadlineExceeded):
			if partial == "" {
				partial = timedOutText(budget)
			}
			return partial, model.StatusTimeout, ErrRemoteExecutionTimeout.Error()
		case r.err != nil:
			return strings.TrimSpace(partial + "\n" + r.err.Error()), model.StatusFailed, ErrRemoteExecutionFailed.Error()
		case !r.res.Succeeded:
			out := strings.TrimSpace(partial + "\n" + r.res.Error)
			if out == "" {
				out = ErrRemoteExecutionFailed.Error()
			}
			return out, model.StatusFailed, ErrRemoteExecutionFailed.Error()
		}
		if partial == "" {
			partial = emptyOutputText
		}
		return partial, success, ""
	case <-timer.C:
		// executor가 ctx를 무시하는 경우: 결과가 나중에 오면 기록만 함
		go func() {
			r := <-done
			observability.LateResults.Inc()
			log.Printf("[Gate] Late execution result ignored (incident_id=%s, err=%v)", inc.IncidentID, r.err)
		}()
		return timedOutText(budget), model.StatusTimeout, ErrRemoteExecutionTimeout.Error()
	}
}

func (g *Gate) transition(ctx context.Context, id string, expected, to model.Status, update model.IncidentUpdate) (*model.Incident, error) {
	next, err := g.store.Transition(ctx, id, expected, update)
	var conflict *db.StatusConflictError
	switch {
	case errors.As(err, &conflict):
		return nil, &InvalidTransitionError{IncidentID: id, Current: conflict.Current, Attempted: to}
	case errors.Is(err, db.ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to update incident: %w", err)
	}
	g.committed(expected, next)
	return next, nil
}

func (g *Gate) committed(from model.Status, inc *model.Incident) {
	observability.Transitions.WithLabelValues(string(from), string(inc.Status)).Inc()
	if g.publisher != nil {
		g.publisher.Publish(model.IncidentEvent{
			Type:       model.EventTypeIncidentUpdate,
			IncidentID: inc.IncidentID,
			Status:     inc.Status,
		})
	}
}

func approved(inc *model.Incident) bool {
	for _, e := range inc.Timeline {
		if e.Event == model.EventApproved {
			return true
		}
	}
	return false
}

func timedOutText(budget time.Duration) string {
	return fmt.Sprintf("command timed out after %s", budget)
}
