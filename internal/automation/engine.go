// Package automation runs CRM workflows in response to triggers and periodic
// scans of the entity store.
package automation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Workflow is a unit of business logic run with an event.
type Workflow interface {
	ID() WorkflowID
	Run(ctx context.Context, ev Event) error
}

// WorkflowFunc adapts a function to the Workflow interface.
type WorkflowFunc struct {
	id WorkflowID
	fn func(ctx context.Context, ev Event) error
}

// NewWorkflow returns a Workflow backed by fn.
func NewWorkflow(id WorkflowID, fn func(ctx context.Context, ev Event) error) WorkflowFunc {
	return WorkflowFunc{id: id, fn: fn}
}

// ID returns the workflow identifier.
func (w WorkflowFunc) ID() WorkflowID { return w.id }

// Run calls the wrapped function.
func (w WorkflowFunc) Run(ctx context.Context, ev Event) error { return w.fn(ctx, ev) }

// Condition decides whether a trigger binding fires for an event.
type Condition func(ev Event) bool

// RunRecorder persists completed workflow runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run models.WorkflowRun) error
}

// WorkflowStatus is the bookkeeping kept per workflow.
type WorkflowStatus struct {
	LastRun  *time.Time `json:"last_run"`
	RunCount int        `json:"run_count"`
}

// Status is a snapshot of the engine.
type Status struct {
	Running             bool                          `json:"running"`
	WorkflowsRegistered int                           `json:"workflows_registered"`
	TriggersRegistered  int                           `json:"triggers_registered"`
	Workflows           map[WorkflowID]WorkflowStatus `json:"workflows"`
}

// TriggerInfo describes one trigger and the workflows bound to it.
type TriggerInfo struct {
	Name    TriggerName  `json:"name"`
	Targets []WorkflowID `json:"targets"`
}

type registered struct {
	workflow Workflow
	lastRun  *time.Time
	runCount int
}

type binding struct {
	condition Condition
	target    WorkflowID
}

// Engine owns the workflow and trigger registries and the scan scheduler.
type Engine struct {
	store     repository.Store
	logger    Logger
	now       func() time.Time
	recorder  RunRecorder
	intervals Intervals

	mu            sync.Mutex
	workflows     map[WorkflowID]*registered
	workflowOrder []WorkflowID
	triggers      map[TriggerName][]binding
	triggerOrder  []TriggerName
	scheduler     *Scheduler

	runs     metric.Int64Counter
	duration metric.Float64Histogram
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRunRecorder persists every run through r.
func WithRunRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithIntervals sets the scheduler cadences.
func WithIntervals(in Intervals) Option {
	return func(e *Engine) { e.intervals = in }
}

// WithMeterProvider sets the provider used for run metrics. The global
// provider is used by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.initMetrics(mp) }
}

// New creates an Engine over store. Workflows and triggers are registered
// separately before Start.
func New(store repository.Store, logger Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		logger:    logger,
		now:       time.Now,
		intervals: DefaultIntervals(),
		workflows: make(map[WorkflowID]*registered),
		triggers:  make(map[TriggerName][]binding),
	}
	e.initMetrics(otel.GetMeterProvider())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) initMetrics(mp metric.MeterProvider) {
	meter := mp.Meter("realestate-crm/automation")
	var err error
	e.runs, err = meter.Int64Counter("crm.automation.workflow.runs",
		metric.WithDescription("Workflow executions by workflow and outcome"))
	if err != nil {
		e.logger.Warn("failed to create run counter", "error", err)
	}
	e.duration, err = meter.Float64Histogram("crm.automation.workflow.duration",
		metric.WithDescription("Workflow execution time"), metric.WithUnit("s"))
	if err != nil {
		e.logger.Warn("failed to create duration histogram", "error", err)
	}
}

// Store returns the entity store the engine operates on.
func (e *Engine) Store() repository.Store { return e.store }

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time { return e.now() }

// RegisterWorkflow adds wf to the registry. Registering an id twice replaces
// the earlier workflow.
func (e *Engine) RegisterWorkflow(wf Workflow) error {
	id := wf.ID()
	if !id.Valid() {
		return fmt.Errorf("register workflow: %w: %q", ErrUnknownWorkflow, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.workflows[id]; ok {
		e.logger.Warn("workflow registered twice, replacing", "workflow", id)
		e.workflows[id].workflow = wf
		return nil
	}
	e.workflows[id] = &registered{workflow: wf}
	e.workflowOrder = append(e.workflowOrder, id)
	e.logger.Info("registered workflow", "workflow", id)
	return nil
}

// RegisterTrigger binds target to trigger name, gated by cond. Bindings fire
// in registration order. A nil cond always fires.
func (e *Engine) RegisterTrigger(name TriggerName, cond Condition, target WorkflowID) error {
	if !name.Valid() {
		return fmt.Errorf("register trigger: %w: %q", ErrUnknownTrigger, name)
	}
	if !target.Valid() {
		return fmt.Errorf("register trigger %s: %w: %q", name, ErrUnknownWorkflow, target)
	}
	if cond == nil {
		cond = func(Event) bool { return true }
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.triggers[name]; !ok {
		e.triggerOrder = append(e.triggerOrder, name)
	}
	e.triggers[name] = append(e.triggers[name], binding{condition: cond, target: target})
	e.logger.Info("registered trigger", "trigger", name, "workflow", target)
	return nil
}

// Workflows returns the registered workflow ids in registration order.
func (e *Engine) Workflows() []WorkflowID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]WorkflowID(nil), e.workflowOrder...)
}

// Triggers returns the registered triggers in registration order.
func (e *Engine) Triggers() []TriggerInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TriggerInfo, 0, len(e.triggerOrder))
	for _, name := range e.triggerOrder {
		info := TriggerInfo{Name: name}
		for _, b := range e.triggers[name] {
			info.Targets = append(info.Targets, b.target)
		}
		out = append(out, info)
	}
	return out
}

// Status returns a snapshot of the registries and scheduler state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Running:             e.scheduler != nil && e.scheduler.Running(),
		WorkflowsRegistered: len(e.workflows),
		Workflows:           make(map[WorkflowID]WorkflowStatus, len(e.workflows)),
	}
	for _, bindings := range e.triggers {
		st.TriggersRegistered += len(bindings)
	}
	for id, r := range e.workflows {
		ws := WorkflowStatus{RunCount: r.runCount}
		if r.lastRun != nil {
			t := *r.lastRun
			ws.LastRun = &t
		}
		st.Workflows[id] = ws
	}
	return st
}

// Execute runs workflow id with ev and reports success. Failures are logged,
// never returned.
func (e *Engine) Execute(ctx context.Context, id WorkflowID, ev Event) bool {
	run, err := e.Run(ctx, id, ev, SourceManual)
	return err == nil && run.Success
}

// Run executes workflow id and returns the run record. The only error is
// ErrUnknownWorkflow; handler failures are reported in the record.
func (e *Engine) Run(ctx context.Context, id WorkflowID, ev Event, source RunSource) (models.WorkflowRun, error) {
	e.mu.Lock()
	reg, ok := e.workflows[id]
	var wf Workflow
	if ok {
		wf = reg.workflow
	}
	e.mu.Unlock()
	if !ok {
		e.logger.Error("workflow not found", "workflow", id)
		return models.WorkflowRun{}, fmt.Errorf("%w: %q", ErrUnknownWorkflow, id)
	}

	run := models.WorkflowRun{
		ID:          uuid.NewString(),
		Workflow:    string(id),
		TriggerType: string(source),
		StartedAt:   e.now(),
	}
	e.logger.Info("executing workflow", "workflow", id, "run_id", run.ID, "source", source)

	begin := time.Now()
	err := safeRun(ctx, wf, ev)
	run.Duration = time.Since(begin)
	run.Success = err == nil
	if err != nil {
		run.Error = err.Error()
		e.logger.Error("workflow failed", "workflow", id, "run_id", run.ID, "error", err)
	} else {
		e.logger.Info("workflow completed", "workflow", id, "run_id", run.ID, "duration", run.Duration)
	}

	e.mu.Lock()
	started := run.StartedAt
	reg.lastRun = &started
	reg.runCount++
	e.mu.Unlock()

	e.observe(ctx, run)
	return run, nil
}

func (e *Engine) observe(ctx context.Context, run models.WorkflowRun) {
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(
		attribute.String("workflow", run.Workflow),
		attribute.String("source", run.TriggerType),
		attribute.Bool("success", run.Success),
	)
	if e.runs != nil {
		e.runs.Add(ctx, 1, attrs)
	}
	if e.duration != nil {
		e.duration.Record(ctx, run.Duration.Seconds(), attrs)
	}
	if e.recorder != nil {
		if err := e.recorder.RecordRun(ctx, run); err != nil {
			e.logger.Warn("failed to record workflow run", "run_id", run.ID, "error", err)
		}
	}
}

func safeRun(ctx context.Context, wf Workflow, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return wf.Run(ctx, ev)
}

// Trigger evaluates every binding of name against ev and runs the workflows
// whose condition holds. A name without bindings is a no-op. It returns the
// runs that were started.
func (e *Engine) Trigger(ctx context.Context, name TriggerName, ev Event) []models.WorkflowRun {
	return e.fire(ctx, name, ev, SourceEvent)
}

func (e *Engine) fire(ctx context.Context, name TriggerName, ev Event, source RunSource) []models.WorkflowRun {
	e.mu.Lock()
	bindings := append([]binding(nil), e.triggers[name]...)
	e.mu.Unlock()
	if len(bindings) == 0 {
		e.logger.Debug("no bindings for trigger", "trigger", name)
		return nil
	}

	var runs []models.WorkflowRun
	for _, b := range bindings {
		ok, err := safeCondition(b.condition, ev)
		if err != nil {
			e.logger.Error("trigger condition failed", "trigger", name, "workflow", b.target, "error", err)
			continue
		}
		if !ok {
			continue
		}
		e.logger.Info("trigger fired", "trigger", name, "workflow", b.target)
		run, err := e.Run(ctx, b.target, ev, source)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs
}

func safeCondition(cond Condition, ev Event) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cond(ev), nil
}

// Start launches the scan scheduler. It reports false if it was already running.
func (e *Engine) Start(ctx context.Context) bool {
	e.mu.Lock()
	if e.scheduler != nil && e.scheduler.Running() {
		e.mu.Unlock()
		return false
	}
	if prev := e.scheduler; prev != nil {
		// a run ended by its parent context may still be finishing a scan
		e.mu.Unlock()
		prev.wg.Wait()
		e.mu.Lock()
		if e.scheduler != prev {
			e.mu.Unlock()
			return false
		}
	}
	e.scheduler = NewScheduler(e.intervals.Poll, e.now, e.logger, e.scanTasks()...)
	s := e.scheduler
	e.mu.Unlock()

	s.Start(ctx)
	e.logger.Info("automation engine started")
	return true
}

// Stop halts the scheduler and waits for an in-flight scan to finish. It
// reports false if the scheduler was not running.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	s := e.scheduler
	e.mu.Unlock()
	if s == nil || !s.Running() {
		return false
	}
	s.Stop()
	e.logger.Info("automation engine stopped")
	return true
}

// IsUnknown reports whether err marks an unknown workflow, trigger or scan.
func IsUnknown(err error) bool {
	return errors.Is(err, ErrUnknownWorkflow) || errors.Is(err, ErrUnknownTrigger) || errors.Is(err, ErrUnknownScan)
}
