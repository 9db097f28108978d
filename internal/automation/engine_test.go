package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realestate-crm/backend/internal/logging"
	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/pkg/models"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// MockWorkflow is a mock implementation of Workflow.
type MockWorkflow struct {
	mock.Mock
	id WorkflowID
}

func (m *MockWorkflow) ID() WorkflowID { return m.id }

func (m *MockWorkflow) Run(ctx context.Context, ev Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// MockRecorder is a mock implementation of RunRecorder.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordRun(ctx context.Context, run models.WorkflowRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// eventLog is a workflow that remembers the events it ran with.
type eventLog struct {
	id     WorkflowID
	mu     sync.Mutex
	events []Event
}

func (w *eventLog) ID() WorkflowID { return w.id }

func (w *eventLog) Run(ctx context.Context, ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
	return nil
}

func (w *eventLog) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Event(nil), w.events...)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore(fixedClock)
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return New(store, logging.Discard(), opts...), store
}

func TestRegisterWorkflowRejectsUnknownID(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.RegisterWorkflow(NewWorkflow("send_fax", func(context.Context, Event) error { return nil }))
	assert.ErrorIs(t, err, ErrUnknownWorkflow)
	assert.Empty(t, e.Workflows())
}

func TestRegisterTriggerRejectsUnknownNames(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.ErrorIs(t, e.RegisterTrigger("lead_exploded", nil, WorkflowNewLead), ErrUnknownTrigger)
	assert.ErrorIs(t, e.RegisterTrigger(TriggerNewLead, nil, "send_fax"), ErrUnknownWorkflow)
}

func TestExecuteUnregisteredWorkflow(t *testing.T) {
	e, _ := newTestEngine(t)
	wf := &MockWorkflow{id: WorkflowNewLead}
	require.NoError(t, e.RegisterWorkflow(wf))

	assert.False(t, e.Execute(context.Background(), WorkflowDailyReport, DailyReport{}))
	_, err := e.Run(context.Background(), WorkflowDailyReport, DailyReport{}, SourceManual)
	assert.ErrorIs(t, err, ErrUnknownWorkflow)

	st := e.Status()
	assert.Equal(t, 0, st.Workflows[WorkflowNewLead].RunCount)
	_, present := st.Workflows[WorkflowDailyReport]
	assert.False(t, present)
}

func TestExecuteBookkeeping(t *testing.T) {
	recorder := &MockRecorder{}
	recorder.On("RecordRun", mock.Anything, mock.MatchedBy(func(r models.WorkflowRun) bool {
		return r.Workflow == string(WorkflowNewLead) && r.TriggerType == string(SourceManual)
	})).Return(nil)
	e, _ := newTestEngine(t, WithRunRecorder(recorder))

	wf := &MockWorkflow{id: WorkflowNewLead}
	wf.On("Run", mock.Anything, LeadCreated{LeadID: 1}).Return(nil).Once()
	wf.On("Run", mock.Anything, LeadCreated{LeadID: 2}).Return(errors.New("smtp down")).Once()
	require.NoError(t, e.RegisterWorkflow(wf))

	assert.True(t, e.Execute(context.Background(), WorkflowNewLead, LeadCreated{LeadID: 1}))
	assert.False(t, e.Execute(context.Background(), WorkflowNewLead, LeadCreated{LeadID: 2}))

	st := e.Status().Workflows[WorkflowNewLead]
	assert.Equal(t, 2, st.RunCount, "failed runs still count")
	require.NotNil(t, st.LastRun)
	assert.True(t, st.LastRun.Equal(testNow))
	wf.AssertExpectations(t)
	recorder.AssertNumberOfCalls(t, "RecordRun", 2)
}

func TestExecuteRecoversPanics(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.RegisterWorkflow(NewWorkflow(WorkflowDailyReport, func(context.Context, Event) error {
		panic("nil map")
	})))

	run, err := e.Run(context.Background(), WorkflowDailyReport, DailyReport{}, SourceManual)
	require.NoError(t, err)
	assert.False(t, run.Success)
	assert.Contains(t, run.Error, "nil map")
	assert.Equal(t, 1, e.Status().Workflows[WorkflowDailyReport].RunCount)
}

func TestRecorderFailureDoesNotFailRun(t *testing.T) {
	recorder := &MockRecorder{}
	recorder.On("RecordRun", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	e, _ := newTestEngine(t, WithRunRecorder(recorder))
	require.NoError(t, e.RegisterWorkflow(&eventLog{id: WorkflowNewLead}))

	assert.True(t, e.Execute(context.Background(), WorkflowNewLead, LeadCreated{LeadID: 1}))
}

func TestDuplicateRegistrationReplaces(t *testing.T) {
	e, _ := newTestEngine(t)
	first := &eventLog{id: WorkflowNewLead}
	second := &eventLog{id: WorkflowNewLead}
	require.NoError(t, e.RegisterWorkflow(first))
	require.NoError(t, e.RegisterWorkflow(second))

	assert.Equal(t, []WorkflowID{WorkflowNewLead}, e.Workflows())
	e.Execute(context.Background(), WorkflowNewLead, LeadCreated{LeadID: 1})
	assert.Empty(t, first.Events())
	assert.Len(t, second.Events(), 1)
}

func TestTriggerWithoutBindingsIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Nil(t, e.Trigger(context.Background(), TriggerCampaignCompleted, CampaignCompleted{CampaignID: 1}))
}

func TestTriggerEvaluatesBindingsInOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	hot := &eventLog{id: WorkflowHotLead}
	followUp := &eventLog{id: WorkflowLeadFollowUp}
	require.NoError(t, e.RegisterWorkflow(hot))
	require.NoError(t, e.RegisterWorkflow(followUp))

	require.NoError(t, e.RegisterTrigger(TriggerHotLead, func(ev Event) bool {
		panic("bad condition")
	}, WorkflowLeadFollowUp))
	require.NoError(t, e.RegisterTrigger(TriggerHotLead, func(ev Event) bool {
		h, ok := ev.(HotLeadIdentified)
		return ok && h.Score >= 80
	}, WorkflowHotLead))

	runs := e.Trigger(context.Background(), TriggerHotLead, HotLeadIdentified{LeadID: 3, Score: 85})
	require.Len(t, runs, 1)
	assert.Equal(t, string(WorkflowHotLead), runs[0].Workflow)
	assert.Equal(t, string(SourceEvent), runs[0].TriggerType)
	assert.Empty(t, followUp.Events())
	assert.Equal(t, []Event{HotLeadIdentified{LeadID: 3, Score: 85}}, hot.Events())

	assert.Empty(t, e.Trigger(context.Background(), TriggerHotLead, HotLeadIdentified{LeadID: 3, Score: 60}))
}

func TestTriggerSameWorkflowTwice(t *testing.T) {
	e, _ := newTestEngine(t)
	wf := &eventLog{id: WorkflowCampaignCompleted}
	require.NoError(t, e.RegisterWorkflow(wf))
	require.NoError(t, e.RegisterTrigger(TriggerCampaignCompleted, nil, WorkflowCampaignCompleted))
	require.NoError(t, e.RegisterTrigger(TriggerCampaignCompleted, nil, WorkflowCampaignCompleted))

	e.Trigger(context.Background(), TriggerCampaignCompleted, CampaignCompleted{CampaignID: 9})
	assert.Len(t, wf.Events(), 2)

	triggers := e.Triggers()
	require.Len(t, triggers, 1)
	assert.Equal(t, []WorkflowID{WorkflowCampaignCompleted, WorkflowCampaignCompleted}, triggers[0].Targets)
	assert.Equal(t, 2, e.Status().TriggersRegistered, "bindings are counted, not names")
}

func TestStatus(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.RegisterWorkflow(&eventLog{id: WorkflowNewLead}))
	require.NoError(t, e.RegisterTrigger(TriggerNewLead, nil, WorkflowNewLead))
	require.NoError(t, e.RegisterTrigger(TriggerDailyReport, nil, WorkflowDailyReport))

	st := e.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 1, st.WorkflowsRegistered)
	assert.Equal(t, 2, st.TriggersRegistered)
	assert.Nil(t, st.Workflows[WorkflowNewLead].LastRun)
}

func TestStartStop(t *testing.T) {
	e, _ := newTestEngine(t, WithIntervals(Intervals{Poll: time.Hour}))
	assert.False(t, e.Stop(), "stop before start")
	assert.True(t, e.Start(context.Background()))
	assert.False(t, e.Start(context.Background()), "already running")
	assert.True(t, e.Status().Running)
	assert.True(t, e.Stop())
	assert.False(t, e.Status().Running)
	assert.True(t, e.Start(context.Background()), "restart after stop")
	assert.True(t, e.Stop())
}

func TestStartStopsWithParentContext(t *testing.T) {
	e, _ := newTestEngine(t, WithIntervals(Intervals{Poll: time.Millisecond}))
	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, e.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !e.Status().Running }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, e.Stop(), "nothing left to stop")
	assert.True(t, e.Start(context.Background()), "start again after the parent context ended")
	assert.True(t, e.Stop())
}

func TestParseIdentifiers(t *testing.T) {
	id, err := ParseWorkflowID("daily_report_generation")
	require.NoError(t, err)
	assert.Equal(t, WorkflowDailyReport, id)
	_, err = ParseWorkflowID("daily_report")
	assert.ErrorIs(t, err, ErrUnknownWorkflow)

	name, err := ParseTriggerName("lead_follow_up_due")
	require.NoError(t, err)
	assert.Equal(t, TriggerLeadFollowUpDue, name)
	_, err = ParseTriggerName("lead_follow_up")
	assert.ErrorIs(t, err, ErrUnknownTrigger)
	assert.True(t, IsUnknown(err))
}

func TestDecodeEvents(t *testing.T) {
	ev, err := DecodeWorkflowEvent(WorkflowLeadFollowUp, []byte(`{"lead_id": 4, "days_overdue": 2}`))
	require.NoError(t, err)
	assert.Equal(t, LeadFollowUpDue{LeadID: 4, DaysOverdue: 2}, ev)

	ev, err = DecodeTriggerEvent(TriggerDailyReport, []byte(`{"date":"2024-03-15"}`))
	require.NoError(t, err)
	assert.Equal(t, DailyReport{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}, ev)

	ev, err = DecodeWorkflowEvent(WorkflowCampaignCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, CampaignCompleted{}, ev)

	_, err = DecodeWorkflowEvent(WorkflowNewLead, []byte(`{"lead":1}`))
	assert.Error(t, err, "unknown fields are rejected")
	_, err = DecodeTriggerEvent(TriggerDailyReport, []byte(`{"date":"15/03/2024"}`))
	assert.Error(t, err)
	_, err = DecodeTriggerEvent(TriggerDailyReport, []byte(`{"date":"2024-01-01","bogus":1}`))
	assert.Error(t, err, "daily report rejects unknown fields too")
	_, err = DecodeWorkflowEvent(WorkflowDailyReport, []byte(`{"day":"2024-01-01"}`))
	assert.Error(t, err)
	_, err = DecodeTriggerEvent("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTrigger)
}
