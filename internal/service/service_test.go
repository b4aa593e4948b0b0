package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/biz/usecase"
)

type fakeGateway struct {
	mu       sync.Mutex
	messages map[string][]domain.InboundEvent
	failing  map[string]bool
	calls    int
}

func (f *fakeGateway) ListGroups(ctx context.Context) ([]repo.GroupSummary, error) { return nil, nil }

func (f *fakeGateway) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	return nil, repo.ErrNotFound
}

func (f *fakeGateway) ListMessages(ctx context.Context, groupID string, page int) ([]domain.InboundEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing[groupID] {
		return nil, errors.New("gateway down")
	}
	return f.messages[groupID], nil
}

func (f *fakeGateway) SendGroupMessage(ctx context.Context, groupID, text string) error { return nil }

func (f *fakeGateway) SendDirectMessage(ctx context.Context, contactID, text string) error { return nil }

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type staticGroups []*domain.Group

func (s staticGroups) Active() []*domain.Group { return s }

type recordingIntake struct {
	mu  sync.Mutex
	ids []string
	evs []domain.InboundEvent
}

func (r *recordingIntake) Handle(ctx context.Context, ev *domain.InboundEvent) usecase.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ev.ID)
	r.evs = append(r.evs, *ev)
	if ev.Text == "done" {
		return usecase.OutcomeCompleted
	}
	return usecase.OutcomeNoCompletion
}

func TestPoller_PollOnce(t *testing.T) {
	gw := &fakeGateway{
		messages: map[string][]domain.InboundEvent{
			// newest first
			"G1": {{ID: "m3", Text: "done"}, {ID: "m2", GroupID: "G1"}, {ID: "m1", GroupID: "G1"}},
		},
		failing: map[string]bool{"G2": true},
	}
	intake := &recordingIntake{}
	p := NewPoller(gw, staticGroups{{ID: "G1"}, {ID: "G2"}}, intake, time.Minute, time.Minute, zap.NewNop())

	failed := p.PollOnce(context.Background())

	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"m1", "m2", "m3"}, intake.ids, "events are handled oldest first")
	assert.Equal(t, "G1", intake.evs[2].GroupID, "missing group id is filled from the polled group")
}

func TestPoller_CancelledContext(t *testing.T) {
	gw := &fakeGateway{messages: map[string][]domain.InboundEvent{"G1": {{ID: "m1"}}}}
	intake := &recordingIntake{}
	p := NewPoller(gw, staticGroups{{ID: "G1"}}, intake, time.Minute, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Zero(t, p.PollOnce(ctx))
	assert.Zero(t, gw.callCount())
}

func TestPoller_StartStop(t *testing.T) {
	gw := &fakeGateway{failing: map[string]bool{"G1": true}}
	p := NewPoller(gw, staticGroups{{ID: "G1"}}, &recordingIntake{}, 10*time.Millisecond, 10*time.Millisecond, zap.NewNop())

	p.Start(context.Background())
	require.Eventually(t, func() bool { return gw.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	p.Stop()

	calls := gw.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, gw.callCount(), "no polling after Stop")
}

type fakeReporter struct {
	mu   sync.Mutex
	runs []time.Time
}

func (f *fakeReporter) RunWeeklyReport(ctx context.Context, now time.Time) []domain.GroupReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, now)
	return nil
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context) []*domain.Group {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func TestCronRunner_NextReport(t *testing.T) {
	dublin, err := time.LoadLocation("Europe/Dublin")
	require.NoError(t, err)

	r, err := NewCronRunner("0 8 * * 6", 0, dublin, &fakeReporter{}, nil, zap.NewNop())
	require.NoError(t, err)

	// Wednesday 17 Jan 2024 -> Saturday 20 Jan 08:00 Dublin
	next := r.NextReport(time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC))
	assert.True(t, time.Date(2024, 1, 20, 8, 0, 0, 0, dublin).Equal(next), "got %v", next)

	// summer time: 08:00 IST is 07:00 UTC
	next = r.NextReport(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, time.Date(2024, 7, 6, 7, 0, 0, 0, time.UTC).Equal(next), "got %v", next)
}

func TestCronRunner_InvalidSchedule(t *testing.T) {
	_, err := NewCronRunner("saturday morning", 0, time.UTC, &fakeReporter{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestCronRunner_RunReport(t *testing.T) {
	reporter := &fakeReporter{}
	r, err := NewCronRunner("@weekly", 0, time.UTC, reporter, nil, zap.NewNop())
	require.NoError(t, err)

	fixed := time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	r.RunReport()

	require.Len(t, reporter.runs, 1)
	assert.Equal(t, fixed, reporter.runs[0])
}

func TestCronRunner_RefreshesDirectory(t *testing.T) {
	refresher := &fakeRefresher{}
	r, err := NewCronRunner("@weekly", time.Second, time.UTC, &fakeReporter{}, refresher, zap.NewNop())
	require.NoError(t, err)

	r.Start(context.Background())
	defer r.Stop()

	require.Eventually(t, func() bool {
		refresher.mu.Lock()
		defer refresher.mu.Unlock()
		return refresher.calls > 0
	}, 3*time.Second, 50*time.Millisecond)
}
