package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/biz/usecase"
)

// GroupSource returns the currently monitored groups
type GroupSource interface {
	Active() []*domain.Group
}

// EventHandler consumes inbound events
type EventHandler interface {
	Handle(ctx context.Context, ev *domain.InboundEvent) usecase.Outcome
}

// Poller reads the newest page of every active group and feeds intake
type Poller struct {
	gateway repo.GatewayRepo
	groups  GroupSource
	intake  EventHandler
	logger  *zap.Logger

	interval   time.Duration
	retryAfter time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a new poller. After a cycle with a failed fetch the
// next cycle waits retryAfter instead of interval.
func NewPoller(
	gateway repo.GatewayRepo,
	groups GroupSource,
	intake EventHandler,
	interval, retryAfter time.Duration,
	logger *zap.Logger,
) *Poller {
	if retryAfter <= 0 {
		retryAfter = interval
	}
	return &Poller{
		gateway:    gateway,
		groups:     groups,
		intake:     intake,
		logger:     logger.Named("poller"),
		interval:   interval,
		retryAfter: retryAfter,
	}
}

// Start starts the polling loop
func (p *Poller) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.loop()

	p.logger.Info("poller started", zap.Duration("interval", p.interval))
}

// Stop stops the loop and waits for the current cycle
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("poller stopped")
}

func (p *Poller) loop() {
	defer p.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-timer.C:
			delay := p.interval
			if failed := p.PollOnce(p.ctx); failed > 0 {
				delay = p.retryAfter
			}
			timer.Reset(delay)
		}
	}
}

// PollOnce runs one cycle and returns the number of groups whose fetch failed.
// Events are handed to intake oldest first.
func (p *Poller) PollOnce(ctx context.Context) int {
	failed := 0
	for _, g := range p.groups.Active() {
		if ctx.Err() != nil {
			return failed
		}

		events, err := p.gateway.ListMessages(ctx, g.ID, 0)
		if err != nil {
			p.logger.Warn("fetch messages failed", zap.String("group_id", g.ID), zap.Error(err))
			failed++
			continue
		}

		completed := 0
		for i := len(events) - 1; i >= 0; i-- {
			ev := events[i]
			if ev.GroupID == "" {
				ev.GroupID = g.ID
			}
			if p.intake.Handle(ctx, &ev) == usecase.OutcomeCompleted {
				completed++
			}
		}
		if completed > 0 {
			p.logger.Info("completions recorded", zap.String("group_id", g.ID), zap.Int("count", completed))
		}
	}
	return failed
}
