package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/metrics"
)

// DirectoryUsecase holds the active set of monitored groups
type DirectoryUsecase struct {
	gateway repo.GatewayRepo
	store   repo.SnapshotStore
	policy  domain.EligibilityPolicy
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.RWMutex
	groups []*domain.Group // refresh order
	byID   map[string]*domain.Group
}

// NewDirectoryUsecase creates a new directory usecase
func NewDirectoryUsecase(
	gateway repo.GatewayRepo,
	store repo.SnapshotStore,
	policy domain.EligibilityPolicy,
	logger *zap.Logger,
	m *metrics.Metrics,
) *DirectoryUsecase {
	return &DirectoryUsecase{
		gateway: gateway,
		store:   store,
		policy:  policy,
		logger:  logger.Named("directory"),
		metrics: m,
		now:     time.Now,
		byID:    make(map[string]*domain.Group),
	}
}

// Policy returns the eligibility policy applied on refresh
func (uc *DirectoryUsecase) Policy() domain.EligibilityPolicy {
	return uc.policy
}

// Refresh fetches groups from the gateway and replaces the active set with
// those that pass the keyword and age gates.
// A listing failure returns nil and keeps the previous active set.
func (uc *DirectoryUsecase) Refresh(ctx context.Context) []*domain.Group {
	summaries, err := uc.gateway.ListGroups(ctx)
	if err != nil {
		uc.logger.Warn("list groups failed, keeping stale directory", zap.Error(err))
		return nil
	}

	now := uc.now()
	var active []*domain.Group
	for _, s := range summaries {
		if !uc.policy.MatchesKeyword(s.Name) {
			continue
		}

		g, err := uc.gateway.GetGroup(ctx, s.ID)
		if err != nil {
			// Keep the last known copy rather than dropping the group on a transient error
			if prev, ok := uc.Lookup(s.ID); ok {
				uc.logger.Warn("get group failed, using stale details",
					zap.String("group_id", s.ID), zap.Error(err))
				active = append(active, prev)
			} else {
				uc.logger.Warn("get group failed, skipping",
					zap.String("group_id", s.ID), zap.Error(err))
			}
			continue
		}
		if g.Name == "" {
			g.Name = s.Name
		}

		if !uc.policy.Eligible(g, now) {
			uc.logger.Info("group not eligible",
				zap.String("group_id", g.ID),
				zap.String("name", g.Name),
				zap.Timep("created_at", g.CreatedAt))
			continue
		}
		active = append(active, g)
	}

	uc.replace(active)
	uc.logger.Info("directory refreshed", zap.Int("listed", len(summaries)), zap.Int("active", len(active)))

	err = uc.store.Save(ctx, repo.SnapshotGroups, active)
	if err != nil {
		uc.logger.Error("persist directory failed", zap.Error(err))
	}
	uc.metrics.Persisted(repo.SnapshotGroups, err)

	return active
}

// Load restores the active set from the last persisted snapshot.
// A malformed snapshot leaves the directory empty.
func (uc *DirectoryUsecase) Load(ctx context.Context) {
	var groups []*domain.Group
	found, err := uc.store.Load(ctx, repo.SnapshotGroups, &groups)
	if err != nil {
		uc.logger.Warn("directory snapshot unreadable, starting empty", zap.Error(err))
		return
	}
	if !found {
		return
	}
	uc.replace(groups)
	uc.logger.Info("directory loaded", zap.Int("active", len(groups)))
}

// Lookup returns an active group by ID
func (uc *DirectoryUsecase) Lookup(groupID string) (*domain.Group, bool) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	g, ok := uc.byID[groupID]
	return g, ok
}

// Active returns the active groups in refresh order
func (uc *DirectoryUsecase) Active() []*domain.Group {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := make([]*domain.Group, len(uc.groups))
	copy(out, uc.groups)
	return out
}

func (uc *DirectoryUsecase) replace(groups []*domain.Group) {
	byID := make(map[string]*domain.Group, len(groups))
	kept := make([]*domain.Group, 0, len(groups))
	for _, g := range groups {
		if g == nil || g.ID == "" {
			continue
		}
		byID[g.ID] = g
		kept = append(kept, g)
	}

	uc.mu.Lock()
	uc.groups = kept
	uc.byID = byID
	uc.mu.Unlock()

	uc.metrics.SetActiveGroups(len(kept))
}
