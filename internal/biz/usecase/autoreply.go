package usecase

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/metrics"
)

// AutoReplyConfig configures the private reply path
type AutoReplyConfig struct {
	BotID          string
	PromptTemplate string        // {{reminder}}, {{reply}}, {{name}}
	TTL            time.Duration // 0 keeps entries until the next report
}

// AutoReplyUsecase owns the auto-reply eligibility list and answers
// private messages from members who were just reminded
type AutoReplyUsecase struct {
	gateway repo.GatewayRepo
	llm     repo.LanguageModelRepo
	store   repo.SnapshotStore
	config  AutoReplyConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	entries  []domain.AutoReplyEligibility
	inflight map[string]struct{} // entry keys being answered
}

// NewAutoReplyUsecase creates a new auto-reply usecase
func NewAutoReplyUsecase(
	gateway repo.GatewayRepo,
	llm repo.LanguageModelRepo,
	store repo.SnapshotStore,
	config AutoReplyConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *AutoReplyUsecase {
	return &AutoReplyUsecase{
		gateway: gateway,
		llm:     llm,
		store:   store,
		config:  config,
		logger:  logger.Named("autoreply"),
		metrics:  m,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// Replace swaps the whole eligibility list and persists it
func (uc *AutoReplyUsecase) Replace(ctx context.Context, entries []domain.AutoReplyEligibility) {
	uc.mu.Lock()
	uc.entries = append([]domain.AutoReplyEligibility(nil), entries...)
	uc.mu.Unlock()
	uc.persist(ctx)
}

// List returns a copy of the current eligibility list
func (uc *AutoReplyUsecase) List() []domain.AutoReplyEligibility {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return append([]domain.AutoReplyEligibility(nil), uc.entries...)
}

// Load restores the list from its snapshot. A malformed snapshot leaves it empty.
func (uc *AutoReplyUsecase) Load(ctx context.Context) {
	var entries []domain.AutoReplyEligibility
	if _, err := uc.store.Load(ctx, repo.SnapshotAutoReplies, &entries); err != nil {
		uc.logger.Warn("auto-reply snapshot unreadable, starting empty", zap.Error(err))
		entries = nil
	}
	uc.mu.Lock()
	uc.entries = entries
	uc.mu.Unlock()
}

// HandlePrivate answers a private message if the sender is due a reply.
// Returns true if a reply was sent; the matched entry is then removed.
func (uc *AutoReplyUsecase) HandlePrivate(ctx context.Context, ev *domain.InboundEvent) bool {
	if ev.IsFromBot(uc.config.BotID) {
		return false
	}

	entry, ok := uc.reserve(ev.SenderID)
	if !ok {
		return false
	}
	defer uc.release(entry)

	name := ev.SenderName
	if name == "" {
		name = ev.SenderID
	}
	prompt := uc.config.PromptTemplate
	prompt = strings.ReplaceAll(prompt, "{{reminder}}", entry.MessageSent)
	prompt = strings.ReplaceAll(prompt, "{{reply}}", ev.Text)
	prompt = strings.ReplaceAll(prompt, "{{name}}", name)

	reply, err := uc.llm.Generate(ctx, prompt)
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		uc.logger.Warn("auto-reply generation failed",
			zap.String("contact_id", ev.SenderID), zap.Error(err))
		return false
	}

	err = uc.gateway.SendDirectMessage(ctx, ev.SenderID, reply)
	uc.metrics.Sent("auto_reply", err)
	if err != nil {
		uc.logger.Warn("auto-reply send failed",
			zap.String("contact_id", ev.SenderID), zap.Error(err))
		return false
	}

	uc.remove(entry)
	uc.persist(ctx)
	uc.logger.Info("auto-reply sent",
		zap.String("contact_id", ev.SenderID),
		zap.String("group_id", entry.GroupID))
	return true
}

// reserve returns the newest unexpired entry for contactID and marks it
// in flight. Entries already being answered are not returned.
func (uc *AutoReplyUsecase) reserve(contactID string) (domain.AutoReplyEligibility, bool) {
	now := uc.now()
	uc.mu.Lock()
	defer uc.mu.Unlock()

	var found domain.AutoReplyEligibility
	ok := false
	for _, e := range uc.entries {
		if e.ContactID != contactID || e.IsExpired(now, uc.config.TTL) {
			continue
		}
		if !ok || e.CreatedAt.After(found.CreatedAt) {
			found = e
			ok = true
		}
	}
	if !ok {
		return found, false
	}
	if _, busy := uc.inflight[eligibilityKey(found)]; busy {
		return found, false
	}
	uc.inflight[eligibilityKey(found)] = struct{}{}
	return found, true
}

func (uc *AutoReplyUsecase) release(entry domain.AutoReplyEligibility) {
	uc.mu.Lock()
	delete(uc.inflight, eligibilityKey(entry))
	uc.mu.Unlock()
}

func eligibilityKey(e domain.AutoReplyEligibility) string {
	return e.ContactID + "|" + e.GroupID + "|" + strconv.FormatInt(e.CreatedAt.UnixNano(), 10)
}

func (uc *AutoReplyUsecase) remove(target domain.AutoReplyEligibility) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	kept := uc.entries[:0:0]
	for _, e := range uc.entries {
		if e.ContactID == target.ContactID && e.GroupID == target.GroupID && e.CreatedAt.Equal(target.CreatedAt) {
			continue
		}
		kept = append(kept, e)
	}
	uc.entries = kept
}

func (uc *AutoReplyUsecase) persist(ctx context.Context) {
	entries := uc.List()
	if entries == nil {
		entries = []domain.AutoReplyEligibility{}
	}
	err := uc.store.Save(ctx, repo.SnapshotAutoReplies, entries)
	uc.metrics.Persisted(repo.SnapshotAutoReplies, err)
	if err != nil {
		uc.logger.Error("persist auto-reply list failed", zap.Error(err))
	}
}
