package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/metrics"
)

// Outcome is how an inbound event was handled
type Outcome string

const (
	OutcomeMalformed        Outcome = "malformed"
	OutcomeUnknownGroup     Outcome = "unknown_group"
	OutcomeSelfAuthored     Outcome = "self_authored"
	OutcomeIneligible       Outcome = "ineligible"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeAlreadyCompleted Outcome = "already_completed"
	OutcomeLate             Outcome = "late"
	OutcomeAbandoned        Outcome = "abandoned"
	OutcomeNoCompletion     Outcome = "no_completion"
	OutcomeCompleted        Outcome = "completed"
	OutcomePrivate          Outcome = "private"
)

// IntakeConfig configures event intake
type IntakeConfig struct {
	BotID    string         // the bot's own contact ID
	Location *time.Location // reference timezone for week boundaries
}

// IntakeUsecase is the single entry point for inbound events from the
// poller, the webhook handlers and the Feishu push listener
type IntakeUsecase struct {
	directory  *DirectoryUsecase
	ledger     *LedgerUsecase
	classifier *ClassifierUsecase
	autoReply  *AutoReplyUsecase
	config     IntakeConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewIntakeUsecase creates a new intake usecase.
// autoReply may be nil, in which case private events are dropped.
func NewIntakeUsecase(
	directory *DirectoryUsecase,
	ledger *LedgerUsecase,
	classifier *ClassifierUsecase,
	autoReply *AutoReplyUsecase,
	config IntakeConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *IntakeUsecase {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &IntakeUsecase{
		directory:  directory,
		ledger:     ledger,
		classifier: classifier,
		autoReply:  autoReply,
		config:     config,
		logger:     logger.Named("intake"),
		metrics:    m,
		now:        time.Now,
	}
}

// Handle processes one inbound event. Every step short-circuits, and the
// ledger is only written after classification returns.
func (uc *IntakeUsecase) Handle(ctx context.Context, ev *domain.InboundEvent) Outcome {
	outcome := uc.handle(ctx, ev)
	uc.metrics.Outcome(string(outcome))

	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.String("group_id", ev.GroupID),
		zap.String("sender", ev.SenderID),
		zap.String("outcome", string(outcome)),
	}
	if outcome == OutcomeCompleted {
		uc.logger.Info("member completed weekly plan", fields...)
	} else {
		uc.logger.Debug("event handled", fields...)
	}
	return outcome
}

func (uc *IntakeUsecase) handle(ctx context.Context, ev *domain.InboundEvent) Outcome {
	// Event and sender IDs key the ledger; an empty one would collide with
	// every other event that lacks it
	if ev.ID == "" || ev.SenderID == "" {
		return OutcomeMalformed
	}

	var group *domain.Group
	if !ev.IsPrivate() {
		g, ok := uc.directory.Lookup(ev.GroupID)
		if !ok {
			return OutcomeUnknownGroup
		}
		group = g
	}

	if ev.IsFromBot(uc.config.BotID) {
		return OutcomeSelfAuthored
	}

	if ev.IsPrivate() {
		if uc.autoReply != nil {
			uc.autoReply.HandlePrivate(ctx, ev)
		}
		return OutcomePrivate
	}

	// Directory data may be stale; re-apply the gates with the freshest name we have
	now := uc.now()
	policy := uc.directory.Policy()
	if !policy.Eligible(group, now) {
		return OutcomeIneligible
	}
	if ev.GroupName != "" && !policy.MatchesKeyword(ev.GroupName) {
		return OutcomeIneligible
	}

	weekStart := domain.WeekStart(now, uc.config.Location)
	weekKey := weekStart.Format(domain.WeekLayout)

	res, verdict := uc.ledger.Admit(group.ID, weekKey, ev.ID, ev.SenderID)
	switch verdict {
	case AlreadySeen:
		return OutcomeDuplicate
	case AlreadyCompleted:
		return OutcomeAlreadyCompleted
	}

	// Unparsable timestamps are zero and count as current week
	if ev.IsBefore(weekStart) {
		uc.ledger.Abort(res)
		return OutcomeLate
	}

	completed := false
	if strings.TrimSpace(ev.Text) != "" {
		completed = uc.classifier.Classify(ctx, ev.Text)
		if ctx.Err() != nil {
			uc.ledger.Abort(res)
			return OutcomeAbandoned
		}
	}

	name := ev.SenderName
	if name == "" {
		name = group.MemberName(ev.SenderID)
	}

	if !uc.ledger.Commit(ctx, res, completed, ev.SenderID, name) {
		return OutcomeLate
	}
	if completed {
		return OutcomeCompleted
	}
	return OutcomeNoCompletion
}
