package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/metrics"
)

// ReportConfig configures the weekly report
type ReportConfig struct {
	BotID    string
	Location *time.Location

	// Congratulation is sent to the group; {{count}} and {{names}} are replaced
	Congratulation string
	// Reminder is sent to each incomplete member; {{name}} is replaced
	Reminder string
	// EveryoneLabel replaces {{names}} when no completed member has a known name
	EveryoneLabel string
}

// ReportUsecase builds and sends the weekly report
type ReportUsecase struct {
	directory *DirectoryUsecase
	ledger    *LedgerUsecase
	autoReply *AutoReplyUsecase
	gateway   repo.GatewayRepo
	config    ReportConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics

	runMu sync.Mutex
}

// NewReportUsecase creates a new report usecase
func NewReportUsecase(
	directory *DirectoryUsecase,
	ledger *LedgerUsecase,
	autoReply *AutoReplyUsecase,
	gateway repo.GatewayRepo,
	config ReportConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ReportUsecase {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &ReportUsecase{
		directory: directory,
		ledger:    ledger,
		autoReply: autoReply,
		gateway:   gateway,
		config:    config,
		logger:    logger.Named("report"),
		metrics:   m,
	}
}

// RunWeeklyReport congratulates each group's completed members, reminds
// the rest, and rebuilds the auto-reply eligibility list.
// It reads the ledger but never resets it.
func (uc *ReportUsecase) RunWeeklyReport(ctx context.Context, now time.Time) []domain.GroupReport {
	uc.runMu.Lock()
	defer uc.runMu.Unlock()

	logger := uc.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("generating weekly report")

	// On failure the previous active set stays in place
	uc.directory.Refresh(ctx)
	groups := uc.directory.Active()

	week := domain.WeekKey(now, uc.config.Location)
	var reports []domain.GroupReport
	var eligibility []domain.AutoReplyEligibility

	for _, g := range groups {
		entry, ok := uc.ledger.Entry(g.ID)
		if !ok {
			continue
		}
		// A stale entry means nobody has posted this week
		if entry.IsStale(week) {
			entry = domain.NewWeeklyLedgerEntry(g.ID, week)
		}

		report := uc.summarize(g, entry)

		if len(report.Completed) > 0 {
			text := uc.congratulation(entry)
			err := uc.gateway.SendGroupMessage(ctx, g.ID, text)
			uc.metrics.Sent("congratulation", err)
			if err != nil {
				logger.Warn("send congratulation failed", zap.String("group_id", g.ID), zap.Error(err))
			} else {
				report.CongratulatedWith = text
			}
		}

		for _, contactID := range report.Incomplete {
			name := g.MemberName(contactID)
			if name == "" {
				name = contactID
			}
			text := strings.ReplaceAll(uc.config.Reminder, "{{name}}", name)
			err := uc.gateway.SendDirectMessage(ctx, contactID, text)
			uc.metrics.Sent("reminder", err)
			if err != nil {
				logger.Warn("send reminder failed", zap.String("contact_id", contactID), zap.Error(err))
				continue
			}
			report.Reminded = append(report.Reminded, contactID)
			eligibility = append(eligibility, domain.AutoReplyEligibility{
				ContactID:   contactID,
				GroupID:     g.ID,
				MessageSent: text,
				CreatedAt:   now,
			})
		}

		logger.Info("group report sent",
			zap.String("group_id", g.ID),
			zap.String("name", g.Name),
			zap.Int("completed", len(report.Completed)),
			zap.Int("reminded", len(report.Reminded)))
		reports = append(reports, report)
	}

	if uc.autoReply != nil {
		uc.autoReply.Replace(ctx, eligibility)
	}
	return reports
}

// WeeklyStatus summarizes every active group for the week containing now
// without sending anything
func (uc *ReportUsecase) WeeklyStatus(now time.Time) []domain.GroupReport {
	week := domain.WeekKey(now, uc.config.Location)
	var reports []domain.GroupReport
	for _, g := range uc.directory.Active() {
		entry, ok := uc.ledger.Entry(g.ID)
		if !ok || entry.IsStale(week) {
			entry = domain.NewWeeklyLedgerEntry(g.ID, week)
		}
		reports = append(reports, uc.summarize(g, entry))
	}
	return reports
}

func (uc *ReportUsecase) summarize(g *domain.Group, entry *domain.WeeklyLedgerEntry) domain.GroupReport {
	report := domain.GroupReport{
		GroupID:    g.ID,
		GroupName:  g.Name,
		WeekStart:  entry.WeekStart,
		Completed:  entry.CompletedIDs(),
		SeenEvents: len(entry.SeenEventIDs),
	}
	for _, contactID := range g.ContactIDs() {
		if contactID == uc.config.BotID || entry.HasCompleted(contactID) {
			continue
		}
		report.Incomplete = append(report.Incomplete, contactID)
	}
	return report
}

func (uc *ReportUsecase) congratulation(entry *domain.WeeklyLedgerEntry) string {
	seen := make(map[string]struct{})
	var names []string
	for _, id := range entry.CompletedIDs() {
		name, ok := entry.ResolvedName(id)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)

	label := strings.Join(names, ", ")
	if label == "" {
		label = uc.config.EveryoneLabel
	}

	text := uc.config.Congratulation
	text = strings.ReplaceAll(text, "{{count}}", strconv.Itoa(len(entry.Completed)))
	text = strings.ReplaceAll(text, "{{names}}", label)
	return text
}
