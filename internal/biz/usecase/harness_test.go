package usecase

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
)

const testBot = "+999"

// Wednesday of the week starting Monday 2024-01-15
var testNow = time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)

type harness struct {
	gw         *mockGateway
	llm        *mockLLM
	store      *memStore
	directory  *DirectoryUsecase
	ledger     *LedgerUsecase
	classifier *ClassifierUsecase
	autoReply  *AutoReplyUsecase
	intake     *IntakeUsecase
	report     *ReportUsecase
}

func newHarness(t *testing.T, policy domain.EligibilityPolicy, groups ...*domain.Group) *harness {
	t.Helper()
	logger := zap.NewNop()

	h := &harness{
		gw:    newMockGateway(groups...),
		llm:   &mockLLM{answer: "NO"},
		store: newMemStore(),
	}

	h.directory = NewDirectoryUsecase(h.gw, h.store, policy, logger, nil)
	h.directory.now = func() time.Time { return testNow }

	h.ledger = NewLedgerUsecase(h.store, logger, nil)
	h.classifier = NewClassifierUsecase(h.llm, ClassifierConfig{PromptTemplate: "Message: {{message}}"}, logger, nil)

	h.autoReply = NewAutoReplyUsecase(h.gw, h.llm, h.store, AutoReplyConfig{
		BotID:          testBot,
		PromptTemplate: "reminder={{reminder}} reply={{reply}} name={{name}}",
		TTL:            72 * time.Hour,
	}, logger, nil)
	h.autoReply.now = func() time.Time { return testNow }

	h.intake = NewIntakeUsecase(h.directory, h.ledger, h.classifier, h.autoReply,
		IntakeConfig{BotID: testBot, Location: time.UTC}, logger, nil)
	h.intake.now = func() time.Time { return testNow }

	h.report = NewReportUsecase(h.directory, h.ledger, h.autoReply, h.gw, ReportConfig{
		BotID:          testBot,
		Location:       time.UTC,
		Congratulation: "{{count}} done: {{names}}",
		Reminder:       "Hi {{name}}, keep going",
		EveryoneLabel:  "everyone",
	}, logger, nil)

	return h
}

// defaultPolicy admits any group with "pilates" in its name older than 30 days
var defaultPolicy = domain.EligibilityPolicy{
	Keyword:         "pilates",
	MinAge:          30 * 24 * time.Hour,
	AllowUnknownAge: true,
}

func pilatesGroup(id string, members ...domain.Member) *domain.Group {
	return &domain.Group{
		ID:        id,
		Name:      "Pilates " + id,
		CreatedAt: daysAgo(testNow, 90),
		Members:   members,
	}
}

func groupEvent(id, groupID, sender, text string, ts time.Time) *domain.InboundEvent {
	return &domain.InboundEvent{
		ID:        id,
		GroupID:   groupID,
		SenderID:  sender,
		Text:      text,
		Timestamp: ts,
	}
}
