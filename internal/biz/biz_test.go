package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/biz/usecase"
	"github.com/devricklin/weekcheck/internal/data"
)

type stubGateway struct {
	group *domain.Group
}

func (g *stubGateway) ListGroups(ctx context.Context) ([]repo.GroupSummary, error) {
	return []repo.GroupSummary{{ID: g.group.ID, Name: g.group.Name}}, nil
}

func (g *stubGateway) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	return g.group, nil
}

func (g *stubGateway) ListMessages(ctx context.Context, groupID string, page int) ([]domain.InboundEvent, error) {
	return nil, nil
}

func (g *stubGateway) SendGroupMessage(ctx context.Context, groupID, text string) error {
	return nil
}

func (g *stubGateway) SendDirectMessage(ctx context.Context, contactID, text string) error {
	return nil
}

type yesModel struct{}

func (yesModel) Classify(ctx context.Context, prompt string) (string, error) { return "YES", nil }
func (yesModel) Generate(ctx context.Context, prompt string) (string, error) { return "ok", nil }

func testConfig() Config {
	return Config{
		Policy:     domain.EligibilityPolicy{Keyword: "pilates", AllowUnknownAge: true},
		Classifier: usecase.ClassifierConfig{PromptTemplate: "{{message}}"},
		Intake:     usecase.IntakeConfig{BotID: "+999", Location: time.UTC},
		AutoReply:  usecase.AutoReplyConfig{BotID: "+999", PromptTemplate: "{{reply}}", TTL: time.Hour},
		Report: usecase.ReportConfig{
			BotID:          "+999",
			Location:       time.UTC,
			Congratulation: "{{names}}",
			Reminder:       "{{name}}",
			EveryoneLabel:  "everyone",
		},
	}
}

func TestNewUsecases_CompletionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store, err := data.NewJSONStore(t.TempDir())
	require.NoError(t, err)

	gw := &stubGateway{group: &domain.Group{
		ID:   "g1",
		Name: "Tuesday Pilates",
		Members: []domain.Member{
			{ContactID: "+1", Name: "Ann"},
			{ContactID: "+999", Name: "Bot"},
		},
	}}

	uc := NewUsecases(gw, yesModel{}, store, testConfig(), zap.NewNop(), nil)
	require.Len(t, uc.Directory.Refresh(ctx), 1)

	outcome := uc.Intake.Handle(ctx, &domain.InboundEvent{
		ID:        "m1",
		GroupID:   "g1",
		SenderID:  "+1",
		Text:      "week done",
		Timestamp: time.Now(),
	})
	require.Equal(t, usecase.OutcomeCompleted, outcome)

	restarted := NewUsecases(gw, yesModel{}, store, testConfig(), zap.NewNop(), nil)
	restarted.Load(ctx)

	status := restarted.Report.WeeklyStatus(time.Now())
	require.Len(t, status, 1)
	assert.Equal(t, "g1", status[0].GroupID)
	assert.Len(t, status[0].Completed, 1)
	assert.Empty(t, status[0].Incomplete)
}
