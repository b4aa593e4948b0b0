package biz

import (
	"context"

	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/biz/usecase"
	"github.com/devricklin/weekcheck/internal/metrics"
)

// Usecases contains all usecases
type Usecases struct {
	Directory  *usecase.DirectoryUsecase
	Ledger     *usecase.LedgerUsecase
	Classifier *usecase.ClassifierUsecase
	AutoReply  *usecase.AutoReplyUsecase
	Intake     *usecase.IntakeUsecase
	Report     *usecase.ReportUsecase
}

// Config collects the per-usecase configuration
type Config struct {
	Policy     domain.EligibilityPolicy
	Classifier usecase.ClassifierConfig
	Intake     usecase.IntakeConfig
	AutoReply  usecase.AutoReplyConfig
	Report     usecase.ReportConfig
}

// NewUsecases wires every usecase around one gateway, model and store
func NewUsecases(
	gateway repo.GatewayRepo,
	llm repo.LanguageModelRepo,
	store repo.SnapshotStore,
	config Config,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Usecases {
	directory := usecase.NewDirectoryUsecase(gateway, store, config.Policy, logger, m)
	ledger := usecase.NewLedgerUsecase(store, logger, m)
	classifier := usecase.NewClassifierUsecase(llm, config.Classifier, logger, m)
	autoReply := usecase.NewAutoReplyUsecase(gateway, llm, store, config.AutoReply, logger, m)

	return &Usecases{
		Directory:  directory,
		Ledger:     ledger,
		Classifier: classifier,
		AutoReply:  autoReply,
		Intake:     usecase.NewIntakeUsecase(directory, ledger, classifier, autoReply, config.Intake, logger, m),
		Report:     usecase.NewReportUsecase(directory, ledger, autoReply, gateway, config.Report, logger, m),
	}
}

// Load restores all persisted snapshots. Missing or malformed snapshots
// start empty.
func (u *Usecases) Load(ctx context.Context) {
	u.Directory.Load(ctx)
	u.Ledger.Load(ctx)
	u.AutoReply.Load(ctx)
}
