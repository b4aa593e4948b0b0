package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz"
	"github.com/devricklin/weekcheck/internal/conf"
	"github.com/devricklin/weekcheck/internal/data"
	"github.com/devricklin/weekcheck/internal/infra/feishu"
	"github.com/devricklin/weekcheck/internal/infra/llm"
	"github.com/devricklin/weekcheck/internal/infra/twochat"
	"github.com/devricklin/weekcheck/internal/logging"
	"github.com/devricklin/weekcheck/internal/metrics"
	"github.com/devricklin/weekcheck/internal/server"
	"github.com/devricklin/weekcheck/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := conf.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("weekcheck stopped", zap.Error(err))
	}
}

func run(cfg *conf.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Tracking.Location()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize repository layer
	store, err := data.NewSnapshotStore(cfg.Store.Backend, cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()
	logger.Info("snapshot store opened",
		zap.String("backend", cfg.Store.Backend),
		zap.String("dir", cfg.Store.DataDir))

	clients, botID, err := newClients(ctx, cfg, logger)
	if err != nil {
		return err
	}
	gateway, err := data.NewGateway(cfg.Gateway, clients)
	if err != nil {
		return err
	}
	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	languageModel := data.NewLLMRepo(llmClient)

	// Initialize usecase layer
	uc := biz.NewUsecases(gateway, languageModel, store, cfg.ToBizConfig(botID, loc), logger, m)
	uc.Load(ctx)
	uc.Directory.Refresh(ctx)

	// Initialize servers and background jobs
	httpSrv := server.NewHTTPServer(cfg.Server.Addr, uc.Intake, uc.Report, cfg.Server.AdminToken, reg, logger)
	errCh := make(chan error, 2)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	cronRunner, err := service.NewCronRunner(
		cfg.Schedule.ReportSchedule,
		time.Duration(cfg.Schedule.DirectoryRefreshMinutes)*time.Minute,
		loc,
		uc.Report,
		uc.Directory,
		logger,
	)
	if err != nil {
		return err
	}
	cronRunner.Start(ctx)
	defer cronRunner.Stop()
	logger.Info("weekly report scheduled",
		zap.String("schedule", cfg.Schedule.ReportSchedule),
		zap.Time("next", cronRunner.NextReport(time.Now())))

	if cfg.Schedule.PollEnabled {
		poller := service.NewPoller(
			gateway,
			uc.Directory,
			uc.Intake,
			time.Duration(cfg.Schedule.PollIntervalSeconds)*time.Second,
			time.Duration(cfg.Schedule.ErrorRetrySeconds)*time.Second,
			logger,
		)
		poller.Start(ctx)
		defer poller.Stop()
	}

	if clients.Feishu != nil {
		feishuSrv := server.NewFeishuServer(clients.Feishu, uc.Intake, logger)
		go func() {
			if err := feishuSrv.Start(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("feishu listener: %w", err)
			}
		}()
	}

	logger.Info("weekcheck started",
		zap.String("gateway", cfg.Gateway),
		zap.String("bot_id", botID),
		zap.String("addr", cfg.Server.Addr),
		zap.String("prompts", cfg.Prompts.Source))

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
	return runErr
}

// newClients creates the configured gateway client and resolves the bot's
// own contact ID on it
func newClients(ctx context.Context, cfg *conf.Config, logger *zap.Logger) (data.Clients, string, error) {
	switch cfg.Gateway {
	case data.GatewayFeishu:
		client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)
		botID, err := client.FetchBotOpenID(ctx)
		if err != nil {
			return data.Clients{}, "", fmt.Errorf("fetch bot identity: %w", err)
		}
		return data.Clients{Feishu: client}, botID, nil
	default:
		client := twochat.NewClient(cfg.TwoChat.BaseURL, cfg.TwoChat.APIKey, cfg.TwoChat.BotNumber, logger)
		return data.Clients{TwoChat: client}, cfg.TwoChat.BotNumber, nil
	}
}
