package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/metrics"
)

// completionToken is the only model answer treated as a completion
const completionToken = "YES"

// ClassifierConfig configures the classifier adapter
type ClassifierConfig struct {
	PromptTemplate string        // must contain {{message}}
	Timeout        time.Duration // per call; 0 means no extra deadline
	RatePerMinute  int           // 0 disables rate limiting
	Burst          int
}

// ClassifierUsecase decides whether a message reports a completed week.
// Every failure resolves to false.
type ClassifierUsecase struct {
	llm     repo.LanguageModelRepo
	config  ClassifierConfig
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClassifierUsecase creates a new classifier usecase
func NewClassifierUsecase(
	llm repo.LanguageModelRepo,
	config ClassifierConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ClassifierUsecase {
	uc := &ClassifierUsecase{
		llm:     llm,
		config:  config,
		logger:  logger.Named("classifier"),
		metrics: m,
	}
	if config.RatePerMinute > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		uc.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RatePerMinute)), burst)
	}
	return uc
}

// Classify returns true only when the model answers exactly YES
func (uc *ClassifierUsecase) Classify(ctx context.Context, text string) bool {
	if uc.limiter != nil {
		if err := uc.limiter.Wait(ctx); err != nil {
			uc.logger.Warn("classifier rate limit wait aborted", zap.Error(err))
			uc.metrics.Classified("error")
			return false
		}
	}

	if uc.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.config.Timeout)
		defer cancel()
	}

	resp, err := uc.llm.Classify(ctx, uc.BuildPrompt(text))
	if err != nil {
		uc.logger.Warn("classification failed, treating as not completed", zap.Error(err))
		uc.metrics.Classified("error")
		return false
	}

	verdict := strings.ToUpper(strings.TrimSpace(resp))
	uc.logger.Debug("classified message",
		zap.String("text", truncate(text, 50)),
		zap.String("verdict", verdict))

	if verdict == completionToken {
		uc.metrics.Classified("yes")
		return true
	}
	uc.metrics.Classified("no")
	return false
}

// BuildPrompt renders the decision prompt for a message
func (uc *ClassifierUsecase) BuildPrompt(text string) string {
	return strings.ReplaceAll(uc.config.PromptTemplate, "{{message}}", text)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
