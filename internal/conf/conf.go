package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // REFERENCE_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/robfig/cron/v3"

	"github.com/devricklin/weekcheck/internal/biz"
	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// Gateway selects the messaging backend: twochat or feishu
	Gateway string

	TwoChat  TwoChatConfig
	Feishu   FeishuConfig
	LLM      LLMConfig
	Tracking TrackingConfig
	Schedule ScheduleConfig
	Store    StoreConfig
	Server   ServerConfig
	Log      LogConfig

	// Prompts and message templates (loaded from YAML)
	Prompts *PromptsConfig
}

// TwoChatConfig contains 2Chat configuration
type TwoChatConfig struct {
	APIKey    string
	BaseURL   string
	BotNumber string // the bot's WhatsApp number, also its contact ID
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// LLMConfig contains classifier model configuration
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	RatePerMinute  int
	Burst          int
}

// TrackingConfig contains group eligibility and week settings
type TrackingConfig struct {
	Timezone          string
	GroupKeyword      string
	MinGroupAgeDays   int
	AllowUnknownAge   bool
	AutoReplyTTLHours int
}

// ScheduleConfig contains background job settings
type ScheduleConfig struct {
	ReportSchedule          string // cron spec, evaluated in the reference timezone
	PollEnabled             bool
	PollIntervalSeconds     int
	ErrorRetrySeconds       int
	DirectoryRefreshMinutes int
}

// StoreConfig contains snapshot persistence settings
type StoreConfig struct {
	Backend string // json or sqlite
	DataDir string
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr       string
	AdminToken string // empty disables the admin check
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string
	Format string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		homeDir, _ := os.UserHomeDir()
		dataDir = filepath.Join(homeDir, ".weekcheck")
	}

	// GEMINI_API_KEY is the historical name
	llmKey := os.Getenv("LLM_API_KEY")
	if llmKey == "" {
		llmKey = os.Getenv("GEMINI_API_KEY")
	}

	prompts, err := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Gateway: envString("GATEWAY", "twochat"),
		TwoChat: TwoChatConfig{
			APIKey:    os.Getenv("TWOCHAT_API_KEY"),
			BaseURL:   os.Getenv("TWOCHAT_BASE_URL"),
			BotNumber: os.Getenv("BOT_NUMBER"),
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		LLM: LLMConfig{
			APIKey:         llmKey,
			BaseURL:        os.Getenv("LLM_BASE_URL"),
			Model:          os.Getenv("LLM_MODEL"),
			TimeoutSeconds: envInt("LLM_TIMEOUT_SECONDS", 30),
			RatePerMinute:  envInt("CLASSIFIER_RATE_PER_MIN", 30),
			Burst:          envInt("CLASSIFIER_BURST", 5),
		},
		Tracking: TrackingConfig{
			Timezone:          envString("REFERENCE_TIMEZONE", "Europe/Dublin"),
			GroupKeyword:      envString("GROUP_KEYWORD", "pilates"),
			MinGroupAgeDays:   envInt("MIN_GROUP_AGE_DAYS", 30),
			AllowUnknownAge:   envBool("ALLOW_UNKNOWN_GROUP_AGE", true),
			AutoReplyTTLHours: envInt("AUTO_REPLY_TTL_HOURS", 144),
		},
		Schedule: ScheduleConfig{
			// Saturday 08:00
			ReportSchedule:          envString("REPORT_SCHEDULE", "0 8 * * 6"),
			PollEnabled:             envBool("POLL_ENABLED", true),
			PollIntervalSeconds:     envInt("POLL_INTERVAL_SECONDS", 30),
			ErrorRetrySeconds:       envInt("ERROR_RETRY_SECONDS", 60),
			DirectoryRefreshMinutes: envInt("DIRECTORY_REFRESH_MINUTES", 10),
		},
		Store: StoreConfig{
			Backend: envString("STORE_BACKEND", "json"),
			DataDir: dataDir,
		},
		Server: ServerConfig{
			Addr:       envString("HTTP_ADDR", ":8080"),
			AdminToken: os.Getenv("ADMIN_TOKEN"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Prompts: prompts,
	}, nil
}

func envString(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return def
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Gateway {
	case "twochat":
		if c.TwoChat.APIKey == "" {
			return &ConfigError{Field: "TWOCHAT_API_KEY", Message: "required"}
		}
		if c.TwoChat.BotNumber == "" {
			return &ConfigError{Field: "BOT_NUMBER", Message: "required"}
		}
	case "feishu":
		if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
			return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
		}
	default:
		return &ConfigError{Field: "GATEWAY", Message: "must be twochat or feishu"}
	}

	if c.LLM.APIKey == "" {
		return &ConfigError{Field: "LLM_API_KEY", Message: "required"}
	}
	if _, err := time.LoadLocation(c.Tracking.Timezone); err != nil {
		return &ConfigError{Field: "REFERENCE_TIMEZONE", Message: err.Error()}
	}
	if c.Tracking.MinGroupAgeDays < 0 {
		return &ConfigError{Field: "MIN_GROUP_AGE_DAYS", Message: "must not be negative"}
	}
	if _, err := cron.ParseStandard(c.Schedule.ReportSchedule); err != nil {
		return &ConfigError{Field: "REPORT_SCHEDULE", Message: err.Error()}
	}
	if c.Schedule.PollIntervalSeconds <= 0 {
		return &ConfigError{Field: "POLL_INTERVAL_SECONDS", Message: "must be positive"}
	}
	if c.Store.Backend != "json" && c.Store.Backend != "sqlite" {
		return &ConfigError{Field: "STORE_BACKEND", Message: "must be json or sqlite"}
	}
	if c.Prompts != nil && !strings.Contains(c.Prompts.Classifier.Prompt, "{{message}}") {
		return &ConfigError{Field: "classifier.prompt", Message: "must contain {{message}}"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// Location loads the reference timezone
func (c *TrackingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ToPolicy converts to the domain eligibility policy
func (c *TrackingConfig) ToPolicy() domain.EligibilityPolicy {
	return domain.EligibilityPolicy{
		Keyword:         c.GroupKeyword,
		MinAge:          time.Duration(c.MinGroupAgeDays) * 24 * time.Hour,
		AllowUnknownAge: c.AllowUnknownAge,
	}
}

// ToClassifierConfig converts to the classifier configuration
func (c *Config) ToClassifierConfig() usecase.ClassifierConfig {
	return usecase.ClassifierConfig{
		PromptTemplate: c.prompts().Classifier.Prompt,
		Timeout:        time.Duration(c.LLM.TimeoutSeconds) * time.Second,
		RatePerMinute:  c.LLM.RatePerMinute,
		Burst:          c.LLM.Burst,
	}
}

// ToIntakeConfig converts to the intake configuration
func (c *Config) ToIntakeConfig(botID string, loc *time.Location) usecase.IntakeConfig {
	return usecase.IntakeConfig{BotID: botID, Location: loc}
}

// ToAutoReplyConfig converts to the auto-reply configuration
func (c *Config) ToAutoReplyConfig(botID string) usecase.AutoReplyConfig {
	return usecase.AutoReplyConfig{
		BotID:          botID,
		PromptTemplate: c.prompts().AutoReply.Prompt,
		TTL:            time.Duration(c.Tracking.AutoReplyTTLHours) * time.Hour,
	}
}

// ToReportConfig converts to the report configuration
func (c *Config) ToReportConfig(botID string, loc *time.Location) usecase.ReportConfig {
	p := c.prompts()
	return usecase.ReportConfig{
		BotID:          botID,
		Location:       loc,
		Congratulation: p.Report.Congratulation,
		Reminder:       p.Report.Reminder,
		EveryoneLabel:  p.Report.EveryoneLabel,
	}
}

// ToBizConfig collects every usecase configuration for one bot identity
func (c *Config) ToBizConfig(botID string, loc *time.Location) biz.Config {
	return biz.Config{
		Policy:     c.Tracking.ToPolicy(),
		Classifier: c.ToClassifierConfig(),
		Intake:     c.ToIntakeConfig(botID, loc),
		AutoReply:  c.ToAutoReplyConfig(botID),
		Report:     c.ToReportConfig(botID, loc),
	}
}

func (c *Config) prompts() *PromptsConfig {
	if c.Prompts == nil {
		return DefaultPromptsConfig()
	}
	return c.Prompts
}
