package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PromptsConfig contains all prompts and message templates loaded from YAML
type PromptsConfig struct {
	Classifier ClassifierPrompts `yaml:"classifier"`
	AutoReply  AutoReplyPrompts  `yaml:"auto_reply"`
	Report     ReportTemplates   `yaml:"report"`

	// Source is the file the config was read from, empty for defaults
	Source string `yaml:"-"`
}

// ClassifierPrompts contains the completion classifier prompt
type ClassifierPrompts struct {
	Prompt string `yaml:"prompt"` // {{message}}
}

// AutoReplyPrompts contains the private reply prompt
type AutoReplyPrompts struct {
	Prompt string `yaml:"prompt"` // {{reminder}}, {{reply}}, {{name}}
}

// ReportTemplates contains the weekly report messages
type ReportTemplates struct {
	Congratulation string `yaml:"congratulation"` // {{count}}, {{names}}
	Reminder       string `yaml:"reminder"`       // {{name}}
	EveryoneLabel  string `yaml:"everyone_label"`
}

// LoadPromptsConfig loads prompts configuration from YAML file.
// With an empty configPath the usual locations are searched and defaults
// are used when none exists; an explicit path must be readable.
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompts config: %w", err)
		}
		return parsePrompts(data, configPath)
	}

	paths := []string{
		"configs/prompts.yaml",
		"/etc/weekcheck/prompts.yaml",
	}
	// Add path relative to executable
	if execPath, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
	}

	for _, p := range paths {
		if data, err := os.ReadFile(p); err == nil {
			return parsePrompts(data, p)
		}
	}
	return DefaultPromptsConfig(), nil
}

func parsePrompts(data []byte, source string) (*PromptsConfig, error) {
	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	config.fillDefaults()
	config.Source = source
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Classifier.Prompt == "" {
		c.Classifier.Prompt = defaults.Classifier.Prompt
	}
	if c.AutoReply.Prompt == "" {
		c.AutoReply.Prompt = defaults.AutoReply.Prompt
	}
	if c.Report.Congratulation == "" {
		c.Report.Congratulation = defaults.Report.Congratulation
	}
	if c.Report.Reminder == "" {
		c.Report.Reminder = defaults.Report.Reminder
	}
	if c.Report.EveryoneLabel == "" {
		c.Report.EveryoneLabel = defaults.Report.EveryoneLabel
	}
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		Classifier: ClassifierPrompts{
			Prompt: `Analyze this WhatsApp message to determine if the person is indicating they have completed their weekly pilates training plan.

Look for indicators such as:
- Statements about finishing workouts/exercises
- Mentions of completing weekly goals/plans
- References to being done with training for the week
- Updates about finishing their pilates routine
- Any positive statements about workout completion

Message: "{{message}}"

Respond with only "YES" if the message indicates weekly plan completion, or "NO" if it doesn't.`,
		},
		AutoReply: AutoReplyPrompts{
			Prompt: `You are a friendly pilates coach's assistant chatting on WhatsApp.

Earlier this week you sent {{name}} this reminder:
"{{reminder}}"

They replied:
"{{reply}}"

Write one short, warm reply (at most three sentences) that responds to what they said and encourages them to finish this week's plan. Output only the reply text.`,
		},
		Report: ReportTemplates{
			Congratulation: "🎉 Well done on training! {{count}} members completed their weekly pilates plan this week: {{names}}. Keep up the great work! 💪",
			Reminder:       "Hi! I noticed you haven't completed your weekly pilates plan yet. Remember that consistent training is key to achieving your fitness goals. Why not take some time today to catch up? Your body will thank you! 🧘‍♀️💪",
			EveryoneLabel:  "everyone",
		},
	}
}
