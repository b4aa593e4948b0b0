// Command classify runs the completion classifier against a single message,
// using the configured prompt and model.
//
//	classify "week 3 done!"
//	echo "week 3 done!" | classify
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/usecase"
	"github.com/devricklin/weekcheck/internal/conf"
	"github.com/devricklin/weekcheck/internal/data"
	"github.com/devricklin/weekcheck/internal/infra/llm"
)

func main() {
	showPrompt := flag.Bool("prompt", false, "print the rendered prompt before the verdict")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: LLM_API_KEY (or GEMINI_API_KEY) must be set")
		os.Exit(1)
	}

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		text = strings.TrimSpace(string(raw))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: classify [-prompt] <message>")
		os.Exit(1)
	}

	client := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	classifierCfg := cfg.ToClassifierConfig()
	classifierCfg.RatePerMinute = 0
	classifier := usecase.NewClassifierUsecase(data.NewLLMRepo(client), classifierCfg, zap.NewNop(), nil)

	if *showPrompt {
		fmt.Printf("=== Prompt (%s) ===\n%s\n\n", client.Model(), classifier.BuildPrompt(text))
	}

	if classifier.Classify(context.Background(), text) {
		fmt.Println("YES")
	} else {
		fmt.Println("NO")
	}
}
