// Command send-message sends one text message through the configured gateway.
//
//	send-message group <group_id> <text>
//	send-message direct <contact_id> <text>
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/conf"
	"github.com/devricklin/weekcheck/internal/data"
	"github.com/devricklin/weekcheck/internal/infra/feishu"
	"github.com/devricklin/weekcheck/internal/infra/twochat"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 4 {
		fmt.Println("Usage: send-message group|direct <id> <message>")
		os.Exit(1)
	}
	kind := os.Args[1]
	target := os.Args[2]
	message := strings.Join(os.Args[3:], " ")

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	var clients data.Clients
	switch cfg.Gateway {
	case data.GatewayFeishu:
		if cfg.Feishu.AppID == "" || cfg.Feishu.AppSecret == "" {
			fmt.Println("Error: FEISHU_APP_ID and FEISHU_APP_SECRET must be set")
			os.Exit(1)
		}
		clients.Feishu = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)
	default:
		if cfg.TwoChat.APIKey == "" || cfg.TwoChat.BotNumber == "" {
			fmt.Println("Error: TWOCHAT_API_KEY and BOT_NUMBER must be set")
			os.Exit(1)
		}
		clients.TwoChat = twochat.NewClient(cfg.TwoChat.BaseURL, cfg.TwoChat.APIKey, cfg.TwoChat.BotNumber, logger)
	}

	gateway, err := data.NewGateway(cfg.Gateway, clients)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch kind {
	case "group":
		err = gateway.SendGroupMessage(ctx, target, message)
	case "direct":
		err = gateway.SendDirectMessage(ctx, target, message)
	default:
		fmt.Printf("Error: unknown target kind %q, want group or direct\n", kind)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Message sent successfully!")
}
