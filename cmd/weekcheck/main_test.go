package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/conf"
)

func TestNewClients_TwoChat(t *testing.T) {
	cfg := &conf.Config{
		Gateway: "twochat",
		TwoChat: conf.TwoChatConfig{APIKey: "key", BotNumber: "+999"},
	}

	clients, botID, err := newClients(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "+999", botID)
	assert.NotNil(t, clients.TwoChat)
	assert.Nil(t, clients.Feishu)
}
