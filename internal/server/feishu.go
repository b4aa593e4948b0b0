package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/data"
	"github.com/devricklin/weekcheck/internal/infra/feishu"
)

// FeishuListener delivers pushed Feishu messages
type FeishuListener interface {
	Start(ctx context.Context, handler feishu.MessageHandler) error
}

// FeishuServer feeds Feishu push events into intake
type FeishuServer struct {
	listener FeishuListener
	intake   EventHandler
	logger   *zap.Logger
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(listener FeishuListener, intake EventHandler, logger *zap.Logger) *FeishuServer {
	return &FeishuServer{
		listener: listener,
		intake:   intake,
		logger:   logger.Named("feishu"),
	}
}

// Start blocks until ctx is cancelled or the connection fails
func (s *FeishuServer) Start(ctx context.Context) error {
	return s.listener.Start(ctx, s.handleMessage)
}

// handleMessage handles one pushed message.
// Redelivered events are rejected by the ledger.
func (s *FeishuServer) handleMessage(ctx context.Context, msg *feishu.Message) {
	s.logger.Debug("message received",
		zap.String("chat_id", msg.ChatID),
		zap.String("chat_type", msg.ChatType),
		zap.String("msg_type", msg.MsgType),
	)
	if msg.Content == "" && msg.ChatType == "p2p" {
		return
	}

	ev := data.FeishuEvent(msg)
	outcome := s.intake.Handle(ctx, &ev)
	s.logger.Debug("message handled", zap.String("msg_id", msg.MsgID), zap.String("outcome", string(outcome)))
}
