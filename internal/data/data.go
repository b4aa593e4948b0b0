package data

import (
	"fmt"
	"path/filepath"

	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/infra/feishu"
	"github.com/devricklin/weekcheck/internal/infra/twochat"
)

// Store backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Gateways
const (
	GatewayTwoChat = "twochat"
	GatewayFeishu  = "feishu"
)

// NewSnapshotStore opens the snapshot store for the configured backend.
// Empty backend means json.
func NewSnapshotStore(backend, dataDir string) (repo.SnapshotStore, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(dataDir)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, "weekcheck.db"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// Clients holds the transport clients a gateway can be built from
type Clients struct {
	TwoChat *twochat.Client
	Feishu  *feishu.Client
}

// NewGateway selects the gateway repository
func NewGateway(kind string, clients Clients) (repo.GatewayRepo, error) {
	switch kind {
	case "", GatewayTwoChat:
		if clients.TwoChat == nil {
			return nil, fmt.Errorf("2chat client not configured")
		}
		return NewTwoChatRepo(clients.TwoChat), nil
	case GatewayFeishu:
		if clients.Feishu == nil {
			return nil, fmt.Errorf("feishu client not configured")
		}
		return NewFeishuRepo(clients.Feishu), nil
	default:
		return nil, fmt.Errorf("unknown gateway %q", kind)
	}
}
