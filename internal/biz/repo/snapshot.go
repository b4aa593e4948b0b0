package repo

import "context"

// Snapshot names
const (
	SnapshotGroups      = "available_groups"
	SnapshotLedger      = "weekly_progress"
	SnapshotAutoReplies = "auto_reply_eligibility"
)

// SnapshotStore persists full-replace JSON snapshots by name
type SnapshotStore interface {
	// Load decodes the named snapshot into v. Returns false if it does not exist.
	Load(ctx context.Context, name string, v any) (bool, error)

	// Save replaces the named snapshot with v
	Save(ctx context.Context, name string, v any) error

	// Close releases the underlying resources
	Close() error
}
