package stores

import (
	"context"
	"time"

	"github.com/tunekit/tunekit/pkg/config"
	"github.com/tunekit/tunekit/pkg/tunable"
)

// Snapshot is a saved copy of every tunable parameter of one model
// instance.
type Snapshot struct {
	ID        string       `json:"id"`
	Model     string       `json:"model"`
	Label     string       `json:"label"`
	CreatedAt time.Time    `json:"created_at"`
	Values    []ParamValue `json:"values,omitempty"` // empty in listings
	Count     int          `json:"count"`
}

// ParamValue is the saved value of one leaf parameter, in the text form
// config stores accept.
type ParamValue struct {
	Name string           `json:"name"`
	Type tunable.ElemType `json:"type"`
	Rows int              `json:"rows"`
	Cols int              `json:"cols"`
	Text string           `json:"value"`
}

// Entries returns the values keyed by parameter name, ready to be read
// back through a config.Bridge.
func (s *Snapshot) Entries() config.MapStore {
	out := make(config.MapStore, len(s.Values))
	for _, v := range s.Values {
		out[v.Name] = v.Text
	}
	return out
}

// SnapshotStore persists parameter snapshots.
type SnapshotStore interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Snapshot operations
	SaveSnapshot(ctx context.Context, h *tunable.Handle, label string) (*Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, model string, limit, offset int) ([]*Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
	RestoreSnapshot(ctx context.Context, h *tunable.Handle, id string, opts ...config.BridgeOption) (int, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
