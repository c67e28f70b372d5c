package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tartampluch/birthday-keeper/internal/config"
)

// KV is the narrow capability interface over the shared projection store: a
// durable value under a fixed namespace/key pair. Injected so tests can
// substitute a fake.
type KV interface {
	PutValue(ctx context.Context, namespace, key string, value []byte) error
	GetValue(ctx context.Context, namespace, key string) ([]byte, bool, error)
}

// Store persists the serialized projection-record array. Written once per
// activation by the host, read by the display surface's caller per refresh.
type Store struct {
	kv KV
}

// NewStore wraps a key-value backend.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Save serializes and writes the snapshot.
func (s *Store) Save(ctx context.Context, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrSnapshotEncode, err)
	}
	if err := s.kv.PutValue(ctx, config.WidgetStoreNamespace, config.WidgetStoreKey, data); err != nil {
		return err
	}
	slog.Debug(config.MsgSnapshotSaved,
		config.LogKeyComponent, config.CompWidget,
		config.LogKeyCount, len(entries),
	)
	return nil
}

// Load reads the stored snapshot. A missing value is an empty snapshot, not
// an error.
func (s *Store) Load(ctx context.Context) ([]Entry, error) {
	data, ok, err := s.kv.GetValue(ctx, config.WidgetStoreNamespace, config.WidgetStoreKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSnapshotDecode, err)
	}
	return entries, nil
}
