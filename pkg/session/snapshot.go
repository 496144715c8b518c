package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethpandaops/t8n-repl/pkg/common"
	"github.com/ethpandaops/t8n-repl/pkg/config"
	"github.com/ethpandaops/t8n-repl/pkg/t8n"
	"github.com/sirupsen/logrus"
)

// snapshot is the persisted form of a session. Secret keys of allocations
// are not part of it.
type snapshot struct {
	Config *config.Config       `json:"config"`
	Alloc  map[string]t8n.Alloc `json:"alloc"`
	Env    t8n.Env              `json:"env"`
	Txs    []t8n.Transaction    `json:"txs"`
}

// Save writes the whole session to the snapshot store under name.
func (s *Session) Save(ctx context.Context, name string) error {
	data, err := json.Marshal(&snapshot{
		Config: s.config,
		Alloc:  s.alloc,
		Env:    s.env,
		Txs:    s.txs,
	})
	if err != nil {
		return s.snapshotFailed("save", name, fmt.Errorf("failed to marshal session: %w", err))
	}

	if err := s.snapshots.Save(ctx, name, data); err != nil {
		return s.snapshotFailed("save", name, err)
	}

	s.snapshotDone("save", name)

	return nil
}

// Load replaces configuration, allocations, environment and transactions
// with the snapshot stored under name. Nothing is replaced unless the whole
// snapshot decodes.
func (s *Session) Load(ctx context.Context, name string) error {
	data, err := s.snapshots.Load(ctx, name)
	if err != nil {
		return s.snapshotFailed("load", name, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return s.snapshotFailed("load", name, fmt.Errorf("failed to decode session: %w", err))
	}

	if snap.Config == nil {
		return s.snapshotFailed("load", name, fmt.Errorf("snapshot has no configuration"))
	}

	alloc, err := t8n.CanonicalAlloc(snap.Alloc)
	if err != nil {
		return s.snapshotFailed("load", name, err)
	}

	if snap.Txs == nil {
		snap.Txs = []t8n.Transaction{}
	}

	s.config = snap.Config
	s.alloc = alloc
	s.env = snap.Env
	s.txs = snap.Txs

	s.snapshotDone("load", name)

	return nil
}

func (s *Session) snapshotFailed(operation, name string, err error) error {
	common.SnapshotOperations.WithLabelValues(s.snapshots.Name(), operation, "error").Inc()

	s.log.WithError(err).WithFields(logrus.Fields{
		"store":     s.snapshots.Name(),
		"operation": operation,
		"name":      name,
	}).Warn("Snapshot operation failed")

	return fmt.Errorf("%w: %s %s: %w", ErrPersistenceFailure, operation, name, err)
}

func (s *Session) snapshotDone(operation, name string) {
	common.SnapshotOperations.WithLabelValues(s.snapshots.Name(), operation, "success").Inc()

	s.log.WithFields(logrus.Fields{
		"store":     s.snapshots.Name(),
		"operation": operation,
		"name":      name,
	}).Debug("Snapshot operation completed")
}
