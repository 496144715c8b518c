package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/t8n-repl/internal/testutil"
	"github.com/ethpandaops/t8n-repl/pkg/t8n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_EmptySession(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "empty.json")

	original := newTestSession(t)
	require.NoError(t, original.Save(ctx, path))

	restored := newTestSession(t)
	restored.AddDefaultSigner()
	restored.NewTransaction()
	restored.SetHardFork("Cancun")

	require.NoError(t, restored.Load(ctx, path))

	assert.Equal(t, original.Config(), restored.Config())
	assert.Equal(t, original.Alloc(), restored.Alloc())
	assert.Equal(t, original.Env(), restored.Env())
	assert.Equal(t, original.Transactions(), restored.Transactions())
}

func TestSaveLoad_PopulatedSession(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	original := newTestSession(t)
	original.SetHardFork("London")
	original.AddDefaultSigner()
	original.AddAddress("")
	require.NoError(t, original.SetCode(t8n.PlaceholderAddress, "0x600160010160005500"))
	original.SetCurrentRandom(nil)
	original.NewTransaction()
	original.NewTransaction()
	require.NoError(t, original.SetTransactionSender(1, t8n.DefaultSignerAddress))
	require.NoError(t, original.SetTransactionField(1, FieldReceiver, t8n.PlaceholderAddress))

	require.NoError(t, original.Save(ctx, path))

	restored := newTestSession(t)
	require.NoError(t, restored.Load(ctx, path))

	assert.Equal(t, original.Config(), restored.Config())
	assert.Equal(t, original.Env(), restored.Env())
	assert.Equal(t, original.Transactions(), restored.Transactions())

	// Secret keys are never exported, everything else survives.
	expected := original.Alloc()
	signer := expected[t8n.DefaultSignerAddress]
	signer.SecretKey = nil
	expected[t8n.DefaultSignerAddress] = signer

	assert.Equal(t, expected, restored.Alloc())

	_, ok := restored.ResolveSecretKey(t8n.DefaultSignerAddress)
	assert.False(t, ok)
}

func TestLoad_FailurePreservesSession(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := newTestSession(t)
	s.SetHardFork("Shanghai")
	s.AddDefaultSigner()
	s.NewTransaction()

	tests := []struct {
		name    string
		content string
	}{
		{name: "truncated", content: `{"config": {"work_dir": "/tmp"}, "alloc": {`},
		{name: "bad transaction", content: `{"config": {"work_dir": "/tmp"}, "alloc": {}, "env": {}, "txs": [{"gas": 5}]}`},
		{name: "missing config", content: `{"alloc": {}, "env": {}, "txs": []}`},
		{
			name: "duplicate address",
			content: `{"config": {"work_dir": "/tmp"}, "env": {}, "txs": [], "alloc": {
				"0x095E7BAEA6A6c7c4c2DFeb977eFac326aF552d87": {"balance": "0x0", "code": "0x", "nonce": "0x0"},
				"0x095e7baea6a6c7c4c2dfeb977efac326af552d87": {"balance": "0x0", "code": "0x", "nonce": "0x0"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			err := s.Load(ctx, path)
			require.ErrorIs(t, err, ErrPersistenceFailure)

			assert.Equal(t, "Shanghai", s.Config().HardFork)
			assert.Len(t, s.Alloc(), 1)
			assert.Len(t, s.Transactions(), 1)

			key, ok := s.ResolveSecretKey(t8n.DefaultSignerAddress)
			assert.True(t, ok)
			assert.Equal(t, t8n.DefaultSignerSecretKey, key)
		})
	}

	err := s.Load(ctx, filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, ErrPersistenceFailure)
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestLoad_LowercasesAddresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"config": {"work_dir": "/tmp"}, "env": {}, "txs": [], "alloc": {
		"0x095E7BAEA6A6c7c4c2DFeb977eFac326aF552d87": {"balance": "0x0", "code": "0x", "nonce": "0x0"}}}`), 0o600))

	s := newTestSession(t)
	require.NoError(t, s.Load(context.Background(), path))

	require.NoError(t, s.SetCode(t8n.PlaceholderAddress, "0x6001"))
	assert.Equal(t, "0x6001", s.Alloc()[t8n.PlaceholderAddress].Code)
	assert.Len(t, s.Alloc(), 1)
}

func TestSave_UnwritablePath(t *testing.T) {
	s := newTestSession(t)

	err := s.Save(context.Background(), filepath.Join(t.TempDir(), "missing", "session.json"))
	require.ErrorIs(t, err, ErrPersistenceFailure)
}

func TestSaveLoad_RedisStore(t *testing.T) {
	ctx := context.Background()
	client, _ := testutil.NewMiniredisClient(t)

	store := NewRedisStore(client, "test:")

	original := newTestSession(t, WithSnapshotStore(store))
	original.AddAddress("")
	original.NewTransaction()
	require.NoError(t, original.Save(ctx, "mine"))

	exists, err := client.Exists(ctx, "test:snapshot:mine").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	restored := newTestSession(t, WithSnapshotStore(store))
	require.NoError(t, restored.Load(ctx, "mine"))

	assert.Equal(t, original.Alloc(), restored.Alloc())
	assert.Equal(t, original.Transactions(), restored.Transactions())

	err = restored.Load(ctx, "other")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestFileStore_EmptyName(t *testing.T) {
	store := NewFileStore()

	require.Error(t, store.Save(context.Background(), "", []byte("{}")))

	_, err := store.Load(context.Background(), "")
	require.Error(t, err)
}
