package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/t8n-repl/pkg/config"
	"github.com/ethpandaops/t8n-repl/pkg/runner"
	"github.com/ethpandaops/t8n-repl/pkg/t8n"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopExecutor struct {
	calls int
}

func (e *noopExecutor) Execute(context.Context, string, []string) (*runner.Output, error) {
	e.calls++

	return &runner.Output{}, nil
}

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()

	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)

	return New(logrus.New(), cfg, opts...)
}

func TestNew_Empty(t *testing.T) {
	s := newTestSession(t)

	assert.Empty(t, s.Alloc())
	assert.Empty(t, s.Transactions())
	assert.Equal(t, t8n.DefaultEnv(), s.Env())
}

func TestAddAddress(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, t8n.PlaceholderAddress, s.AddAddress(""))
	assert.Equal(t, "0x1000000000000000000000000000000000000001", s.AddAddress("0x1000000000000000000000000000000000000001"))

	require.Len(t, s.Alloc(), 2)
	assert.Equal(t, t8n.NewAlloc(), s.Alloc()[t8n.PlaceholderAddress])
}

func TestAddAddress_Overwrites(t *testing.T) {
	s := newTestSession(t)

	s.AddAddress(t8n.PlaceholderAddress)
	require.NoError(t, s.SetCode(t8n.PlaceholderAddress, "0x6001"))

	s.AddAddress(t8n.PlaceholderAddress)
	assert.Equal(t, t8n.EmptyCode, s.Alloc()[t8n.PlaceholderAddress].Code)
}

func TestSetCode(t *testing.T) {
	s := newTestSession(t)

	err := s.SetCode(t8n.PlaceholderAddress, "0x6001")
	require.ErrorIs(t, err, t8n.ErrAddressNotFound)
	assert.Empty(t, s.Alloc())

	s.AddAddress("")
	require.NoError(t, s.SetCode(t8n.PlaceholderAddress, "0x600160010160005500"))
	assert.Equal(t, "0x600160010160005500", s.Alloc()[t8n.PlaceholderAddress].Code)
}

func TestResolveSecretKey(t *testing.T) {
	s := newTestSession(t)

	s.AddDefaultSigner()
	s.AddAddress("")

	key, ok := s.ResolveSecretKey(t8n.DefaultSignerAddress)
	assert.True(t, ok)
	assert.Equal(t, t8n.DefaultSignerSecretKey, key)

	_, ok = s.ResolveSecretKey(t8n.PlaceholderAddress)
	assert.False(t, ok)

	_, ok = s.ResolveSecretKey("0x0000000000000000000000000000000000000000")
	assert.False(t, ok)
}

func TestNewTransaction(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, 0, s.NewTransaction())
	assert.Equal(t, 1, s.NewTransaction())

	require.Len(t, s.Transactions(), 2)
	assert.Equal(t, t8n.DefaultTransaction(), s.Transactions()[1])
}

func TestSetTransactionField(t *testing.T) {
	s := newTestSession(t)
	s.NewTransaction()
	s.NewTransaction()

	require.NoError(t, s.SetTransactionField(1, FieldReceiver, t8n.PlaceholderAddress))
	require.NoError(t, s.SetTransactionField(1, FieldInput, "0x6001"))
	require.NoError(t, s.SetTransactionField(1, FieldValue, "0x0a"))
	require.NoError(t, s.SetTransactionField(1, FieldSecretKey, "0x01"))

	tx := s.Transactions()[1]
	require.NotNil(t, tx.To)
	assert.Equal(t, t8n.PlaceholderAddress, *tx.To)
	assert.Equal(t, "0x6001", tx.Input)
	assert.Equal(t, "0xa", tx.Value)
	assert.Equal(t, "0x01", tx.SecretKey)

	assert.Equal(t, t8n.DefaultTransaction(), s.Transactions()[0], "other transactions are untouched")
}

func TestSetTransactionField_OutOfRange(t *testing.T) {
	s := newTestSession(t)
	s.NewTransaction()

	for _, index := range []int{-1, 1, 5} {
		err := s.SetTransactionField(index, FieldValue, "0x1")
		require.ErrorIs(t, err, t8n.ErrTransactionIndexOutOfRange)
	}

	assert.Equal(t, []t8n.Transaction{t8n.DefaultTransaction()}, s.Transactions())
}

func TestSetTransactionSender(t *testing.T) {
	s := newTestSession(t)
	s.AddDefaultSigner()
	s.AddAddress("")
	s.NewTransaction()

	require.NoError(t, s.SetTransactionSender(0, t8n.DefaultSignerAddress))
	assert.Equal(t, t8n.DefaultSignerSecretKey, s.Transactions()[0].SecretKey)

	err := s.SetTransactionSender(0, t8n.PlaceholderAddress)
	require.ErrorIs(t, err, ErrSecretKeyNotFound)
	require.ErrorIs(t, err, t8n.ErrAddressNotFound)
	assert.Equal(t, t8n.DefaultSignerSecretKey, s.Transactions()[0].SecretKey)

	err = s.SetTransactionSender(3, t8n.DefaultSignerAddress)
	require.ErrorIs(t, err, t8n.ErrTransactionIndexOutOfRange)
}

func TestEnvironmentSetters(t *testing.T) {
	s := newTestSession(t)

	s.SetDifficulty("0x020000")
	assert.Equal(t, "0x020000", s.Env().CurrentDifficulty)

	s.SetCurrentRandom(nil)
	assert.Nil(t, s.Env().CurrentRandom)

	random := "0x01"
	s.SetCurrentRandom(&random)
	require.NotNil(t, s.Env().CurrentRandom)
	assert.Equal(t, "0x01", *s.Env().CurrentRandom)
}

func TestConfigurationSetters(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, config.FileName)

	s := newTestSession(t, WithConfigPath(path))

	s.SetHardFork("Cancun")
	s.SetExecutor("/opt/evm")
	s.SetBackend("/opt/evmone.so")

	dir := t.TempDir()
	require.NoError(t, s.SetWorkDir(dir))
	require.ErrorIs(t, s.SetWorkDir(filepath.Join(dir, "missing")), config.ErrDirectoryNotFound)
	assert.Equal(t, dir, s.Config().WorkDir)

	require.NoError(t, s.SaveConfig())

	reloaded, err := config.Load(path, home)
	require.NoError(t, err)
	assert.Equal(t, s.Config(), reloaded)
}

func TestSaveConfig_NoPath(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SaveConfig())
}

func TestExtract(t *testing.T) {
	s := newTestSession(t)
	s.AddAddress("")
	s.NewTransaction()

	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"simple": {
			"env": {
				"currentBaseFee": "0x0a", "currentCoinbase": "0x2adc25665018aa1fe0e6bc666dac8fc2697ff9ba",
				"currentDifficulty": "0x020000", "currentGasLimit": "0x05f5e100", "currentNumber": "0x01",
				"currentTimestamp": "0x03e8",
				"previousHash": "0x5e20a0453cecd065ea59c37ac63e079ee08998b6045136a8ce6635c7912ec0b6"
			},
			"pre": {"0xa94f5374fce5edbc8e2a8697c15331677e6ebf0b": {"balance": "0x0de0b6b3a7640000", "code": "0x", "nonce": "0x00", "storage": {}}},
			"transaction": {
				"data": ["0x", "0x01"], "gasLimit": ["0x0f4240"], "gasPrice": "0x0a", "nonce": "0x00",
				"secretKey": "0x45a915e4d060149eb4365960e6a7a45f334393093061116b197e3240065ff2d8",
				"sender": "0xa94f5374fce5edbc8e2a8697c15331677e6ebf0b", "to": "", "value": ["0x00"]
			}
		}
	}`), 0o600))

	name, err := s.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "simple", name)

	assert.Len(t, s.Alloc(), 1)
	assert.Contains(t, s.Alloc(), t8n.DefaultSignerAddress)
	assert.Equal(t, "0x020000", s.Env().CurrentDifficulty)
	require.Len(t, s.Transactions(), 2)
	assert.Equal(t, "0x1", s.Transactions()[1].Nonce)
}

func TestExtract_FailureLeavesSessionUnchanged(t *testing.T) {
	s := newTestSession(t)
	s.AddDefaultSigner()
	s.NewTransaction()

	dir := t.TempDir()

	_, err := s.Extract(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, t8n.ErrFixtureNotFound)

	malformed := filepath.Join(dir, "malformed.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`{"a": {}, "b": {}}`), 0o600))

	_, err = s.Extract(malformed)
	require.ErrorIs(t, err, t8n.ErrFixtureMalformed)

	assert.Len(t, s.Alloc(), 1)
	assert.Len(t, s.Transactions(), 1)
	assert.Equal(t, t8n.DefaultEnv(), s.Env())
}

func TestRun_UsesSessionContent(t *testing.T) {
	exec := &noopExecutor{}

	var out bytes.Buffer

	s := newTestSession(t, WithRunner(runner.New(logrus.New(), &out, exec)))
	s.AddDefaultSigner()
	s.NewTransaction()

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 1, exec.calls)

	for _, name := range []string{runner.AllocFile, runner.EnvFile, runner.TxsFile} {
		assert.FileExists(t, filepath.Join(s.Config().WorkDir, name))
	}
}
