// Package session holds the mutable state of an interactive t8n session:
// configuration, pre-state allocations, block environment and transactions.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethpandaops/t8n-repl/pkg/config"
	"github.com/ethpandaops/t8n-repl/pkg/runner"
	"github.com/ethpandaops/t8n-repl/pkg/t8n"
	"github.com/sirupsen/logrus"
)

// Sentinel errors.
var (
	// ErrPersistenceFailure indicates a snapshot or configuration could not be written or read.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrSnapshotNotFound indicates no snapshot exists under the requested name.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSecretKeyNotFound indicates the sender address holds no secret key.
	ErrSecretKeyNotFound = fmt.Errorf("no secret key for %w", t8n.ErrAddressNotFound)
)

// TxField names a transaction field editable through SetTransactionField.
type TxField int

const (
	FieldSecretKey TxField = iota
	FieldReceiver
	FieldInput
	FieldValue
)

func (f TxField) String() string {
	switch f {
	case FieldSecretKey:
		return "secretKey"
	case FieldReceiver:
		return "to"
	case FieldInput:
		return "input"
	case FieldValue:
		return "value"
	default:
		return fmt.Sprintf("TxField(%d)", int(f))
	}
}

// Session is owned by a single dispatch loop and is not safe for concurrent use.
type Session struct {
	log        logrus.FieldLogger
	configPath string
	config     *config.Config

	alloc map[string]t8n.Alloc
	env   t8n.Env
	txs   []t8n.Transaction

	runner    *runner.Runner
	snapshots SnapshotStore
}

type Option func(*Session)

// WithConfigPath sets where SaveConfig writes the configuration. Without it
// SaveConfig is a no-op.
func WithConfigPath(path string) Option {
	return func(s *Session) {
		s.configPath = path
	}
}

// WithRunner sets the run pipeline.
func WithRunner(r *runner.Runner) Option {
	return func(s *Session) {
		s.runner = r
	}
}

// WithSnapshotStore sets where save and load keep snapshots.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *Session) {
		s.snapshots = store
	}
}

// New creates an empty session with the default environment.
func New(log logrus.FieldLogger, cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		log:       log.WithField("component", "session"),
		config:    cfg,
		alloc:     map[string]t8n.Alloc{},
		env:       t8n.DefaultEnv(),
		txs:       []t8n.Transaction{},
		snapshots: NewFileStore(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.runner == nil {
		s.runner = runner.New(log, os.Stdout, runner.NewCommandExecutor())
	}

	return s
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config {
	return s.config
}

// Alloc returns the allocations keyed by address.
func (s *Session) Alloc() map[string]t8n.Alloc {
	return s.alloc
}

// Env returns the block environment.
func (s *Session) Env() t8n.Env {
	return s.env
}

// Transactions returns the transactions in execution order.
func (s *Session) Transactions() []t8n.Transaction {
	return s.txs
}

// SaveConfig persists the configuration to the configured path.
func (s *Session) SaveConfig() error {
	if s.configPath == "" {
		return nil
	}

	if err := s.config.Save(s.configPath); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	s.log.WithField("path", s.configPath).Debug("Configuration saved")

	return nil
}

// SetWorkDir changes the working directory. The configuration is unchanged
// when dir does not exist.
func (s *Session) SetWorkDir(dir string) error {
	return s.config.SetWorkDir(dir)
}

// SetHardFork selects the protocol version tag.
func (s *Session) SetHardFork(fork string) {
	s.config.HardFork = fork
}

// SetExecutor sets the executor binary path.
func (s *Session) SetExecutor(path string) {
	s.config.T8n = path
}

// SetBackend sets the alternate EVM backend; config.DefaultBackend clears it.
func (s *Session) SetBackend(path string) {
	s.config.SetBackend(path)
}

// Extract replaces allocations, environment and transactions with the
// content of the fixture at path and returns the test name. The session is
// unchanged on error.
func (s *Session) Extract(path string) (string, error) {
	fixture, err := t8n.LoadFixture(path)
	if err != nil {
		return "", err
	}

	s.alloc = fixture.Alloc
	s.env = fixture.Env
	s.txs = fixture.Txs

	s.log.WithFields(logrus.Fields{
		"test":  fixture.Name,
		"alloc": len(s.alloc),
		"txs":   len(s.txs),
	}).Debug("Extracted fixture")

	return fixture.Name, nil
}

// AddAddress inserts an empty allocation, replacing any existing one. An
// empty address selects t8n.PlaceholderAddress. The address used is returned.
func (s *Session) AddAddress(address string) string {
	if address == "" {
		address = t8n.PlaceholderAddress
	}

	s.alloc[address] = t8n.NewAlloc()

	return address
}

// AddDefaultSigner inserts the pre-funded default signer account.
func (s *Session) AddDefaultSigner() {
	s.alloc[t8n.DefaultSignerAddress] = t8n.NewSignerAlloc(t8n.DefaultSignerBalance, t8n.DefaultSignerSecretKey)
}

// SetCode replaces the code of an existing allocation.
func (s *Session) SetCode(address, code string) error {
	alloc, ok := s.alloc[address]
	if !ok {
		return fmt.Errorf("%w: %s", t8n.ErrAddressNotFound, address)
	}

	alloc.SetCode(code)
	s.alloc[address] = alloc

	return nil
}

// ResolveSecretKey returns the secret key held by the allocation at address.
func (s *Session) ResolveSecretKey(address string) (string, bool) {
	alloc, ok := s.alloc[address]
	if !ok {
		return "", false
	}

	return alloc.GetSecretKey()
}

// NewTransaction appends a default transaction and returns its index.
func (s *Session) NewTransaction() int {
	s.txs = append(s.txs, t8n.DefaultTransaction())

	return len(s.txs) - 1
}

// SetTransactionField sets one field of the transaction at index.
func (s *Session) SetTransactionField(index int, field TxField, value string) error {
	if index < 0 || index >= len(s.txs) {
		return fmt.Errorf("%w: %d (have %d)", t8n.ErrTransactionIndexOutOfRange, index, len(s.txs))
	}

	tx := &s.txs[index]

	switch field {
	case FieldSecretKey:
		tx.SetSecretKey(value)
	case FieldReceiver:
		tx.SetReceiver(value)
	case FieldInput:
		tx.SetInput(value)
	case FieldValue:
		tx.SetValue(value)
	default:
		return fmt.Errorf("unknown transaction field %s", field)
	}

	return nil
}

// SetTransactionSender makes the account at address the sender of the
// transaction at index by copying its secret key.
func (s *Session) SetTransactionSender(index int, address string) error {
	if index < 0 || index >= len(s.txs) {
		return fmt.Errorf("%w: %d (have %d)", t8n.ErrTransactionIndexOutOfRange, index, len(s.txs))
	}

	key, ok := s.ResolveSecretKey(address)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSecretKeyNotFound, address)
	}

	return s.SetTransactionField(index, FieldSecretKey, key)
}

// SetDifficulty replaces the environment difficulty.
func (s *Session) SetDifficulty(difficulty string) {
	s.env.SetCurrentDifficulty(difficulty)
}

// SetCurrentRandom sets the post-merge random value; nil removes it.
func (s *Session) SetCurrentRandom(random *string) {
	s.env.SetCurrentRandom(random)
}

// Run hands the session to the run pipeline.
func (s *Session) Run(ctx context.Context) error {
	return s.runner.Run(ctx, &runner.Input{
		Config: s.config,
		Alloc:  s.alloc,
		Env:    s.env,
		Txs:    s.txs,
	})
}
