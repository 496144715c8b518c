package repl

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ethpandaops/t8n-repl/pkg/session"
	"github.com/sirupsen/logrus"
	"github.com/xlab/treeprint"
	"gopkg.in/yaml.v3"
)

// Dispatcher applies parsed commands to a session and reports the outcome to
// the operator.
type Dispatcher struct {
	log     logrus.FieldLogger
	session *session.Session
	out     io.Writer
}

func NewDispatcher(log logrus.FieldLogger, sess *session.Session, out io.Writer) *Dispatcher {
	return &Dispatcher{
		log:     log.WithField("component", "dispatcher"),
		session: sess,
		out:     out,
	}
}

// Dispatch executes cmd. It reports whether the loop should terminate.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (bool, error) {
	switch c := cmd.(type) {
	case HelpCommand:
		d.help()
	case ExitCommand:
		d.printf("Bye!\n")

		return true, nil
	case DirCommand:
		if err := d.session.SetWorkDir(c.Path); err != nil {
			return false, err
		}

		d.printf("Working directory successfully changed to %s\n", d.session.Config().WorkDir)

		return false, d.session.SaveConfig()
	case ExtractCommand:
		name, err := d.session.Extract(c.Path)
		if err != nil {
			return false, err
		}

		d.printf("Context information extracted correctly! (%s)\n", name)
	case HardForkCommand:
		d.session.SetHardFork(c.Fork)
		d.printf("HardFork `%s` configured!\n", c.Fork)

		return false, d.session.SaveConfig()
	case ExecutorCommand:
		d.session.SetExecutor(c.Path)
		d.printf("Configured t8n tool %s\n", c.Path)

		return false, d.session.SaveConfig()
	case BackendCommand:
		d.session.SetBackend(c.Path)

		if d.session.Config().HasBackend() {
			d.printf("Configured evm %s\n", d.session.Config().EVM)
		} else {
			d.printf("Configured default evm\n")
		}

		return false, d.session.SaveConfig()
	case ShowCommand:
		d.printf("%s", d.overview())
	case ShowAllocCommand:
		return false, d.yaml(d.session.Alloc())
	case ShowEnvCommand:
		return false, d.yaml(d.session.Env())
	case ShowTxsCommand:
		for i, tx := range d.session.Transactions() {
			d.printf("[%d]\n", i)

			if err := d.yaml(tx); err != nil {
				return false, err
			}
		}
	case AddAddressCommand:
		address := d.session.AddAddress(c.Address)
		d.printf("Added account %s\n", address)
	case AddDefaultSignerCommand:
		d.session.AddDefaultSigner()
		d.printf("Added default signer account\n")
	case AddCodeCommand:
		if err := d.session.SetCode(c.Address, c.Code); err != nil {
			return false, err
		}
	case SetDifficultyCommand:
		d.session.SetDifficulty(c.Value)
	case SetCurrentRandomCommand:
		d.session.SetCurrentRandom(c.Value)
	case NewTxCommand:
		index := d.session.NewTransaction()
		d.printf("Created transaction %d\n", index)
	case SetTxSenderCommand:
		return false, d.session.SetTransactionSender(c.Index, c.Address)
	case SetTxFieldCommand:
		return false, d.session.SetTransactionField(c.Index, c.Field, c.Value)
	case RunCommand:
		return false, d.session.Run(ctx)
	case SaveCommand:
		if err := d.session.Save(ctx, c.Target); err != nil {
			return false, err
		}

		d.printf("Session saved to %s\n", c.Target)
	case LoadCommand:
		if err := d.session.Load(ctx, c.Target); err != nil {
			return false, err
		}

		d.printf("Session loaded from %s\n", c.Target)
	default:
		return false, fmt.Errorf("%w: %T", ErrCommandNotFound, cmd)
	}

	return false, nil
}

func (d *Dispatcher) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(d.out, format, args...); err != nil {
		d.log.WithError(err).Debug("Failed to write output")
	}
}

func (d *Dispatcher) yaml(value any) error {
	enc := yaml.NewEncoder(d.out)
	enc.SetIndent(2)

	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}

	return enc.Close()
}

func (d *Dispatcher) help() {
	w := tabwriter.NewWriter(d.out, 0, 8, 2, ' ', 0)

	for i := range commandSpecs {
		fmt.Fprintf(w, "\t%s\t%s\n", commandSpecs[i].usage(), commandSpecs[i].description)
	}

	if err := w.Flush(); err != nil {
		d.log.WithError(err).Debug("Failed to write help")
	}
}

func (d *Dispatcher) overview() string {
	cfg := d.session.Config()

	tree := treeprint.NewWithRoot("session")

	settings := tree.AddBranch("config")
	settings.AddMetaNode("work_dir", cfg.WorkDir)
	settings.AddMetaNode("t8n", cfg.T8n)

	if cfg.HasBackend() {
		settings.AddMetaNode("evm", cfg.EVM)
	} else {
		settings.AddMetaNode("evm", "default")
	}

	settings.AddMetaNode("hard_fork", cfg.HardFork)

	alloc := d.session.Alloc()
	addresses := make([]string, 0, len(alloc))

	for address := range alloc {
		addresses = append(addresses, address)
	}

	sort.Strings(addresses)

	accounts := tree.AddMetaBranch(len(addresses), "alloc")

	for _, address := range addresses {
		account := alloc[address]
		node := accounts.AddBranch(address)
		node.AddMetaNode("balance", account.Balance)
		node.AddMetaNode("nonce", account.Nonce)

		if account.Code != "" && account.Code != "0x" {
			node.AddMetaNode("code", fmt.Sprintf("%d bytes", (len(account.Code)-2)/2))
		}

		if len(account.Storage) > 0 {
			node.AddMetaNode("storage", fmt.Sprintf("%d slots", len(account.Storage)))
		}

		if _, ok := account.GetSecretKey(); ok {
			node.AddNode("signer")
		}
	}

	env := d.session.Env()
	block := tree.AddBranch("env")
	block.AddMetaNode("number", env.CurrentNumber)
	block.AddMetaNode("coinbase", env.CurrentCoinbase)
	block.AddMetaNode("gasLimit", env.CurrentGasLimit)
	block.AddMetaNode("difficulty", env.CurrentDifficulty)

	if env.CurrentRandom != nil {
		block.AddMetaNode("random", *env.CurrentRandom)
	}

	txs := d.session.Transactions()
	transactions := tree.AddMetaBranch(len(txs), "txs")

	for i, tx := range txs {
		to := "create"
		if tx.To != nil {
			to = *tx.To
		}

		transactions.AddMetaNode(i, fmt.Sprintf("to=%s value=%s nonce=%s", to, tx.Value, tx.Nonce))
	}

	return tree.String()
}
