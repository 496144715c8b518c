package repl

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/common/hexutil"
	"github.com/ethpandaops/t8n-repl/pkg/session"
	"github.com/ethpandaops/t8n-repl/pkg/t8n"
)

// Sentinel errors returned by Parse.
var (
	ErrCommandNotFound  = errors.New("command not found")
	ErrArityMismatch    = errors.New("wrong number of parameters")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Command is a parsed command with validated parameters.
type Command interface {
	// Name is the keyword the command was parsed from.
	Name() string
}

type (
	HelpCommand      struct{}
	ShowCommand      struct{}
	ShowAllocCommand struct{}
	ShowEnvCommand   struct{}
	ShowTxsCommand   struct{}
	RunCommand       struct{}
	ExitCommand      struct{}

	DirCommand      struct{ Path string }
	ExtractCommand  struct{ Path string }
	HardForkCommand struct{ Fork string }
	ExecutorCommand struct{ Path string }
	// BackendCommand carries config.DefaultBackend to clear the backend.
	BackendCommand  struct{ Path string }

	// AddAddressCommand with an empty Address adds the placeholder address.
	AddAddressCommand       struct{ Address string }
	AddDefaultSignerCommand struct{}
	AddCodeCommand          struct {
		Address string
		Code    string
	}

	SetDifficultyCommand    struct{ Value string }
	// SetCurrentRandomCommand with a nil Value removes currentRandom.
	SetCurrentRandomCommand struct{ Value *string }

	NewTxCommand       struct{}
	SetTxSenderCommand struct {
		Index   int
		Address string
	}
	SetTxFieldCommand struct {
		Index int
		Field session.TxField
		Value string
	}

	SaveCommand struct{ Target string }
	LoadCommand struct{ Target string }
)

func (HelpCommand) Name() string             { return "help" }
func (ShowCommand) Name() string             { return "show" }
func (ShowAllocCommand) Name() string        { return "alloc" }
func (ShowEnvCommand) Name() string          { return "env" }
func (ShowTxsCommand) Name() string          { return "txs" }
func (RunCommand) Name() string              { return "run" }
func (ExitCommand) Name() string             { return "exit" }
func (DirCommand) Name() string              { return "dir" }
func (ExtractCommand) Name() string          { return "extract" }
func (HardForkCommand) Name() string         { return "hf" }
func (ExecutorCommand) Name() string         { return "t8n" }
func (BackendCommand) Name() string          { return "evm" }
func (AddAddressCommand) Name() string       { return "alloc.add" }
func (AddDefaultSignerCommand) Name() string { return "alloc.add.default" }
func (AddCodeCommand) Name() string          { return "addcode" }
func (SetDifficultyCommand) Name() string    { return "env.set.difficulty" }
func (SetCurrentRandomCommand) Name() string { return "env.set.currentrandom" }
func (NewTxCommand) Name() string            { return "tx.new" }
func (SetTxSenderCommand) Name() string      { return "tx.set.sender" }
func (SaveCommand) Name() string             { return "save" }
func (LoadCommand) Name() string             { return "load" }

func (c SetTxFieldCommand) Name() string {
	switch c.Field {
	case session.FieldReceiver:
		return "tx.set.receiver"
	case session.FieldInput:
		return "tx.set.input"
	case session.FieldValue:
		return "tx.set.value"
	default:
		return "tx.set." + c.Field.String()
	}
}

// commandSpec describes one keyword of the command vocabulary.
type commandSpec struct {
	name        string
	params      []string
	optional    int // trailing params that may be omitted
	description string
	build       func(params []string) (Command, error)
}

func (s *commandSpec) usage() string {
	if len(s.params) == 0 {
		return s.name
	}

	return s.name + " " + strings.Join(s.params, " ")
}

func (s *commandSpec) checkArity(n int) error {
	required := len(s.params) - s.optional
	if n >= required && n <= len(s.params) {
		return nil
	}

	switch {
	case len(s.params) == 0:
		return fmt.Errorf("%w: %s takes no parameters", ErrArityMismatch, s.name)
	case s.optional > 0:
		return fmt.Errorf("%w: %s expects %d to %d parameters (%s)", ErrArityMismatch, s.name, required, len(s.params), strings.Join(s.params, " "))
	default:
		return fmt.Errorf("%w: %s expects %d parameter(s) (%s)", ErrArityMismatch, s.name, required, strings.Join(s.params, " "))
	}
}

func noParams(cmd Command) func([]string) (Command, error) {
	return func([]string) (Command, error) {
		return cmd, nil
	}
}

func txField(field session.TxField, parse func(string) (string, error)) func([]string) (Command, error) {
	return func(p []string) (Command, error) {
		index, err := parseIndex(p[0])
		if err != nil {
			return nil, err
		}

		value, err := parse(p[1])
		if err != nil {
			return nil, err
		}

		return SetTxFieldCommand{Index: index, Field: field, Value: value}, nil
	}
}

var commandSpecs = []commandSpec{
	{name: "help", description: "Shows this help", build: noParams(HelpCommand{})},
	{name: "dir", params: []string{"<path>"}, description: "Sets <path> as the current working directory",
		build: func(p []string) (Command, error) { return DirCommand{Path: p[0]}, nil }},
	{name: "extract", params: []string{"<test>"}, description: "Extracts session content from an Ethereum state test",
		build: func(p []string) (Command, error) { return ExtractCommand{Path: p[0]}, nil }},
	{name: "hf", params: []string{"<hf_name>"}, description: "Sets the hard fork",
		build: func(p []string) (Command, error) { return HardForkCommand{Fork: p[0]}, nil }},
	{name: "t8n", params: []string{"<t8n_path>"}, description: "Sets the t8n tool path",
		build: func(p []string) (Command, error) { return ExecutorCommand{Path: p[0]}, nil }},
	{name: "evm", params: []string{"<evm_path|default>"}, description: "Sets a custom EVM backend, default removes it",
		build: func(p []string) (Command, error) { return BackendCommand{Path: p[0]}, nil }},
	{name: "show", description: "Shows an overview of the session", build: noParams(ShowCommand{})},
	{name: "alloc", description: "Shows current allocation data", build: noParams(ShowAllocCommand{})},
	{name: "alloc.add", params: []string{"[address]"}, optional: 1, description: "Adds an empty account",
		build: func(p []string) (Command, error) {
			if len(p) == 0 {
				return AddAddressCommand{}, nil
			}

			address, err := parseAddress(p[0])
			if err != nil {
				return nil, err
			}

			return AddAddressCommand{Address: address}, nil
		}},
	{name: "alloc.add.default", description: "Adds the pre-funded default signer account", build: noParams(AddDefaultSignerCommand{})},
	{name: "addcode", params: []string{"<address>", "<code>"}, description: "Sets the code of an account",
		build: func(p []string) (Command, error) {
			address, err := parseAddress(p[0])
			if err != nil {
				return nil, err
			}

			code, err := parseData(p[1])
			if err != nil {
				return nil, err
			}

			return AddCodeCommand{Address: address, Code: code}, nil
		}},
	{name: "env", description: "Shows current environment", build: noParams(ShowEnvCommand{})},
	{name: "env.set.difficulty", params: []string{"<value>"}, description: "Sets the block difficulty",
		build: func(p []string) (Command, error) {
			value, err := parseNumber(p[0])
			if err != nil {
				return nil, err
			}

			return SetDifficultyCommand{Value: value}, nil
		}},
	{name: "env.set.currentrandom", params: []string{"[value]"}, optional: 1, description: "Sets the post-merge random value, removes it when omitted",
		build: func(p []string) (Command, error) {
			if len(p) == 0 {
				return SetCurrentRandomCommand{}, nil
			}

			value, err := parseData(p[0])
			if err != nil {
				return nil, err
			}

			return SetCurrentRandomCommand{Value: &value}, nil
		}},
	{name: "txs", description: "Shows current transactions", build: noParams(ShowTxsCommand{})},
	{name: "tx.new", description: "Appends a default transaction", build: noParams(NewTxCommand{})},
	{name: "tx.set.sender", params: []string{"<index>", "<address>"}, description: "Signs transaction <index> with the key of <address>",
		build: func(p []string) (Command, error) {
			index, err := parseIndex(p[0])
			if err != nil {
				return nil, err
			}

			address, err := parseAddress(p[1])
			if err != nil {
				return nil, err
			}

			return SetTxSenderCommand{Index: index, Address: address}, nil
		}},
	{name: "tx.set.receiver", params: []string{"<index>", "<address>"}, description: "Sets the recipient of transaction <index>",
		build: txField(session.FieldReceiver, parseAddress)},
	{name: "tx.set.input", params: []string{"<index>", "<data>"}, description: "Sets the input data of transaction <index>",
		build: txField(session.FieldInput, parseData)},
	{name: "tx.set.value", params: []string{"<index>", "<value>"}, description: "Sets the value of transaction <index>",
		build: txField(session.FieldValue, parseQuantity)},
	{name: "run", description: "Executes the session with the t8n tool", build: noParams(RunCommand{})},
	{name: "save", params: []string{"<file>"}, description: "Saves the session",
		build: func(p []string) (Command, error) { return SaveCommand{Target: p[0]}, nil }},
	{name: "load", params: []string{"<file>"}, description: "Loads a saved session",
		build: func(p []string) (Command, error) { return LoadCommand{Target: p[0]}, nil }},
	{name: "exit", description: "Exit", build: noParams(ExitCommand{})},
}

func lookup(name string) (*commandSpec, bool) {
	for i := range commandSpecs {
		if commandSpecs[i].name == name {
			return &commandSpecs[i], true
		}
	}

	return nil, false
}

// Parse turns an input line into a Command. The line is trimmed and split on
// single spaces; the first token names the command. A blank line yields a nil
// Command and no error.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	words := strings.Split(line, " ")

	spec, ok := lookup(words[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, words[0])
	}

	params := words[1:]

	if err := spec.checkArity(len(params)); err != nil {
		return nil, err
	}

	return spec.build(params)
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: %q is not a transaction index", t8n.ErrTransactionIndexOutOfRange, s)
	}

	return index, nil
}

// parseAddress accepts a 20 byte hex address and returns it lowercased with a 0x prefix.
func parseAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: %q is not an address", ErrInvalidParameter, s)
	}

	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}

// parseData accepts 0x-prefixed hex bytes, including the empty "0x".
func parseData(s string) (string, error) {
	if _, err := hexutil.Decode(s); err != nil {
		return "", fmt.Errorf("%w: %q is not hex data: %w", ErrInvalidParameter, s, err)
	}

	return s, nil
}

// parseQuantity accepts a 0x-prefixed hex number. Leading zeros are allowed.
func parseQuantity(s string) (string, error) {
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok || digits == "" {
		return "", fmt.Errorf("%w: %q is not a hex quantity", ErrInvalidParameter, s)
	}

	if _, ok := new(big.Int).SetString(digits, 16); !ok {
		return "", fmt.Errorf("%w: %q is not a hex quantity", ErrInvalidParameter, s)
	}

	return s, nil
}

// parseNumber accepts a 0x-prefixed hex or a decimal number.
func parseNumber(s string) (string, error) {
	if strings.HasPrefix(s, "0x") {
		return parseQuantity(s)
	}

	if _, ok := new(big.Int).SetString(s, 10); !ok {
		return "", fmt.Errorf("%w: %q is not a number", ErrInvalidParameter, s)
	}

	return s, nil
}
