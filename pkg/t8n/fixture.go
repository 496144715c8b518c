package t8n

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/0xsequence/ethkit/go-ethereum/common/hexutil"
)

// Fixture is the session content derived from a single state test.
type Fixture struct {
	Name  string
	Alloc map[string]Alloc
	Env   Env
	Txs   []Transaction
}

type stateTest struct {
	Info        json.RawMessage  `json:"_info"`
	Env         Env              `json:"env"`
	Post        json.RawMessage  `json:"post"`
	Pre         map[string]Alloc `json:"pre"`
	Transaction stateTestTx      `json:"transaction"`
}

// stateTestTx is the parametrized transaction template of a state test.
// Data, GasLimit and Value are parallel arrays indexed per sub-transaction.
type stateTestTx struct {
	Data      []string `json:"data"`
	GasLimit  []string `json:"gasLimit"`
	GasPrice  string   `json:"gasPrice"`
	Nonce     string   `json:"nonce"`
	SecretKey string   `json:"secretKey"`
	Sender    string   `json:"sender"`
	To        string   `json:"to"`
	Value     []string `json:"value"`
}

// LoadFixture opens and decodes the state test at path.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFixtureNotFound, path, err)
	}
	defer f.Close()

	return DecodeFixture(f)
}

// DecodeFixture decodes a state test document holding exactly one test and
// derives one transaction per element of its data array.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	var doc map[string]stateTest

	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFixtureMalformed, err)
	}

	if len(doc) != 1 {
		names := make([]string, 0, len(doc))
		for name := range doc {
			names = append(names, name)
		}

		sort.Strings(names)

		return nil, fmt.Errorf("%w: expected exactly one test, found %d %v", ErrFixtureMalformed, len(doc), names)
	}

	var (
		name string
		test stateTest
	)

	for n, t := range doc {
		name, test = n, t
	}

	if err := test.validate(); err != nil {
		return nil, fmt.Errorf("%w: test %s: %w", ErrFixtureMalformed, name, err)
	}

	txs, err := deriveTransactions(&test.Transaction)
	if err != nil {
		return nil, fmt.Errorf("%w: test %s: %w", ErrFixtureMalformed, name, err)
	}

	alloc, err := CanonicalAlloc(test.Pre)
	if err != nil {
		return nil, fmt.Errorf("%w: test %s: pre: %w", ErrFixtureMalformed, name, err)
	}

	return &Fixture{
		Name:  name,
		Alloc: alloc,
		Env:   test.Env,
		Txs:   txs,
	}, nil
}

// validate rejects tests missing a field the executor needs. Absent account
// code defaults to empty bytecode.
func (t *stateTest) validate() error {
	required := []struct {
		field string
		value string
	}{
		{"env.currentBaseFee", t.Env.CurrentBaseFee},
		{"env.currentCoinbase", t.Env.CurrentCoinbase},
		{"env.currentDifficulty", t.Env.CurrentDifficulty},
		{"env.currentGasLimit", t.Env.CurrentGasLimit},
		{"env.currentNumber", t.Env.CurrentNumber},
		{"env.currentTimestamp", t.Env.CurrentTimestamp},
		{"env.previousHash", t.Env.PreviousHash},
		{"transaction.nonce", t.Transaction.Nonce},
		{"transaction.gasPrice", t.Transaction.GasPrice},
		{"transaction.secretKey", t.Transaction.SecretKey},
	}

	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is missing", r.field)
		}
	}

	addresses := make([]string, 0, len(t.Pre))
	for address := range t.Pre {
		addresses = append(addresses, address)
	}

	sort.Strings(addresses)

	for _, address := range addresses {
		account := t.Pre[address]

		if account.Balance == "" {
			return fmt.Errorf("pre.%s.balance is missing", address)
		}

		if account.Nonce == "" {
			return fmt.Errorf("pre.%s.nonce is missing", address)
		}

		if account.Code == "" {
			account.Code = EmptyCode
			t.Pre[address] = account
		}
	}

	return nil
}

func deriveTransactions(tmpl *stateTestTx) ([]Transaction, error) {
	if len(tmpl.Data) == 0 {
		return []Transaction{}, nil
	}

	if len(tmpl.GasLimit) == 0 {
		return nil, fmt.Errorf("transaction.gasLimit is empty")
	}

	if len(tmpl.Value) == 0 {
		return nil, fmt.Errorf("transaction.value is empty")
	}

	baseNonce, err := parseQuantity(tmpl.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction.nonce %q: %w", tmpl.Nonce, err)
	}

	var to *string
	if tmpl.To != "" {
		recipient := tmpl.To
		to = &recipient
	}

	txs := make([]Transaction, 0, len(tmpl.Data))

	for i, data := range tmpl.Data {
		nonce := NormalizeQuantity(hexutil.EncodeUint64(baseNonce + uint64(i)))
		if nonce == hexPrefix {
			nonce = ZeroQuantity
		}

		var recipient *string
		if to != nil {
			r := *to
			recipient = &r
		}

		txs = append(txs, NewTransaction(
			data,
			clampIndex(tmpl.GasLimit, i),
			tmpl.GasPrice,
			nonce,
			recipient,
			clampIndex(tmpl.Value, i),
			tmpl.SecretKey,
			nil,
		))
	}

	return txs, nil
}

// clampIndex returns values[i], or the last element when the array is shorter.
func clampIndex(values []string, i int) string {
	if i >= len(values) {
		return values[len(values)-1]
	}

	return values[i]
}

// parseQuantity parses a 0x-prefixed hex quantity. Leading zeros are allowed
// and "0x" is read as zero.
func parseQuantity(s string) (uint64, error) {
	digits := strings.TrimPrefix(s, hexPrefix)
	if digits == "" {
		return 0, nil
	}

	return strconv.ParseUint(digits, 16, 64)
}
