package t8n

import (
	"encoding/json"
)

const (
	// ZeroQuantity is the canonical encoding of zero.
	ZeroQuantity = "0x0"
	// EmptyCode is the canonical encoding of empty bytecode.
	EmptyCode = "0x"

	// PlaceholderAddress is used by AddAddress when no address is given.
	PlaceholderAddress = "0x095e7baea6a6c7c4c2dfeb977efac326af552d87"

	// DefaultSignerAddress is the pre-funded account created by the default signer helper.
	DefaultSignerAddress = "0xa94f5374fce5edbc8e2a8697c15331677e6ebf0b"
	// DefaultSignerSecretKey is the private key of DefaultSignerAddress.
	DefaultSignerSecretKey = "0x45a915e4d060149eb4365960e6a7a45f334393093061116b197e3240065ff2d8"
	// DefaultSignerBalance is the balance DefaultSignerAddress starts with.
	DefaultSignerBalance = "0x3b9aca00"

	defaultChainID  = "0x1"
	defaultTxType   = "0x1"
	defaultGas      = "0xaae60"
	defaultGasPrice = "0xa"
)

// Alloc is the pre-state of a single account.
type Alloc struct {
	Balance string            `json:"balance" yaml:"balance"`
	Code    string            `json:"code" yaml:"code"`
	Nonce   string            `json:"nonce" yaml:"nonce"`
	Storage map[string]string `json:"storage" yaml:"storage"`

	// SecretKey is only present on synthetic signer accounts. It is accepted
	// when decoding but never encoded.
	SecretKey *string `json:"-" yaml:"secretKey,omitempty"`
}

// NewAlloc returns an empty account with zero balance and nonce.
func NewAlloc() Alloc {
	return Alloc{
		Balance: ZeroQuantity,
		Code:    EmptyCode,
		Nonce:   ZeroQuantity,
		Storage: map[string]string{},
	}
}

// NewSignerAlloc returns a funded account that carries its secret key.
func NewSignerAlloc(balance, secretKey string) Alloc {
	alloc := NewAlloc()
	alloc.Balance = balance
	alloc.SecretKey = &secretKey

	return alloc
}

// SetCode replaces the account code.
func (a *Alloc) SetCode(code string) {
	a.Code = code
}

// GetSecretKey returns the secret key of the account, if any.
func (a *Alloc) GetSecretKey() (string, bool) {
	if a.SecretKey == nil {
		return "", false
	}

	return *a.SecretKey, true
}

// MarshalJSON implements json.Marshaler. Storage is always written as an object.
func (a Alloc) MarshalJSON() ([]byte, error) {
	type plain Alloc

	p := plain(a)
	if p.Storage == nil {
		p.Storage = map[string]string{}
	}

	return json.Marshal(p)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Alloc) UnmarshalJSON(data []byte) error {
	type plain Alloc

	var aux struct {
		plain
		SecretKey *string `json:"secretKey"`
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*a = Alloc(aux.plain)
	a.SecretKey = aux.SecretKey

	if a.Storage == nil {
		a.Storage = map[string]string{}
	}

	return nil
}

// Env is the block environment handed to the executor.
type Env struct {
	CurrentBaseFee    string `json:"currentBaseFee" yaml:"currentBaseFee"`
	CurrentCoinbase   string `json:"currentCoinbase" yaml:"currentCoinbase"`
	CurrentDifficulty string `json:"currentDifficulty" yaml:"currentDifficulty"`
	CurrentGasLimit   string `json:"currentGasLimit" yaml:"currentGasLimit"`
	CurrentNumber     string `json:"currentNumber" yaml:"currentNumber"`
	CurrentTimestamp  string `json:"currentTimestamp" yaml:"currentTimestamp"`
	// CurrentRandom is nil before the merge.
	CurrentRandom *string `json:"currentRandom,omitempty" yaml:"currentRandom,omitempty"`
	PreviousHash  string  `json:"previousHash" yaml:"previousHash"`
}

// DefaultEnv returns a post-merge environment suitable for ad hoc sessions.
func DefaultEnv() Env {
	random := "0x0000000000000000000000000000000000000000000000000000000000020000"

	return Env{
		CurrentBaseFee:    "0x0a",
		CurrentCoinbase:   "0x2adc25665018aa1fe0e6bc666dac8fc2697ff9ba",
		CurrentDifficulty: "0",
		CurrentGasLimit:   "0x05f5e100",
		CurrentNumber:     "0x01",
		CurrentTimestamp:  "0x03e8",
		CurrentRandom:     &random,
		PreviousHash:      "0x5e20a0453cecd065ea59c37ac63e079ee08998b6045136a8ce6635c7912ec0b6",
	}
}

// SetCurrentDifficulty replaces the block difficulty.
func (e *Env) SetCurrentDifficulty(difficulty string) {
	e.CurrentDifficulty = difficulty
}

// SetCurrentRandom sets the post-merge random value. A nil value removes it.
func (e *Env) SetCurrentRandom(random *string) {
	e.CurrentRandom = random
}

// Transaction is a single unsigned transaction in executor format.
// V, R and S are placeholders and always zero; signing happens in the
// executor from SecretKey.
type Transaction struct {
	Input     string  `json:"input" yaml:"input"`
	Gas       string  `json:"gas" yaml:"gas"`
	GasPrice  string  `json:"gasPrice" yaml:"gasPrice"`
	Nonce     string  `json:"nonce" yaml:"nonce"`
	To        *string `json:"to,omitempty" yaml:"to,omitempty"`
	Value     string  `json:"value" yaml:"value"`
	V         string  `json:"v" yaml:"v"`
	R         string  `json:"r" yaml:"r"`
	S         string  `json:"s" yaml:"s"`
	SecretKey string  `json:"secretKey" yaml:"secretKey"`
	ChainID   string  `json:"chainId" yaml:"chainId"`
	Type      *string `json:"type,omitempty" yaml:"type,omitempty"`
}

// NewTransaction builds a transaction, normalizing its numeric quantities.
func NewTransaction(input, gas, gasPrice, nonce string, to *string, value, secretKey string, txType *string) Transaction {
	return Transaction{
		Input:     input,
		Gas:       NormalizeQuantity(gas),
		GasPrice:  NormalizeQuantity(gasPrice),
		Nonce:     NormalizeQuantity(nonce),
		To:        to,
		Value:     NormalizeQuantity(value),
		V:         ZeroQuantity,
		R:         ZeroQuantity,
		S:         ZeroQuantity,
		SecretKey: secretKey,
		ChainID:   defaultChainID,
		Type:      txType,
	}
}

// DefaultTransaction returns the transaction appended by tx.new.
func DefaultTransaction() Transaction {
	txType := defaultTxType

	return NewTransaction("", defaultGas, defaultGasPrice, ZeroQuantity, nil, ZeroQuantity, "", &txType)
}

// SetSecretKey sets the key the executor signs the transaction with.
func (t *Transaction) SetSecretKey(key string) {
	t.SecretKey = key
}

// SetReceiver sets the recipient, turning a creation into a call.
func (t *Transaction) SetReceiver(address string) {
	t.To = &address
}

// SetInput replaces the call data.
func (t *Transaction) SetInput(input string) {
	t.Input = input
}

// SetValue replaces the transferred value.
func (t *Transaction) SetValue(value string) {
	t.Value = NormalizeQuantity(value)
}

// IsCreate reports whether the transaction deploys a contract.
func (t *Transaction) IsCreate() bool {
	return t.To == nil
}
