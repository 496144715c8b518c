// Package testutil provides test helper utilities for unit tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniredisClient creates a Redis client connected to an in-memory miniredis server.
// Both the server and client are automatically cleaned up when the test completes.
func NewMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, s
}

// StateTestFixture is a minimal state test with one pre-funded sender, one
// contract and three data variants sharing a single gas limit.
const StateTestFixture = `{
  "add11": {
    "_info": {"comment": "generated"},
    "env": {
      "currentBaseFee": "0x0a",
      "currentCoinbase": "0x2adc25665018aa1fe0e6bc666dac8fc2697ff9ba",
      "currentDifficulty": "0x020000",
      "currentGasLimit": "0x05f5e100",
      "currentNumber": "0x01",
      "currentTimestamp": "0x03e8",
      "previousHash": "0x5e20a0453cecd065ea59c37ac63e079ee08998b6045136a8ce6635c7912ec0b6"
    },
    "post": {},
    "pre": {
      "0x095e7baea6a6c7c4c2dfeb977efac326af552d87": {
        "balance": "0x0de0b6b3a7640000",
        "code": "0x600160010160005500",
        "nonce": "0x00",
        "storage": {}
      },
      "0xa94f5374fce5edbc8e2a8697c15331677e6ebf0b": {
        "balance": "0x0de0b6b3a7640000",
        "code": "0x",
        "nonce": "0x00",
        "storage": {}
      }
    },
    "transaction": {
      "data": ["0x", "0x01", "0x02"],
      "gasLimit": ["0x04c4b400"],
      "gasPrice": "0x0a",
      "nonce": "0x00",
      "secretKey": "0x45a915e4d060149eb4365960e6a7a45f334393093061116b197e3240065ff2d8",
      "sender": "0xa94f5374fce5edbc8e2a8697c15331677e6ebf0b",
      "to": "0x095e7baea6a6c7c4c2dfeb977efac326af552d87",
      "value": ["0x01"]
    }
  }
}`

// WriteFixture writes StateTestFixture into dir and returns its path.
func WriteFixture(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "add11.json")

	if err := os.WriteFile(path, []byte(StateTestFixture), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	return path
}
