package t8n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuantity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single leading zero", input: "0x0a", expected: "0xa"},
		{name: "leading zero on wide value", input: "0x05f5e100", expected: "0x5f5e100"},
		{name: "zero literal", input: "0x0", expected: "0x0"},
		{name: "double zero", input: "0x00", expected: "0x0"},
		{name: "only one zero removed", input: "0x001", expected: "0x01"},
		{name: "already minimal", input: "0xaae60", expected: "0xaae60"},
		{name: "already minimal single digit", input: "0x1", expected: "0x1"},
		{name: "no prefix untouched", input: "0a", expected: "0a"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeQuantity(tt.input))
		})
	}
}

func TestNormalizeQuantity_Idempotent(t *testing.T) {
	for _, s := range []string{"0x0", "0x1", "0xff", "0x3b9aca00"} {
		assert.Equal(t, s, NormalizeQuantity(NormalizeQuantity(s)))
	}
}
