package t8n

import "strings"

const hexPrefix = "0x"

// NormalizeQuantity strips a single superfluous leading zero digit from a
// 0x-prefixed quantity, e.g. "0x0a" becomes "0xa". The literal "0x0" is
// returned unchanged. Inputs without the prefix are returned as given.
func NormalizeQuantity(s string) string {
	if strings.HasPrefix(s, "0x0") && len(s) > 3 {
		return hexPrefix + s[3:]
	}

	return s
}
