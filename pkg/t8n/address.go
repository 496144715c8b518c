package t8n

import (
	"fmt"
	"strings"
)

// CanonicalAlloc returns alloc keyed by lowercase address, the form every
// command resolves addresses in. A nil alloc yields an empty map.
func CanonicalAlloc(alloc map[string]Alloc) (map[string]Alloc, error) {
	out := make(map[string]Alloc, len(alloc))

	for address, account := range alloc {
		key := strings.ToLower(address)

		if _, ok := out[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAddress, key)
		}

		out[key] = account
	}

	return out, nil
}
