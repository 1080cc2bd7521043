package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key identifies one cached operation result.
type Key struct {
	// Op is the named operation (e.g. "pricingColumn", "list").
	Op string

	// Params are the operation parameters. Serialization is
	// order-independent: the same logical parameters always produce the
	// same key regardless of insertion order.
	Params map[string]string
}

// String generates the storage key: a namespaced SHA-256 digest of the
// operation tag and its sorted parameters.
//
// Example:
//
//	fpx:pricingColumn:6b86b273ff34fce19d6b804eff5a3f57...
func (k Key) String() string {
	parts := []string{k.Op}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("fpx:%s:%s", k.Op, hex.EncodeToString(sum[:]))
}
