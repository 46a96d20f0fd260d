// Package cachekey derives the deterministic cache fingerprint used by the
// prediction pipeline and its invalidation counterpart in internal/cache.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// Inputs is the mapping of request inputs hashed into a fingerprint. Values
// are rendered in a stable form regardless of their concrete Go type.
type Inputs map[string]any

// Key produces a key of the form "<family>:<hash>:<version>" where hash is
// the SHA-256 hex digest of the canonical serialization of inputs: keys
// sorted lexicographically, values rendered in a stable form. Embedding the
// version prevents serving stale predictions after a model swap.
func Key(family string, inputs Inputs, version string) string {
	return fmt.Sprintf("%s:%s:%s", family, Hash(inputs), version)
}

// Hash computes the canonical SHA-256 hex digest of inputs alone, independent
// of family and version. Key uses it for the middle segment; a
// precomputed digest (e.g. an STL file's raw-byte hash) is passed in as
// one of the inputs.
func Hash(inputs Inputs) string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(render(inputs[k])))
		h.Write([]byte{';'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// render produces a stable JSON-like representation of a single value.
// Numeric types are normalized through strconv rather than fmt's %v to
// avoid platform- or type-width-dependent formatting differences between,
// say, int32(3) and int64(3).
func render(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return "null"
	case []byte:
		return hex.EncodeToString(t)
	case fmt.Stringer:
		return strconv.Quote(t.String())
	default:
		return strconv.Quote(fmt.Sprintf("%v", t))
	}
}

// InvalidationPattern names the deletion set for a family, optionally scoped
// to a single model version.
func InvalidationPattern(family string, version string) string {
	if version == "" {
		return family + ":*"
	}
	return family + ":*:" + version
}
