package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

const maxPrefixLen = 96

// Key identifies one cache entry. The readable prefix is for operators; the
// hash keeps distinct requests apart. Both parts form the lookup key.
type Key struct {
	Prefix string
	Hash   string
}

func (k Key) String() string {
	return k.Prefix + "_" + k.Hash
}

// Hash returns the hex sha256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// KeyFor derives a key from a readable operation prefix, the scalar
// parameters that affect the result and any unordered lists. Map order and
// list order never change the key.
func KeyFor(prefix string, params map[string]string, lists map[string][]string) Key {
	m := keyMaterial{Op: prefix}
	for _, k := range sortedKeys(params) {
		m.Params = append(m.Params, [2]string{k, params[k]})
	}
	for _, k := range sortedKeys(lists) {
		vs := append([]string(nil), lists[k]...)
		sort.Strings(vs)
		m.Lists = append(m.Lists, keyList{Name: k, Values: vs})
	}
	// strings and slices of strings always encode
	raw, _ := json.Marshal(m)
	return Key{Prefix: sanitizeKey(prefix), Hash: Hash(raw)}
}

// keyMaterial is hashed as JSON so separators inside values stay quoted.
type keyMaterial struct {
	Op     string      `json:"op"`
	Params [][2]string `json:"params,omitempty"`
	Lists  []keyList   `json:"lists,omitempty"`
}

type keyList struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sanitizeKey makes the prefix safe as a file name component.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if len(s) > maxPrefixLen {
		s = s[:maxPrefixLen]
	}
	if s == "" {
		s = "entry"
	}
	return s
}
