// Package cache persists tabular API responses on disk, addressed by a
// deterministic key, with no automatic expiry. Entries disappear only through
// Clear.
package cache

// Reader looks a key up. Misses and unreadable entries both report false.
type Reader interface {
	Lookup(key Key) (*Table, bool)
}

// Writer stores a table under a key, replacing any previous entry.
type Writer interface {
	Store(key Key, t *Table) error
}

// Clearer removes entries whose on-disk name matches a glob pattern, or all
// entries when the pattern is empty.
type Clearer interface {
	Clear(pattern string) (int, error)
}

type Cache interface {
	Reader
	Writer
	Clearer
}

var _ Cache = (*FileCache)(nil)
