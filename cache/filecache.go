package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	DefaultDir = "cache"
	ext        = ".csv"
)

// FileCache stores one CSV file per key directly in its root directory.
//
// The first CSV record holds column names, the second their kinds and each
// later one a row, every record led by a tag naming which it is. Writes
// go to a temporary file that is renamed into place, so readers never see a
// partial entry. Concurrent writers to the same key, including other
// processes sharing the directory, are last-writer-wins.
type FileCache struct {
	dir     string
	enabled bool
	logger  zerolog.Logger
}

type Option func(*FileCache)

// WithEnabled turns lookups and stores on or off. A disabled cache never
// touches its directory except through Clear.
func WithEnabled(on bool) Option {
	return func(c *FileCache) { c.enabled = on }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *FileCache) { c.logger = l }
}

// NewFileCache creates the cache rooted at dir, or ./cache when dir is empty.
func NewFileCache(dir string, opts ...Option) (*FileCache, error) {
	if dir == "" {
		dir = DefaultDir
	}
	c := &FileCache{dir: dir, enabled: true, logger: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return c, nil
}

func (c *FileCache) Dir() string   { return c.dir }
func (c *FileCache) Enabled() bool { return c.enabled }

// Path is the file backing key.
func (c *FileCache) Path(key Key) string {
	return filepath.Join(c.dir, key.String()+ext)
}

// Lookup implements Reader. Unreadable or corrupt entries are logged and
// reported as misses.
func (c *FileCache) Lookup(key Key) (*Table, bool) {
	if !c.enabled {
		return nil, false
	}
	path := c.Path(key)
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("cache read failed")
		}
		return nil, false
	}
	defer f.Close() //nolint:errcheck

	t, err := readTable(f)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("cache entry unreadable")
		return nil, false
	}
	c.logger.Debug().Str("key", key.String()).Int("rows", t.Len()).Msg("cache hit")
	return t, true
}

// Store implements Writer. Disabled caches accept and drop the table.
func (c *FileCache) Store(key Key, t *Table) error {
	if !c.enabled || t == nil {
		return nil
	}
	path := c.Path(key)
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	if err := writeTable(f, t); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store %s: %w", key, err)
	}
	c.logger.Debug().Str("key", key.String()).Int("rows", t.Len()).Msg("cache store")
	return nil
}

// Clear implements Clearer. The pattern is a glob over entry file names in
// the cache root; an empty pattern removes every entry. Files that fail to
// delete are logged and skipped.
func (c *FileCache) Clear(pattern string) (int, error) {
	if pattern == "" {
		pattern = "*" + ext
	}
	if strings.ContainsRune(pattern, filepath.Separator) {
		return 0, fmt.Errorf("clear pattern %q must not contain a path separator", pattern)
	}
	matches, err := filepath.Glob(filepath.Join(c.dir, pattern))
	if err != nil {
		return 0, fmt.Errorf("clear pattern %q: %w", pattern, err)
	}

	count := 0
	for _, m := range matches {
		if !strings.HasSuffix(m, ext) {
			continue
		}
		info, err := os.Lstat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := os.Remove(m); err != nil {
			c.logger.Warn().Err(err).Str("file", m).Msg("cache delete failed")
			continue
		}
		count++
	}
	c.logger.Info().Str("pattern", pattern).Int("removed", count).Msg("cache cleared")
	return count, nil
}

// Every record starts with a tag naming its role. The tag keeps records of a
// single-column table from ever being blank lines, which csv.Reader skips.
const (
	tagColumns = "column"
	tagKinds   = "kind"
	tagRow     = "row"
)

// csv.Reader folds a quoted "\r\n" into "\n", so string cells escape
// carriage returns and the backslash used to mark them.
var (
	cellEscaper   = strings.NewReplacer(`\`, `\\`, "\r", `\r`)
	cellUnescaper = strings.NewReplacer(`\\`, `\`, `\r`, "\r")
)

func writeTable(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	names := make([]string, len(t.Columns)+1)
	kinds := make([]Kind, len(t.Columns))
	kindRec := make([]string, len(t.Columns)+1)
	names[0], kindRec[0] = tagColumns, tagKinds
	for i, col := range t.Columns {
		kinds[i] = col.Kind
		if !kinds[i].valid() {
			kinds[i] = KindString
		}
		names[i+1] = col.Name
		kindRec[i+1] = string(kinds[i])
	}
	if err := cw.Write(names); err != nil {
		return err
	}
	if err := cw.Write(kindRec); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns)+1)
	rec[0] = tagRow
	for _, row := range t.Rows {
		for i, k := range kinds {
			var v any
			if i < len(row) {
				v = Coerce(k, row[i])
			}
			cell := format(v)
			if k == KindString {
				cell = cellEscaper.Replace(cell)
			}
			rec[i+1] = cell
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 || records[0][0] != tagColumns || records[1][0] != tagKinds {
		return nil, errors.New("missing header")
	}
	names, kinds := records[0][1:], records[1][1:]
	t := &Table{Columns: make([]Column, len(names))}
	for i, n := range names {
		k := Kind(kinds[i])
		if !k.valid() {
			return nil, fmt.Errorf("column %q has unknown kind %q", n, kinds[i])
		}
		t.Columns[i] = Column{Name: n, Kind: k}
	}
	for line, rec := range records[2:] {
		if rec[0] != tagRow {
			return nil, fmt.Errorf("record %d: unexpected tag %q", line+3, rec[0])
		}
		row := make([]any, len(names))
		for i, cell := range rec[1:] {
			k := t.Columns[i].Kind
			if k == KindString {
				cell = cellUnescaper.Replace(cell)
			}
			row[i] = Coerce(k, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
