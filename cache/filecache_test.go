package cache

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyForIgnoresOrder(t *testing.T) {
	a := KeyFor("acs_2022_acs5", map[string]string{"for": "county:*", "in": "state:06"},
		map[string][]string{"vars": {"B17001_002E", "B01003_001E", "B17001_001E"}})
	b := KeyFor("acs_2022_acs5", map[string]string{"in": "state:06", "for": "county:*"},
		map[string][]string{"vars": {"B01003_001E", "B17001_001E", "B17001_002E"}})
	assert.Equal(t, a, b)
	assert.Len(t, a.Hash, 64)

	c := KeyFor("acs_2022_acs5", map[string]string{"for": "county:*", "in": "state:36"},
		map[string][]string{"vars": {"B01003_001E", "B17001_001E", "B17001_002E"}})
	assert.NotEqual(t, a.Hash, c.Hash)
}

func TestKeyForIsFilesystemSafe(t *testing.T) {
	k := KeyFor("acs/2022:county:*?x", nil, nil)
	assert.Equal(t, "acs_2022_county___x", k.Prefix)
	assert.NotContains(t, k.String(), "/")
	assert.NotContains(t, k.String(), ":")
}

func TestKeyPrefixTakesPartInIdentity(t *testing.T) {
	// same hash material would need the same prefix, since the prefix is hashed too
	a := KeyFor("pop", map[string]string{"year": "2022"}, nil)
	b := KeyFor("saipe", map[string]string{"year": "2022"}, nil)
	assert.NotEqual(t, a.String(), b.String())
	assert.NotEqual(t, a.Hash, b.Hash)
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable(
		Column{Name: "fips", Kind: KindString},
		Column{Name: "name", Kind: KindString},
		Column{Name: "pop", Kind: KindInt},
		Column{Name: "rate", Kind: KindFloat},
	)
	require.NoError(t, tbl.Append("06001", "Alameda County, California", 1700000, 9.87))
	require.NoError(t, tbl.Append("06003", "Alpine County, \"CA\"", int64(1200), nil))
	require.NoError(t, tbl.Append("06005", "Amador, County", "not a number", 12.5))
	return tbl
}

func TestStoreLookupRoundTrip(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	key := KeyFor("pop_2022_county", nil, nil)
	tbl := sampleTable(t)
	require.NoError(t, c.Store(key, tbl))

	got, ok := c.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, tbl, got)

	assert.Nil(t, got.Value(2, "pop"), "unparseable numbers are coerced to missing on write")
	assert.Equal(t, int64(1700000), got.Value(0, "pop"))
	assert.Equal(t, "06001", got.Value(0, "fips"))

	_, err = os.Stat(filepath.Join(c.Dir(), key.String()+".csv"))
	require.NoError(t, err)
}

func TestKeyForQuotesSeparatorsInValues(t *testing.T) {
	a := KeyFor("p", map[string]string{"a": "1\nb=2"}, nil)
	b := KeyFor("p", map[string]string{"a": "1", "b": "2"}, nil)
	assert.NotEqual(t, a.Hash, b.Hash)

	c := KeyFor("p", nil, map[string][]string{"vars": {"x,y"}})
	d := KeyFor("p", nil, map[string][]string{"vars": {"x", "y"}})
	assert.NotEqual(t, c.Hash, d.Hash)
}

func TestSingleColumnKeepsMissingRows(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	key := KeyFor("single", nil, nil)
	tbl := NewTable(Column{Name: "n", Kind: KindInt})
	require.NoError(t, tbl.Append(1))
	require.NoError(t, tbl.Append(nil))
	require.NoError(t, tbl.Append(3))
	require.NoError(t, c.Store(key, tbl))

	got, ok := c.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, tbl, got)
	require.Equal(t, 3, got.Len())
	assert.Nil(t, got.Value(1, "n"))

	strs := NewTable(Column{Name: "s", Kind: KindString})
	require.NoError(t, strs.Append(""))
	require.NoError(t, c.Store(key, strs))
	got, ok = c.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, strs, got)
}

func TestStringsSurviveByteExact(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	key := KeyFor("crlf", nil, nil)
	tbl := NewTable(Column{Name: "s", Kind: KindString}, Column{Name: "n", Kind: KindInt})
	for _, s := range []string{"a\r\nb", "lone\rcr", `back\slash`, `\r literal`, "quote \"x\"\n"} {
		require.NoError(t, tbl.Append(s, 1))
	}
	require.NoError(t, c.Store(key, tbl))

	got, ok := c.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, tbl, got)
	assert.Equal(t, "a\r\nb", got.Value(0, "s"))
}

func TestRecordsScenario(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	key := KeyFor("pop_2022_county", nil, nil)
	in := []map[string]any{{"fips": "06001", "pop": 1700000}}
	require.NoError(t, c.Store(key, FromRecords(in)))

	got, ok := c.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, []map[string]any{{"fips": "06001", "pop": int64(1700000)}}, got.Records())
}

func TestLookupMissAndCorruptEntry(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	key := KeyFor("x", nil, nil)

	_, ok := c.Lookup(key)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(c.Path(key), []byte("column,a,b\nkind,int,bogus\nrow,1,2\n"), 0o644))
	_, ok = c.Lookup(key)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(c.Path(key), []byte("column,a,b\n\"unterminated"), 0o644))
	_, ok = c.Lookup(key)
	assert.False(t, ok)
}

func TestDisabledCacheNeverTouchesDisk(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir, WithEnabled(false))
	require.NoError(t, err)

	key := KeyFor("x", nil, nil)
	require.NoError(t, c.Store(key, sampleTable(t)))
	_, ok := c.Lookup(key)
	assert.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClear(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	acs := KeyFor("acs_2022_acs5_county", nil, nil)
	acsOld := KeyFor("acs_2021_acs5_county", nil, nil)
	saipe := KeyFor("saipe_2022_county", nil, nil)
	for _, k := range []Key{acs, acsOld, saipe} {
		require.NoError(t, c.Store(k, sampleTable(t)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "metadata.json"), []byte("{}"), 0o644))

	n, err := c.Clear("acs_2022*")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := c.Lookup(acs)
	assert.False(t, ok)
	_, ok = c.Lookup(acsOld)
	assert.True(t, ok)

	n, err = c.Clear("nothing_matches*")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = c.Clear("")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, k := range []Key{acs, acsOld, saipe} {
		_, ok := c.Lookup(k)
		assert.False(t, ok)
	}
	_, err = os.Stat(filepath.Join(c.Dir(), "metadata.json"))
	assert.NoError(t, err, "non-entry files survive a full clear")

	_, err = c.Clear("../*")
	assert.Error(t, err)
}

func TestMetadataSave(t *testing.T) {
	m := NewMetadata()
	m.Record("pop_2022_county_abc", "Census ACS acs5 2022", 3221)
	m.Record("pop_2022_county_abc", SourceCached, 3221)

	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, m.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got MetadataSnapshot
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, map[string]string{"pop_2022_county_abc": SourceCached}, got.Sources)
	assert.Equal(t, map[string]int{"pop_2022_county_abc": 3221}, got.RecordCounts)
	assert.NotEmpty(t, got.CollectionID)

	restored := RestoreMetadata(got)
	assert.Equal(t, got.CollectionID, restored.Snapshot().CollectionID)
}
