package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "products.json"), zap.NewNop())
}

func TestFileStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newTestFileStore(t) })
}

func TestFileStore_MissingFileIsEmptyAndNotCreated(t *testing.T) {
	s := newTestFileStore(t)

	got, err := s.ReadCatalog()
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "reads never create the file")
}

func TestFileStore_BlankFileIsEmpty(t *testing.T) {
	s := newTestFileStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("  \n"), 0o644))

	got, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStore_CreatesParentDirLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "products.json")
	s := NewFileStore(path, nil)

	_, err := s.Add(context.Background(), validProduct("C1"))
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestFileStore_WritesTabIndentedArray(t *testing.T) {
	s := newTestFileStore(t)
	_, err := s.Add(context.Background(), validProduct("C1"))
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	want := "[\n" +
		"\t{\n" +
		"\t\t\"code\": \"C1\",\n" +
		"\t\t\"description\": \"d\",\n" +
		"\t\t\"id\": 1,\n" +
		"\t\t\"price\": 5,\n" +
		"\t\t\"stock\": 2,\n" +
		"\t\t\"thumbnail\": \"t\",\n" +
		"\t\t\"title\": \"A\"\n" +
		"\t}\n" +
		"]"
	assert.Equal(t, want, string(data))
}

func TestFileStore_ClearWritesEmptyArray(t *testing.T) {
	s := newTestFileStore(t)
	_, err := s.Add(context.Background(), validProduct("C1"))
	require.NoError(t, err)

	require.NoError(t, s.Clear(context.Background()))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestFileStore_RoundTripIsIdempotent(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	in := validProduct("C1")
	in["price"] = 19.99
	in["notes"] = "<b>fragile</b> & heavy"
	in["dims"] = map[string]any{"w": 10, "h": 2.5}
	_, err := s.Add(ctx, in)
	require.NoError(t, err)
	_, err = s.Add(ctx, validProduct("C2"))
	require.NoError(t, err)

	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	records, err := s.ReadCatalog()
	require.NoError(t, err)
	require.NoError(t, s.WriteCatalog(records))

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestFileStore_PreservesNumberText(t *testing.T) {
	s := newTestFileStore(t)
	raw := `[{"id": 1, "title": "A", "description": "d", "price": 12345678901234567890, "thumbnail": "t", "code": "C1", "stock": 0}]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(raw), 0o644))

	_, err := s.Update(context.Background(), 1, Product{"stock": 3})
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price": 12345678901234567890`)
}

func TestFileStore_ReadFailures(t *testing.T) {
	cases := map[string]string{
		"not json":       `{{{`,
		"object":         `{"id": 1}`,
		"array of ints":  `[1, 2]`,
		"null entry":     `[null]`,
		"trailing junk":  `[] []`,
		"truncated file": `[{"id": 1, "title": "A"`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestFileStore(t)
			require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

			_, err := s.List(context.Background(), 0)
			var se *StoreError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, OpRead, se.Op)
			assert.Equal(t, s.Path(), se.Path)

			_, err = s.Add(context.Background(), validProduct("C1"))
			require.ErrorAs(t, err, &se)

			data, err := os.ReadFile(s.Path())
			require.NoError(t, err)
			assert.Equal(t, content, string(data), "a failed read never rewrites the file")
		})
	}
}

func TestFileStore_WriteFailureKeepsOldContent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "products.json"), nil)
	_, err := s.Add(context.Background(), validProduct("C1"))
	require.NoError(t, err)

	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	_, err = s.Add(context.Background(), validProduct("C2"))
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpWrite, se.Op)

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileStore_DuplicateIDsResolveToFirst(t *testing.T) {
	s := newTestFileStore(t)
	raw := `[{"id": 3, "code": "first"}, {"id": 3, "code": "second"}, {"id": 1, "code": "low"}]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(raw), 0o644))

	got, ok, err := s.Get(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", got["code"])

	p, err := s.Add(context.Background(), validProduct("C4"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), mustID(t, p), "max id wins, not the last element's id")
}

func TestFileStore_ConcurrentAddsOnOneStore(t *testing.T) {
	s := newTestFileStore(t)
	const n = 20

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := s.Add(context.Background(), validProduct("C"))
			return err
		})
	}
	require.NoError(t, g.Wait())

	all, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	got := ids(t, all)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	want := make([]int64, n)
	for i := range want {
		want[i] = int64(i + 1)
	}
	assert.Equal(t, want, got)
}

// Two stores on one file do not coordinate: a writer holding a stale
// snapshot overwrites the other's add. This is a known property of the
// file backend, not something the store hides.
func TestFileStore_IndependentWritersLoseUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	a := NewFileStore(path, nil)
	b := NewFileStore(path, nil)
	ctx := context.Background()

	snapshot, err := a.ReadCatalog()
	require.NoError(t, err)

	_, err = b.Add(ctx, validProduct("from-b"))
	require.NoError(t, err)

	require.NoError(t, a.WriteCatalog(append(snapshot, newRecord(validProduct("from-a"), nextID(snapshot)))))

	all, err := b.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "from-a", all[0]["code"], "b's add was lost")
}

func TestFileStore_PingAndContext(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing-dir", "products.json"), nil)
	var se *StoreError
	require.ErrorAs(t, s.Ping(context.Background()), &se)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFileStore(t).List(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStore_ReadsHandWrittenFile(t *testing.T) {
	s := newTestFileStore(t)
	records := []map[string]any{
		{"id": 1, "title": "Keyboard", "description": "d", "price": 49.9, "thumbnail": "t", "code": "KB", "stock": 3},
	}
	data, err := json.MarshalIndent(records, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), data, 0o644))

	got, ok, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, json.Number("49.9"), got["price"])
}
