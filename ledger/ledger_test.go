package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestLedger_Backends(t *testing.T) {
	for _, backend := range []string{BackendFile, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

			l, err := Open(ctx, zerolog.Nop(), backend, dir)
			require.NoError(t, err)

			entries, err := l.Load(ctx)
			require.NoError(t, err)
			require.Empty(t, entries)

			require.NoError(t, l.Append(ctx, Entry{ID: "system_A_size_64", DoneAt: at}))
			require.NoError(t, l.Append(ctx, Entry{ID: "system_A_size_1500", DoneAt: at}))
			require.NoError(t, l.Close())

			l, err = Open(ctx, zerolog.Nop(), backend, dir)
			require.NoError(t, err)
			entries, err = l.Load(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"system_A_size_64", "system_A_size_1500"}, ids(entries))
			require.True(t, entries[0].DoneAt.Equal(at))

			require.NoError(t, l.Reset(ctx))
			entries, err = l.Load(ctx)
			require.NoError(t, err)
			require.Empty(t, entries)
			require.NoError(t, l.Close())
		})
	}
}

func TestSQLite_AppendIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	l, err := OpenSQLite(ctx, SQLitePath(t.TempDir()))
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(ctx, Entry{ID: "a", DoneAt: time.Now()}))
	require.NoError(t, l.Append(ctx, Entry{ID: "a", DoneAt: time.Now()}))
	entries, err := l.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids(entries))
}

func TestFile_TornTrailingLine(t *testing.T) {
	ctx := context.Background()
	path := FilePath(t.TempDir())
	content := `{"id":"a","done_at":"2024-03-01T12:00:00Z"}` + "\n" + `{"id":"b","done_`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l, err := OpenFile(zerolog.Nop(), path)
	require.NoError(t, err)
	entries, err := l.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids(entries))

	require.NoError(t, l.Append(ctx, Entry{ID: "c", DoneAt: time.Now()}))
	require.NoError(t, l.Close())

	l, err = OpenFile(zerolog.Nop(), path)
	require.NoError(t, err)
	defer l.Close()
	entries, err = l.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, ids(entries))
}

func TestFile_CorruptLine(t *testing.T) {
	path := FilePath(t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))

	l, err := OpenFile(zerolog.Nop(), path)
	require.NoError(t, err)
	defer l.Close()
	_, err = l.Load(context.Background())
	require.ErrorContains(t, err, "corrupt ledger")
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), zerolog.Nop(), "postgres", t.TempDir())
	require.Error(t, err)
}

func TestSet(t *testing.T) {
	require.Equal(t, map[string]bool{"a": true, "b": true}, Set([]Entry{{ID: "a"}, {ID: "b"}, {ID: "a"}}))
}

func TestRead_Missing(t *testing.T) {
	for _, backend := range []string{BackendFile, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			entries, err := Read(context.Background(), backend, dir)
			require.NoError(t, err)
			require.Empty(t, entries)
			require.NoFileExists(t, FilePath(dir))
			require.NoFileExists(t, SQLitePath(dir))
		})
	}
}

func TestRead_Backends(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{BackendFile, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			l, err := Open(ctx, zerolog.Nop(), backend, dir)
			require.NoError(t, err)
			require.NoError(t, l.Append(ctx, Entry{ID: "a", DoneAt: time.Now()}))
			require.NoError(t, l.Append(ctx, Entry{ID: "b", DoneAt: time.Now()}))
			require.NoError(t, l.Close())

			entries, err := Read(ctx, backend, dir)
			require.NoError(t, err)
			require.Equal(t, []string{"a", "b"}, ids(entries))
		})
	}
}

func TestReadFile_LeavesTornLine(t *testing.T) {
	path := FilePath(t.TempDir())
	content := `{"id":"a","done_at":"2024-03-01T12:00:00Z"}` + "\n" + `{"id":"b","done_`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids(entries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}
