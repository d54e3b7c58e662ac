package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()

	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir())
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadDirectoryWithoutArchives(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "notes.json"), []byte(`{}`), 0o644))

	_, err := Load(context.Background(), dataDir, t.TempDir())
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadPathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "data.zip")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Load(context.Background(), file, t.TempDir())
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadFlattensArraysAndKeepsOrder(t *testing.T) {
	dataDir := t.TempDir()
	extractDir := t.TempDir()

	writeArchive(t, filepath.Join(dataDir, "b.zip"), map[string]string{
		"single.json": `{"Profile":{"persona-id":"P3"}}`,
	})
	writeArchive(t, filepath.Join(dataDir, "a.zip"), map[string]string{
		"1.json":     `[{"Profile":{"persona-id":"P1"}}, {"Profile":{"persona-id":"P2"}}, 7]`,
		"readme.txt": `ignored`,
	})

	docs, err := Load(context.Background(), dataDir, extractDir)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.Equal(t, "a.zip/1.json", docs[0].Source)
	assert.True(t, docs[0].IsObject())
	assert.True(t, docs[1].IsObject())
	assert.False(t, docs[2].IsObject())
	assert.Equal(t, "b.zip/single.json", docs[3].Source)

	records := Extract(docs)
	require.Len(t, records, 3)
	assert.Equal(t, "P1", records[0].PersonaID)
	assert.Equal(t, "P2", records[1].PersonaID)
	assert.Equal(t, "P3", records[2].PersonaID)

	assert.FileExists(t, filepath.Join(extractDir, "a", "1.json"))
	assert.FileExists(t, filepath.Join(extractDir, "b", "single.json"))
}

func TestLoadOverwritesPreviousExtraction(t *testing.T) {
	dataDir := t.TempDir()
	extractDir := t.TempDir()

	stale := filepath.Join(extractDir, "corpus", "data.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte(`{"Profile":{"persona-id":"stale-and-much-longer"}}`), 0o644))

	writeArchive(t, filepath.Join(dataDir, "corpus.zip"), map[string]string{
		"data.json": `{"Profile":{"persona-id":"fresh"}}`,
	})

	docs, err := Load(context.Background(), dataDir, extractDir)
	require.NoError(t, err)

	records := Extract(docs)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].PersonaID)
}

func TestLoadMalformedDocument(t *testing.T) {
	dataDir := t.TempDir()
	writeArchive(t, filepath.Join(dataDir, "good.zip"), map[string]string{
		"ok.json": `{"Profile":{}}`,
	})
	writeArchive(t, filepath.Join(dataDir, "zbad.zip"), map[string]string{
		"broken.json": `{"Profile": {`,
	})

	docs, err := Load(context.Background(), dataDir, t.TempDir())
	require.ErrorIs(t, err, ErrDataFormat)
	assert.Nil(t, docs)
}

func TestLoadCorruptArchive(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "corrupt.zip"), []byte("not a zip"), 0o644))

	_, err := Load(context.Background(), dataDir, t.TempDir())
	require.ErrorIs(t, err, ErrDataFormat)
}

func TestLoadRejectsPathTraversal(t *testing.T) {
	dataDir := t.TempDir()
	writeArchive(t, filepath.Join(dataDir, "evil.zip"), map[string]string{
		"../escape.json": `{}`,
	})

	_, err := Load(context.Background(), dataDir, t.TempDir())
	require.ErrorIs(t, err, ErrDataFormat)
}

func TestLoadCanceledContext(t *testing.T) {
	dataDir := t.TempDir()
	writeArchive(t, filepath.Join(dataDir, "a.zip"), map[string]string{"a.json": `{}`})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, dataDir, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseDocumentsScalarAndEmptyArray(t *testing.T) {
	docs, err := ParseDocuments([]byte(`"just text"`), "s.json")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.False(t, docs[0].IsObject())

	docs, err = ParseDocuments([]byte(`[]`), "e.json")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
