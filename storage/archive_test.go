package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civic-vote/models"
)

func exportAt(t time.Time, blocks int) models.ChainExport {
	export := models.ChainExport{Algorithm: "sha256", Difficulty: 4, ExportedAt: t}
	for i := 0; i < blocks; i++ {
		export.Blocks = append(export.Blocks, models.Block{Index: uint64(i), Hash: "h"})
	}
	return export
}

func TestChainArchiveRotation(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewChainArchive(dir, 2)
	require.NoError(t, err)

	_, err = archive.Latest()
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := archive.Save(exportAt(base.Add(time.Duration(i)*time.Minute), i+1))
		require.NoError(t, err)
	}

	files, err := filepath.Glob(filepath.Join(dir, archivePattern))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	latest, err := archive.Latest()
	require.NoError(t, err)
	assert.Len(t, latest.Blocks, 3)
	assert.Equal(t, "sha256", latest.Algorithm)
}

func TestChainArchiveRejectsEmpty(t *testing.T) {
	archive, err := NewChainArchive(t.TempDir(), 1)
	require.NoError(t, err)

	_, err = archive.Save(models.ChainExport{})
	assert.Error(t, err)
}

func TestChainArchiveSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewChainArchive(dir, 3)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger_chain_garbage.json"), []byte("{}"), 0644))
	path, err := archive.Save(exportAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), 1))
	require.NoError(t, err)

	latest, err := archive.Latest()
	require.NoError(t, err)
	assert.Len(t, latest.Blocks, 1)

	read, err := ReadChainExport(path)
	require.NoError(t, err)
	assert.Equal(t, latest, read)
}
