package config

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

const testDirectory = `
businessUnits:
  - id: research
    displayName: Research
roleAliases:
  catalog-reviewers: product_admin
`

func TestLoadDirectory(t *testing.T) {
	dir, err := LoadDirectory("")
	require.NoError(t, err)
	assert.Equal(t, roles.DefaultDirectory(), dir)

	dir, err = LoadDirectory(writeFile(t, "directory.yaml", testDirectory))
	require.NoError(t, err)
	require.Len(t, dir.BusinessUnits, 1)
	assert.Equal(t, "research", dir.BusinessUnits[0].ID)
}

func TestDirectoryReloader(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := roles.NewResolver(nil)
	require.False(t, resolver.KnownBusinessUnit("research"))

	path := writeFile(t, "directory.yaml", testDirectory)
	reload := directoryReloader(resolver.Update, logger)

	reload(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	assert.False(t, resolver.KnownBusinessUnit("research"), "chmod must not reload")

	reload(fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.True(t, resolver.KnownBusinessUnit("research"))
	assert.Equal(t, roles.ProductAdmin, resolver.Normalize("Catalog Reviewers"))

	require.NoError(t, os.WriteFile(path, []byte("businessUnits: [{id: \"\"}]"), 0o600))
	reload(fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.True(t, resolver.KnownBusinessUnit("research"), "invalid file must keep the previous directory")
}

func TestWatchDirectory(t *testing.T) {
	resolver := roles.NewResolver(nil)
	assert.NoError(t, WatchDirectory("", resolver.Update, nil))
	assert.Error(t, WatchDirectory("/nonexistent/directory.yaml", resolver.Update, nil))
	assert.NoError(t, WatchDirectory(writeFile(t, "directory.yaml", testDirectory), resolver.Update, nil))
}
