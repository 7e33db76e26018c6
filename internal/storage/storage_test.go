package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
)

func TestLocalStorage_PutDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(config.StorageConfig{Dir: dir, PublicURL: "https://cdn.example.com/storage/"})
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Put(ctx, "course-images", "a.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/storage/course-images/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "course-images", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Delete(ctx, "course-images", "a.png"))
	_, err = os.Stat(filepath.Join(dir, "course-images", "a.png"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	require.NoError(t, s.Delete(ctx, "course-images", "a.png"))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(config.StorageConfig{Dir: t.TempDir()})
	require.NoError(t, err)

	for _, name := range []string{"../x.png", "..", "", "a/b.png"} {
		_, err := s.Put(context.Background(), "course-images", name, "image/png", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}
