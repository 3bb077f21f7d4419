package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAdapter_ListObjects(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	adapter := NewLocalAdapter()
	var names []string
	err := adapter.ListObjects(context.Background(), "", dir, func(name string) error {
		names = append(names, name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, names)

	stop := errors.New("stop")
	err = adapter.ListObjects(context.Background(), "", dir, func(string) error { return stop })
	assert.ErrorIs(t, err, stop)

	err = adapter.ListObjects(context.Background(), "", filepath.Join(dir, "missing"), func(string) error { return nil })
	assert.Error(t, err)
}

func TestLocalAdapter_Exists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("x"), 0o644))
	adapter := NewLocalAdapter()
	ctx := context.Background()

	ok, err := adapter.Exists(ctx, dir, "a.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = adapter.Exists(ctx, "", filepath.Join(dir, "a.csv"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = adapter.Exists(ctx, dir, "b.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = adapter.Exists(ctx, "", dir)
	require.NoError(t, err)
	assert.False(t, ok, "directories are not objects")
}
