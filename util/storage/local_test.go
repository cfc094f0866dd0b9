package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l := NewLocal(t.TempDir(), "uploads/")
	l.now = func() time.Time { return time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC) }
	return l
}

func TestLocalStoreAndOpen(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	ref, err := l.Store(ctx, Object{Data: pngBytes, Filename: "pothole.png", ContentType: "image/png", Folder: "road"})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/road/2024-03-01T10-20-30_pothole.png", ref)
	assert.Equal(t, KindLocal, KindOf(ref))

	rc, err := l.Open(ref)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestLocalDelete(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	ref, err := l.Store(ctx, Object{Data: pngBytes, Filename: "a.png", Folder: "other"})
	require.NoError(t, err)

	require.NoError(t, l.Delete(ctx, ref))
	_, err = os.Stat(filepath.Join(l.Root(), "other", "2024-03-01T10-20-30_a.png"))
	assert.True(t, os.IsNotExist(err))

	// already gone is fine
	assert.NoError(t, l.Delete(ctx, ref))
}

func TestLocalRelocate(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	ref, err := l.Store(ctx, Object{Data: pngBytes, Filename: "lamp.png", Folder: "street_light"})
	require.NoError(t, err)

	newRef, err := l.Relocate(ctx, ref, "other")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/other/2024-03-01T10-20-30_lamp.png", newRef)

	_, err = os.Stat(filepath.Join(l.Root(), "street_light", "2024-03-01T10-20-30_lamp.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(l.Root(), "other", "2024-03-01T10-20-30_lamp.png"))
	assert.NoError(t, err)

	_, err = l.Relocate(ctx, ref, "road")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalRelocateFallsBackToCopy(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()
	l.rename = func(string, string) error { return errors.New("invalid cross-device link") }

	ref, err := l.Store(ctx, Object{Data: pngBytes, Filename: "lamp.png", Folder: "street_light"})
	require.NoError(t, err)

	newRef, err := l.Relocate(ctx, ref, "other")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/other/2024-03-01T10-20-30_lamp.png", newRef)
	_, err = os.Stat(filepath.Join(l.Root(), "street_light", "2024-03-01T10-20-30_lamp.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalRelocateRemovesCopyWhenSourceStays(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()
	l.rename = func(string, string) error { return errors.New("invalid cross-device link") }
	l.remove = func(string) error { return errors.New("permission denied") }

	ref, err := l.Store(ctx, Object{Data: pngBytes, Filename: "lamp.png", Folder: "street_light"})
	require.NoError(t, err)

	_, err = l.Relocate(ctx, ref, "other")
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(l.Root(), "street_light", "2024-03-01T10-20-30_lamp.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(l.Root(), "other", "2024-03-01T10-20-30_lamp.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewLocalEmptyPrefix(t *testing.T) {
	for _, prefix := range []string{"", "/", "//"} {
		l := NewLocal(t.TempDir(), prefix)
		assert.Equal(t, DefaultURLPrefix, l.Prefix(), prefix)

		ref, err := l.Store(context.Background(), Object{Data: pngBytes, Filename: "a.png", Folder: "road"})
		require.NoError(t, err)
		_, err = l.Path(ref)
		require.NoError(t, err, ref)
		assert.NoError(t, l.Delete(context.Background(), ref))
	}
}

func TestLocalPathRejectsForeignReferences(t *testing.T) {
	l := newTestLocal(t)

	for _, ref := range []string{
		"/uploads/../etc/passwd",
		"/uploads/",
		"/static/road/a.jpg",
		"https://storage.googleapis.com/bucket/uploads/road/a.jpg",
	} {
		_, err := l.Path(ref)
		assert.True(t, errors.Is(err, ErrUnrecognizedReference), ref)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.png")
	require.NoError(t, os.WriteFile(src, pngBytes, 0o644))

	require.NoError(t, copyFile(src, dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}
