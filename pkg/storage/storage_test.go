package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("/answers/", "My Photo (1).PNG")
	require.True(t, strings.HasPrefix(key, "answers/"))
	require.True(t, strings.HasSuffix(key, ".png"))
	require.Contains(t, key, "My-Photo--1")

	require.NotEqual(t, ObjectKey("answers", "a.py"), ObjectKey("answers", "a.py"))
	require.Contains(t, ObjectKey("answers", "%%%.py"), "/upload-")
}

func TestLocalStorePutAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "/media/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "answers/2024/01/main.py", strings.NewReader("print(1)"), 8, "text/x-python")
	require.NoError(t, err)
	require.Equal(t, "/media/answers/2024/01/main.py", url)

	data, err := os.ReadFile(filepath.Join(root, "answers", "2024", "01", "main.py"))
	require.NoError(t, err)
	require.Equal(t, "print(1)", string(data))

	require.NoError(t, store.Delete(context.Background(), "answers/2024/01/main.py"))
	require.NoError(t, store.Delete(context.Background(), "answers/2024/01/main.py"))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(filepath.Join(root, "media"), "")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"), 1, "")
	require.NoError(t, err)
	require.Equal(t, "/uploads/etc/passwd", url)
	_, statErr := os.Stat(filepath.Join(root, "media", "etc", "passwd"))
	require.NoError(t, statErr)

	_, err = store.Put(context.Background(), "  ", strings.NewReader("x"), 1, "")
	require.ErrorIs(t, err, ErrInvalidKey)
}
