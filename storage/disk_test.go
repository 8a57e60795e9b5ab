package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Store_Preserves_Extension(t *testing.T) {
	req := require.New(t)
	store, err := NewDiskStore(t.TempDir(), slog.Default())
	req.NoError(err)

	ref, err := store.Store("holiday.png", []byte("not really a png"))
	req.NoError(err)
	req.True(strings.HasSuffix(ref, ".png"))

	content, err := os.ReadFile(filepath.Join(store.Dir(), ref))
	req.NoError(err)
	req.Equal([]byte("not really a png"), content)
}

func Test_Store_Sniffs_Missing_Extension(t *testing.T) {
	req := require.New(t)
	store, err := NewDiskStore(t.TempDir(), slog.Default())
	req.NoError(err)

	// PNG magic bytes, no extension on the client name
	png := []byte("\x89PNG\r\n\x1a\n")
	ref, err := store.Store("attachment", png)
	req.NoError(err)
	req.True(strings.HasSuffix(ref, ".png"))
}

func Test_Store_References_Are_Distinct(t *testing.T) {
	req := require.New(t)
	store, err := NewDiskStore(t.TempDir(), slog.Default())
	req.NoError(err)

	refA, err := store.Store("a.txt", []byte("a"))
	req.NoError(err)
	refB, err := store.Store("b.txt", []byte("b"))
	req.NoError(err)
	req.NotEqual(refA, refB)
}
