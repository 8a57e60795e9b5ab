//go:generate go run go.uber.org/mock/mockgen -source=disk.go -destination=../mocks/mock_attachment_store.go -package=mocks
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// IAttachmentStore writes attachment bytes and returns a stable reference
// clients can use to fetch them back later.
type IAttachmentStore interface {
	Store(originalName string, data []byte) (string, error)
}

// DiskStore keeps attachments as flat files under a single directory,
// served back over HTTP as static content.
type DiskStore struct {
	dir string
	log *slog.Logger
	seq atomic.Uint64
}

func NewDiskStore(dir string, log *slog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attachment directory: %w", err)
	}
	return &DiskStore{dir: dir, log: log}, nil
}

// Store writes the bytes under a collision-resistant name: a nanosecond
// timestamp, a process-local sequence number, and the original extension.
// When the client-supplied name has no extension, the content type is
// sniffed instead so the reference stays usable in a browser.
func (s *DiskStore) Store(originalName string, data []byte) (string, error) {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = mimetype.Detect(data).Extension()
	}
	name := fmt.Sprintf("%d-%d%s", time.Now().UnixNano(), s.seq.Add(1), ext)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	s.log.Debug("Attachment stored", "path", path, "bytes", len(data))
	return name, nil
}

// Dir exposes the storage root so the HTTP layer can serve it statically.
func (s *DiskStore) Dir() string {
	return s.dir
}
