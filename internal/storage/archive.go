package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// UploadArchive keeps a copy of every raw upload so an ingestion can be replayed.
type UploadArchive struct {
	store ObjectStorage
	now   func() time.Time
}

func NewUploadArchive(store ObjectStorage) *UploadArchive {
	return &UploadArchive{store: store, now: time.Now}
}

// Key lays uploads out as uploads/<tenant>/<yyyy>/<mm>/<jobID>/<file>.
func (a *UploadArchive) Key(tenantID, jobID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.csv"
	}
	return path.Join("uploads", tenantID, a.now().UTC().Format("2006/01"), jobID, name)
}

// Save stores raw under key.
func (a *UploadArchive) Save(ctx context.Context, key string, raw []byte) error {
	return a.store.Upload(ctx, key, bytes.NewReader(raw), int64(len(raw)), "text/csv")
}

// Load reads an archived upload, refusing anything larger than maxBytes.
func (a *UploadArchive) Load(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	rc, err := a.store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read archived upload: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("archived upload %s exceeds %d bytes", key, maxBytes)
	}
	return raw, nil
}
