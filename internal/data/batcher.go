package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	parquetw "github.com/ylwdream/panko/internal/compression"
	"github.com/ylwdream/panko/internal/model"
	"github.com/ylwdream/panko/internal/storage"
)

type Record = model.ArchiveRecord

// Batcher buffers archive records and flushes them as one parquet part per
// batch. Not goroutine-safe; the archive loader drives it from a single
// loop.
type Batcher struct {
	MaxRecords  int
	MaxBytes    int64
	MaxInterval time.Duration

	resetTime time.Time
	buf       []Record
	bytes     int64

	Store    *storage.ObjectStore
	BasePath string
	Compress string
}

func NewBatcher(maxRecords int, maxBytes int64, maxInterval time.Duration,
	store *storage.ObjectStore, basePath, compression string) *Batcher {
	b := &Batcher{
		MaxRecords:  maxRecords,
		MaxBytes:    maxBytes,
		MaxInterval: maxInterval,
		Store:       store,
		BasePath:    basePath,
		Compress:    compression,
		resetTime:   time.Now().UTC(),
	}
	if maxRecords > 0 {
		b.buf = make([]Record, 0, maxRecords)
	}
	return b
}

// Add buffers one record and reports whether the size limits are reached.
func (b *Batcher) Add(r Record) bool {
	b.buf = append(b.buf, r)
	b.bytes += recordBytes(&r)
	return len(b.buf) >= b.MaxRecords || b.bytes >= b.MaxBytes
}

func (b *Batcher) ShouldFlushByInterval() bool {
	return len(b.buf) > 0 && time.Since(b.resetTime) >= b.MaxInterval
}

func (b *Batcher) Len() int { return len(b.buf) }

// Flush writes the buffered records into a parquet part in the temp dir,
// uploads it, and resets the buffer. Offsets must only be committed after a
// successful flush.
func (b *Batcher) Flush(ctx context.Context) (int, error) {
	n := len(b.buf)
	if n == 0 {
		return 0, nil
	}

	ts := time.Now().UTC()
	fn := fmt.Sprintf("part-%s-%s.parquet", ts.Format("2006-01-02T15-04-05Z"), uuid.NewString())
	tmp := filepath.Join(os.TempDir(), fn)

	pw, closeFn, err := parquetw.NewLocalParquetWriter[Record](tmp, 4, b.Compress)
	if err != nil {
		return 0, err
	}

	for i := range b.buf {
		if err := pw.Write(b.buf[i]); err != nil {
			_ = closeFn()
			return 0, err
		}
	}

	if err := closeFn(); err != nil {
		return 0, err
	}

	f, err := os.Open(tmp)
	if err != nil {
		return 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return 0, err
	}

	objPath := storage.BuildObjectPath(b.BasePath, ts, fn)
	if err := b.Store.Upload(ctx, objPath, f, fi.Size(), "application/octet-stream"); err != nil {
		_ = f.Close()
		return 0, err
	}
	_ = f.Close()
	_ = os.Remove(tmp)

	b.buf = b.buf[:0]
	b.bytes = 0
	b.resetTime = time.Now().UTC()

	return n, nil
}

// ToRecord flattens a sample for the columnar archive schema. Resource
// metadata stays as raw JSON in its own column.
func ToRecord(s *model.Sample) Record {
	var userID string
	if s.UserID != nil {
		userID = *s.UserID
	}
	ts := time.Now().UTC()
	if s.Timestamp != nil {
		ts = *s.Timestamp
	}
	var metadata string
	if len(s.ResourceMetadata) > 0 {
		if buf, err := json.Marshal(s.ResourceMetadata); err == nil {
			metadata = string(buf)
		}
	}
	return Record{
		Name:             s.Name,
		Type:             string(s.Type),
		Unit:             s.Unit,
		Volume:           s.Volume,
		UserID:           userID,
		ProjectID:        s.ProjectID,
		ResourceID:       s.ResourceID,
		MessageID:        s.MessageID,
		EventType:        s.EventType,
		Timestamp:        model.ToMillis(ts),
		ResourceMetadata: metadata,
	}
}

// recordBytes approximates the in-memory footprint for the byte threshold.
func recordBytes(r *Record) int64 {
	return int64(len(r.Name) + len(r.Type) + len(r.Unit) +
		len(r.UserID) + len(r.ProjectID) + len(r.ResourceID) +
		len(r.MessageID) + len(r.EventType) + len(r.ResourceMetadata) + 16)
}
