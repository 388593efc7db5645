package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"datasetapi/internal/model"
	"datasetapi/internal/storage"
)

const (
	processedDir    = "processed"
	artifactType    = "text/csv"
	artifactMetaKey = "source-key"
)

var errAborted = errors.New("artifact write aborted")

// Artifacts writes, reads and removes canonical CSV artifacts.
type Artifacts struct {
	store storage.Storage
	now   func() time.Time
}

func NewArtifacts(store storage.Storage) *Artifacts {
	return &Artifacts{store: store, now: time.Now}
}

// artifactKey places the artifact in a processed directory beside the upload.
// The timestamp alone is not unique across concurrent uploads, so a random
// UUID is appended.
func artifactKey(uploadKey string, now time.Time) string {
	name := fmt.Sprintf("processed_%d_%s.csv", now.UnixMilli(), uuid.NewString())
	return path.Join(path.Dir(uploadKey), processedDir, name)
}

type putResult struct {
	info storage.ObjectInfo
	err  error
}

// ArtifactWriter streams CSV rows into storage. Exactly one of Commit or
// Abort must be called.
type ArtifactWriter struct {
	ctx      context.Context
	store    storage.Storage
	key      string
	columns  []string
	pw       *io.PipeWriter
	cw       *csv.Writer
	done     chan putResult
	record   []string
	finished bool
}

// Create starts an artifact for the upload stored at uploadKey and writes
// the header row.
func (a *Artifacts) Create(ctx context.Context, uploadKey string, columns []string) (*ArtifactWriter, error) {
	key := artifactKey(uploadKey, a.now())
	pr, pw := io.Pipe()
	w := &ArtifactWriter{
		ctx:     ctx,
		store:   a.store,
		key:     key,
		columns: columns,
		pw:      pw,
		cw:      csv.NewWriter(pw),
		done:    make(chan putResult, 1),
		record:  make([]string, len(columns)),
	}

	go func() {
		info, err := a.store.Put(ctx, key, pr, storage.PutObjectOptions{
			Size:        -1,
			ContentType: artifactType,
			Metadata:    map[string]string{artifactMetaKey: uploadKey},
		})
		// Unblock the writer side if Put stopped reading early.
		pr.CloseWithError(err)
		w.done <- putResult{info: info, err: err}
	}()

	if err := w.cw.Write(columns); err != nil {
		w.Abort()
		return nil, w.failure("write artifact header", err)
	}
	return w, nil
}

// Key returns the reference the artifact will have once committed.
func (w *ArtifactWriter) Key() string { return w.key }

// WriteRow appends one row in column order.
func (w *ArtifactWriter) WriteRow(row model.Row) error {
	for i, c := range w.columns {
		w.record[i] = row[c].String()
	}
	if err := w.cw.Write(w.record); err != nil {
		return w.failure("write artifact", err)
	}
	return nil
}

// failure classifies a write error. Storage stops reading once the run's
// context ends, so that case is reported as an interruption.
func (w *ArtifactWriter) failure(op string, err error) error {
	if ctxErr := w.ctx.Err(); ctxErr != nil {
		return interrupted(ctxErr)
	}
	return model.E(model.KindFilesystem, op, "", err)
}

// Commit flushes the remaining rows and waits for storage to persist the
// object. On failure nothing is left under the key.
func (w *ArtifactWriter) Commit() (string, error) {
	if w.finished {
		return "", model.E(model.KindFilesystem, "commit artifact", "writer already finished", nil)
	}
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		w.Abort()
		return "", w.failure("commit artifact", err)
	}
	w.finished = true
	_ = w.pw.Close()
	res := <-w.done
	if res.err != nil {
		return "", w.failure("commit artifact", res.err)
	}
	return w.key, nil
}

// Abort discards the artifact. It is safe to call after Commit.
func (w *ArtifactWriter) Abort() {
	if w.finished {
		return
	}
	w.finished = true
	w.pw.CloseWithError(errAborted)
	if res := <-w.done; res.err == nil {
		// Storage accepted the object before seeing the abort.
		_ = w.store.Delete(context.WithoutCancel(w.ctx), w.key)
	}
}

// Open returns the artifact content for ref.
func (a *Artifacts) Open(ctx context.Context, ref string) (io.ReadCloser, storage.ObjectInfo, error) {
	if ref == "" {
		return nil, storage.ObjectInfo{}, model.E(model.KindNotFound, "read artifact", "empty artifact reference", nil)
	}
	rc, info, err := a.store.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, model.E(model.KindNotFound, "read artifact", "artifact "+ref+" not found", err)
		}
		return nil, storage.ObjectInfo{}, model.E(model.KindFilesystem, "read artifact", "", err)
	}
	return rc, info, nil
}

// Remove deletes the artifact for ref. A missing artifact is not an error.
func (a *Artifacts) Remove(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if err := a.store.Delete(ctx, ref); err != nil {
		return model.E(model.KindFilesystem, "delete artifact", "", err)
	}
	return nil
}
