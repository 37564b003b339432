package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/logger"
	"github.com/kbukum/chunkscribe/storage"
	"github.com/kbukum/chunkscribe/transcript"
)

// Exporter publishes a metadata document for each finalized transcript.
type Exporter struct {
	store storage.Storage
	log   *logger.Logger
}

// NewExporter creates an Exporter writing to store.
func NewExporter(store storage.Storage, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Exporter{store: store, log: log.WithComponent("exporter")}
}

// Export reads the transcript back, renders its metadata document and
// uploads it under the document's object key, which it returns.
func (e *Exporter) Export(ctx context.Context, transcriptPath string) (string, error) {
	f, err := os.Open(transcriptPath)
	if err != nil {
		return "", errors.IOFailure("open transcript", transcriptPath, err)
	}
	defer f.Close()

	chunks, err := transcript.Parse(f)
	if err != nil {
		return "", err
	}
	meta := transcript.NewMetadata(transcriptPath, chunks)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errors.Internal(err)
	}
	key := meta.ObjectKey()
	if err := e.store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		e.log.Warn("metadata export failed", logger.MergeWithError(logger.Fields("key", key), err))
		return "", err
	}
	e.log.Debug("metadata exported", logger.Fields("key", key, logger.FieldChunks, len(chunks)))
	return key, nil
}
