// Package export materializes a content snapshot for the website renderer.
//
// Exports read exclusively through a pinned [content.Query], so every file
// reflects exactly one snapshot even while rebuilds publish new ones.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/sitecontent/pkg/content"
)

// JSONFile is the name of the JSON export inside the export directory.
const JSONFile = "content.json"

// Bundle is the JSON export payload.
type Bundle struct {
	SnapshotID string                    `json:"snapshot_id"`
	BuiltAt    time.Time                 `json:"built_at"`
	Kinds      map[content.Kind][]any    `json:"kinds"`
	Counts     map[content.Kind]int      `json:"counts"`
	Tags       map[content.Kind][]string `json:"tags"`
}

// NewBundle collects every record of the snapshot q is bound to. Records are
// listed in order-field order; documents include slug and body.
func NewBundle(q *content.Query) Bundle {
	q = q.Pin()

	b := Bundle{
		SnapshotID: q.SnapshotID().String(),
		BuiltAt:    q.BuiltAt().UTC(),
		Kinds:      make(map[content.Kind][]any),
		Counts:     make(map[content.Kind]int),
		Tags:       make(map[content.Kind][]string),
	}

	for _, kind := range q.Kinds() {
		n := q.Count(kind)
		items := make([]any, 0, n)

		if kind == content.KindDocument {
			for _, d := range q.ListDocuments(0, n) {
				items = append(items, d)
			}
		} else {
			for _, r := range q.ListByOrder(kind, 0, n) {
				items = append(items, r)
			}
		}

		b.Kinds[kind] = items
		b.Counts[kind] = n
		b.Tags[kind] = q.Tags(kind)
	}

	return b
}

// WriteJSON writes the snapshot q is bound to as dir/content.json and returns
// the file path. The file is replaced atomically under an exclusive lock, so
// concurrent exporters never interleave and readers never see a partial file.
func WriteJSON(dir string, q *content.Query) (string, error) {
	err := os.MkdirAll(dir, dirPerms)
	if err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	err = enc.Encode(NewBundle(q))
	if err != nil {
		return "", fmt.Errorf("export: encode: %w", err)
	}

	path := filepath.Join(dir, JSONFile)

	err = withLock(path, func() error {
		writeErr := atomic.WriteFile(path, &buf)
		if writeErr != nil {
			return writeErr
		}

		// atomic.WriteFile keeps the temp file's 0600 mode.
		return os.Chmod(path, filePerms)
	})
	if err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}

	return path, nil
}
