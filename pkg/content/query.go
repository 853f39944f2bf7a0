package content

import (
	"time"

	"github.com/google/uuid"
)

// Query is the read-only API over the current snapshot.
//
// Every call reads the snapshot current at call time and never blocks on a
// build. Returned values are copies the caller may modify. Absence (unknown
// id, kind, tag or slug) is an empty result, never an error.
type Query struct {
	snapshot func() *Snapshot
}

// NewQuery returns a Query over store.
func NewQuery(store *Store) *Query {
	return &Query{snapshot: store.Current}
}

// Pin returns a Query bound to the snapshot current right now. Use it when
// several reads must observe the same content, such as an export.
func (q *Query) Pin() *Query {
	snap := q.snapshot()

	return &Query{snapshot: func() *Snapshot { return snap }}
}

// SnapshotID returns the id of the current snapshot.
func (q *Query) SnapshotID() uuid.UUID {
	return q.snapshot().ID()
}

// BuiltAt returns when the current snapshot was published.
func (q *Query) BuiltAt() time.Time {
	return q.snapshot().BuiltAt()
}

// Kinds returns the kinds in the current snapshot.
func (q *Query) Kinds() []Kind {
	return q.snapshot().Kinds()
}

// GetByID returns the record of kind with id.
func (q *Query) GetByID(kind Kind, id string) (Record, bool) {
	c := q.snapshot().collection(kind)
	if c == nil {
		return Record{}, false
	}

	d, ok := c.lookup(id)
	if !ok {
		return Record{}, false
	}

	return d.Record.clone(), true
}

// ListByOrder returns up to limit records of kind starting at offset, in
// order-field order (records without order last, ties by id). offset and
// limit are clamped to the collection bounds.
func (q *Query) ListByOrder(kind Kind, offset, limit int) []Record {
	docs := q.listDocuments(kind, offset, limit)

	return records(docs)
}

// ListDocuments is [Query.ListByOrder] for documents, including slug and body.
func (q *Query) ListDocuments(offset, limit int) []Document {
	return q.listDocuments(KindDocument, offset, limit)
}

func (q *Query) listDocuments(kind Kind, offset, limit int) []Document {
	c := q.snapshot().collection(kind)
	if c == nil {
		return []Document{}
	}

	n := len(c.index.byOrder)
	start := clamp(offset, 0, n)
	end := start + clamp(limit, 0, n-start)

	return resolve(c, c.index.byOrder[start:end])
}

// FilterByTag returns the records of kind tagged tag, in submission order.
// Tags match exactly.
func (q *Query) FilterByTag(kind Kind, tag string) []Record {
	c := q.snapshot().collection(kind)
	if c == nil {
		return []Record{}
	}

	return records(resolve(c, c.index.byTag[tag]))
}

// FilterByDifficulty returns the records of kind with the given difficulty,
// in submission order.
func (q *Query) FilterByDifficulty(kind Kind, difficulty string) []Record {
	c := q.snapshot().collection(kind)
	if c == nil {
		return []Record{}
	}

	return records(resolve(c, c.index.byDifficulty[difficulty]))
}

// GetDocumentBySlug returns the document with slug.
func (q *Query) GetDocumentBySlug(slug string) (Document, bool) {
	c := q.snapshot().collection(KindDocument)
	if c == nil {
		return Document{}, false
	}

	d, ok := c.lookupSlug(slug)
	if !ok {
		return Document{}, false
	}

	return d.clone(), true
}

// Count returns the number of records of kind.
func (q *Query) Count(kind Kind) int {
	c := q.snapshot().collection(kind)
	if c == nil {
		return 0
	}

	return c.Len()
}

// Tags returns the distinct tags used by kind, sorted.
func (q *Query) Tags(kind Kind) []string {
	c := q.snapshot().collection(kind)
	if c == nil {
		return []string{}
	}

	return sortedKeys(c.index.byTag)
}

// TagCounts returns how many records of kind carry each tag.
func (q *Query) TagCounts(kind Kind) map[string]int {
	out := map[string]int{}

	c := q.snapshot().collection(kind)
	if c == nil {
		return out
	}

	for tag, ids := range c.index.byTag {
		out[tag] = len(ids)
	}

	return out
}

func resolve(c *Collection, ids []string) []Document {
	out := make([]Document, 0, len(ids))

	for _, id := range ids {
		d, ok := c.lookup(id)
		if ok {
			out = append(out, d.clone())
		}
	}

	return out
}

func records(docs []Document) []Record {
	out := make([]Record, len(docs))
	for i, d := range docs {
		out[i] = d.Record
	}

	return out
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
