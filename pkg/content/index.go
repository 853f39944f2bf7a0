package content

import (
	"cmp"
	"fmt"
	"slices"
)

// Index is the derived lookup structure of a [Collection].
//
// Bucket order in byTag and byDifficulty follows submission order. byOrder is
// sorted by order ascending (records without order last), ties by id.
type Index struct {
	byID         map[string]int // id -> position in Collection.docs
	bySlug       map[string]int // documents only
	byTag        map[string][]string
	byDifficulty map[string][]string
	byOrder      []string
}

// Collection is the immutable, indexed set of records of one kind.
//
// Structured kinds store their records as [Document] values with empty Slug
// and Body.
type Collection struct {
	kind  Kind
	docs  []Document
	index Index
}

// Kind returns the collection's kind.
func (c *Collection) Kind() Kind { return c.kind }

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.docs) }

func emptyCollection(kind Kind) *Collection {
	return &Collection{
		kind: kind,
		index: Index{
			byID:         map[string]int{},
			bySlug:       map[string]int{},
			byTag:        map[string][]string{},
			byDifficulty: map[string][]string{},
		},
	}
}

func (c *Collection) lookup(id string) (Document, bool) {
	i, ok := c.index.byID[id]
	if !ok {
		return Document{}, false
	}

	return c.docs[i], true
}

func (c *Collection) lookupSlug(slug string) (Document, bool) {
	i, ok := c.index.bySlug[slug]
	if !ok {
		return Document{}, false
	}

	return c.docs[i], true
}

// Build deduplicates validated records of schema.Kind and indexes the
// survivors.
//
// When several records share an id (or, for documents, a slug) the winner is
// the one with the lowest order, records without order ranking last, then
// the one submitted first. Every loser is dropped and reported as an [*Error]
// wrapping [ErrDuplicateID] or [ErrDuplicateSlug]; the build itself never
// fails.
//
// Build is a pure function of its input: the same records in the same order
// always yield identical collections.
func Build(schema Schema, docs []Document) (*Collection, []error) {
	var errs []error

	survivors, dupErrs := dedupe(schema, docs, func(d Document) string { return d.ID }, ErrDuplicateID, schema.IDField)
	errs = append(errs, dupErrs...)

	if schema.Kind == KindDocument {
		survivors, dupErrs = dedupe(schema, survivors, func(d Document) string { return d.Slug }, ErrDuplicateSlug, "slug")
		errs = append(errs, dupErrs...)
	}

	c := emptyCollection(schema.Kind)
	c.docs = make([]Document, 0, len(survivors))

	for _, d := range survivors {
		c.index.byID[d.ID] = len(c.docs)
		if d.Slug != "" {
			c.index.bySlug[d.Slug] = len(c.docs)
		}

		c.docs = append(c.docs, d.clone())
	}

	for _, d := range c.docs {
		seen := make(map[string]bool)

		for _, tag := range d.Tags() {
			if seen[tag] {
				continue
			}

			seen[tag] = true
			c.index.byTag[tag] = append(c.index.byTag[tag], d.ID)
		}

		if diff := d.Difficulty(); diff != "" {
			c.index.byDifficulty[diff] = append(c.index.byDifficulty[diff], d.ID)
		}
	}

	ordered := slices.Clone(c.docs)
	slices.SortStableFunc(ordered, func(a, b Document) int {
		if n := compareOrder(a.Order, b.Order); n != 0 {
			return n
		}

		return cmp.Compare(a.ID, b.ID)
	})

	c.index.byOrder = make([]string, len(ordered))
	for i, d := range ordered {
		c.index.byOrder[i] = d.ID
	}

	return c, errs
}

// dedupe keeps one record per key and reports the rest. Survivors keep their
// submission order.
func dedupe(schema Schema, docs []Document, key func(Document) string, sentinel error, field string) ([]Document, []error) {
	winner := make(map[string]int, len(docs))

	for i, d := range docs {
		k := key(d)

		w, ok := winner[k]
		if !ok || compareOrder(d.Order, docs[w].Order) < 0 {
			winner[k] = i
		}
	}

	var (
		out  = make([]Document, 0, len(winner))
		errs []error
	)

	for i, d := range docs {
		w := winner[key(d)]
		if w == i {
			out = append(out, d)

			continue
		}

		errs = append(errs, &Error{
			Kind:   schema.Kind,
			ID:     d.ID,
			Source: d.Source,
			Field:  field,
			Err:    fmt.Errorf("%w: %q already taken by %s", sentinel, key(d), describe(docs[w])),
		})
	}

	return out, errs
}

// compareOrder orders by value ascending with nil last.
func compareOrder(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*a, *b)
	}
}

func describe(d Document) string {
	if d.Source != "" {
		return d.Source
	}

	return "id " + d.ID
}
