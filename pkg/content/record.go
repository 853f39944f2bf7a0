package content

import (
	"encoding/json"
	"maps"
	"path"
	"slices"
	"strings"
)

// RawRecord is one unvalidated record as delivered by the content storage.
//
// Structured kinds (team members, products) populate Fields. Documents
// populate Text with the full markdown file including its metadata block.
// Source is opaque to the engine and only used in error reports (and, for
// documents, optionally to derive the id; see [Schema.IDFromSource]).
type RawRecord struct {
	Source string
	Fields map[string]any
	Text   string
}

// Record is a validated content record.
//
// Fields holds every field of the raw record, declared or not. List values
// are normalized to []string; all other values are kept as submitted.
// Order is nil when the record has no order field.
type Record struct {
	Kind   Kind
	ID     string
	Order  *int64
	Fields map[string]any
	Source string
}

// StringField returns the string value of a field.
func (r Record) StringField(field string) string {
	s, _ := r.Fields[field].(string)

	return s
}

// ListField returns the list value of a field.
func (r Record) ListField(field string) []string {
	l, _ := r.Fields[field].([]string)

	return l
}

// Tags returns the record's tags.
func (r Record) Tags() []string {
	return r.ListField(tagsField)
}

func (r Record) clone() Record {
	out := r
	out.Fields = cloneFields(r.Fields)

	if r.Order != nil {
		o := *r.Order
		out.Order = &o
	}

	return out
}

// MarshalJSON renders the record as its fields plus id and order, which is the
// shape the website renderer consumes.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	maps.Copy(out, r.Fields)
	out["id"] = r.ID

	if r.Order != nil {
		out["order"] = *r.Order
	}

	return json.Marshal(out)
}

// Document is a validated markdown record.
//
// Record.Fields holds the front matter. Body is the markdown after the
// metadata block, never interpreted by the engine. Slug is derived from the
// id (or title) and unique across all documents.
type Document struct {
	Record

	Slug string
	Body string
}

// FrontMatter returns the document's metadata fields.
func (d Document) FrontMatter() map[string]any {
	return d.Fields
}

// Title returns the title field.
func (d Document) Title() string {
	return d.StringField(titleField)
}

// Difficulty returns the difficulty field.
func (d Document) Difficulty() string {
	return d.StringField(difficultyField)
}

func (d Document) clone() Document {
	d.Record = d.Record.clone()

	return d
}

// MarshalJSON renders the document as its record plus slug and body.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+4)
	maps.Copy(out, d.Fields)
	out["id"] = d.ID
	out["slug"] = d.Slug
	out["body"] = d.Body

	if d.Order != nil {
		out["order"] = *d.Order
	}

	return json.Marshal(out)
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}

	out := make(map[string]any, len(fields))

	for k, v := range fields {
		out[k] = cloneValue(v)
	}

	return out
}

// cloneValue deep-copies the containers decoded content can hold. Scalars
// are returned as is.
func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneFields(typed)
	case []any:
		if typed == nil {
			return typed
		}

		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}

		return out
	case []string:
		return slices.Clone(typed)
	default:
		return v
	}
}

// Slugify lowercases s and replaces every run of characters outside [a-z0-9]
// with a single hyphen, trimming hyphens at both ends. The result is safe to
// use as a URL path segment; it may be empty.
func Slugify(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	pendingHyphen := false

	for _, r := range strings.ToLower(s) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0

			continue
		}

		if pendingHyphen {
			b.WriteByte('-')

			pendingHyphen = false
		}

		b.WriteRune(r)
	}

	return b.String()
}

// sourceStem returns the file name of source without directory and extension.
func sourceStem(source string) string {
	base := path.Base(strings.ReplaceAll(source, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}

	return strings.TrimSuffix(base, path.Ext(base))
}
