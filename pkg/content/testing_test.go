package content_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/calvinalkan/sitecontent/pkg/content"
)

// -----------------------------------------------------------------------------
// Raw record fixtures
// -----------------------------------------------------------------------------

func memberFields(id string) map[string]any {
	return map[string]any{
		"id":   id,
		"name": "Member " + id,
		"role": "Engineer",
	}
}

func member(id string) content.RawRecord {
	return content.RawRecord{Source: "team/" + id + ".json", Fields: memberFields(id)}
}

func productFields(id, status string) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        "Product " + id,
		"description": "Does things.",
		"url":         "https://example.com/" + id,
		"status":      status,
	}
}

func product(id, status string) content.RawRecord {
	return content.RawRecord{Source: "products/" + id + ".json", Fields: productFields(id, status)}
}

// postText renders a markdown document with a YAML front-matter block.
func postText(title, difficulty string, tags ...string) string {
	var b strings.Builder

	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", title)
	b.WriteString("description: A post.\n")
	b.WriteString("date: 2024-05-01\n")
	b.WriteString("author: Ann\n")
	fmt.Fprintf(&b, "difficulty: %s\n", difficulty)

	if len(tags) > 0 {
		b.WriteString("tags:\n")

		for _, tag := range tags {
			fmt.Fprintf(&b, "  - %s\n", tag)
		}
	}

	b.WriteString("---\n\nBody of " + title + ".\n")

	return b.String()
}

// post returns a document whose id is the stem of name.
func post(name, title, difficulty string, tags ...string) content.RawRecord {
	return content.RawRecord{Source: "blog/" + name + ".md", Text: postText(title, difficulty, tags...)}
}

func newEngine(t *testing.T, opts ...content.Option) *content.Engine {
	t.Helper()

	return content.New(content.DefaultRegistry(), opts...)
}

func schemaOf(t *testing.T, kind content.Kind) content.Schema {
	t.Helper()

	s, err := content.DefaultRegistry().Schema(kind)
	if err != nil {
		t.Fatalf("schema %s: %v", kind, err)
	}

	return s
}

// queryOver publishes c alone and returns a Query over it.
func queryOver(t *testing.T, c *content.Collection) *content.Query {
	t.Helper()

	store := content.NewStore([]content.Kind{c.Kind()}, nil)

	_, err := store.Publish(map[content.Kind]*content.Collection{c.Kind(): c})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	return content.NewQuery(store)
}

func ids(records []content.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}

	return out
}

func ptr[T any](v T) *T { return &v }

func errorsFor(t *testing.T, errs []error) []*content.Error {
	t.Helper()

	out := make([]*content.Error, 0, len(errs))

	for _, err := range errs {
		cErr, ok := err.(*content.Error) //nolint:errorlint // record errors are always *Error at the top level
		if !ok {
			t.Fatalf("error %v is %T, want *content.Error", err, err)
		}

		out = append(out, cErr)
	}

	return out
}
