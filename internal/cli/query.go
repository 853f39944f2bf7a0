package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/sitecontent/pkg/content"
)

const defaultLimit = 100

var errNotFound = errors.New("not found")

// GetCmd returns the get command.
func GetCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("get", flag.ContinueOnError),
		Usage: "get <kind> <id>",
		Short: "Print one record as JSON",
		Long:  "Print the record of <kind> with <id> as JSON. Documents include slug and body.",

		MinArgs: 2,
		MaxArgs: 2,

		Exec: func(_ context.Context, o *IO, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}

			q, err := a.query(o)
			if err != nil {
				return err
			}

			rec, ok := q.GetByID(kind, args[1])
			if !ok {
				return fmt.Errorf("%w: %s %q", errNotFound, kind, args[1])
			}

			if kind == content.KindDocument {
				if doc, ok := documentOf(q, rec); ok {
					return printJSON(o, doc)
				}
			}

			return printJSON(o, rec)
		},
	}
}

// documentOf finds the document for rec through its slug, which is derived
// from the id or, failing that, the title.
func documentOf(q *content.Query, rec content.Record) (content.Document, bool) {
	slug := content.Slugify(rec.ID)
	if slug == "" {
		slug = content.Slugify(rec.StringField("title"))
	}

	doc, ok := q.GetDocumentBySlug(slug)
	if !ok || doc.ID != rec.ID {
		return content.Document{}, false
	}

	return doc, true
}

// LsCmd returns the ls command.
func LsCmd(a *app) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	offset := fs.Int("offset", 0, "Skip first N records")
	limit := fs.Int("limit", defaultLimit, "Maximum records to show")
	asJSON := fs.Bool("json", false, "Print records as a JSON array")

	return &Command{
		Flags: fs,
		Usage: "ls <kind> [flags]",
		Short: "List records in display order",
		Long: `List the records of <kind> ordered by their order field (records without
one last, ties by id). Prints "id<TAB>title" lines unless --json is given.`,

		MinArgs: 1,
		MaxArgs: 1,

		Exec: func(_ context.Context, o *IO, args []string) error {
			if *offset < 0 || *limit < 0 {
				return fmt.Errorf("%w: --offset and --limit must be non-negative", errUsage)
			}

			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}

			q, err := a.query(o)
			if err != nil {
				return err
			}

			if kind == content.KindDocument && *asJSON {
				return printJSON(o, q.ListDocuments(*offset, *limit))
			}

			return printRecords(o, q.ListByOrder(kind, *offset, *limit), *asJSON)
		},
	}
}

// TagCmd returns the tag command.
func TagCmd(a *app) *Command {
	fs := flag.NewFlagSet("tag", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print records as a JSON array")

	return &Command{
		Flags: fs,
		Usage: "tag <kind> [tag]",
		Short: "List records with a tag, or all tags",
		Long: `With a tag, list the records of <kind> carrying it, in content order.
Without one, print every tag of <kind> with the number of records using it.`,

		MinArgs: 1,
		MaxArgs: 2,

		Exec: func(_ context.Context, o *IO, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}

			q, err := a.query(o)
			if err != nil {
				return err
			}

			if len(args) == 2 {
				return printRecords(o, q.FilterByTag(kind, args[1]), *asJSON)
			}

			counts := q.TagCounts(kind)
			if *asJSON {
				return printJSON(o, counts)
			}

			for _, tag := range q.Tags(kind) {
				o.Printf("%s\t%d\n", tag, counts[tag])
			}

			return nil
		},
	}
}

// DifficultyCmd returns the difficulty command.
func DifficultyCmd(a *app) *Command {
	fs := flag.NewFlagSet("difficulty", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print records as a JSON array")

	return &Command{
		Flags: fs,
		Usage: "difficulty <level>",
		Short: "List documents of a difficulty",

		MinArgs: 1,
		MaxArgs: 1,

		Exec: func(_ context.Context, o *IO, args []string) error {
			q, err := a.query(o)
			if err != nil {
				return err
			}

			return printRecords(o, q.FilterByDifficulty(content.KindDocument, args[0]), *asJSON)
		},
	}
}

// SlugCmd returns the slug command.
func SlugCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("slug", flag.ContinueOnError),
		Usage: "slug <slug>",
		Short: "Print the document with a slug as JSON",

		MinArgs: 1,
		MaxArgs: 1,

		Exec: func(_ context.Context, o *IO, args []string) error {
			q, err := a.query(o)
			if err != nil {
				return err
			}

			doc, ok := q.GetDocumentBySlug(args[0])
			if !ok {
				return fmt.Errorf("%w: document with slug %q", errNotFound, args[0])
			}

			return printJSON(o, doc)
		},
	}
}
