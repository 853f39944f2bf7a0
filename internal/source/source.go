// Package source loads raw site content from a directory tree.
//
// Each content kind lives in its own directory. Structured kinds are JSON
// (or HuJSON) files holding one object or an array of objects; documents are
// markdown files with a front-matter block, searched recursively:
//
//	content/
//	  team/ada.json
//	  products/all.json        [{...}, {...}]
//	  blog/2024/hello-world.md
//
// Records are returned in path order so that rebuilds over the same tree
// submit records in the same order.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/sitecontent/pkg/content"
)

// Location is where one kind's files live, relative to the content root.
type Location struct {
	Dir string `json:"dir"`
	Ext string `json:"ext"`
}

// Layout maps every kind to its location.
type Layout map[content.Kind]Location

// DefaultLayout returns the standard site layout.
func DefaultLayout() Layout {
	return Layout{
		content.KindTeamMember: {Dir: "team", Ext: ".json"},
		content.KindProduct:    {Dir: "products", Ext: ".json"},
		content.KindDocument:   {Dir: "blog", Ext: ".md"},
	}
}

// Merge returns l with the entries of overlay applied on top. Empty fields
// in overlay keep the base value.
func (l Layout) Merge(overlay Layout) Layout {
	out := make(Layout, len(l)+len(overlay))

	for k, loc := range l {
		out[k] = loc
	}

	for k, loc := range overlay {
		base := out[k]

		if loc.Dir != "" {
			base.Dir = loc.Dir
		}

		if loc.Ext != "" {
			base.Ext = loc.Ext
		}

		out[k] = base
	}

	return out
}

// Dirs returns the absolute directories of the layout under root, sorted.
func (l Layout) Dirs(root string) []string {
	dirs := make([]string, 0, len(l))
	for _, loc := range l {
		dirs = append(dirs, filepath.Join(root, loc.Dir))
	}

	slices.Sort(dirs)

	return slices.Compact(dirs)
}

// Validate checks that every kind is known and every location names a
// directory and an extension.
func (l Layout) Validate() error {
	var errs []error

	for _, kind := range sortedKinds(l) {
		loc := l[kind]

		if _, err := content.ParseKind(string(kind)); err != nil {
			errs = append(errs, fmt.Errorf("layout: %w", err))
		}

		if loc.Dir == "" {
			errs = append(errs, fmt.Errorf("layout %s: dir is empty", kind))
		}

		if !strings.HasPrefix(loc.Ext, ".") {
			errs = append(errs, fmt.Errorf("layout %s: ext %q must start with a dot", kind, loc.Ext))
		}
	}

	return errors.Join(errs...)
}

// Result is the outcome of [Load].
type Result struct {
	// Records holds the raw records per kind, in path order. Every kind of
	// the layout has an entry, possibly empty.
	Records map[content.Kind][]content.RawRecord

	// Problems lists files that could not be read or decoded. Those files
	// contribute no records.
	Problems []error

	// Files is the number of files read.
	Files int
}

// Load reads every kind of layout under root.
//
// A missing kind directory yields no records for that kind. Files and
// directories whose name starts with "." or "_" are skipped.
func Load(root string, layout Layout) (Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Result{}, fmt.Errorf("load content: %w", err)
	}

	if !info.IsDir() {
		return Result{}, fmt.Errorf("load content: %s is not a directory", root)
	}

	res := Result{Records: make(map[content.Kind][]content.RawRecord, len(layout))}

	for _, kind := range sortedKinds(layout) {
		loc := layout[kind]

		paths, err := listFiles(filepath.Join(root, loc.Dir), loc.Ext)
		if err != nil {
			return Result{}, fmt.Errorf("load content: %s: %w", kind, err)
		}

		records := []content.RawRecord{}

		for _, path := range paths {
			rel := relSource(root, path)
			res.Files++

			data, err := os.ReadFile(path) //nolint:gosec // path comes from walking the content root
			if err != nil {
				res.Problems = append(res.Problems, fmt.Errorf("%s: %w", rel, err))

				continue
			}

			if kind == content.KindDocument && !strings.EqualFold(loc.Ext, ".json") {
				records = append(records, content.RawRecord{Source: rel, Text: string(data)})

				continue
			}

			decoded, err := DecodeRecords(rel, data)
			if err != nil {
				res.Problems = append(res.Problems, err)

				continue
			}

			records = append(records, decoded...)
		}

		res.Records[kind] = records
	}

	return res, nil
}

// DecodeRecords decodes a HuJSON file holding one record object or an array
// of them. Numbers are kept as [json.Number]. Array elements get the source
// "<source>#<index>".
func DecodeRecords(source string, data []byte) ([]content.RawRecord, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.UseNumber()

	var doc any

	err = dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	switch typed := doc.(type) {
	case map[string]any:
		return []content.RawRecord{{Source: source, Fields: typed}}, nil
	case []any:
		out := make([]content.RawRecord, 0, len(typed))

		for i, item := range typed {
			fields, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: element %d is not an object", source, i)
			}

			out = append(out, content.RawRecord{Source: fmt.Sprintf("%s#%d", source, i), Fields: fields})
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%s: want object or array of objects", source)
	}
}

func listFiles(dir, ext string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}

			return err
		}

		if path != dir && skipped(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ext) {
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(paths)

	return paths, nil
}

func skipped(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func relSource(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}

	return filepath.ToSlash(rel)
}

func sortedKinds(l Layout) []content.Kind {
	kinds := make([]content.Kind, 0, len(l))
	for k := range l {
		kinds = append(kinds, k)
	}

	slices.Sort(kinds)

	return kinds
}
