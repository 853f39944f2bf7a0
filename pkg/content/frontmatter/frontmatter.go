// Package frontmatter separates the metadata block of a markdown document from
// its body.
//
// A document starts with a fence line, followed by the metadata block, followed
// by the same fence line, followed by the body:
//
//	---
//	title: Getting started with Go
//	date: 2024-03-01
//	tags: [go, beginners]
//	difficulty: beginner
//	---
//	Body text, passed through untouched.
//
// Two fences are recognized: "---" introduces YAML and "+++" introduces TOML.
// The block must decode to a flat mapping. Values are restricted to scalars
// (string, bool, int64, float64) and lists of strings. Nested mappings, lists
// of non-scalars and anchors are rejected as malformed. Null values decode to
// the empty string so that required-field checks treat them as missing.
//
// Dates and timestamps are kept as their literal text; interpreting them is
// the job of the schema validator.
package frontmatter

import (
	"errors"
	"fmt"
	"slices"
)

// ErrMalformed is matched (via [errors.Is]) by every error returned from [Split].
var ErrMalformed = errors.New("malformed front matter")

// Format identifies the syntax of a metadata block.
type Format uint8

// Supported block formats.
const (
	FormatYAML Format = iota + 1
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// FrontMatter is the decoded metadata block.
//
// Values are one of string, bool, int64, float64 or []string.
type FrontMatter map[string]any

// Keys returns the keys in lexicographic order.
func (fm FrontMatter) Keys() []string {
	keys := make([]string, 0, len(fm))
	for k := range fm {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// GetString returns the value for key when it is a string.
func (fm FrontMatter) GetString(key string) (string, bool) {
	s, ok := fm[key].(string)

	return s, ok
}

// GetList returns the value for key when it is a list of strings.
func (fm FrontMatter) GetList(key string) ([]string, bool) {
	l, ok := fm[key].([]string)

	return l, ok
}

// GetBool returns the value for key when it is a bool.
func (fm FrontMatter) GetBool(key string) (bool, bool) {
	b, ok := fm[key].(bool)

	return b, ok
}

// GetInt returns the value for key when it is an integer.
func (fm FrontMatter) GetInt(key string) (int64, bool) {
	i, ok := fm[key].(int64)

	return i, ok
}

// Clone returns a copy whose lists do not alias the receiver.
func (fm FrontMatter) Clone() FrontMatter {
	if fm == nil {
		return nil
	}

	out := make(FrontMatter, len(fm))
	for k, v := range fm {
		if l, ok := v.([]string); ok {
			v = slices.Clone(l)
		}

		out[k] = v
	}

	return out
}

// Error describes why a metadata block was rejected.
//
// Line is 1-based and counts from the start of the document, including the
// opening fence. Line is 0 when the decoder did not report a position.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}

	return e.Msg
}

// Is reports ErrMalformed as the sentinel for every *Error.
func (e *Error) Is(target error) bool {
	return target == ErrMalformed
}

func malformed(line int, format string, args ...any) error {
	return &Error{Line: line, Msg: fmt.Sprintf(format, args...)}
}
