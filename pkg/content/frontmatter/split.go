package frontmatter

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	yamlFence       = "---"
	tomlFence       = "+++"
	defaultMaxLines = 200 // Default line limit; override with WithLineLimit.
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures [Split].
type Options struct {
	// LineLimit is the maximum number of lines inside the metadata block.
	// A value of 0 disables the limit.
	// Default: 200
	LineLimit int
}

// Option mutates Options.
type Option func(*Options)

// WithLineLimit sets the maximum number of metadata lines. Use 0 to disable
// the limit entirely.
func WithLineLimit(limit int) Option {
	return func(opts *Options) {
		if limit < 0 {
			limit = 0
		}

		opts.LineLimit = limit
	}
}

// Split separates the metadata block at the start of src from the body.
//
// The body starts on the line after the closing fence and is returned
// byte-for-byte. A leading UTF-8 byte order mark is ignored. An empty block
// ("---\n---\n") is valid and yields an empty FrontMatter.
//
// Errors match [ErrMalformed]: missing opening fence, unterminated fence,
// line limit exceeded, undecodable block, or values outside the supported
// shapes.
func Split(src []byte, opts ...Option) (FrontMatter, string, error) {
	options := applyOptions(opts)

	src = bytes.TrimPrefix(src, utf8BOM)
	lines := newLineReader(src)

	first, ok := lines.next()
	if !ok {
		return nil, "", malformed(1, "document is empty")
	}

	var format Format

	switch string(bytes.TrimRight(first.data, " \t")) {
	case yamlFence:
		format = FormatYAML
	case tomlFence:
		format = FormatTOML
	default:
		return nil, "", malformed(first.num, "missing opening fence (%q or %q)", yamlFence, tomlFence)
	}

	fence := first.data
	blockStart := lines.idx
	blockEnd := -1
	count := 0

	for {
		tok, ok := lines.next()
		if !ok {
			return nil, "", malformed(first.num, "unterminated %s fence %q", format, yamlOrToml(format))
		}

		if bytes.Equal(bytes.TrimRight(tok.data, " \t"), bytes.TrimRight(fence, " \t")) {
			blockEnd = tok.start

			break
		}

		count++
		if options.LineLimit > 0 && count > options.LineLimit {
			return nil, "", malformed(tok.num, "exceeds %d line limit", options.LineLimit)
		}
	}

	block := src[blockStart:blockEnd]
	body := string(lines.remainder())

	var (
		fm  FrontMatter
		err error
	)

	// Block line 1 is document line 2.
	const lineOffset = 1

	switch format {
	case FormatTOML:
		fm, err = decodeTOML(block, lineOffset)
	default:
		fm, err = decodeYAML(block, lineOffset)
	}

	if err != nil {
		return nil, "", err
	}

	return fm, body, nil
}

func yamlOrToml(f Format) string {
	if f == FormatTOML {
		return tomlFence
	}

	return yamlFence
}

func decodeYAML(block []byte, lineOffset int) (FrontMatter, error) {
	var doc yaml.Node

	err := yaml.Unmarshal(block, &doc)
	if err != nil {
		return nil, malformed(0, "yaml: %v", trimYAMLPrefix(err))
	}

	fm := FrontMatter{}

	// Empty or whitespace-only block.
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return fm, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, malformed(root.Line+lineOffset, "block must be a mapping")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]

		if keyNode.Kind != yaml.ScalarNode || keyNode.Value == "" {
			return nil, malformed(keyNode.Line+lineOffset, "keys must be non-empty scalars")
		}

		if _, dup := fm[keyNode.Value]; dup {
			return nil, malformed(keyNode.Line+lineOffset, "duplicate key %q", keyNode.Value)
		}

		v, err := yamlValue(valNode, lineOffset)
		if err != nil {
			return nil, err
		}

		fm[keyNode.Value] = v
	}

	return fm, nil
}

func yamlValue(n *yaml.Node, lineOffset int) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return yamlScalar(n, lineOffset)
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))

		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode || item.ShortTag() == "!!null" {
				return nil, malformed(item.Line+lineOffset, "list items must be scalars")
			}

			items = append(items, item.Value)
		}

		return items, nil
	case yaml.MappingNode:
		return nil, malformed(n.Line+lineOffset, "nested mappings are not supported")
	case yaml.AliasNode:
		return nil, malformed(n.Line+lineOffset, "aliases are not supported")
	default:
		return nil, malformed(n.Line+lineOffset, "unsupported value")
	}
}

func yamlScalar(n *yaml.Node, lineOffset int) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return "", nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, malformed(n.Line+lineOffset, "invalid bool %q", n.Value)
		}

		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, malformed(n.Line+lineOffset, "invalid integer %q", n.Value)
		}

		return i, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, malformed(n.Line+lineOffset, "invalid number %q", n.Value)
		}

		return f, nil
	default:
		// !!str, !!timestamp, !!binary: keep the literal text.
		return n.Value, nil
	}
}

// trimYAMLPrefix drops the "yaml: " prefix yaml.v3 puts on its errors.
func trimYAMLPrefix(err error) string {
	msg := err.Error()
	if after, ok := strings.CutPrefix(msg, "yaml: "); ok {
		return after
	}

	return msg
}

func decodeTOML(block []byte, lineOffset int) (FrontMatter, error) {
	var raw map[string]any

	err := toml.Unmarshal(block, &raw)
	if err != nil {
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, _ := decErr.Position()

			return nil, malformed(row+lineOffset, "toml: %s", decErr.Error())
		}

		return nil, malformed(0, "toml: %v", err)
	}

	fm := make(FrontMatter, len(raw))

	for k, v := range raw {
		if k == "" {
			return nil, malformed(0, "keys must be non-empty")
		}

		out, err := tomlValue(k, v)
		if err != nil {
			return nil, err
		}

		fm[k] = out
	}

	return fm, nil
}

func tomlValue(key string, v any) (any, error) {
	switch typed := v.(type) {
	case string, bool, int64, float64:
		return typed, nil
	case time.Time:
		return typed.Format(time.RFC3339), nil
	case toml.LocalDate:
		return typed.String(), nil
	case toml.LocalDateTime:
		return typed.String(), nil
	case toml.LocalTime:
		return typed.String(), nil
	case []any:
		items := make([]string, 0, len(typed))

		for _, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, malformed(0, "key %q: list items must be strings", key)
			}

			items = append(items, s)
		}

		return items, nil
	case map[string]any:
		return nil, malformed(0, "key %q: nested tables are not supported", key)
	default:
		return nil, malformed(0, "key %q: unsupported value of type %T", key, v)
	}
}

func applyOptions(opts []Option) Options {
	options := Options{LineLimit: defaultMaxLines}

	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return options
}

type lineToken struct {
	data  []byte
	num   int
	start int // byte offset of the line in the source
}

type lineReader struct {
	data    []byte
	idx     int
	lineNum int
}

func newLineReader(data []byte) *lineReader {
	return &lineReader{data: data}
}

func (r *lineReader) next() (lineToken, bool) {
	if r.idx >= len(r.data) {
		return lineToken{}, false
	}

	start := r.idx
	r.lineNum++

	// Use IndexByte to avoid byte-by-byte scans.
	if offset := bytes.IndexByte(r.data[r.idx:], '\n'); offset >= 0 {
		end := r.idx + offset
		r.idx = end + 1

		return lineToken{data: trimCR(r.data[start:end]), num: r.lineNum, start: start}, true
	}

	r.idx = len(r.data)

	return lineToken{data: trimCR(r.data[start:]), num: r.lineNum, start: start}, true
}

func (r *lineReader) remainder() []byte {
	if r.idx >= len(r.data) {
		return nil
	}

	return r.data[r.idx:]
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}

	return line
}
