package content

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/calvinalkan/sitecontent/pkg/content/frontmatter"
)

// Validator checks raw records against the schemas of a [Registry].
//
// Validation is total: every violation of a record is reported, not just the
// first one. A record with any violation is rejected whole. Cross-record
// invariants (id and slug uniqueness) are left to [Build].
//
// Safe for concurrent use.
type Validator struct {
	registry  *Registry
	parseOpts []frontmatter.Option
}

// NewValidator returns a Validator for registry. opts configure the
// front-matter splitter used by [Validator.ValidateDocument].
func NewValidator(registry *Registry, opts ...frontmatter.Option) *Validator {
	return &Validator{registry: registry, parseOpts: opts}
}

// Validate checks raw.Fields against the schema of kind.
//
// On success the returned errors are nil. On failure the Record is zero and
// every error is an [*Error] wrapping one of [ErrUnknownKind],
// [ErrMissingField], [ErrTypeMismatch], [ErrConstraintViolation],
// [ErrInvalidEnumValue] or [ErrInvalidURL].
func (v *Validator) Validate(kind Kind, raw RawRecord) (Record, []error) {
	schema, err := v.registry.Schema(kind)
	if err != nil {
		return Record{}, []error{&Error{Kind: kind, Source: raw.Source, Err: ErrUnknownKind}}
	}

	return validateFields(schema, raw.Source, raw.Fields)
}

// ValidateDocument splits raw.Text into front matter and body, validates the
// front matter against the document schema and derives the slug.
//
// When raw.Text is empty and raw.Fields is set, the fields are used as front
// matter and the body is empty.
//
// A metadata block that cannot be split is reported as a single error
// wrapping [ErrMalformedFrontMatter].
func (v *Validator) ValidateDocument(raw RawRecord) (Document, []error) {
	schema, err := v.registry.Schema(KindDocument)
	if err != nil {
		return Document{}, []error{&Error{Kind: KindDocument, Source: raw.Source, Err: ErrUnknownKind}}
	}

	fields := raw.Fields
	body := ""

	if raw.Text != "" || raw.Fields == nil {
		fm, rest, splitErr := frontmatter.Split([]byte(raw.Text), v.parseOpts...)
		if splitErr != nil {
			return Document{}, []error{&Error{
				Kind:   KindDocument,
				ID:     sourceStem(raw.Source),
				Source: raw.Source,
				Err:    fmt.Errorf("%w: %w", ErrMalformedFrontMatter, splitErr),
			}}
		}

		fields = fm
		body = rest
	}

	rec, errs := validateFields(schema, raw.Source, fields)
	if len(errs) > 0 {
		return Document{}, errs
	}

	slug := Slugify(rec.ID)
	if slug == "" {
		slug = Slugify(rec.StringField(titleField))
	}

	if slug == "" {
		return Document{}, []error{&Error{
			Kind:   KindDocument,
			ID:     rec.ID,
			Source: raw.Source,
			Field:  titleField,
			Err:    fmt.Errorf("%w: cannot derive a slug from id %q or title", ErrConstraintViolation, rec.ID),
		}}
	}

	return Document{Record: rec, Slug: slug, Body: body}, nil
}

func validateFields(schema Schema, source string, fields map[string]any) (Record, []error) {
	var errs []error

	failed := make(map[string]bool)

	id, idErr := resolveID(schema, source, fields)

	report := func(field string, err error) {
		failed[field] = true

		errs = append(errs, &Error{Kind: schema.Kind, ID: id, Source: source, Field: field, Err: err})
	}

	normalized := cloneFields(fields)
	if normalized == nil {
		normalized = map[string]any{}
	}

	for _, name := range sortedKeys(schema.Fields) {
		spec := schema.Fields[name]

		val, present := fields[name]
		if !present || isEmptyValue(val) {
			if spec.Required {
				report(name, ErrMissingField)
			}

			continue
		}

		out, err := checkField(spec, val)
		if err != nil {
			report(name, err)

			continue
		}

		normalized[name] = out
	}

	if idErr != nil && !failed[schema.IDField] {
		report(schema.IDField, idErr)
	}

	if id == "" && idErr == nil && !failed[schema.IDField] && !(schema.IDFrom != "" && failed[schema.IDFrom]) {
		report(schema.IDField, fmt.Errorf("%w: no id could be derived", ErrMissingField))
	}

	var order *int64

	if val, ok := fields[schema.OrderField]; ok && !isEmptyValue(val) && !failed[schema.OrderField] {
		o, err := integerValue(val)
		if err != nil {
			report(schema.OrderField, err)
		} else {
			order = &o
		}
	}

	if len(errs) > 0 {
		return Record{}, errs
	}

	return Record{
		Kind:   schema.Kind,
		ID:     id,
		Order:  order,
		Fields: normalized,
		Source: source,
	}, nil
}

// resolveID picks the record id: IDField, then the source stem (if enabled),
// then the slugified IDFrom field. An empty id with a nil error means nothing
// was available.
func resolveID(schema Schema, source string, fields map[string]any) (string, error) {
	if val, ok := fields[schema.IDField]; ok && !isEmptyValue(val) {
		switch typed := val.(type) {
		case string:
			return strings.TrimSpace(typed), nil
		default:
			i, err := integerValue(val)
			if err != nil {
				return "", fmt.Errorf("%w: id must be a string, got %s", ErrTypeMismatch, typeName(val))
			}

			return strconv.FormatInt(i, 10), nil
		}
	}

	if schema.IDFromSource {
		if stem := sourceStem(source); stem != "" {
			return stem, nil
		}
	}

	if schema.IDFrom != "" {
		if s, ok := fields[schema.IDFrom].(string); ok {
			return Slugify(s), nil
		}
	}

	return "", nil
}

// checkField validates a present, non-empty value and returns it normalized.
func checkField(spec FieldSpec, val any) (any, error) {
	switch spec.Type {
	case TypeString:
		s, ok := val.(string)
		if !ok {
			return nil, mismatch(spec.Type, val)
		}

		return s, checkLength(spec, s)

	case TypeNumber:
		if !isNumber(val) {
			return nil, mismatch(spec.Type, val)
		}

		return val, nil

	case TypeEnum:
		s, ok := val.(string)
		if !ok {
			return nil, mismatch(spec.Type, val)
		}

		if !slices.Contains(spec.AllowedValues, s) {
			return nil, fmt.Errorf("%w: %q not in %v", ErrInvalidEnumValue, s, spec.AllowedValues)
		}

		return s, nil

	case TypeURL:
		s, ok := val.(string)
		if !ok {
			return nil, mismatch(spec.Type, val)
		}

		if err := checkHTTPSURL(s); err != nil {
			return nil, err
		}

		return s, checkLength(spec, s)

	case TypeList:
		items, ok := stringList(val)
		if !ok {
			return nil, mismatch(spec.Type, val)
		}

		if spec.MaxItems > 0 && len(items) > spec.MaxItems {
			return nil, fmt.Errorf("%w: %d items exceeds max %d", ErrConstraintViolation, len(items), spec.MaxItems)
		}

		for i, item := range items {
			if strings.TrimSpace(item) == "" {
				return nil, fmt.Errorf("%w: item %d is empty", ErrConstraintViolation, i)
			}

			if err := checkLength(spec, item); err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
		}

		return items, nil

	case TypeBool:
		if _, ok := val.(bool); !ok {
			return nil, mismatch(spec.Type, val)
		}

		return val, nil

	case TypeDate:
		s, ok := val.(string)
		if !ok {
			return nil, mismatch(spec.Type, val)
		}

		if _, err := time.Parse(time.DateOnly, s); err == nil {
			return s, nil
		}

		if _, err := time.Parse(time.RFC3339, s); err == nil {
			return s, nil
		}

		return nil, fmt.Errorf("%w: want date (YYYY-MM-DD or RFC 3339), got %q", ErrTypeMismatch, s)

	default:
		return nil, fmt.Errorf("%w: unknown field type %q", ErrTypeMismatch, spec.Type)
	}
}

func checkLength(spec FieldSpec, s string) error {
	if spec.MaxLength <= 0 {
		return nil
	}

	if n := utf8.RuneCountInString(s); n > spec.MaxLength {
		return fmt.Errorf("%w: length %d exceeds max %d", ErrConstraintViolation, n, spec.MaxLength)
	}

	return nil
}

func checkHTTPSURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, s, err) //nolint:errorlint // sentinel carries the classification
	}

	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute url", ErrInvalidURL, s)
	}

	if u.Scheme != "https" {
		return fmt.Errorf("%w: %q must use https", ErrInvalidURL, s)
	}

	return nil
}

func mismatch(want FieldType, got any) error {
	return fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, want, typeName(got))
}

func isEmptyValue(val any) bool {
	switch typed := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []string:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}

func stringList(val any) ([]string, bool) {
	switch typed := val.(type) {
	case []string:
		return slices.Clone(typed), true
	case []any:
		out := make([]string, 0, len(typed))

		for _, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}

			out = append(out, s)
		}

		return out, true
	default:
		return nil, false
	}
}

func isNumber(val any) bool {
	switch typed := val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return !math.IsNaN(float64(typed)) && !math.IsInf(float64(typed), 0)
	case float64:
		return !math.IsNaN(typed) && !math.IsInf(typed, 0)
	case json.Number:
		_, err := typed.Float64()

		return err == nil
	default:
		return false
	}
}

func integerValue(val any) (int64, error) {
	switch typed := val.(type) {
	case int:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint8:
		return int64(typed), nil
	case uint16:
		return int64(typed), nil
	case uint32:
		return int64(typed), nil
	case uint:
		if uint64(typed) <= math.MaxInt64 {
			return int64(typed), nil
		}
	case uint64:
		if typed <= math.MaxInt64 {
			return int64(typed), nil
		}
	case float32:
		return integerValue(float64(typed))
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) < 1<<53 {
			return int64(typed), nil
		}
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: want integer, got %s", ErrTypeMismatch, typeName(val))
}

func typeName(val any) string {
	switch typed := val.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case []string, []any:
		return "list"
	case map[string]any:
		return "object"
	case json.Number:
		return "number"
	default:
		if isNumber(typed) {
			return "number"
		}

		return fmt.Sprintf("%T", val)
	}
}
