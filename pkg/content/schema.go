package content

import (
	"errors"
	"fmt"
	"slices"
)

// Kind tags a content collection.
type Kind string

// Known content kinds.
const (
	KindTeamMember Kind = "team-member"
	KindProduct    Kind = "product"
	KindDocument   Kind = "document"
)

// knownKinds is the closed set of kinds a registry may declare.
var knownKinds = []Kind{KindTeamMember, KindProduct, KindDocument}

// ParseKind returns the Kind for s, or [ErrUnknownKind].
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !slices.Contains(knownKinds, k) {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}

	return k, nil
}

// FieldType is the declared type of a schema field.
type FieldType string

// Field types.
const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeEnum   FieldType = "enum"
	TypeURL    FieldType = "url"
	TypeList   FieldType = "list" // list of strings
	TypeBool   FieldType = "bool"
	TypeDate   FieldType = "date" // YYYY-MM-DD or RFC 3339
)

func (t FieldType) valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeEnum, TypeURL, TypeList, TypeBool, TypeDate:
		return true
	default:
		return false
	}
}

// FieldSpec constrains a single field.
//
// MaxLength counts runes and applies to string-like values (string, enum, url,
// and each item of a list). MaxItems applies to lists. Zero means unbounded.
type FieldSpec struct {
	Type          FieldType `json:"type"`
	Required      bool      `json:"required,omitempty"`
	MaxLength     int       `json:"max_length,omitempty"`     //nolint:tagliatelle // snake_case for schema file
	MaxItems      int       `json:"max_items,omitempty"`      //nolint:tagliatelle // snake_case for schema file
	AllowedValues []string  `json:"allowed_values,omitempty"` //nolint:tagliatelle // snake_case for schema file
}

// Schema declares the fields of one content kind.
type Schema struct {
	Kind Kind `json:"-"`

	// Fields maps field name to its constraints. Fields present in a record but
	// not declared here pass through unchecked.
	Fields map[string]FieldSpec `json:"fields"`

	// IDField names the field that carries the record id. Default: "id".
	IDField string `json:"id_field,omitempty"` //nolint:tagliatelle // snake_case for schema file

	// IDFromSource derives the id from the file stem of [RawRecord.Source]
	// when IDField is absent. Checked before IDFrom.
	IDFromSource bool `json:"id_from_source,omitempty"` //nolint:tagliatelle // snake_case for schema file

	// IDFrom names a field whose slugified value becomes the id when neither
	// IDField nor the source yield one.
	IDFrom string `json:"id_from,omitempty"` //nolint:tagliatelle // snake_case for schema file

	// OrderField names the integer field used by [Query.ListByOrder].
	// Default: "order".
	OrderField string `json:"order_field,omitempty"` //nolint:tagliatelle // snake_case for schema file
}

// Field names with engine-level meaning.
const (
	defaultIDField    = "id"
	defaultOrderField = "order"
	tagsField         = "tags"
	difficultyField   = "difficulty"
	titleField        = "title"
)

func (s *Schema) applyDefaults() {
	if s.IDField == "" {
		s.IDField = defaultIDField
	}

	if s.OrderField == "" {
		s.OrderField = defaultOrderField
	}

	if s.Fields == nil {
		s.Fields = map[string]FieldSpec{}
	}
}

func (s Schema) validate() error {
	var errs []error

	for _, name := range sortedKeys(s.Fields) {
		spec := s.Fields[name]

		if name == "" {
			errs = append(errs, errors.New("field name is empty"))

			continue
		}

		if !spec.Type.valid() {
			errs = append(errs, fmt.Errorf("field %q: unknown type %q", name, spec.Type))
		}

		if spec.Type == TypeEnum && len(spec.AllowedValues) == 0 {
			errs = append(errs, fmt.Errorf("field %q: enum requires allowed_values", name))
		}

		if spec.MaxLength < 0 || spec.MaxItems < 0 {
			errs = append(errs, fmt.Errorf("field %q: negative bound", name))
		}
	}

	if s.IDFrom != "" {
		if _, ok := s.Fields[s.IDFrom]; !ok {
			errs = append(errs, fmt.Errorf("id_from %q is not a declared field", s.IDFrom))
		}
	}

	if spec, ok := s.Fields[s.OrderField]; ok && spec.Type != TypeNumber {
		errs = append(errs, fmt.Errorf("order field %q must be a number", s.OrderField))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("schema %s: %w", s.Kind, err)
	}

	return nil
}

func (s Schema) clone() Schema {
	out := s
	out.Fields = make(map[string]FieldSpec, len(s.Fields))

	for name, spec := range s.Fields {
		spec.AllowedValues = slices.Clone(spec.AllowedValues)
		out.Fields[name] = spec
	}

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
