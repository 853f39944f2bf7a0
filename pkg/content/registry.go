package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/tailscale/hujson"
)

// Registry holds the schema of every declared content kind.
//
// A Registry is immutable once constructed: schemas are static configuration
// loaded at process start, and changing them means building a new Registry
// (and a new [Engine]). Safe for concurrent use.
type Registry struct {
	schemas map[Kind]Schema
	kinds   []Kind
}

// NewRegistry validates schemas and returns a Registry declaring their kinds.
// Each kind may be declared at most once.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[Kind]Schema, len(schemas))}

	for _, s := range schemas {
		if !slices.Contains(knownKinds, s.Kind) {
			return nil, fmt.Errorf("new registry: %w: %q", ErrUnknownKind, s.Kind)
		}

		if _, dup := r.schemas[s.Kind]; dup {
			return nil, fmt.Errorf("new registry: kind %q declared twice", s.Kind)
		}

		s = s.clone()
		s.applyDefaults()

		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("new registry: %w", err)
		}

		r.schemas[s.Kind] = s
	}

	// Declaration order is irrelevant; iteration follows knownKinds.
	for _, k := range knownKinds {
		if _, ok := r.schemas[k]; ok {
			r.kinds = append(r.kinds, k)
		}
	}

	return r, nil
}

// Schema returns the schema declared for kind.
// Returns an error matching [ErrUnknownKind] when kind is not declared.
func (r *Registry) Schema(kind Kind) (Schema, error) {
	s, ok := r.schemas[kind]
	if !ok {
		return Schema{}, &Error{Kind: kind, Err: ErrUnknownKind}
	}

	return s.clone(), nil
}

// Kinds returns the declared kinds in canonical order.
func (r *Registry) Kinds() []Kind {
	return slices.Clone(r.kinds)
}

func (r *Registry) has(kind Kind) bool {
	_, ok := r.schemas[kind]

	return ok
}

// registryFile is the on-disk shape of a schema file.
type registryFile struct {
	Kinds map[string]Schema `json:"kinds"`
}

// ParseRegistry decodes a HuJSON schema file (JSON with comments and trailing
// commas):
//
//	{
//	  "kinds": {
//	    "product": {
//	      "id_from": "name",
//	      "fields": {
//	        "name":   {"type": "string", "required": true, "max_length": 80},
//	        "status": {"type": "enum", "required": true, "allowed_values": ["active", "beta"]},
//	      },
//	    },
//	  },
//	}
//
// Unknown keys are rejected.
func ParseRegistry(data []byte) (*Registry, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	var file registryFile

	err = dec.Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	if len(file.Kinds) == 0 {
		return nil, errors.New("parse registry: no kinds declared")
	}

	schemas := make([]Schema, 0, len(file.Kinds))

	for _, name := range sortedKeys(file.Kinds) {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("parse registry: %w", err)
		}

		s := file.Kinds[name]
		s.Kind = kind
		schemas = append(schemas, s)
	}

	return NewRegistry(schemas...)
}

// LoadRegistry reads and parses the schema file at path.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	return ParseRegistry(data)
}

// DefaultRegistry returns the built-in schemas for team members, products and
// blog documents.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultSchemas()...)
	if err != nil {
		panic("content: built-in schemas are invalid: " + err.Error())
	}

	return r
}

// DefaultSchemas returns fresh copies of the built-in schemas.
func DefaultSchemas() []Schema {
	return []Schema{
		{
			Kind:   KindTeamMember,
			IDFrom: "name",
			Fields: map[string]FieldSpec{
				"name":     {Type: TypeString, Required: true, MaxLength: 80},
				"role":     {Type: TypeString, Required: true, MaxLength: 80},
				"bio":      {Type: TypeString, MaxLength: 600},
				"image":    {Type: TypeURL},
				"github":   {Type: TypeURL},
				"linkedin": {Type: TypeURL},
				"twitter":  {Type: TypeURL},
				"tags":     {Type: TypeList, MaxItems: 10, MaxLength: 32},
				"order":    {Type: TypeNumber},
			},
		},
		{
			Kind:   KindProduct,
			IDFrom: "name",
			Fields: map[string]FieldSpec{
				"name":        {Type: TypeString, Required: true, MaxLength: 80},
				"description": {Type: TypeString, Required: true, MaxLength: 300},
				"url":         {Type: TypeURL, Required: true},
				"logo":        {Type: TypeURL},
				"status": {
					Type:          TypeEnum,
					Required:      true,
					AllowedValues: []string{"active", "coming-soon", "beta"},
				},
				"tags":  {Type: TypeList, MaxItems: 10, MaxLength: 32},
				"order": {Type: TypeNumber},
			},
		},
		{
			Kind:         KindDocument,
			IDFromSource: true,
			IDFrom:       "title",
			Fields: map[string]FieldSpec{
				"title":       {Type: TypeString, Required: true, MaxLength: 120},
				"description": {Type: TypeString, Required: true, MaxLength: 300},
				"date":        {Type: TypeDate, Required: true},
				"author":      {Type: TypeString, Required: true, MaxLength: 80},
				"tags":        {Type: TypeList, MaxItems: 10, MaxLength: 32},
				"difficulty": {
					Type:          TypeEnum,
					Required:      true,
					AllowedValues: []string{"beginner", "intermediate", "advanced"},
				},
				"youtube": {Type: TypeURL},
				"draft":   {Type: TypeBool},
				"order":   {Type: TypeNumber},
			},
		},
	}
}
