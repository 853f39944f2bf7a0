package content_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/sitecontent/pkg/content"
)

func Test_DefaultRegistry_Declares_All_Kinds_In_Canonical_Order(t *testing.T) {
	t.Parallel()

	reg := content.DefaultRegistry()

	assert.Equal(t, []content.Kind{content.KindTeamMember, content.KindProduct, content.KindDocument}, reg.Kinds())

	s, err := reg.Schema(content.KindDocument)
	require.NoError(t, err)
	assert.Equal(t, "id", s.IDField)
	assert.Equal(t, "order", s.OrderField)
	assert.True(t, s.IDFromSource)
	assert.Equal(t, []string{"beginner", "intermediate", "advanced"}, s.Fields["difficulty"].AllowedValues)
}

func Test_Registry_Schema_Returns_Unknown_Kind_When_Kind_Is_Not_Declared(t *testing.T) {
	t.Parallel()

	_, err := content.DefaultRegistry().Schema("testimonial")
	require.ErrorIs(t, err, content.ErrUnknownKind)
	assert.ErrorIs(t, err, content.ErrSchema)
}

func Test_Registry_Schema_Returns_Copy_When_Caller_Mutates_It(t *testing.T) {
	t.Parallel()

	reg := content.DefaultRegistry()

	s, err := reg.Schema(content.KindProduct)
	require.NoError(t, err)

	s.Fields["status"].AllowedValues[0] = "mutated"
	delete(s.Fields, "name")

	again, err := reg.Schema(content.KindProduct)
	require.NoError(t, err)
	assert.Equal(t, "active", again.Fields["status"].AllowedValues[0])
	assert.Contains(t, again.Fields, "name")
}

func Test_NewRegistry_Rejects_Schema_When_Declaration_Is_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		schema content.Schema
		want   string
	}{
		{
			name:   "unknown kind",
			schema: content.Schema{Kind: "testimonial"},
			want:   "unknown content kind",
		},
		{
			name:   "unknown field type",
			schema: content.Schema{Kind: content.KindProduct, Fields: map[string]content.FieldSpec{"x": {Type: "blob"}}},
			want:   `unknown type "blob"`,
		},
		{
			name:   "enum without values",
			schema: content.Schema{Kind: content.KindProduct, Fields: map[string]content.FieldSpec{"x": {Type: content.TypeEnum}}},
			want:   "enum requires allowed_values",
		},
		{
			name:   "negative bound",
			schema: content.Schema{Kind: content.KindProduct, Fields: map[string]content.FieldSpec{"x": {Type: content.TypeString, MaxLength: -1}}},
			want:   "negative bound",
		},
		{
			name:   "id_from undeclared",
			schema: content.Schema{Kind: content.KindProduct, IDFrom: "name"},
			want:   `id_from "name" is not a declared field`,
		},
		{
			name:   "order field not numeric",
			schema: content.Schema{Kind: content.KindProduct, Fields: map[string]content.FieldSpec{"order": {Type: content.TypeString}}},
			want:   `order field "order" must be a number`,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := content.NewRegistry(tt.schema)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func Test_NewRegistry_Rejects_Kind_When_Declared_Twice(t *testing.T) {
	t.Parallel()

	s := content.Schema{Kind: content.KindProduct}

	_, err := content.NewRegistry(s, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func Test_ParseRegistry_Accepts_HuJSON_When_File_Has_Comments_And_Trailing_Commas(t *testing.T) {
	t.Parallel()

	data := []byte(`{
  // Only products for this site.
  "kinds": {
    "product": {
      "id_from": "name",
      "fields": {
        "name":   {"type": "string", "required": true, "max_length": 10},
        "status": {"type": "enum", "required": true, "allowed_values": ["live", "dead"]},
      },
    },
  },
}`)

	reg, err := content.ParseRegistry(data)
	require.NoError(t, err)
	assert.Equal(t, []content.Kind{content.KindProduct}, reg.Kinds())

	v := content.NewValidator(reg)

	rec, errs := v.Validate(content.KindProduct, content.RawRecord{Fields: map[string]any{"name": "Thing One", "status": "live"}})
	require.Empty(t, errs)
	assert.Equal(t, "thing-one", rec.ID)

	_, errs = v.Validate(content.KindProduct, content.RawRecord{Fields: map[string]any{"name": "Thing Eleven", "status": "active"}})
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], content.ErrConstraintViolation)
	assert.ErrorIs(t, errs[1], content.ErrInvalidEnumValue)
}

func Test_ParseRegistry_Returns_Error_When_File_Is_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "syntax", data: `{"kinds": `, want: "parse registry"},
		{name: "unknown key", data: `{"kinds": {"product": {"fields": {}, "colour": "red"}}}`, want: `unknown field "colour"`},
		{name: "no kinds", data: `{"kinds": {}}`, want: "no kinds declared"},
		{name: "unknown kind", data: `{"kinds": {"testimonial": {"fields": {}}}}`, want: "unknown content kind"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := content.ParseRegistry([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func Test_LoadRegistry_Reads_File_When_Path_Exists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "schema.json")

	err := os.WriteFile(path, []byte(`{"kinds": {"team-member": {"id_from": "name", "fields": {"name": {"type": "string"}}}}}`), 0o600)
	require.NoError(t, err)

	reg, err := content.LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []content.Kind{content.KindTeamMember}, reg.Kinds())

	_, err = content.LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
