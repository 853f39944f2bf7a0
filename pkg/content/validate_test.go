package content_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/sitecontent/pkg/content"
	"github.com/calvinalkan/sitecontent/pkg/content/frontmatter"
)

func Test_Validate_Returns_Record_With_Submitted_Fields_When_Record_Is_Valid(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	fields := map[string]any{
		"id":     "ada",
		"name":   "Ada Lovelace",
		"role":   "Engineer",
		"github": "https://github.com/ada",
		"tags":   []string{"math", "engines"},
		"order":  int64(3),
		"extra":  "passes through",
	}

	rec, errs := v.Validate(content.KindTeamMember, content.RawRecord{Source: "team/ada.json", Fields: fields})
	require.Empty(t, errs)

	assert.Equal(t, "ada", rec.ID)
	assert.Equal(t, content.KindTeamMember, rec.Kind)
	assert.Equal(t, "team/ada.json", rec.Source)
	require.NotNil(t, rec.Order)
	assert.Equal(t, int64(3), *rec.Order)

	if diff := cmp.Diff(fields, rec.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func Test_Validate_Derives_ID_From_Name_When_ID_Field_Is_Absent(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	fields := map[string]any{"name": "Grace Hopper", "role": "Admiral"}

	rec, errs := v.Validate(content.KindTeamMember, content.RawRecord{Fields: fields})
	require.Empty(t, errs)
	assert.Equal(t, "grace-hopper", rec.ID)
}

func Test_Validate_Normalizes_List_Of_Any_To_Strings_When_All_Items_Are_Strings(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	fields := memberFields("a")
	fields["tags"] = []any{"go", "sql"}

	rec, errs := v.Validate(content.KindTeamMember, content.RawRecord{Fields: fields})
	require.Empty(t, errs)
	assert.Equal(t, []string{"go", "sql"}, rec.Tags())
}

func Test_Validate_Reports_Exactly_One_Missing_Field_When_Required_Field_Is_Absent(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	// Contract: removing one required field yields one error naming that
	// field and nothing else.
	for _, field := range []string{"name", "description", "url", "status"} {
		field := field

		t.Run(field, func(t *testing.T) {
			t.Parallel()

			fields := productFields("widget", "active")
			delete(fields, field)

			_, errs := v.Validate(content.KindProduct, content.RawRecord{Source: "products/widget.json", Fields: fields})
			require.Len(t, errs, 1)

			cErrs := errorsFor(t, errs)
			assert.ErrorIs(t, errs[0], content.ErrMissingField)
			assert.ErrorIs(t, errs[0], content.ErrValidation)
			assert.Equal(t, field, cErrs[0].Field)
			assert.Equal(t, "widget", cErrs[0].ID)
			assert.Equal(t, "products/widget.json", cErrs[0].Source)
		})
	}
}

func Test_Validate_Treats_Blank_String_As_Missing_When_Field_Is_Required(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	fields := memberFields("a")
	fields["role"] = "   "

	_, errs := v.Validate(content.KindTeamMember, content.RawRecord{Fields: fields})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], content.ErrMissingField)
}

func Test_Validate_Does_Not_Report_ID_When_ID_Source_Field_Is_Missing(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	_, errs := v.Validate(content.KindTeamMember, content.RawRecord{Fields: map[string]any{"role": "Engineer"}})
	require.Len(t, errs, 1)

	cErrs := errorsFor(t, errs)
	assert.Equal(t, "name", cErrs[0].Field)
}

func Test_Validate_Reports_Every_Violation_When_Record_Has_Several(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	fields := productFields("widget", "archived")
	fields["name"] = strings.Repeat("x", 81)
	fields["url"] = "http://example.com"

	rec, errs := v.Validate(content.KindProduct, content.RawRecord{Fields: fields})
	require.Len(t, errs, 3)
	assert.Empty(t, rec.ID)

	// Errors are reported in field-name order.
	assert.ErrorIs(t, errs[0], content.ErrConstraintViolation)
	assert.ErrorIs(t, errs[1], content.ErrInvalidEnumValue)
	assert.ErrorIs(t, errs[2], content.ErrInvalidURL)
}

func Test_Validate_Returns_Typed_Error_When_Field_Violates_Constraint(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	tests := []struct {
		name  string
		kind  content.Kind
		field string
		value any
		want  error
	}{
		{name: "string gets number", kind: content.KindTeamMember, field: "role", value: 42, want: content.ErrTypeMismatch},
		{name: "string too long", kind: content.KindTeamMember, field: "bio", value: strings.Repeat("é", 601), want: content.ErrConstraintViolation},
		{name: "list gets string", kind: content.KindTeamMember, field: "tags", value: "go", want: content.ErrTypeMismatch},
		{name: "list with non-string item", kind: content.KindTeamMember, field: "tags", value: []any{"go", 1}, want: content.ErrTypeMismatch},
		{name: "list too long", kind: content.KindTeamMember, field: "tags", value: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}, want: content.ErrConstraintViolation},
		{name: "list item too long", kind: content.KindTeamMember, field: "tags", value: []string{strings.Repeat("t", 33)}, want: content.ErrConstraintViolation},
		{name: "list item blank", kind: content.KindTeamMember, field: "tags", value: []string{"go", " "}, want: content.ErrConstraintViolation},
		{name: "number gets string", kind: content.KindTeamMember, field: "order", value: "1", want: content.ErrTypeMismatch},
		{name: "order not integral", kind: content.KindTeamMember, field: "order", value: 2.5, want: content.ErrTypeMismatch},
		{name: "enum not allowed", kind: content.KindProduct, field: "status", value: "archived", want: content.ErrInvalidEnumValue},
		{name: "enum gets bool", kind: content.KindProduct, field: "status", value: true, want: content.ErrTypeMismatch},
		{name: "url http", kind: content.KindProduct, field: "url", value: "http://example.com", want: content.ErrInvalidURL},
		{name: "url relative", kind: content.KindProduct, field: "url", value: "/products/widget", want: content.ErrInvalidURL},
		{name: "url without host", kind: content.KindProduct, field: "url", value: "https://", want: content.ErrInvalidURL},
		{name: "url mailto", kind: content.KindProduct, field: "url", value: "mailto:hi@example.com", want: content.ErrInvalidURL},
		{name: "url unparsable", kind: content.KindProduct, field: "url", value: "https://exa mple.com/%zz", want: content.ErrInvalidURL},
		{name: "id not a string", kind: content.KindProduct, field: "id", value: true, want: content.ErrTypeMismatch},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var fields map[string]any
			if tt.kind == content.KindProduct {
				fields = productFields("p", "active")
			} else {
				fields = memberFields("m")
			}

			fields[tt.field] = tt.value

			_, errs := v.Validate(tt.kind, content.RawRecord{Fields: fields})
			require.Len(t, errs, 1, "errors: %v", errs)
			assert.ErrorIs(t, errs[0], tt.want)

			cErrs := errorsFor(t, errs)
			assert.Equal(t, tt.field, cErrs[0].Field)
		})
	}
}

func Test_Validate_Accepts_Numeric_Types_When_Field_Is_Number(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	for _, value := range []any{1, int64(2), float64(3), uint8(4)} {
		fields := memberFields("m")
		fields["order"] = value

		rec, errs := v.Validate(content.KindTeamMember, content.RawRecord{Fields: fields})
		require.Empty(t, errs, "value %v (%T)", value, value)
		require.NotNil(t, rec.Order)
	}
}

func Test_Validate_Returns_Unknown_Kind_When_Kind_Is_Not_Declared(t *testing.T) {
	t.Parallel()

	reg, err := content.NewRegistry(content.DefaultSchemas()[0])
	require.NoError(t, err)

	v := content.NewValidator(reg)

	_, errs := v.Validate(content.KindProduct, product("p", "active"))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], content.ErrUnknownKind)
	assert.ErrorIs(t, errs[0], content.ErrSchema)
	assert.NotErrorIs(t, errs[0], content.ErrValidation)
}

func Test_ValidateDocument_Splits_Front_Matter_And_Derives_Slug_When_Document_Is_Valid(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	raw := post("hello-world", "Hello World", "beginner", "go", "intro")

	doc, errs := v.ValidateDocument(raw)
	require.Empty(t, errs)

	assert.Equal(t, "hello-world", doc.ID)
	assert.Equal(t, "hello-world", doc.Slug)
	assert.Equal(t, "Hello World", doc.Title())
	assert.Equal(t, "beginner", doc.Difficulty())
	assert.Equal(t, []string{"go", "intro"}, doc.Tags())
	assert.Equal(t, "\nBody of Hello World.\n", doc.Body)
	assert.Equal(t, "2024-05-01", doc.FrontMatter()["date"])
}

func Test_ValidateDocument_Uses_ID_Field_When_Front_Matter_Sets_It(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	text := strings.Replace(postText("Title", "advanced"), "---\n", "---\nid: Custom_ID\n", 1)

	doc, errs := v.ValidateDocument(content.RawRecord{Source: "blog/file.md", Text: text})
	require.Empty(t, errs)

	assert.Equal(t, "Custom_ID", doc.ID)
	assert.Equal(t, "custom-id", doc.Slug)
}

func Test_ValidateDocument_Accepts_TOML_Front_Matter_When_Fenced_With_Plus(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	text := `+++
title = "Toml Post"
description = "Written in TOML."
date = 2024-06-01
author = "Bo"
difficulty = "intermediate"
tags = ["toml"]
draft = true
order = 7
+++
Body.
`

	doc, errs := v.ValidateDocument(content.RawRecord{Source: "blog/toml-post.md", Text: text})
	require.Empty(t, errs)

	assert.Equal(t, "toml-post", doc.Slug)
	assert.Equal(t, "2024-06-01", doc.FrontMatter()["date"])
	assert.Equal(t, true, doc.FrontMatter()["draft"])
	require.NotNil(t, doc.Order)
	assert.Equal(t, int64(7), *doc.Order)
	assert.Equal(t, "Body.\n", doc.Body)
}

func Test_ValidateDocument_Returns_Single_Malformed_Error_When_Fence_Is_Never_Closed(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	raw := content.RawRecord{Source: "blog/broken.md", Text: "---\ntitle: Broken\nauthor: Ann\n\nNo closing fence.\n"}

	_, errs := v.ValidateDocument(raw)
	require.Len(t, errs, 1)

	assert.ErrorIs(t, errs[0], content.ErrMalformedFrontMatter)
	assert.ErrorIs(t, errs[0], content.ErrValidation)
	assert.ErrorIs(t, errs[0], frontmatter.ErrMalformed)

	cErrs := errorsFor(t, errs)
	assert.Equal(t, "broken", cErrs[0].ID)
	assert.Equal(t, "blog/broken.md", cErrs[0].Source)
	assert.Contains(t, errs[0].Error(), "unterminated yaml fence")
}

func Test_ValidateDocument_Reports_Field_Errors_When_Front_Matter_Is_Invalid(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	raw := post("p", "P", "expert")
	raw.Text = strings.Replace(raw.Text, "author: Ann\n", "", 1)

	_, errs := v.ValidateDocument(raw)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], content.ErrMissingField)
	assert.ErrorIs(t, errs[1], content.ErrInvalidEnumValue)
}

func Test_ValidateDocument_Uses_Fields_When_Text_Is_Empty(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	raw := content.RawRecord{
		Source: "blog/structured.json",
		Fields: map[string]any{
			"title":       "Structured",
			"description": "No markdown.",
			"date":        "2024-01-02T03:04:05Z",
			"author":      "Cy",
			"difficulty":  "advanced",
		},
	}

	doc, errs := v.ValidateDocument(raw)
	require.Empty(t, errs)
	assert.Equal(t, "structured", doc.Slug)
	assert.Empty(t, doc.Body)
}

func Test_ValidateDocument_Rejects_Bad_Date_When_Not_ISO(t *testing.T) {
	t.Parallel()

	v := content.NewValidator(content.DefaultRegistry())

	raw := post("p", "P", "beginner")
	raw.Text = strings.Replace(raw.Text, "date: 2024-05-01", "date: May 1st", 1)

	_, errs := v.ValidateDocument(raw)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], content.ErrTypeMismatch)
	assert.True(t, errors.Is(errs[0], content.ErrValidation))
}

func Test_Slugify_Produces_URL_Safe_Segment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Hello World", want: "hello-world"},
		{in: "  Go 1.25: What's New?  ", want: "go-1-25-what-s-new"},
		{in: "already-slugged", want: "already-slugged"},
		{in: "snake_case_name", want: "snake-case-name"},
		{in: "Ünïcode", want: "n-code"},
		{in: "---", want: ""},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := content.Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
