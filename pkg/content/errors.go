package content

import (
	"errors"
	"strings"
)

// Error families. Every leaf sentinel below unwraps to exactly one family, so
// callers can classify with [errors.Is]:
//
//	if errors.Is(err, content.ErrValidation) { ... }
var (
	ErrSchema     = errors.New("schema error")
	ErrValidation = errors.New("validation error")
	ErrIndex      = errors.New("index error")
	ErrPublish    = errors.New("publish error")
)

// Leaf sentinels.
var (
	ErrUnknownKind = newSentinel("unknown content kind", ErrSchema)

	ErrMissingField         = newSentinel("missing required field", ErrValidation)
	ErrTypeMismatch         = newSentinel("type mismatch", ErrValidation)
	ErrConstraintViolation  = newSentinel("constraint violation", ErrValidation)
	ErrInvalidEnumValue     = newSentinel("invalid enum value", ErrValidation)
	ErrInvalidURL           = newSentinel("invalid url", ErrValidation)
	ErrMalformedFrontMatter = newSentinel("malformed front matter", ErrValidation)

	ErrDuplicateID   = newSentinel("duplicate id", ErrIndex)
	ErrDuplicateSlug = newSentinel("duplicate slug", ErrIndex)

	ErrPartialPublish  = newSentinel("partial publish", ErrPublish)
	ErrBuildInProgress = newSentinel("build in progress", ErrPublish)
)

// sentinel is a leaf error that belongs to a family.
type sentinel struct {
	msg    string
	family error
}

func newSentinel(msg string, family error) error {
	return &sentinel{msg: msg, family: family}
}

func (s *sentinel) Error() string { return s.msg }

func (s *sentinel) Unwrap() error { return s.family }

// Error is the record-scoped error type reported in [BuildReport.RecordErrors]
// and returned by [Validator.Validate].
//
// The cause comes first, followed by whatever record context is known:
//
//	invalid enum value: "archived" not in [active beta coming-soon] (kind=product id=widget field=status source=products/widget.json)
//
// Use [errors.As] to extract the structured fields and [errors.Is] to match
// sentinels:
//
//	var cErr *content.Error
//	if errors.As(err, &cErr) && errors.Is(err, content.ErrDuplicateID) {
//	    log.Printf("dropped %s from %s", cErr.ID, cErr.Source)
//	}
type Error struct {
	// Kind is the content kind the record was submitted as.
	Kind Kind

	// ID is the record id when it could be resolved.
	ID string

	// Source identifies where the raw record came from (file path, URL, ...).
	// Opaque to the engine.
	Source string

	// Field is the offending field, empty for record-level problems.
	Field string

	// Err is the underlying cause. It wraps one of the leaf sentinels.
	Err error
}

// Error formats as "<cause> (kind=K id=I field=F source=S)".
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}

	suffix := e.suffix()

	switch {
	case suffix == "":
		return cause
	case cause == "":
		return suffix
	default:
		return cause + " " + suffix
	}
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

func (e *Error) suffix() string {
	var parts []string

	if e.Kind != "" {
		parts = append(parts, "kind="+string(e.Kind))
	}

	if e.ID != "" {
		parts = append(parts, "id="+e.ID)
	}

	if e.Field != "" {
		parts = append(parts, "field="+e.Field)
	}

	if e.Source != "" {
		parts = append(parts, "source="+e.Source)
	}

	if len(parts) == 0 {
		return ""
	}

	return "(" + strings.Join(parts, " ") + ")"
}

// Reason returns a short, stable label for the leaf sentinel err matches.
// Used for metric labels and summaries. Returns "other" for unknown errors.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrPartialPublish):
		return "partial_publish"
	case errors.Is(err, ErrBuildInProgress):
		return "build_in_progress"
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, ErrInvalidEnumValue):
		return "invalid_enum_value"
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrMalformedFrontMatter):
		return "malformed_front_matter"
	case errors.Is(err, ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, ErrDuplicateSlug):
		return "duplicate_slug"
	default:
		return "other"
	}
}
