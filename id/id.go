// Package id defines TypeID-based identity types for all Boxline entities.
//
// Every entity in Boxline uses a single ID struct with a prefix that identifies
// the entity type. IDs are K-sortable (UUIDv7-based), globally unique,
// and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Boxline entity types.
const (
	PrefixJob        Prefix = "job"
	PrefixPlan       Prefix = "plan"
	PrefixStep       Prefix = "step"
	PrefixWorkRecord Prefix = "mwr"
	PrefixDetail     Prefix = "det"
	PrefixArchive    Prefix = "arch"
	PrefixActivity   Prefix = "act"
	PrefixReconcile  Prefix = "rec"
)

// ID is the primary identifier type for all Boxline entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "job_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// JobID is a type-safe identifier for jobs (prefix: "job").
type JobID = ID

// PlanID is a type-safe identifier for step plans (prefix: "plan").
type PlanID = ID

// StepID is a type-safe identifier for step instances (prefix: "step").
type StepID = ID

// WorkRecordID is a type-safe identifier for machine work records (prefix: "mwr").
type WorkRecordID = ID

// DetailID is a type-safe identifier for step detail records (prefix: "det").
type DetailID = ID

// ArchiveID is a type-safe identifier for completed-job archives (prefix: "arch").
type ArchiveID = ID

// ActivityID is a type-safe identifier for activity entries (prefix: "act").
type ActivityID = ID

// ReconcileID is a type-safe identifier for reconciliation entries (prefix: "rec").
type ReconcileID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewJobID generates a new unique job ID.
func NewJobID() ID { return New(PrefixJob) }

// NewPlanID generates a new unique step plan ID.
func NewPlanID() ID { return New(PrefixPlan) }

// NewStepID generates a new unique step instance ID.
func NewStepID() ID { return New(PrefixStep) }

// NewWorkRecordID generates a new unique machine work record ID.
func NewWorkRecordID() ID { return New(PrefixWorkRecord) }

// NewDetailID generates a new unique step detail record ID.
func NewDetailID() ID { return New(PrefixDetail) }

// NewArchiveID generates a new unique archive ID.
func NewArchiveID() ID { return New(PrefixArchive) }

// NewActivityID generates a new unique activity entry ID.
func NewActivityID() ID { return New(PrefixActivity) }

// NewReconcileID generates a new unique reconciliation entry ID.
func NewReconcileID() ID { return New(PrefixReconcile) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseJobID parses a string and validates the "job" prefix.
func ParseJobID(s string) (ID, error) { return ParseWithPrefix(s, PrefixJob) }

// ParsePlanID parses a string and validates the "plan" prefix.
func ParsePlanID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPlan) }

// ParseStepID parses a string and validates the "step" prefix.
func ParseStepID(s string) (ID, error) { return ParseWithPrefix(s, PrefixStep) }

// ParseWorkRecordID parses a string and validates the "mwr" prefix.
func ParseWorkRecordID(s string) (ID, error) { return ParseWithPrefix(s, PrefixWorkRecord) }

// ParseDetailID parses a string and validates the "det" prefix.
func ParseDetailID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDetail) }

// ParseArchiveID parses a string and validates the "arch" prefix.
func ParseArchiveID(s string) (ID, error) { return ParseWithPrefix(s, PrefixArchive) }

// ParseReconcileID parses a string and validates the "rec" prefix.
func ParseReconcileID(s string) (ID, error) { return ParseWithPrefix(s, PrefixReconcile) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
