package documents

import (
	"fmt"
	"slices"
)

// Type identifies a document family. The zero value is TypeUnknown.
type Type int

const (
	TypeUnknown Type = iota
	TypeCatchCertificate
	TypeProcessingStatement
	TypeStorageDocument
)

// Types lists every known document type.
var Types = []Type{TypeCatchCertificate, TypeProcessingStatement, TypeStorageDocument}

// Code returns the two-letter service code embedded in document numbers.
func (t Type) Code() string {
	switch t {
	case TypeCatchCertificate:
		return "CC"
	case TypeProcessingStatement:
		return "PS"
	case TypeStorageDocument:
		return "SD"
	default:
		return "UNKNOWN"
	}
}

// Journey returns the route segment clients use for the type.
func (t Type) Journey() string {
	switch t {
	case TypeCatchCertificate:
		return "catchCertificate"
	case TypeProcessingStatement:
		return "processingStatement"
	case TypeStorageDocument:
		return "storageNotes"
	default:
		return ""
	}
}

func (t Type) String() string {
	return t.Code()
}

// MarshalText encodes the type as its service code.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.Code()), nil
}

// UnmarshalText decodes a service code. Unrecognized codes decode to TypeUnknown.
func (t *Type) UnmarshalText(b []byte) error {
	*t = typeFromCode(string(b))
	return nil
}

// ParseJourney maps a journey route segment to its type.
func ParseJourney(s string) (Type, error) {
	for _, t := range Types {
		if t.Journey() == s {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("%w: %q", ErrUnknownJourney, s)
}

func typeFromCode(code string) Type {
	for _, t := range Types {
		if t.Code() == code {
			return t
		}
	}
	return TypeUnknown
}

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusPending  Status = "PENDING"
	StatusLocked   Status = "LOCKED"
	StatusComplete Status = "COMPLETE"
	StatusVoid     Status = "VOID"
	StatusBlocked  Status = "BLOCKED"
)

// Status groupings used by the lookups.
var (
	InProgress  = []Status{StatusDraft, StatusPending, StatusLocked, StatusBlocked}
	Completed   = []Status{StatusComplete}
	Retrievable = []Status{StatusComplete, StatusPending}
)

// ParseStatus validates s as a known status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusDraft, StatusPending, StatusLocked, StatusComplete, StatusVoid, StatusBlocked:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Transitions maps a status to the statuses UpdateStatus may move it to.
// COMPLETE and VOID are never targets: CompleteDraft and Void own those
// moves because they also set the artifact, timestamps and draft data.
type Transitions map[Status][]Status

// Allows reports whether from may move to to.
func (tr Transitions) Allows(from, to Status) bool {
	return slices.Contains(tr[from], to)
}

// Sources lists the statuses that may move to to, in a stable order. Stores
// look documents up in this set, so a document in any other status reads as
// not found.
func (tr Transitions) Sources(to Status) []Status {
	out := make([]Status, 0, len(tr))
	for from, targets := range tr {
		if slices.Contains(targets, to) {
			out = append(out, from)
		}
	}
	slices.Sort(out)
	return out
}

// DefaultTransitions is the draft lifecycle shared by every document type.
var DefaultTransitions = Transitions{
	StatusDraft:   {StatusPending, StatusLocked},
	StatusPending: {StatusBlocked, StatusDraft},
	StatusLocked:  {StatusDraft},
	StatusBlocked: {StatusPending},
}

// TypeConfig parameterizes the shared store for one document type.
type TypeConfig struct {
	Type        Type
	Table       string
	Cached      bool
	LineItems   string
	Transitions Transitions
}

// Config returns the persistence configuration for t.
func Config(t Type) (TypeConfig, error) {
	switch t {
	case TypeCatchCertificate:
		return TypeConfig{
			Type:        t,
			Table:       "catch_certificates",
			Cached:      true,
			LineItems:   "products[].landings",
			Transitions: DefaultTransitions,
		}, nil
	case TypeProcessingStatement:
		return TypeConfig{
			Type:        t,
			Table:       "processing_statements",
			LineItems:   "catches",
			Transitions: DefaultTransitions,
		}, nil
	case TypeStorageDocument:
		return TypeConfig{
			Type:        t,
			Table:       "storage_documents",
			LineItems:   "catches",
			Transitions: DefaultTransitions,
		}, nil
	default:
		return TypeConfig{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
}
