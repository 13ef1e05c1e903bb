package model

import (
	"errors"
	"fmt"
	"maps"
)

// ErrorKind groups error codes by how a caller should react to them.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindForbidden    ErrorKind = "forbidden"
	KindInvalidState ErrorKind = "invalid_state"
	KindConflict     ErrorKind = "conflict"
	KindValidation   ErrorKind = "validation"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeEventNotFound         Code = "EVENT_NOT_FOUND"
	CodeTicketNotFound        Code = "TICKET_NOT_FOUND"
	CodeTeamNotFound          Code = "TEAM_NOT_FOUND"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeEventNotOpen          Code = "EVENT_NOT_OPEN"
	CodeDeadlinePassed        Code = "DEADLINE_PASSED"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeEventNotEditable      Code = "EVENT_NOT_EDITABLE"
	CodeFormLocked            Code = "FORM_LOCKED"
	CodeCapacityReached       Code = "CAPACITY_REACHED"
	CodeAlreadyRegistered     Code = "ALREADY_REGISTERED"
	CodeVariantNotFound       Code = "VARIANT_NOT_FOUND"
	CodePurchaseLimitExceeded Code = "PURCHASE_LIMIT_EXCEEDED"
	CodeInsufficientStock     Code = "INSUFFICIENT_STOCK"
	CodeAlreadyAttended       Code = "ALREADY_ATTENDED"
	CodeAlreadyCancelled      Code = "ALREADY_CANCELLED"
	CodeAlreadyInTeam         Code = "ALREADY_IN_TEAM"
	CodeAlreadyMember         Code = "ALREADY_MEMBER"
	CodeTeamFull              Code = "TEAM_FULL"
	CodeTeamChanged           Code = "TEAM_CHANGED"
	CodeTeamIssuanceFailed    Code = "TEAM_ISSUANCE_FAILED"
	CodeInviteCodeTaken       Code = "INVITE_CODE_TAKEN"
	CodeTicketIDTaken         Code = "TICKET_ID_TAKEN"
	CodeVariantRequired       Code = "VARIANT_REQUIRED"
	CodeInvalidSize           Code = "INVALID_SIZE"
	CodeInvalidQuantity       Code = "INVALID_QUANTITY"
	CodeFormFieldRequired     Code = "FORM_FIELD_REQUIRED"
	CodeInvalidInput          Code = "INVALID_INPUT"
)

// Error is the domain error type. Two errors match under errors.Is when
// their codes are equal, so decorated copies still match their sentinel.
type Error struct {
	Kind      ErrorKind
	Code      Code
	Message   string
	Retryable bool
	Metadata  map[string]string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a domain error.
func NewError(kind ErrorKind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Withf returns a copy of e with a formatted message.
func (e *Error) Withf(format string, args ...any) *Error {
	c := e.clone()
	c.Message = fmt.Sprintf(format, args...)
	return c
}

// WithMeta returns a copy of e with an added metadata entry.
func (e *Error) WithMeta(key, value string) *Error {
	c := e.clone()
	if c.Metadata == nil {
		c.Metadata = make(map[string]string, 1)
	}
	c.Metadata[key] = value
	return c
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	c := e.clone()
	c.Cause = cause
	return c
}

func (e *Error) clone() *Error {
	c := *e
	c.Metadata = maps.Clone(e.Metadata)
	return &c
}

// AsError extracts the domain error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

var (
	ErrEventNotFound  = NewError(KindNotFound, CodeEventNotFound, "event not found")
	ErrTicketNotFound = NewError(KindNotFound, CodeTicketNotFound, "ticket not found")
	ErrTeamNotFound   = NewError(KindNotFound, CodeTeamNotFound, "team not found")

	ErrUnauthorized = NewError(KindForbidden, CodeUnauthorized, "not allowed to act on this resource")

	ErrEventNotOpen      = NewError(KindInvalidState, CodeEventNotOpen, "event is not open for registration")
	ErrDeadlinePassed    = NewError(KindInvalidState, CodeDeadlinePassed, "registration deadline has passed")
	ErrInvalidTransition = NewError(KindInvalidState, CodeInvalidTransition, "invalid status transition")
	ErrEventNotEditable  = NewError(KindInvalidState, CodeEventNotEditable, "event can only be changed while in draft")
	ErrFormLocked        = NewError(KindInvalidState, CodeFormLocked, "registration form is locked once registrations exist")
	ErrAlreadyCancelled  = NewError(KindInvalidState, CodeAlreadyCancelled, "registration is already cancelled")

	ErrCapacityReached       = NewError(KindConflict, CodeCapacityReached, "event is fully booked")
	ErrAlreadyRegistered     = NewError(KindConflict, CodeAlreadyRegistered, "participant is already registered for this event")
	ErrVariantNotFound       = NewError(KindConflict, CodeVariantNotFound, "variant not found")
	ErrPurchaseLimitExceeded = NewError(KindConflict, CodePurchaseLimitExceeded, "quantity exceeds purchase limit")
	ErrAlreadyAttended       = NewError(KindConflict, CodeAlreadyAttended, "attendance already marked")
	ErrAlreadyInTeam         = NewError(KindConflict, CodeAlreadyInTeam, "participant already belongs to a team for this event")
	ErrAlreadyMember         = NewError(KindConflict, CodeAlreadyMember, "participant is already a member of this team")
	ErrTeamFull              = NewError(KindConflict, CodeTeamFull, "team is already complete")
	ErrTeamIssuanceFailed    = NewError(KindConflict, CodeTeamIssuanceFailed, "team tickets could not be issued")
	ErrInviteCodeTaken       = NewError(KindConflict, CodeInviteCodeTaken, "invite code already in use")

	ErrInsufficientStock = &Error{Kind: KindConflict, Code: CodeInsufficientStock, Message: "insufficient stock", Retryable: true}
	ErrTeamChanged       = &Error{Kind: KindConflict, Code: CodeTeamChanged, Message: "team changed concurrently", Retryable: true}
	ErrTicketIDTaken     = &Error{Kind: KindConflict, Code: CodeTicketIDTaken, Message: "ticket id already issued", Retryable: true}

	ErrVariantRequired   = NewError(KindValidation, CodeVariantRequired, "variant selection is required for merchandise")
	ErrInvalidSize       = NewError(KindValidation, CodeInvalidSize, "team size must be between 2 and 6")
	ErrInvalidQuantity   = NewError(KindValidation, CodeInvalidQuantity, "quantity must be a positive integer")
	ErrFormFieldRequired = NewError(KindValidation, CodeFormFieldRequired, "required form field missing")
	ErrInvalidInput      = NewError(KindValidation, CodeInvalidInput, "invalid input")
)
