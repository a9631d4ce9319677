package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error below unwraps to exactly one of these so
// callers can branch with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrState      = errors.New("invalid state")
	ErrNotFound   = errors.New("not found")
)

// ErrDuplicate is returned by repositories when a unique index rejects a write
var ErrDuplicate = errors.New("duplicate key")

// Validation rule identifiers
const (
	RuleInvalidTicketNumber = "invalid_ticket_number"
	RuleInvalidCustomer     = "invalid_customer"
	RuleInactiveSeller      = "inactive_seller"
	RuleUnassignedRank      = "unassigned_rank"
	RuleDuplicateRank       = "duplicate_rank"
	RuleDuplicateTicket     = "duplicate_ticket"
	RuleTicketNotSold       = "ticket_not_sold"
	RuleInvalidLottery      = "invalid_lottery"
	RuleInvalidTicketCount  = "invalid_ticket_count"
)

// Conflict reasons
const (
	ReasonTicketAlreadySold = "ticket_already_sold"
	ReasonConcurrentUpdate  = "concurrent_update"
)

// State reasons
const (
	ReasonLotteryNotActive = "lottery_not_active"
	ReasonLotteryNotEnded  = "lottery_not_ended"
	ReasonAlreadyResolved  = "lottery_already_resolved"
	ReasonLotteryResolved  = "lottery_has_winners"
	ReasonNotResolved      = "lottery_not_resolved"
)

// Violation is one broken rule, naming the offending rank or ticket when relevant
type Violation struct {
	Rule         string `json:"rule"`
	Rank         int    `json:"rank,omitempty"`
	TicketNumber int    `json:"ticketNumber,omitempty"`
	Field        string `json:"field,omitempty"`
	Message      string `json:"message"`
}

// ValidationError is a caller-fixable input problem
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// HasRule reports whether any violation carries the rule
func (e *ValidationError) HasRule(rule string) bool {
	for _, v := range e.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// NewValidationError builds a ValidationError with a single violation
func NewValidationError(rule, format string, args ...any) *ValidationError {
	return &ValidationError{Violations: []Violation{{Rule: rule, Message: fmt.Sprintf(format, args...)}}}
}

// ConflictError reports a lost race on a contended resource
type ConflictError struct {
	Reason       string
	TicketNumber int
	Retryable    bool
	Err          error
}

func (e *ConflictError) Error() string {
	if e.Reason == ReasonTicketAlreadySold {
		return fmt.Sprintf("ticket %d is already sold", e.TicketNumber)
	}
	if e.Err != nil {
		return fmt.Sprintf("conflict (%s): %v", e.Reason, e.Err)
	}
	return "conflict: " + e.Reason
}

func (e *ConflictError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConflict, e.Err}
	}
	return []error{ErrConflict}
}

// StateError reports an operation that is invalid for the lottery's current status
type StateError struct {
	Reason  string
	Message string
}

func (e *StateError) Error() string { return e.Message }

func (e *StateError) Unwrap() error { return ErrState }

// NotFoundError reports an unknown lottery, ticket, seller or prize rank
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
