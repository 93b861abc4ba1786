package core

// error_messages.go maps technical errors to user-facing messages with a
// code that can be quoted to support.
//
// Errors are matched first by identity (errors.Is / errors.As against the
// sentinels and typed errors of this module), then by case-insensitive
// substring of the error text for driver errors that carry no type.
//
// # Version Errors (VER)
//
//	VER001 - Version not found (also returned for unreadable version tokens
//	         at the resolver, which treats them as matching nothing)
//	VER002 - Malformed version token (offline tools only)
//
// # Lineage Errors (LIN)
//
//	LIN001 - Cyclic version chain; the operation was aborted before any change
//	LIN002 - Version list with duplicate or empty ids
//
// # Mapping Errors (MAP)
//
//	MAP001 - Stored mapping plan has an invalid shape
//	MAP002 - No mapping plan for the version
//
// # Deletion Errors (DEL)
//
//	DEL001 - Candidate is public
//	DEL002 - Candidate is still the predecessor of a kept version
//	DEL003 - Too many concurrent deletion workflows
//
// # Request Errors (REQ, VAL)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//	VAL001 - Invalid request input
//
// # Database Errors (DB001-DB007)
//
//	DB001 - Duplicate key             Patterns: "duplicate key"
//	DB002 - Unique constraint         Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key               Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused        Patterns: "connection refused"
//	DB005 - Connection reset          Patterns: "connection reset"
//	DB006 - Timeout                   Patterns: "timeout"
//	DB007 - Deadlock                  Patterns: "deadlock"
//
// # Other
//
//	RATE001 - Rate limit exceeded     Patterns: "rate limit"
//	ERR000  - Anything else; check the logs for the technical error

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/statspub/internal/lineage"
	"github.com/JonMunkholm/statspub/internal/mapping"
	"github.com/JonMunkholm/statspub/internal/versioning"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// errorKind matches an error by identity.
type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is checked in order before any text pattern.
var errorKinds = []errorKind{
	{
		target: ErrVersionNotFound,
		msg: UserMessage{
			Message: "The requested dataset version does not exist",
			Action:  "Check the dataset id and version, for example 1.2, 2.* or *",
			Code:    "VER001",
		},
	},
	{
		target: versioning.ErrMalformedToken,
		msg: UserMessage{
			Message: "The version could not be read",
			Action:  "Use up to three numbers separated by dots, each of which may be *",
			Code:    "VER002",
		},
	},
	{
		target: lineage.ErrCyclicVersionChain,
		msg: UserMessage{
			Message: "The version history of this dataset contains a cycle",
			Action:  "Nothing was deleted. Contact support to repair the version chain",
			Code:    "LIN001",
		},
	},
	{
		target: lineage.ErrDuplicateEntity,
		msg: UserMessage{
			Message: "The version list contains the same version twice",
			Action:  "Remove duplicate entries and try again",
			Code:    "LIN002",
		},
	},
	{
		target: lineage.ErrMissingEntityID,
		msg: UserMessage{
			Message: "The version list contains a version without an id",
			Action:  "Make sure every version has an id",
			Code:    "LIN002",
		},
	},
	{
		target: mapping.ErrInvalidPlanShape,
		msg: UserMessage{
			Message: "The stored mapping plan is incomplete or corrupt",
			Action:  "Run automatic mapping for this version again",
			Code:    "MAP001",
		},
	},
	{
		target: ErrMappingNotFound,
		msg: UserMessage{
			Message: "No mapping plan exists for this version",
			Action:  "Create a mapping before reviewing it",
			Code:    "MAP002",
		},
	},
	{
		target: ErrVersionPublished,
		msg: UserMessage{
			Message: "Published versions cannot be deleted",
			Action:  "Deprecate or withdraw the version instead",
			Code:    "DEL001",
		},
	},
	{
		target: ErrVersionReferenced,
		msg: UserMessage{
			Message: "A newer version that is being kept still points at this version",
			Action:  "Delete the newer version as well, or keep this one",
			Code:    "DEL002",
		},
	},
	{
		target: ErrTooManyDeletions,
		msg: UserMessage{
			Message: "System is busy with other deletions",
			Action:  "Please wait a moment and try again",
			Code:    "DEL003",
		},
	},
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again later",
			Code:    "REQ002",
		},
	},
}

var validationMessage = UserMessage{
	Message: "The request is invalid",
	Action:  "Check the request parameters and body",
	Code:    "VAL001",
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: the first match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Check that the version was not already created",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This version number already exists for the dataset",
			Action:  "Choose the next free version number",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "This version number already exists for the dataset",
			Action:  "Choose the next free version number",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "The version is still referenced by another record",
			Action:  "Delete newer versions first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "The version is still referenced by another record",
			Action:  "Delete newer versions first",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	_, err := svc.ResolveVersion(ctx, datasetID, "9.*")
//	msg := MapError(err)
//	// msg.Code == "VER001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return validationMessage
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
