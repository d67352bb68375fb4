// Package core provides the business logic of the data sweeper.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
// Errors related to file handling and parsing:
//
//	FILE001 - Unsupported file type: Only CSV and Excel files are accepted
//	          Action: Upload a .csv or .xlsx file
//	          Patterns: "unsupported file type"
//
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Action: Ensure file is comma-separated with consistent columns
//	          Patterns: "invalid csv"
//
//	FILE003 - Invalid spreadsheet: The Excel workbook could not be read
//	          Action: Re-save the workbook as .xlsx and upload again
//	          Patterns: "invalid spreadsheet"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV or Excel file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Upload a file with a header row
//	          Patterns: "empty file"
//
//	FILE006 - File too large: File exceeds the maximum upload size
//	          Action: Split the file into smaller chunks
//	          Patterns: "file too large"
//
// # Table Errors (TBL001-TBL099)
//
// Errors related to columns of a working table:
//
//	TBL001 - Unknown column: The selected column does not exist
//	         Action: Choose one of the columns listed for this file
//	         Patterns: "unknown column"
//
//	TBL002 - No columns: The table has no columns
//	         Action: Select at least one column
//	         Patterns: "table has no columns"
//
// # Session Errors (SES001-SES099)
//
// Errors related to sessions and the files they hold:
//
//	SES001 - Session not found: The session does not exist or has expired
//	         Action: Start a new session and upload your files again
//	         Patterns: "session not found"
//
//	SES002 - File not found: The file is not part of this session
//	         Action: Refresh the page and pick a file from the list
//	         Patterns: "file not found"
//
//	SES003 - Session full: The session holds the maximum number of files
//	         Action: Remove a file before uploading another
//	         Patterns: "session file limit"
//
// # Merge Errors (MRG001-MRG099)
//
//	MRG001 - Not enough files: Merging needs at least two files
//	         Action: Upload another file to this session
//	         Patterns: "merge requires at least two files"
//
//	MRG002 - Merge key missing: The merge column is missing from a file
//	         Action: Pick a merge column that exists in every file
//	         Patterns: "merge key not found"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid request: The request is missing or has invalid fields
//	         Action: Check the request body and try again
//	         Patterns: "invalid request"
//
//	VAL002 - Unknown operation: The cleaning operation is not supported
//	         Action: Use drop_duplicates, fill_missing or normalize_text
//	         Patterns: "unknown clean operation"
//
//	VAL003 - Unknown format: The export or chart format is not supported
//	         Action: Use one of the listed formats
//	         Patterns: "unknown format"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many uploads"
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout: Request timed out
//	         Action: Try a smaller file or check your connection
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
//
// # For Support Staff
//
// When a user reports an error code:
//  1. Look up the code in this reference
//  2. Check the associated patterns to understand what triggered it
//  3. Review the suggested action to guide the user
//  4. If ERR000, check application logs for the original technical error
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Unsupported file type",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid spreadsheet",
		msg: UserMessage{
			Message: "The Excel workbook could not be read",
			Action:  "Re-save the workbook as .xlsx and upload again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or Excel file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Merge Errors (MRG001-MRG002)
	// Checked before table errors: a missing merge key also names a column.
	// =========================================================================
	{
		pattern: "merge requires at least two files",
		msg: UserMessage{
			Message: "Merging needs at least two files",
			Action:  "Upload another file to this session",
			Code:    "MRG001",
		},
	},
	{
		pattern: "merge key not found",
		msg: UserMessage{
			Message: "The merge column is missing from a file",
			Action:  "Pick a merge column that exists in every file",
			Code:    "MRG002",
		},
	},

	// =========================================================================
	// Table Errors (TBL001-TBL002)
	// =========================================================================
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "The selected column does not exist",
			Action:  "Choose one of the columns listed for this file",
			Code:    "TBL001",
		},
	},
	{
		pattern: "table has no columns",
		msg: UserMessage{
			Message: "The table has no columns",
			Action:  "Select at least one column",
			Code:    "TBL002",
		},
	},

	// =========================================================================
	// Session Errors (SES001-SES003)
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Session not found",
			Action:  "Start a new session and upload your files again",
			Code:    "SES001",
		},
	},
	{
		pattern: "file not found",
		msg: UserMessage{
			Message: "File not found in this session",
			Action:  "Refresh the page and pick a file from the list",
			Code:    "SES002",
		},
	},
	{
		pattern: "session file limit",
		msg: UserMessage{
			Message: "This session already holds the maximum number of files",
			Action:  "Remove a file before uploading another",
			Code:    "SES003",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL003)
	// =========================================================================
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request is missing or has invalid fields",
			Action:  "Check the request body and try again",
			Code:    "VAL001",
		},
	},
	{
		pattern: "unknown clean operation",
		msg: UserMessage{
			Message: "The cleaning operation is not supported",
			Action:  "Use drop_duplicates, fill_missing or normalize_text",
			Code:    "VAL002",
		},
	},
	{
		pattern: "unknown format",
		msg: UserMessage{
			Message: "The requested format is not supported",
			Action:  "Use one of the listed formats",
			Code:    "VAL003",
		},
	},

	// =========================================================================
	// Upload Errors (UPL002-UPL005)
	// =========================================================================
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := fmt.Errorf("load report.pdf: %w", ErrUnsupportedFormat)
//	msg := MapError(err)
//	// msg.Code == "FILE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
