package core

// error_messages.go maps technical errors to user-facing guidance with a
// short code that can be quoted to support.
//
// Codes by category:
//
//	DATA001 - No table is loaded yet
//	FILE001 - Upload exceeds the size limit
//	FILE002 - CSV could not be parsed
//	FILE003 - Extension is not csv, xlsx or xls
//	FILE004 - No file in the request
//	FILE005 - File has no header row
//	FILE006 - Table exceeds the cell limit
//	FILE007 - Workbook could not be opened
//	SRCH001 - Empty search query
//	SRCH002 - Unknown search column
//	EXP001  - Empty export payload
//	EXP002  - Export file no longer available
//	UPL002  - All ingestion slots busy
//	UPL004  - Request cancelled
//	UPL005  - Request timed out
//	RATE001 - Rate limited
//	REQ001  - Request body is not valid JSON
//	ERR000  - Anything else; check the server log for the request id
//
// Patterns are matched case-insensitively with strings.Contains against the
// full error chain text. The first match wins, so specific patterns come first.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "no file uploaded",
		msg: UserMessage{
			Message: "No data is loaded yet",
			Action:  "Upload a CSV or Excel file first",
			Code:    "DATA001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "table too large",
		msg: UserMessage{
			Message: "File has more cells than the server will hold in memory",
			Action:  "Remove unused columns or split the file",
			Code:    "FILE006",
		},
	},
	{
		pattern: "no header row",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid file type",
		msg: UserMessage{
			Message: "Only .csv, .xlsx and .xls files are supported",
			Action:  "Save the file in one of the supported formats",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file selected",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "open workbook",
		msg: UserMessage{
			Message: "The workbook could not be opened",
			Action:  "Re-save the file from Excel and try again",
			Code:    "FILE007",
		},
	},
	{
		pattern: "search query cannot be empty",
		msg: UserMessage{
			Message: "Search query cannot be empty",
			Action:  "Enter text to search for",
			Code:    "SRCH001",
		},
	},
	{
		pattern: "export not found",
		msg: UserMessage{
			Message: "Export file is no longer available",
			Action:  "Run the export again",
			Code:    "EXP002",
		},
	},
	{
		pattern: `column "`,
		msg: UserMessage{
			Message: "Search column does not exist in the loaded file",
			Action:  "Pick a column from the list or search all columns",
			Code:    "SRCH002",
		},
	},
	{
		pattern: "no results to export",
		msg: UserMessage{
			Message: "There are no rows to export",
			Action:  "Run a search that returns results first",
			Code:    "EXP001",
		},
	},
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "Server is busy reading other files",
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
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "Request body is not valid JSON",
			Action:  "Send a JSON object",
			Code:    "REQ001",
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

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
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

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matched a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
