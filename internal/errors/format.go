package errors

import (
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ve, ok := err.(*VigilError)
	if !ok {
		// Wrap standard error
		ve = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	// Error message with code
	sb.WriteString(fmt.Sprintf("Error: %s\n", ve.Message))

	// Suggestion if available
	if ve.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ve.Suggestion))
	}

	// Code reference
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ve.Code))

	return sb.String()
}

// FormatForLog returns a flat key=value representation for log records.
func FormatForLog(err error) string {
	if err == nil {
		return ""
	}

	ve, ok := err.(*VigilError)
	if !ok {
		return err.Error()
	}

	parts := []string{
		fmt.Sprintf("code=%s", ve.Code),
		fmt.Sprintf("category=%s", ve.Category),
		fmt.Sprintf("message=%q", ve.Message),
	}
	for k, v := range ve.Details {
		parts = append(parts, fmt.Sprintf("%s=%q", k, v))
	}
	if ve.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%q", ve.Cause.Error()))
	}
	return strings.Join(parts, " ")
}
