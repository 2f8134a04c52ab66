package errors

import (
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message.
// If debug is true, includes additional technical details.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	re, ok := err.(*RecallError)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder

	sb.WriteString("Error: ")
	sb.WriteString(re.Message)
	sb.WriteString("\n")

	if re.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(re.Suggestion)
		sb.WriteString("\n")
	}

	if debug {
		if re.Cause != nil {
			sb.WriteString(fmt.Sprintf("\nCause: %v\n", re.Cause))
		}
		for k, v := range re.Details {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
		}
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", re.Code))

	return sb.String()
}

// FormatForCLI formats an error for CLI output.
// Uses a concise single-line format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	re, ok := err.(*RecallError)
	if !ok {
		return err.Error()
	}

	if re.Suggestion != "" {
		return fmt.Sprintf("%s (%s). %s", re.Message, re.Code, re.Suggestion)
	}
	return fmt.Sprintf("%s (%s)", re.Message, re.Code)
}
