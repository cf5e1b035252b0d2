// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Stream operations
	OpInspect     Op = "inspect stream"
	OpListPackets Op = "list packets"
	OpDecode      Op = "decode stream"
	OpFeed        Op = "feed stream"
	OpResync      Op = "resynchronize stream"

	// File operations
	OpFileOpen   Op = "open file"
	OpFileCreate Op = "create output file"
	OpFileStat   Op = "read file info"

	// Probe cache operations
	OpCacheOpen   Op = "open probe cache"
	OpCacheLookup Op = "read probe cache"
	OpCacheStore  Op = "update probe cache"

	// Initialization
	OpConfigLoad Op = "load configuration"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

// Wrap returns err with the FormatWith wording, still matching errors.Is
// against the original error.
func Wrap(op Op, context string, err error) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return fmt.Errorf("Failed to %s: %w", op, err)
	}
	return fmt.Errorf("Failed to %s '%s': %w", op, context, err)
}
