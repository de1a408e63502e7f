package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/damione1/paginated-grid/internal/models"
)

// Input length constraints
const (
	MaxCallIDLength          = 128
	MaxParticipantIDLength   = 64
	MaxParticipantNameLength = 50
)

var (
	// Opaque media-session ids: letters, digits, hyphen, underscore
	opaqueIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// UUID validation regex
	uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// ValidateParticipantID accepts the local sentinel, UUIDs and short opaque ids
func ValidateParticipantID(id string) error {
	if id == "" {
		return fmt.Errorf("participant ID cannot be empty")
	}
	if id == models.LocalParticipantID {
		return nil
	}

	if uuidRegex.MatchString(strings.ToLower(id)) {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("malformed UUID: %w", err)
		}
		return nil
	}

	if len(id) > MaxParticipantIDLength {
		return fmt.Errorf("participant ID too long (max %d characters)", MaxParticipantIDLength)
	}
	if !opaqueIDRegex.MatchString(id) {
		return fmt.Errorf("participant ID contains invalid characters")
	}
	return nil
}

// ValidateCallID validates the call id taken from a route
func ValidateCallID(id string) error {
	if id == "" {
		return fmt.Errorf("call ID cannot be empty")
	}
	if len(id) > MaxCallIDLength {
		return fmt.Errorf("call ID too long (max %d characters)", MaxCallIDLength)
	}
	if !opaqueIDRegex.MatchString(id) {
		return fmt.Errorf("call ID contains invalid characters")
	}
	return nil
}

// SanitizeDisplayName trims, drops control characters and truncates a
// display name. Display names come from the media session and are shown
// as-is, so they are cleaned rather than rejected.
func SanitizeDisplayName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	runes := []rune(name)
	if len(runes) > MaxParticipantNameLength {
		name = strings.TrimSpace(string(runes[:MaxParticipantNameLength]))
	}
	return name
}

// SanitizeErrorMessage removes sensitive information from error messages
// Returns a generic user-friendly error message
func SanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())

	// Internal error patterns to sanitize
	sensitivePatterns := []string{
		"redis",
		"dial tcp",
		"connection refused",
		"websocket",
		"pocketbase",
		"broken pipe",
	}

	for _, pattern := range sensitivePatterns {
		if strings.Contains(errStr, pattern) {
			return "An error occurred while processing your request"
		}
	}

	// If no sensitive patterns detected, return original
	return err.Error()
}
