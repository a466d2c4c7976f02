package validation

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var (
	// UUIDRegex validates UUID format
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// listSeparator splits free-text lists typed one per line or comma separated
	listSeparator = regexp.MustCompile(`[\n,]`)
)

var (
	ErrInvalidID      = errors.New("invalid identifier")
	ErrInvalidDataURL = errors.New("invalid data URL")
)

// IsValidUUID checks if the string is a valid UUID format
func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// ParseID parses a positive numeric order id from a path segment.
func ParseID(raw string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || n == 0 {
		return 0, ErrInvalidID
	}
	return uint(n), nil
}

// ParseUUID parses a UUID path segment or query value.
func ParseUUID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if !IsValidUUID(raw) {
		return uuid.Nil, ErrInvalidID
	}
	return uuid.Parse(raw)
}

// NormalizeList turns a newline or comma separated string into trimmed,
// non-empty entries.
func NormalizeList(s string) []string {
	out := []string{}
	for _, part := range listSeparator.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DecodeDataURL returns the bytes of a base64 payload. Both bare base64 and
// data URLs ("data:image/png;base64,....") are accepted.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidDataURL
	}
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, ErrInvalidDataURL
		}
		s = payload
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if b, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return nil, ErrInvalidDataURL
		}
	}
	return b, nil
}

// SanitizeString drops NUL and control characters from free text typed by
// users, keeping line breaks and tabs.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}
