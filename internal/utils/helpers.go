// internal/utils/helpers.go
// General utility functions

package utils

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// GenerateUUID generates a new UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return fmt.Sprintf("req_%s", GenerateUUID())
}

// TeamID derives a stable team identifier from its display name:
// lowercase, alphanumerics kept, everything else collapsed to underscores.
func TeamID(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// MatchSlug builds the canonical external id for a match between two
// team slots. An empty slot renders as "null", e.g. "a_vs_null".
func MatchSlug(team1Ref, team2Ref *string) string {
	t1, t2 := "null", "null"
	if team1Ref != nil {
		t1 = *team1Ref
	}
	if team2Ref != nil {
		t2 = *team2Ref
	}
	return t1 + "_vs_" + t2
}

// MinInt returns the minimum of two integers
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// MaxInt returns the maximum of two integers
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// StringPtr returns a pointer to a string
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to an int
func IntPtr(i int) *int {
	return &i
}

// BoolPtr returns a pointer to a bool
func BoolPtr(b bool) *bool {
	return &b
}
