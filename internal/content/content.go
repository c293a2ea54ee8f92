package content

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"onionchat/internal/models"
)

const maxUsernameLength = 20

var (
	strict = bluemonday.StrictPolicy()

	escaper = strings.NewReplacer(
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
)

// Escape replaces the markup-significant characters "<", ">", double and
// single quotes with their HTML entities. Everything else, including "&",
// passes through unchanged so already-escaped text is not double-escaped
// beyond those four characters. Total: never fails, any input.
func Escape(input string) string {
	return escaper.Replace(input)
}

// ValidateUsername checks that a username is non-empty after trimming,
// at most 20 characters, and carries no markup. The strict policy strips
// every tag, so any name it rewrites is rejected rather than altered.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return models.ErrInvalidUsername
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return models.ErrInvalidUsername
	}
	if strict.Sanitize(username) != username || Escape(username) != username {
		return models.ErrInvalidUsername
	}
	return nil
}
