package layout

import (
	"regexp"
	"unicode/utf8"
)

const maxFileNameBytes = 255

var (
	illegalRe         = regexp.MustCompile(`[/?<>\\:*|"]`)
	controlRe         = regexp.MustCompile(`[\x00-\x1f\x80-\x9f]`)
	reservedRe        = regexp.MustCompile(`^\.+$`)
	windowsReservedRe = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
	windowsTrailingRe = regexp.MustCompile(`[. ]+$`)
)

// SanitizeFileName makes name safe to use as a single path element: path
// separators and characters Windows rejects are removed, as are control
// characters, dot-only names and reserved device names. The result is cut to
// 255 bytes without splitting a UTF-8 sequence and may be empty.
func SanitizeFileName(name string) string {
	s := illegalRe.ReplaceAllString(name, "")
	s = controlRe.ReplaceAllString(s, "")
	s = reservedRe.ReplaceAllString(s, "")
	s = windowsReservedRe.ReplaceAllString(s, "")
	s = windowsTrailingRe.ReplaceAllString(s, "")
	return truncate(s, maxFileNameBytes)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
