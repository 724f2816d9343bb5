package transfer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameBytes is the longest file name most filesystems accept (NAME_MAX).
const MaxNameBytes = 255

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Sanitize makes name safe to use as a file name on common filesystems.
// Path separators, characters Windows rejects and control characters are
// dropped, trailing dots and spaces trimmed and the result is capped at
// MaxNameBytes. Distinct inputs may map to the same output.
func Sanitize(name string) string {
	return SanitizeMax(name, MaxNameBytes)
}

// SanitizeMax is Sanitize with the result capped at limit bytes, leaving room
// for suffixes appended afterwards.
func SanitizeMax(name string, limit int) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == utf8.RuneError:
			continue
		case strings.ContainsRune(`/\:*?"<>|`, r):
			continue
		case unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
	}

	s := strings.TrimSpace(b.String())
	s = strings.TrimRight(s, ". ")

	if len(s) > limit {
		for len(s) > limit {
			_, size := utf8.DecodeLastRuneInString(s)
			s = s[:len(s)-size]
		}
		s = strings.TrimRight(s, ". ")
	}

	base := s
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if reservedNames[strings.ToUpper(base)] {
		s = "_" + s
	}
	return s
}

// Truncate shortens s for display, marking the cut with "...".
func Truncate(s string, length int) string {
	if length <= 4 || utf8.RuneCountInString(s) <= length {
		return s
	}
	runes := []rune(s)
	return string(runes[:length-4]) + "..."
}
