// Package sanitize strips characters the storage layer cannot represent.
//
// Archived documents occasionally carry NUL (U+0000) inside body text, user
// descriptions, and even urls. Text columns reject or truncate at NUL
// depending on the backend, so every extracted string passes through Clean
// before it is handed to the persistence layer. Nothing else is touched;
// emoji, control characters, and broken surrogates are stored as they came.
package sanitize

import "strings"

// Clean returns s with every NUL byte removed. A nil input stays nil, so
// optional fields can be piped through without presence checks.
func Clean(s *string) *string {
	if s == nil {
		return nil
	}
	if !strings.ContainsRune(*s, 0) {
		return s
	}
	v := strings.ReplaceAll(*s, "\x00", "")
	return &v
}

// CleanSlice applies Clean to every element and returns the input slice
// (nil in, nil out). Elements are replaced in place.
func CleanSlice(ss []string) []string {
	for i := range ss {
		ss[i] = strings.ReplaceAll(ss[i], "\x00", "")
	}
	return ss
}
