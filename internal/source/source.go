// Package source normalizes the source payload returned by explorer lookups.
package source

import "strings"

// Normalize undoes the extra brace pair some explorers wrap around
// standard JSON input. A string that starts with "{" and ends with "}" loses
// exactly one leading and one trailing character; anything else, including a
// plain single-file Solidity source, is returned unchanged.
//
// The result is not re-validated: a malformed wrap surfaces later as a parse
// failure in name resolution.
func Normalize(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s[1 : len(s)-1]
	}
	return s
}

// IsWrapped reports whether Normalize would strip s
func IsWrapped(s string) bool {
	return len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}'
}

// ConstructorArgs strips one leading "0x" from hex-encoded constructor
// arguments. An empty input yields an empty string.
func ConstructorArgs(args string) string {
	return strings.TrimPrefix(args, "0x")
}
