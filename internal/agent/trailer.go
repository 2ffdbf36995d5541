// trailer.go - Parses the SESSION_ID trailer from wrapper stdout
//
// The wrapper prints:
//
//	<message>
//	---
//	SESSION_ID: <id>
//
// The task's own output may legitimately contain marker-like substrings, so
// the scan always takes the last occurrence. Fallbacks are ordered strict to
// loose; the order must not change because the loose patterns can mis-parse
// output the strict ones would have matched correctly.

package agent

import "strings"

const sessionIDKey = "SESSION_ID:"

// ParseStdout splits raw wrapper stdout into the message body and the
// optional continuation id. Pure, never fails; an absent id is returned as
// the empty string.
func ParseStdout(stdout string) (message, sessionID string) {
	// Windows builds may emit CRLF
	normalized := strings.ReplaceAll(stdout, "\r\n", "\n")

	// Exact marker, then the same without the required leading newline
	for _, marker := range []string{"\n---\n" + sessionIDKey, "---\n" + sessionIDKey} {
		if idx := strings.LastIndex(normalized, marker); idx >= 0 {
			message = strings.TrimSpace(normalized[:idx])
			sessionID = trailerToken(normalized[idx+len(marker):])
			return message, sessionID
		}
	}

	// Last resort: bare key anywhere, tolerating mangled delimiters.
	// Known ambiguity: a task that echoes the literal key can misfire here.
	if idx := strings.LastIndex(normalized, sessionIDKey); idx >= 0 {
		before := normalized[:idx]
		after := normalized[idx+len(sessionIDKey):]
		sessionID = strings.TrimSpace(firstLine(after))
		message = strings.TrimSpace(strings.TrimRight(before, "-"))
		return message, sessionID
	}

	return strings.TrimSpace(normalized), ""
}

// trailerToken extracts the id token from the text following the key on a
// well-formed trailer line
func trailerToken(tail string) string {
	token := strings.TrimSpace(firstLine(tail))
	token = strings.TrimLeft(token, ":")
	return strings.TrimSpace(token)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
