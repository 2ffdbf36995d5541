// jsonc.go - Comment stripping for the JSONC config file

package config

// Scanner modes for StripJSONComments
const (
	scanPlain = iota
	scanString
	scanLineComment
	scanBlockComment
)

// StripJSONComments removes // line and /* block */ comments so the result
// parses as plain JSON. Comment markers inside string literals are
// preserved, escaped quotes included. Newlines inside comments are kept so
// parse errors still point at the original line.
func StripJSONComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	mode := scanPlain
	escaped := false

	for i := 0; i < len(data); i++ {
		ch := data[i]

		switch mode {
		case scanString:
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				mode = scanPlain
			}

		case scanLineComment:
			if ch == '\n' {
				out = append(out, ch)
				mode = scanPlain
			}

		case scanBlockComment:
			if ch == '*' && i+1 < len(data) && data[i+1] == '/' {
				i++
				mode = scanPlain
			} else if ch == '\n' {
				out = append(out, ch)
			}

		default:
			switch {
			case ch == '"':
				out = append(out, ch)
				mode = scanString
			case ch == '/' && i+1 < len(data) && data[i+1] == '/':
				i++
				mode = scanLineComment
			case ch == '/' && i+1 < len(data) && data[i+1] == '*':
				i++
				mode = scanBlockComment
			default:
				out = append(out, ch)
			}
		}
	}

	return out
}
