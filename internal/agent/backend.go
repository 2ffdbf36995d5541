package agent

import "strings"

// SelectBackend derives the backend tag for a request.
//
// Precedence: an explicitly configured backend wins outright; otherwise a
// caller-supplied hint (e.g. "claude-cli") is matched by substring; otherwise
// the active model name decides (names containing "claude" or "gemini" map to
// those backends). Anything unrecognized falls through to codex, so this
// function is total and never errors.
func SelectBackend(explicit, hint, modelName string) Backend {
	if b := Backend(strings.ToLower(strings.TrimSpace(explicit))); b.Valid() {
		return b
	}

	if b, ok := backendFromHint(hint); ok {
		return b
	}

	m := strings.ToLower(modelName)
	switch {
	case strings.Contains(m, "claude"):
		return BackendClaude
	case strings.Contains(m, "gemini"):
		return BackendGemini
	default:
		// OpenAI-like model ids are treated as codex CLI backend.
		return BackendCodex
	}
}

// backendFromHint matches a caller hint such as "claude-cli" or "codex-cli"
// against the known backend names. An empty or unrecognized hint yields no
// derivation.
func backendFromHint(hint string) (Backend, bool) {
	v := strings.ToLower(strings.TrimSpace(hint))
	if v == "" {
		return "", false
	}
	switch {
	case strings.Contains(v, "claude"):
		return BackendClaude, true
	case strings.Contains(v, "gemini"):
		return BackendGemini, true
	case strings.Contains(v, "codex"):
		return BackendCodex, true
	}
	return "", false
}
