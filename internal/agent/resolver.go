// resolver.go - Locates the codeagent-wrapper binary
//
// Resolution order:
// 1. Explicit configured path (no fallback: a wrong explicit path is a
//    configuration error, not a search miss)
// 2. Process PATH
// 3. ~/bin and ~/.claude/bin (conventional installer locations)
// 4. ./bin next to the working tree (dev convenience)
//
// Whatever candidate wins must also pass the executability check, which
// keeps "not installed" and "installed but broken" distinguishable.

package agent

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const wrapperName = "codeagent-wrapper"

// wrapperProgramName returns the platform binary name
func wrapperProgramName() string {
	if runtime.GOOS == "windows" {
		return wrapperName + ".exe"
	}
	return wrapperName
}

// ResolveWrapper returns a verified executable path for the wrapper binary,
// or a *ResolutionError describing why none was usable.
func ResolveWrapper(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", &ResolutionError{Path: explicitPath, Reason: ErrNotFound}
		}
		return verifyExecutable(explicitPath)
	}

	program := wrapperProgramName()

	if p := searchPath(program); p != "" {
		return verifyExecutable(p)
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidates := []string{
			filepath.Join(home, "bin", program),
			filepath.Join(home, ".claude", "bin", program),
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				return verifyExecutable(c)
			}
		}
	}

	// Dev convenience: a fetch script drops the wrapper into ./bin
	devCandidate := filepath.Join("bin", program)
	if _, err := os.Stat(devCandidate); err == nil {
		return verifyExecutable(devCandidate)
	}

	return "", &ResolutionError{Reason: ErrNotFound}
}

// searchPath scans the PATH directories for a regular file with the given
// name. Executability is checked separately so a broken install surfaces as
// ErrNotExecutable instead of a silent miss.
func searchPath(program string) string {
	pathVar := os.Getenv("PATH")
	if pathVar == "" {
		return ""
	}
	for _, dir := range filepath.SplitList(pathVar) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, program)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

func verifyExecutable(path string) (string, error) {
	if !isExecutableFile(path) {
		return "", &ResolutionError{Path: path, Reason: ErrNotExecutable}
	}
	return path, nil
}

// isExecutableFile reports whether path is a regular file the current
// platform would execute. POSIX checks any execute bit; Windows goes by the
// .exe extension.
func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return strings.EqualFold(filepath.Ext(path), ".exe")
	}
	return info.Mode().Perm()&0o111 != 0
}
