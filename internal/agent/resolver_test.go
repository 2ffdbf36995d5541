package agent

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeFakeWrapper drops a file named codeagent-wrapper into dir
func writeFakeWrapper(t *testing.T, dir string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, wrapperProgramName())
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
		t.Fatalf("writing fake wrapper: %v", err)
	}
	return path
}

// isolateSearchDirs points PATH and HOME at empty temp dirs so resolution
// cannot accidentally find a real install
func isolateSearchDirs(t *testing.T) {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", t.TempDir())
}

func TestResolveWrapperExplicitPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not meaningful on windows")
	}

	t.Run("existing executable path", func(t *testing.T) {
		isolateSearchDirs(t)
		path := writeFakeWrapper(t, t.TempDir(), 0o755)

		got, err := ResolveWrapper(path)
		if err != nil {
			t.Fatalf("ResolveWrapper(%q) error: %v", path, err)
		}
		if got != path {
			t.Errorf("resolved %q, want %q", got, path)
		}
	})

	t.Run("missing explicit path never falls back", func(t *testing.T) {
		// A valid install is reachable via PATH, but the explicit path is
		// wrong; resolution must fail rather than search.
		pathDir := t.TempDir()
		writeFakeWrapper(t, pathDir, 0o755)
		t.Setenv("PATH", pathDir)
		t.Setenv("HOME", t.TempDir())

		_, err := ResolveWrapper(filepath.Join(t.TempDir(), "nope"))
		if err == nil {
			t.Fatal("expected error for missing explicit path")
		}
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
		var resErr *ResolutionError
		if !errors.As(err, &resErr) {
			t.Fatalf("error type = %T, want *ResolutionError", err)
		}
		if resErr.Path == "" {
			t.Error("ResolutionError.Path should carry the explicit path")
		}
	})

	t.Run("explicit path not executable", func(t *testing.T) {
		isolateSearchDirs(t)
		path := writeFakeWrapper(t, t.TempDir(), 0o644)

		_, err := ResolveWrapper(path)
		if !errors.Is(err, ErrNotExecutable) {
			t.Errorf("error = %v, want ErrNotExecutable", err)
		}
	})
}

func TestResolveWrapperSearch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not meaningful on windows")
	}

	t.Run("found on PATH", func(t *testing.T) {
		isolateSearchDirs(t)
		pathDir := t.TempDir()
		want := writeFakeWrapper(t, pathDir, 0o755)
		t.Setenv("PATH", pathDir)

		got, err := ResolveWrapper("")
		if err != nil {
			t.Fatalf("ResolveWrapper error: %v", err)
		}
		if got != want {
			t.Errorf("resolved %q, want %q", got, want)
		}
	})

	t.Run("PATH candidate not executable", func(t *testing.T) {
		isolateSearchDirs(t)
		pathDir := t.TempDir()
		writeFakeWrapper(t, pathDir, 0o644)
		t.Setenv("PATH", pathDir)

		_, err := ResolveWrapper("")
		if !errors.Is(err, ErrNotExecutable) {
			t.Errorf("error = %v, want ErrNotExecutable", err)
		}
	})

	t.Run("found in home bin", func(t *testing.T) {
		isolateSearchDirs(t)
		home := t.TempDir()
		binDir := filepath.Join(home, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatal(err)
		}
		want := writeFakeWrapper(t, binDir, 0o755)
		t.Setenv("HOME", home)

		got, err := ResolveWrapper("")
		if err != nil {
			t.Fatalf("ResolveWrapper error: %v", err)
		}
		if got != want {
			t.Errorf("resolved %q, want %q", got, want)
		}
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		isolateSearchDirs(t)

		_, err := ResolveWrapper("")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}
