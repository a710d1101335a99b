// Package testutil provides fixtures shared by the harness tests: a stub
// compiler and helpers to lay out source trees.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// stubScript behaves like the compiler under test. It reads the first line
// of the program on stdin and acts on it:
//
//	exit N     print a diagnostic to stdout and stderr, exit with N
//	sleep S    sleep S seconds, then exit 0
//	spam N     print N lines of 16 bytes to stdout, exit 0
//	killself   terminate itself with SIGKILL
//	(other)    exit 0
const stubScript = `#!/bin/sh
read -r cmd arg || true
case "$cmd" in
exit)
	echo "stub: exiting with $arg"
	echo "stub: diagnostic for status $arg" >&2
	exit "$arg"
	;;
sleep)
	sleep "$arg"
	exit 0
	;;
spam)
	i=0
	while [ "$i" -lt "$arg" ]; do
		echo "xxxxxxxxxxxxxxx"
		i=$((i + 1))
	done
	exit 0
	;;
killself)
	kill -KILL $$
	;;
esac
exit 0
`

// StubCompiler writes the stub compiler into a temp directory and returns
// its path. Skips the test on platforms without a POSIX shell.
func StubCompiler(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub compiler requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ifj24")
	if err := os.WriteFile(path, []byte(stubScript), 0755); err != nil {
		t.Fatalf("write stub compiler: %v", err)
	}
	return path
}

// WriteSource writes a source program under root and returns its path.
// Intermediate directories are created as needed.
func WriteSource(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create source dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write source %s: %v", name, err)
	}
	return path
}

// NonExecutable writes a regular file without execute permission and
// returns its path.
func NonExecutable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "not-a-compiler")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}
