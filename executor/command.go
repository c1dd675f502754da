package executor

// command.go contains helpers for building shell command strings.

import (
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// BuildCommand joins a program and its arguments into a shell command with
// every argument quoted.
func BuildCommand(program string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, program)
	for _, arg := range args {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}

// RemoveCommand removes files, ignoring missing ones.
func RemoveCommand(paths ...string) string {
	return BuildCommand("rm", append([]string{"-f", "--"}, paths...)...)
}

// MkdirCommand creates directories with parents.
func MkdirCommand(paths ...string) string {
	return BuildCommand("mkdir", append([]string{"-p", "--"}, paths...)...)
}
