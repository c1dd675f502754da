package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Target is a machine commands are run on. The ssh client in cli/ssh and
// Local implement it.
type Target interface {
	RunCommand(ctx context.Context, command string) (string, error)
	CopyFrom(ctx context.Context, remote, local string) error
	CopyTo(ctx context.Context, local, remote string) error
}

// Local runs commands on this machine through sh.
type Local struct {
	logger zerolog.Logger
	dir    string
}

// NewLocal returns a local target. Commands run in dir, or the current
// directory when dir is empty.
func NewLocal(logger zerolog.Logger, dir string) *Local {
	return &Local{logger: logger, dir: dir}
}

func (l *Local) RunCommand(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = l.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.logger.Debug().
		Str("command", command).
		Msg("Running local command")

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command failed: %w (stderr: %s)", err, stderr.String())
	}
	return stdout.String(), nil
}

func (l *Local) CopyFrom(_ context.Context, remote, local string) error {
	return copyFile(l.resolve(remote), local)
}

func (l *Local) CopyTo(_ context.Context, local, remote string) error {
	return copyFile(local, l.resolve(remote))
}

func (l *Local) resolve(path string) string {
	if l.dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.dir, path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
