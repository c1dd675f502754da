package ssh

// Package ssh provides SSH multiplexing, remote command execution and file
// transfer for benchcamp targets. It drives the system ssh and scp binaries
// over one persistent master connection per host.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Client manages an SSH connection to a specific remote host.
type Client struct {
	logger         zerolog.Logger
	host           string
	controlPath    string
	identityFile   string
	knownHostsFile string
	proxyCommand   string
	extraOptions   []string
}

// SSHOption is a function that configures an SSH client.
type SSHOption func(*Client)

// WithIdentityFile sets the identity file (private key) to use for authentication.
func WithIdentityFile(path string) SSHOption {
	return func(c *Client) {
		c.identityFile = path
	}
}

// WithKnownHostsFile sets the known hosts file to use for host verification.
func WithKnownHostsFile(path string) SSHOption {
	return func(c *Client) {
		c.knownHostsFile = path
	}
}

// WithProxyCommand sets a proxy command for the SSH connection.
func WithProxyCommand(command string) SSHOption {
	return func(c *Client) {
		c.proxyCommand = command
	}
}

// WithExtraOptions adds extra SSH options to the connection.
func WithExtraOptions(options ...string) SSHOption {
	return func(c *Client) {
		c.extraOptions = append(c.extraOptions, options...)
	}
}

// New creates a new SSH client and establishes a multiplexed connection to the host.
func New(ctx context.Context, logger zerolog.Logger, host string, opts ...SSHOption) (*Client, error) {
	c := newClient(logger, host, opts...)

	controlPath, err := c.setupMultiplexing(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to setup SSH multiplexing: %w", err)
	}
	c.controlPath = controlPath

	return c, nil
}

func newClient(logger zerolog.Logger, host string, opts ...SSHOption) *Client {
	c := &Client{
		logger: logger.With().Str("host", host).Logger(),
		host:   host,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close closes the SSH connection and cleans up the control socket.
func (c *Client) Close() error {
	c.logger.Debug().Str("controlPath", c.controlPath).Msg("Cleaning up SSH multiplexing")

	args := []string{
		"-o", fmt.Sprintf("ControlPath=%s", c.controlPath),
		"-O", "exit",
		c.host,
	}
	_ = exec.Command("ssh", args...).Run() // master may already be gone

	if err := os.Remove(c.controlPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove control socket: %w", err)
	}
	return nil
}

// RunCommand executes a command on the remote host and returns its output.
func (c *Client) RunCommand(ctx context.Context, command string) (string, error) {
	args := c.buildSSHArgs()
	args = append(args, c.host, command)

	cmd := exec.CommandContext(ctx, "ssh", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug().
		Str("command", command).
		Msg("Running remote command")

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command failed: %w (stderr: %s)", err, stderr.String())
	}

	return stdout.String(), nil
}

// CopyFrom copies a remote file to a local path.
func (c *Client) CopyFrom(ctx context.Context, remote, local string) error {
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("failed to create local directory: %w", err)
	}
	return c.scp(ctx, fmt.Sprintf("%s:%s", c.host, remote), local)
}

// CopyTo copies a local file to a remote path.
func (c *Client) CopyTo(ctx context.Context, local, remote string) error {
	return c.scp(ctx, local, fmt.Sprintf("%s:%s", c.host, remote))
}

func (c *Client) scp(ctx context.Context, src, dst string) error {
	args := c.buildSSHArgs()
	args = append(args, src, dst)
	cmd := exec.CommandContext(ctx, "scp", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Debug().
		Str("command", cmd.String()).
		Msg("Executing scp")

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w (stderr: %s)", src, dst, err, stderr.String())
	}
	return nil
}

// buildSSHArgs constructs the SSH arguments with all configured options.
func (c *Client) buildSSHArgs() []string {
	args := []string{}

	// Add control path options if using multiplexing
	if c.controlPath != "" {
		args = append(args,
			"-o", fmt.Sprintf("ControlPath=%s", c.controlPath),
			"-o", "ControlMaster=no",
		)
	}

	return append(args, c.connectionArgs()...)
}

// connectionArgs are the options shared by the master and every command.
func (c *Client) connectionArgs() []string {
	var args []string
	if c.identityFile != "" {
		args = append(args, "-i", c.identityFile)
	}
	if c.knownHostsFile != "" {
		args = append(args, "-o", fmt.Sprintf("UserKnownHostsFile=%s", c.knownHostsFile))
	}
	if c.proxyCommand != "" {
		args = append(args, "-o", fmt.Sprintf("ProxyCommand=%s", c.proxyCommand))
	}
	for _, opt := range c.extraOptions {
		args = append(args, "-o", opt)
	}
	return args
}

// DetectSystem detects the OS and architecture of the remote system.
func (c *Client) DetectSystem(ctx context.Context) (string, string, error) {
	osName, err := c.RunCommand(ctx, "uname -s")
	if err != nil {
		return "", "", fmt.Errorf("failed to detect OS: %w", err)
	}

	arch, err := c.RunCommand(ctx, "uname -m")
	if err != nil {
		return "", "", fmt.Errorf("failed to detect architecture: %w", err)
	}

	return normalizeOS(osName), normalizeArch(arch), nil
}

func normalizeOS(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeArch maps uname -m output to GOARCH names.
func normalizeArch(s string) string {
	arch := strings.TrimSpace(s)
	switch arch {
	case "x86_64", "amd64":
		return "amd64"
	case "aarch64", "arm64":
		return "arm64"
	case "i386", "i686":
		return "386"
	case "armv7l":
		return "arm"
	}
	return arch
}

// Host returns the remote host this client is connected to.
func (c *Client) Host() string {
	return c.host
}

// ControlPath returns the SSH control socket path.
func (c *Client) ControlPath() string {
	return c.controlPath
}

// setupMultiplexing establishes an SSH master connection for multiplexing.
func (c *Client) setupMultiplexing(ctx context.Context) (string, error) {
	controlDir := controlSocketDir()

	if err := os.MkdirAll(controlDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create control directory: %w", err)
	}

	// Unix domain sockets have a path length limit (typically 104-108 chars)
	hash := sha256.Sum256([]byte(c.host))
	hostHash := hex.EncodeToString(hash[:])[:12]
	controlPath := filepath.Join(controlDir, fmt.Sprintf("ssh-%s", hostHash))

	c.logger.Debug().
		Str("hostHash", hostHash).
		Str("controlPath", controlPath).
		Int("pathLength", len(controlPath)).
		Msg("Setting up SSH multiplexing")

	args := []string{
		"-o", "ControlMaster=auto",
		"-o", fmt.Sprintf("ControlPath=%s", controlPath),
		// benchmarks idle for minutes between commands
		"-o", "ControlPersist=10m",
		"-o", "ConnectTimeout=10",
		"-o", "ServerAliveInterval=15",
		"-o", "ServerAliveCountMax=3",
	}
	args = append(args, c.connectionArgs()...)
	args = append(args,
		"-f", // Run in background
		"-N", // Don't execute a remote command
		c.host,
	)

	cmd := exec.CommandContext(ctx, "ssh", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to establish SSH master connection: %w (stderr: %s)", err, stderr.String())
	}

	c.logger.Debug().Msg("SSH master connection established")
	return controlPath, nil
}

// controlSocketDir returns the directory to use for SSH control sockets.
func controlSocketDir() string {
	// Keep path short to avoid Unix socket path length limits
	if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
		return filepath.Join(xdgRuntime, "benchcamp")
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home := os.Getenv("HOME"); home != "" {
			configHome = filepath.Join(home, ".config")
		}
	}

	if configHome != "" {
		return filepath.Join(configHome, "benchcamp")
	}

	return filepath.Join(os.TempDir(), "benchcamp")
}
