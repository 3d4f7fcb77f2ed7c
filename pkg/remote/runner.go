// Package remote is the boundary between the probe and the machines under
// test: one command, on one node, with captured output. Everything above it
// (encoding, decoding, classification) is pure and can be tested against a
// programmable Runner.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Runner executes argv on the named node, feeding it stdin, and returns the
// captured stdout. A non-zero exit surfaces as *CmdError. There is no retry
// and no fan-out: one node per call, and retry policy belongs to callers.
type Runner interface {
	Run(ctx context.Context, node string, argv []string, stdin string) (string, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, node string, argv []string, stdin string) (string, error)

func (f RunnerFunc) Run(ctx context.Context, node string, argv []string, stdin string) (string, error) {
	return f(ctx, node, argv, stdin)
}

// CmdError reports a remote command that ran to completion but exited
// non-zero. Stdout and Stderr carry whatever the command produced.
type CmdError struct {
	Node     string
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CmdError) Error() string {
	return fmt.Sprintf("remote: %s on %s exited %d: %s",
		strings.Join(e.Argv, " "), e.Node, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// SSHRunner runs commands through the system ssh binary.
type SSHRunner struct {
	User    string
	KeyFile string
	Timeout time.Duration
}

func (r *SSHRunner) Run(ctx context.Context, node string, argv []string, stdin string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	log.WithFields(log.Fields{"node": node, "cmd": strings.Join(argv, " ")}).Debug("remote run")

	cmd := exec.CommandContext(ctx, "ssh", r.sshArgs(node, argv)...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &CmdError{
				Node:     node,
				Argv:     argv,
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}
		return "", fmt.Errorf("remote: ssh %s: %w", node, err)
	}
	return stdout.String(), nil
}

func (r *SSHRunner) sshArgs(node string, argv []string) []string {
	args := []string{"-o", "StrictHostKeyChecking=no", "-o", "BatchMode=yes"}
	if r.KeyFile != "" {
		args = append(args, "-i", r.KeyFile)
	}
	target := node
	if r.User != "" {
		target = r.User + "@" + node
	}
	args = append(args, target)
	return append(args, argv...)
}
