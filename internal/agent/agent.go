// Package agent wraps the external documentation agent as a black-box
// capability. The agent's internal behavior is out of scope and unverifiable
// by construction, so callers get raw output plus an exit error and must
// verify side effects (artifact presence) independently.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotInstalled is returned when the configured agent binary is absent.
var ErrNotInstalled = errors.New("agent: command not found")

// Invoker runs the external agent with a natural-language instruction and
// returns its combined output. The error reflects process exit only; it is
// not a proxy for whether the agent actually produced correct artifacts.
type Invoker interface {
	Invoke(ctx context.Context, instruction string) ([]byte, error)
}

// ExecInvoker shells out to the configured agent CLI. The instruction is
// appended as the final argument after the configured args.
type ExecInvoker struct {
	Command string
	Args    []string
	Dir     string
}

// CheckInstalled verifies the agent binary is resolvable before any
// processing starts.
func (e ExecInvoker) CheckInstalled() error {
	if strings.TrimSpace(e.Command) == "" {
		return fmt.Errorf("%w: empty command", ErrNotInstalled)
	}
	if _, err := exec.LookPath(e.Command); err != nil {
		return fmt.Errorf("%w: %s", ErrNotInstalled, e.Command)
	}
	return nil
}

// Invoke blocks until the agent process exits. Stdout and stderr are
// interleaved into one buffer so failure tails carry both streams.
func (e ExecInvoker) Invoke(ctx context.Context, instruction string) ([]byte, error) {
	args := append(append([]string{}, e.Args...), instruction)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Dir = e.Dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// Tail returns up to n of the last non-empty output lines, for surfacing to
// the operator when a run fails.
func Tail(output []byte, n int) []string {
	if n <= 0 || len(output) == 0 {
		return nil
	}
	raw := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
