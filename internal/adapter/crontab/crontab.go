package crontab

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotAvailable reports that the crontab command is missing, as on
// systems without a cron daemon.
var ErrNotAvailable = errors.New("crontab command not available")

// Runner executes one external command with the given stdin and returns
// its stdout. It exists so tests can fake the crontab binary.
type Runner interface {
	Run(ctx context.Context, stdin, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

type Crontab struct {
	runner Runner
}

func New() *Crontab {
	return &Crontab{runner: execRunner{}}
}

func NewWithRunner(runner Runner) *Crontab {
	return &Crontab{runner: runner}
}

// Read returns the current user's crontab. A user without a crontab yet
// reads as empty, since crontab -l exits nonzero in that case.
func (c *Crontab) Read(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, "", "crontab", "-l")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrNotAvailable
		}
		return "", nil
	}
	return out, nil
}

// Install replaces the current user's crontab with table.
func (c *Crontab) Install(ctx context.Context, table string) error {
	if !strings.HasSuffix(table, "\n") {
		table += "\n"
	}
	if _, err := c.runner.Run(ctx, table, "crontab", "-"); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ErrNotAvailable
		}
		return fmt.Errorf("failed to install crontab: %w", err)
	}
	return nil
}
