// Package shell runs external programs on behalf of the command-line tools.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Result holds the captured output of a finished process.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes external programs. Tests substitute shelltest.Fake.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
	LookPath(name string) (string, error)
}

// MissingToolError reports an external program that is not installed.
type MissingToolError struct {
	Tool  string
	Hints []string
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("%s not installed", e.Tool)
}

// ExitError reports a program that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.Code, msg)
}

// Exec is the os/exec backed Runner.
type Exec struct {
	Log *zap.Logger
}

// NewExec returns a Runner that logs each invocation at debug level.
func NewExec(log *zap.Logger) *Exec {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exec{Log: log}
}

func (e *Exec) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.Log.Debug("exec", zap.String("cmd", name), zap.Strings("args", args), zap.String("dir", dir))
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return res, &MissingToolError{Tool: name}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{Command: name, Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return res, fmt.Errorf("run %s: %w", name, err)
}

func (e *Exec) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &MissingToolError{Tool: name}
	}
	return path, nil
}

// Available reports whether name resolves on PATH.
func Available(r Runner, name string) bool {
	_, err := r.LookPath(name)
	return err == nil
}

// IsMissing reports whether err is a MissingToolError.
func IsMissing(err error) bool {
	var missing *MissingToolError
	return errors.As(err, &missing)
}
