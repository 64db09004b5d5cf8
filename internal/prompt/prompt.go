// Package prompt asks line-oriented questions on a terminal or piped stdin.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

var (
	// ErrNoInput is returned when stdin is exhausted before an answer arrives.
	ErrNoInput = errors.New("no input available")
	// ErrInterrupted is returned when the context is cancelled mid-prompt.
	ErrInterrupted = errors.New("interrupted")
	// ErrInvalidChoice is returned for non-numeric or out-of-range selections.
	ErrInvalidChoice = errors.New("invalid choice")
)

// Terminal hooks, replaced in tests.
var (
	getState     = term.GetState
	restoreState = term.Restore
	readPassword = term.ReadPassword
)

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// New returns a Prompter. When in is a terminal, secrets are read without echo.
func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && IsTTY(f) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// IsTTY reports whether file is an interactive terminal.
func IsTTY(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInterrupted
	case res := <-ch:
		if res.err != nil {
			if errors.Is(res.err, io.EOF) && res.line != "" {
				return strings.TrimSpace(res.line), nil
			}
			if errors.Is(res.err, io.EOF) {
				return "", ErrNoInput
			}
			return "", res.err
		}
		return strings.TrimSpace(res.line), nil
	}
}

// Ask prints question and returns the trimmed answer.
func (p *Prompter) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", question)
	return p.readLine(ctx)
}

// AskDefault returns fallback when the answer is empty.
func (p *Prompter) AskDefault(ctx context.Context, question, fallback string) (string, error) {
	fmt.Fprintf(p.out, "%s [%s]: ", question, fallback)
	answer, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return fallback, nil
	}
	return answer, nil
}

// AskSecret reads an answer without echo on a terminal, and as a plain line
// otherwise.
func (p *Prompter) AskSecret(ctx context.Context, question string) (string, error) {
	if !p.tty {
		return p.Ask(ctx, question)
	}
	fmt.Fprintf(p.out, "%s: ", question)
	// ReadPassword restores echo only when it returns, which an abandoned
	// read never does.
	state, err := getState(p.fd)
	if err != nil {
		return "", err
	}
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := readPassword(p.fd)
		ch <- result{data: data, err: err}
	}()
	select {
	case <-ctx.Done():
		_ = restoreState(p.fd, state)
		fmt.Fprintln(p.out)
		return "", ErrInterrupted
	case res := <-ch:
		fmt.Fprintln(p.out)
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(string(res.data)), nil
	}
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	defaultStr := "y/N"
	if defaultYes {
		defaultStr = "Y/n"
	}

	fmt.Fprintf(p.out, "%s (%s): ", question, defaultStr)
	answer, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	if answer == "" {
		return defaultYes, nil
	}
	return answer == "y" || answer == "yes", nil
}

// Choose asks for a 1-based selection among count options and returns the
// zero-based index.
func (p *Prompter) Choose(ctx context.Context, question string, count int) (int, error) {
	answer, err := p.Ask(ctx, fmt.Sprintf("%s (1-%d)", question, count))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > count {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, answer)
	}
	return n - 1, nil
}
