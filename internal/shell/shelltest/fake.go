// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"fmt"
	"strings"

	"github.com/adamavenir/skillkit/internal/shell"
)

// Response is the canned outcome for one command line.
type Response struct {
	Stdout string
	Stderr string
	Err    error
}

// Call records one invocation.
type Call struct {
	Dir  string
	Line string
}

// Fake answers Run calls from a table keyed by "name arg1 arg2 ...".
// Unknown command lines fail with MissingToolError so tests notice gaps.
type Fake struct {
	Responses map[string]Response
	Prefixes  map[string]Response
	Paths     map[string]bool
	Calls     []Call
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Responses: map[string]Response{},
		Prefixes:  map[string]Response{},
		Paths:     map[string]bool{},
	}
}

// On registers a response for an exact command line.
func (f *Fake) On(line string, resp Response) *Fake {
	f.Responses[line] = resp
	if name := strings.Fields(line); len(name) > 0 {
		f.Paths[name[0]] = true
	}
	return f
}

// OnPrefix registers a response for any command line starting with prefix.
func (f *Fake) OnPrefix(prefix string, resp Response) *Fake {
	f.Prefixes[prefix] = resp
	if name := strings.Fields(prefix); len(name) > 0 {
		f.Paths[name[0]] = true
	}
	return f
}

func (f *Fake) Run(_ context.Context, dir, name string, args ...string) (shell.Result, error) {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.Calls = append(f.Calls, Call{Dir: dir, Line: line})

	resp, ok := f.Responses[line]
	if !ok {
		best := ""
		for prefix, candidate := range f.Prefixes {
			if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
				best = prefix
				resp = candidate
				ok = true
			}
		}
	}
	if !ok {
		return shell.Result{}, &shell.MissingToolError{Tool: name}
	}
	return shell.Result{Stdout: []byte(resp.Stdout), Stderr: []byte(resp.Stderr)}, resp.Err
}

func (f *Fake) LookPath(name string) (string, error) {
	if f.Paths[name] {
		return "/usr/bin/" + name, nil
	}
	return "", &shell.MissingToolError{Tool: name}
}

// Ran reports whether a command line starting with prefix was executed.
func (f *Fake) Ran(prefix string) bool {
	for _, call := range f.Calls {
		if strings.HasPrefix(call.Line, prefix) {
			return true
		}
	}
	return false
}

// Fail is a convenience for a non-zero exit response.
func Fail(name string, code int, stderr string) Response {
	return Response{Stderr: stderr, Err: &shell.ExitError{Command: name, Code: code, Stderr: stderr}}
}

func (c Call) String() string {
	return fmt.Sprintf("%s$ %s", c.Dir, c.Line)
}
