package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamavenir/skillkit/internal/convert"
	"github.com/adamavenir/skillkit/internal/sharepoint"
)

// reportedError wraps an error the command has already shown to the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// Reported reports whether err was already printed, so main only needs to
// set the exit status.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	for _, hint := range errorHints(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), hint)
	}

	return reportedError{err}
}

// errorHints collects the remediation lines carried by err, if any.
func errorHints(err error) []string {
	if hints := sharepoint.Hints(err); len(hints) > 0 {
		return hints
	}
	return convert.Hints(err)
}
