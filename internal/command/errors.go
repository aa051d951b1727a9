package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/hostclient"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	if isSchemaError(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: the history index looks stale. Remove the .db file next to the journal to rebuild it.")
	}
	var apiErr *hostclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 401 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: check the homeserver token (CHATMIRROR_TOKEN).")
	}

	return &reportedError{err: err}
}

// reportedError marks an error already written to the command's stderr.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// isSchemaError checks if an error is a SQLite schema mismatch.
func isSchemaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column")
}
