package cli

import (
	"fmt"
	"os"

	"github.com/randalmurphal/tasksync/internal/errors"
)

// PrintError prints an error to stderr with appropriate formatting.
// A SyncError uses the user-friendly format.
func PrintError(err error) {
	if syncErr := errors.AsSyncError(err); syncErr != nil {
		fmt.Fprintln(os.Stderr, syncErr.UserMessage())
		if verbose {
			fmt.Fprintf(os.Stderr, "\nCode: %s\n", syncErr.Code)
			if syncErr.Cause != nil {
				fmt.Fprintf(os.Stderr, "Cause: %v\n", syncErr.Cause)
			}
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
