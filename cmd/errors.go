package cmd

import "fmt"

// ExitError carries a non-zero status for a run whose report was already
// printed. main exits with Code without printing anything further.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// exitCodeCancelled matches the shell convention for SIGINT.
const exitCodeCancelled = 130
