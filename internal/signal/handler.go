package signal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. The
// runner stops dispatching files once it is cancelled; files already being
// processed run to completion.
func SetupSignalHandler(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx
}

// PrintCancellationMessage tells the user the run stopped early.
func PrintCancellationMessage(w io.Writer, commandName string) {
	_, _ = fmt.Fprintf(w, "\n%s cancelled: files not yet started were skipped\n", commandName)
}
