// File: cmd/progress.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/courier-cli/internal/dispatch"
	"github.com/xkilldash9x/courier-cli/internal/messages"
	"github.com/xkilldash9x/courier-cli/internal/service"
)

// stopWord ends a running send when typed on its own line.
const stopWord = "stop"

// progressPrinter renders dispatch events as status lines.
func progressPrinter(out io.Writer) dispatch.ProgressSink {
	return dispatch.SinkFunc(func(ev dispatch.Event) {
		stamp := time.Now().Format("15:04:05")
		switch ev.Kind {
		case dispatch.EventAttempt:
			fmt.Fprintf(out, "[%s] %s  %s\n", stamp, ev.Status(), messages.Preview(ev.Message, 30))
		default:
			fmt.Fprintf(out, "[%s] %s\n", stamp, ev.Status())
		}
	})
}

// watchRun waits for h to finish while listening on in for the stop word. The two
// run side by side; the run ending releases the listener.
func watchRun(ctx context.Context, h *service.RunHandle, in *lineReader, out io.Writer) (dispatch.Summary, error) {
	fmt.Fprintf(out, "Type '%s' and press Enter to stop sending.\n", stopWord)

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		<-h.Done()
		cancel()
		return nil
	})
	g.Go(func() error {
		for {
			line, err := in.ReadLine(listenCtx)
			if err != nil {
				// Out of input or the run is over; either way the run decides.
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			if strings.EqualFold(strings.TrimSpace(line), stopWord) {
				fmt.Fprintln(out, "Stopping after the current message...")
				h.Stop()
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		h.Stop()
		_, _ = h.Wait()
		return dispatch.Summary{}, fmt.Errorf("failed to read input: %w", err)
	}
	return h.Wait()
}
