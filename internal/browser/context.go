// internal/browser/context.go
package browser

import "context"

// CombineContext returns a context derived from primary, so it keeps primary's values
// (chromedp keeps the CDP target there), that is also cancelled when op is done.
// The caller must call the returned cancel func.
func CombineContext(primary, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(op, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// opError prefers the operation context's error, so a deadline reads as
// context.DeadlineExceeded instead of the cancellation it caused downstream.
func opError(op context.Context, err error) error {
	if err == nil {
		return nil
	}
	if opErr := op.Err(); opErr != nil {
		return opErr
	}
	return err
}
