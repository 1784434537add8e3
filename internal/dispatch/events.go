// internal/dispatch/events.go
package dispatch

import (
	"context"
	"fmt"
	"time"
)

// Target identifies the conversation a run sends into. The engine treats it as opaque
// apart from using ID to keep runs against the same target from overlapping.
type Target struct {
	ID    string
	Title string
}

// IsZero reports whether no target has been selected.
func (t Target) IsZero() bool { return t.ID == "" }

// Sender delivers one message to a target. Implementations must treat embedded line
// breaks as part of a single message and return a typed *SendError on failure.
type Sender interface {
	Send(ctx context.Context, target Target, message string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, target Target, message string) error

func (f SenderFunc) Send(ctx context.Context, target Target, message string) error {
	return f(ctx, target, message)
}

// ReadinessChecker is implemented by senders bound to a session that can go away.
type ReadinessChecker interface {
	Ready() bool
}

// Reason says why a run ended.
type Reason string

const (
	ReasonCompleted     Reason = "completed"
	ReasonStopped       Reason = "stopped"
	ReasonNothingToSend Reason = "nothing_to_send"
	// ReasonRejected marks a run that never started because of a configuration
	// or session problem. The accompanying error carries the detail.
	ReasonRejected Reason = "rejected"
)

// Summary is the final tally of a run.
type Summary struct {
	RunID      string
	Target     Target
	Total      int
	Attempted  int
	Succeeded  int
	Failed     int
	Reason     Reason
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: attempted %d/%d, succeeded %d, failed %d", s.Reason, s.Attempted, s.Total, s.Succeeded, s.Failed)
}

// EventKind identifies a progress event.
type EventKind string

const (
	EventStarted       EventKind = "started"
	EventAttempt       EventKind = "attempt"
	EventNothingToSend EventKind = "nothing_to_send"
	EventStopped       EventKind = "stopped"
	EventCompleted     EventKind = "completed"
)

// Event is emitted to a ProgressSink. Attempt events carry the 1-based position in the
// plan and the result; terminal events carry the summary.
type Event struct {
	Kind    EventKind
	RunID   string
	Target  Target
	Current int
	Total   int
	Message string
	Err     error
	Summary Summary
}

// Succeeded reports whether this is a successful attempt event.
func (e Event) Succeeded() bool { return e.Kind == EventAttempt && e.Err == nil }

// Terminal reports whether the event ends a run.
func (e Event) Terminal() bool {
	switch e.Kind {
	case EventNothingToSend, EventStopped, EventCompleted:
		return true
	}
	return false
}

// Status renders the event as the one-line status shown to users.
func (e Event) Status() string {
	switch e.Kind {
	case EventStarted:
		return fmt.Sprintf("sending %d messages to %s", e.Total, e.Target.Title)
	case EventAttempt:
		if e.Err != nil {
			return fmt.Sprintf("failed %d/%d: %v", e.Current, e.Total, e.Err)
		}
		return fmt.Sprintf("sent %d/%d", e.Current, e.Total)
	case EventNothingToSend:
		return "nothing to send"
	case EventStopped:
		return "stopped by user (" + e.Summary.String() + ")"
	case EventCompleted:
		return "completed (" + e.Summary.String() + ")"
	}
	return string(e.Kind)
}

// ProgressSink receives events synchronously on the engine's goroutine. Sinks that
// feed a UI must hand events over to their own thread.
type ProgressSink interface {
	Notify(Event)
}

// SinkFunc adapts a function to the ProgressSink interface.
type SinkFunc func(Event)

func (f SinkFunc) Notify(ev Event) { f(ev) }

type nopSink struct{}

func (nopSink) Notify(Event) {}
