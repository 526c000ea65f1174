// Package hook implements the integration hook registry, trigger matching,
// and dispatch for normalized webhook events.
package hook

import (
	"context"
	"time"

	"reflex.app/assistant/internal/model"
)

// Context is the transient execution context handed to a hook handler.
// It is constructed fresh per dispatch and owned by that dispatch call.
type Context struct {
	UserID    string
	Platform  model.Platform
	EventType string
	EventData map[string]any
	Timestamp time.Time
	Metadata  map[string]any
}

// Handler is the unit of behavior bound to a hook. A nil result map with a
// nil error is valid: the hook ran but produced nothing to report.
type Handler func(ctx context.Context, hctx Context) (map[string]any, error)

// Hook is a named, conditionally-triggered unit of behavior. Actions are
// human-readable documentation of what the bound handler does; they have no
// runtime effect.
type Hook struct {
	Name        string
	Description string
	Trigger     TriggerConditions
	Actions     []string
	Enabled     bool
}
