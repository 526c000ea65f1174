package hook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reflex.app/assistant/common/logger"
	"reflex.app/assistant/internal/telemetry"
)

// DispatchResult summarizes one dispatch call. Zero matches is a normal
// outcome, not an error. Executed counts handlers that produced a result;
// a successful handler returning nil is invoked but not counted.
type DispatchResult struct {
	Executed int
	Results  map[string]map[string]any
}

// Dispatcher evaluates every registered hook against a context and invokes
// the enabled, matching ones sequentially in registry order. A failing
// handler never blocks its siblings and never propagates to the caller.
type Dispatcher struct {
	registry *Registry
	tracker  telemetry.Tracker
	timeout  time.Duration
}

func NewDispatcher(registry *Registry, tracker telemetry.Tracker, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		registry: registry,
		tracker:  tracker,
		timeout:  timeout,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, hctx Context) DispatchResult {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "assistant.hook.dispatcher",
		Platform:  logger.Ptr(string(hctx.Platform)),
		EventType: logger.Ptr(hctx.EventType),
	})

	sc := logger.StartSpan(ctx, "hook.dispatch")
	defer sc.End()
	ctx = sc.Context()

	result := DispatchResult{
		Results: make(map[string]map[string]any),
	}

	for _, reg := range d.registry.snapshot() {
		if !Matches(reg.hook, hctx) {
			continue
		}

		hookCtx := logger.WithLogFields(ctx, logger.LogFields{HookName: logger.Ptr(reg.hook.Name)})

		out, err := d.invoke(hookCtx, reg, hctx)
		if err != nil {
			slog.ErrorContext(hookCtx, "hook execution failed", "error", err)
			sc.RecordError(err)
			d.tracker.TrackHookFailed(hookCtx, reg.hook.Name, string(hctx.Platform))
			continue
		}

		if out != nil {
			result.Executed++
			result.Results[reg.hook.Name] = out
		}
		d.tracker.TrackHookExecuted(hookCtx, reg.hook.Name, string(hctx.Platform), hctx.EventType)
	}

	slog.InfoContext(ctx, "dispatch completed", "executed", result.Executed)
	return result
}

// invoke runs one handler with panic containment and a per-hook timeout.
// A timeout is treated identically to a handler error. The handler
// goroutine may outlive the timeout; its result is discarded.
func (d *Dispatcher) invoke(ctx context.Context, reg registration, hctx Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		result map[string]any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		result, err := reg.handler(ctx, hctx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("handler timed out after %s: %w", d.timeout, ctx.Err())
	}
}
