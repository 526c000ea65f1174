// Package verify authenticates inbound webhook requests. Each provider has
// its own algorithm behind one Verifier contract so the router layer stays
// uniform and new providers plug in without touching dispatch logic.
package verify

import (
	"context"
	"net/http"

	"reflex.app/assistant/internal/model"
)

// Result is the outcome of signature verification. Rejections are expected
// control flow, not errors; the Reason is safe to return to the caller.
type Result struct {
	OK     bool
	Reason string
}

func Accept() Result {
	return Result{OK: true}
}

func Reject(reason string) Result {
	return Result{Reason: reason}
}

// Verifier authenticates a raw webhook request before any persistence or
// business logic runs.
type Verifier interface {
	Platform() model.Platform
	Verify(ctx context.Context, headers http.Header, body []byte) Result
}
