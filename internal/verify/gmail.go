package verify

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"reflex.app/assistant/internal/model"
)

type gmailVerifier struct {
	channelToken string
}

// NewGmailVerifier checks the Pub/Sub push channel token when one is
// configured. Without a token this is a permissive, log-only mode; real
// deployments should configure the token or front the endpoint with
// Pub/Sub JWT audience validation.
func NewGmailVerifier(channelToken string) Verifier {
	return &gmailVerifier{channelToken: channelToken}
}

func (v *gmailVerifier) Platform() model.Platform {
	return model.PlatformGmail
}

func (v *gmailVerifier) Verify(ctx context.Context, headers http.Header, body []byte) Result {
	if v.channelToken == "" {
		slog.WarnContext(ctx, "gmail channel token not configured, accepting notification unverified")
		return Accept()
	}

	token := headers.Get("x-goog-channel-token")
	if token == "" {
		return Reject("Missing Gmail channel token")
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(v.channelToken)) != 1 {
		return Reject("Invalid Gmail channel token")
	}

	slog.DebugContext(ctx, "gmail channel token verified")
	return Accept()
}
