package verify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"

	"reflex.app/assistant/internal/model"
)

type asanaVerifier struct {
	webhookSecret string
	failClosed    bool
}

// NewAsanaVerifier verifies Asana webhook signatures: hex HMAC-SHA256 of the
// raw body with the webhook secret, delivered in X-Hook-Signature-256 (or the
// legacy X-Hook-Signature header).
func NewAsanaVerifier(webhookSecret string, failClosed bool) Verifier {
	return &asanaVerifier{
		webhookSecret: webhookSecret,
		failClosed:    failClosed,
	}
}

func (v *asanaVerifier) Platform() model.Platform {
	return model.PlatformAsana
}

func (v *asanaVerifier) Verify(ctx context.Context, headers http.Header, body []byte) Result {
	if v.webhookSecret == "" {
		if v.failClosed {
			return Reject("Signature verification not configured")
		}
		slog.WarnContext(ctx, "asana webhook secret not configured, skipping verification")
		return Accept()
	}

	signature := headers.Get("x-hook-signature-256")
	if signature == "" {
		signature = headers.Get("x-hook-signature")
	}
	if signature == "" {
		return Reject("Missing Asana signature headers")
	}

	mac := hmac.New(sha256.New, []byte(v.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return Reject("Invalid Asana signature")
	}

	slog.DebugContext(ctx, "asana signature verified")
	return Accept()
}
