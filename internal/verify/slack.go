package verify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"reflex.app/assistant/internal/model"
)

// Slack rejects requests older than five minutes to blunt replay attacks.
const slackReplayWindow = 300 * time.Second

type slackVerifier struct {
	signingSecret string
	failClosed    bool
	now           func() time.Time
}

// NewSlackVerifier verifies Slack request signatures: HMAC-SHA256 of
// "v0:{timestamp}:{body}" with the app signing secret, prefixed "v0=".
func NewSlackVerifier(signingSecret string, failClosed bool) Verifier {
	return &slackVerifier{
		signingSecret: signingSecret,
		failClosed:    failClosed,
		now:           time.Now,
	}
}

func (v *slackVerifier) Platform() model.Platform {
	return model.PlatformSlack
}

func (v *slackVerifier) Verify(ctx context.Context, headers http.Header, body []byte) Result {
	if v.signingSecret == "" {
		if v.failClosed {
			return Reject("Signature verification not configured")
		}
		slog.WarnContext(ctx, "slack signing secret not configured, skipping verification")
		return Accept()
	}

	timestamp := headers.Get("x-slack-request-timestamp")
	signature := headers.Get("x-slack-signature")
	if timestamp == "" || signature == "" {
		return Reject("Missing Slack signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return Reject("Invalid Slack timestamp")
	}
	if math.Abs(float64(v.now().Unix()-ts)) > slackReplayWindow.Seconds() {
		return Reject("Request timestamp too old")
	}

	base := fmt.Sprintf("v0:%s:%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(v.signingSecret))
	mac.Write([]byte(base))
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return Reject("Invalid Slack signature")
	}

	slog.DebugContext(ctx, "slack signature verified")
	return Accept()
}
