package webhook_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"reflex.app/assistant/internal/hook"
	"reflex.app/assistant/internal/http/handler/webhook"
	"reflex.app/assistant/internal/ingest"
	"reflex.app/assistant/internal/model"
	"reflex.app/assistant/internal/normalize"
	"reflex.app/assistant/internal/verify"
)

const slackSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func signSlackRequest(req *http.Request, body []byte) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(slackSecret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

var _ = Describe("SlackHandler", func() {
	var (
		router   *gin.Engine
		events   *fakeEventStore
		producer *fakeProducer
		tracker  *fakeTracker
		registry *hook.Registry
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		events = &fakeEventStore{}
		producer = &fakeProducer{}
		tracker = &fakeTracker{}
		registry = hook.NewRegistry()

		dispatcher := hook.NewDispatcher(registry, tracker, time.Second)
		svc := ingest.NewService(events, dispatcher, producer, tracker)
		h := webhook.NewSlackHandler(
			verify.NewSlackVerifier(slackSecret, false),
			normalize.NewSlackNormalizer([]string{"U_ASSISTANT"}),
			svc,
		)

		router = gin.New()
		router.POST("/webhooks/slack/events", h.HandleEvents)
		router.POST("/webhooks/slack/interactive", h.HandleInteractive)
	})

	postEvents := func(body []byte, sign bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/slack/events", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if sign {
			signSlackRequest(req, body)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("events", func() {
		It("echoes a url_verification challenge without persisting", func() {
			body, _ := json.Marshal(map[string]string{
				"type":      "url_verification",
				"challenge": "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P",
			})

			w := postEvents(body, true)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["challenge"]).To(Equal("3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"))
			Expect(events.created).To(BeEmpty())
		})

		It("rejects an unsigned request without persisting", func() {
			body, _ := json.Marshal(map[string]any{"type": "event_callback"})

			w := postEvents(body, false)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(events.created).To(BeEmpty())
		})

		It("persists, dispatches, and acknowledges a user message", func() {
			var invoked bool
			registry.Register(hook.Hook{
				Name:    "listener",
				Enabled: true,
				Trigger: hook.TriggerConditions{Platforms: []model.Platform{model.PlatformSlack}},
			}, func(_ context.Context, hctx hook.Context) (map[string]any, error) {
				invoked = true
				Expect(hctx.EventData["content"]).To(Equal("hello assistant"))
				return nil, nil
			})

			body, _ := json.Marshal(map[string]any{
				"type":     "event_callback",
				"event_id": "Ev0001",
				"event": map[string]any{
					"type":    "message",
					"user":    "U456",
					"channel": "C789",
					"text":    "hello assistant",
					"ts":      "1724919000.000200",
				},
			})

			w := postEvents(body, true)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))

			Expect(events.created).To(HaveLen(1))
			Expect(*events.created[0].ExternalID).To(Equal("Ev0001"))
			Expect(events.processed).To(HaveLen(1))
			Expect(invoked).To(BeTrue())
			Expect(producer.published).To(HaveLen(1))
		})

		It("records and acknowledges bot events without dispatching", func() {
			var invoked bool
			registry.Register(hook.Hook{Name: "listener", Enabled: true}, func(_ context.Context, _ hook.Context) (map[string]any, error) {
				invoked = true
				return nil, nil
			})

			body, _ := json.Marshal(map[string]any{
				"type": "event_callback",
				"event": map[string]any{
					"type":   "message",
					"bot_id": "B001",
					"text":   "automated reply",
				},
			})

			w := postEvents(body, true)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(events.created).To(HaveLen(1))
			Expect(events.processed).To(HaveLen(1))
			Expect(invoked).To(BeFalse())
		})

		It("returns 400 on a non-JSON body", func() {
			body := []byte("not json")
			w := postEvents(body, true)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns a generic 500 when persistence fails", func() {
			events.createFn = func(context.Context, *model.WebhookEvent) (*model.WebhookEvent, error) {
				return nil, fmt.Errorf("connection refused")
			}

			body, _ := json.Marshal(map[string]any{
				"type":  "event_callback",
				"event": map[string]any{"type": "message", "user": "U1"},
			})

			w := postEvents(body, true)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).To(MatchJSON(`{"detail":"Internal server error"}`))
		})
	})

	Describe("interactive", func() {
		postInteractive := func(form url.Values) *httptest.ResponseRecorder {
			body := []byte(form.Encode())
			req := httptest.NewRequest(http.MethodPost, "/webhooks/slack/interactive", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			signSlackRequest(req, body)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w
		}

		It("persists and dispatches block actions", func() {
			var got hook.Context
			registry.Register(hook.Hook{
				Name:    "listener",
				Enabled: true,
				Trigger: hook.TriggerConditions{EventTypes: []string{"block_actions"}},
			}, func(_ context.Context, hctx hook.Context) (map[string]any, error) {
				got = hctx
				return nil, nil
			})

			payload, _ := json.Marshal(map[string]any{
				"type": "block_actions",
				"user": map[string]any{"id": "U456"},
				"channel": map[string]any{"id": "C789"},
				"actions": []any{
					map[string]any{"action_id": "approve_email_42", "value": "yes"},
				},
			})

			w := postInteractive(url.Values{"payload": {string(payload)}})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(events.created).To(HaveLen(1))
			Expect(got.UserID).To(Equal("U456"))
			Expect(got.EventData["action_id"]).To(Equal("approve_email_42"))
			Expect(got.EventData["category"]).To(Equal("approval"))
		})

		It("returns 400 when the payload field is missing", func() {
			w := postInteractive(url.Values{"other": {"x"}})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(MatchJSON(`{"detail":"Missing payload"}`))
			Expect(events.created).To(BeEmpty())
		})

		It("acknowledges unknown component types without dispatching", func() {
			payload, _ := json.Marshal(map[string]any{"type": "mystery"})

			w := postInteractive(url.Values{"payload": {string(payload)}})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(events.created).To(HaveLen(1))
			Expect(events.processed).To(HaveLen(1))
		})
	})
})
