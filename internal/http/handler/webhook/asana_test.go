package webhook_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"reflex.app/assistant/internal/hook"
	"reflex.app/assistant/internal/http/handler/webhook"
	"reflex.app/assistant/internal/ingest"
	"reflex.app/assistant/internal/normalize"
	"reflex.app/assistant/internal/verify"
)

const asanaSecret = "asana-webhook-secret"

var _ = Describe("AsanaHandler", func() {
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
		h := webhook.NewAsanaHandler(
			verify.NewAsanaVerifier(asanaSecret, false),
			normalize.NewAsanaNormalizer(nil),
			svc,
		)

		router = gin.New()
		router.POST("/webhooks/asana/events", h.HandleEvents)
	})

	post := func(body []byte, sign bool, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/asana/events", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if sign {
			mac := hmac.New(sha256.New, []byte(asanaSecret))
			mac.Write(body)
			req.Header.Set("X-Hook-Signature-256", hex.EncodeToString(mac.Sum(nil)))
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("echoes the handshake secret without persisting", func() {
		w := post(nil, false, map[string]string{"X-Hook-Secret": "new-hook-secret"})

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("X-Hook-Secret")).To(Equal("new-hook-secret"))
		Expect(events.created).To(BeEmpty())
	})

	It("rejects an unsigned delivery", func() {
		body, _ := json.Marshal(map[string]any{"events": []any{}})

		w := post(body, false, nil)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(events.created).To(BeEmpty())
	})

	It("acknowledges an empty events list as ignored", func() {
		var invoked bool
		registry.Register(hook.Hook{Name: "listener", Enabled: true}, func(_ context.Context, _ hook.Context) (map[string]any, error) {
			invoked = true
			return nil, nil
		})

		body, _ := json.Marshal(map[string]any{
			"webhook": map[string]any{"gid": "wh-1"},
			"events":  []any{},
		})

		w := post(body, true, nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ignored"}`))
		Expect(events.created).To(HaveLen(1))
		Expect(events.processed).To(HaveLen(1))
		Expect(invoked).To(BeFalse())
	})

	It("dispatches once per event in the delivery", func() {
		var seen []string
		registry.Register(hook.Hook{Name: "listener", Enabled: true}, func(_ context.Context, hctx hook.Context) (map[string]any, error) {
			seen = append(seen, hctx.EventType)
			return nil, nil
		})

		body, _ := json.Marshal(map[string]any{
			"webhook": map[string]any{"gid": "wh-1"},
			"events": []any{
				map[string]any{
					"action":   "added",
					"resource": map[string]any{"resource_type": "task", "gid": "1"},
					"user":     map[string]any{"gid": "u1"},
				},
				map[string]any{
					"action":   "changed",
					"resource": map[string]any{"resource_type": "task", "gid": "2"},
				},
			},
		})

		w := post(body, true, nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
		Expect(seen).To(Equal([]string{"added", "changed"}))
		Expect(events.processed).To(HaveLen(1))
	})

	It("returns 400 on a malformed whole payload", func() {
		w := post([]byte("not json"), true, nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
