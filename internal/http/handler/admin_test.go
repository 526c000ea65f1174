package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"reflex.app/assistant/internal/hook"
	"reflex.app/assistant/internal/http/handler"
	"reflex.app/assistant/internal/ingest"
	"reflex.app/assistant/internal/model"
	"reflex.app/assistant/internal/queue"
)

type fakeEventStore struct {
	listFn func(ctx context.Context, limit int32) ([]model.WebhookEvent, error)
}

func (f *fakeEventStore) Create(_ context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error) {
	return event, nil
}

func (f *fakeEventStore) GetByID(context.Context, int64) (*model.WebhookEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeEventStore) MarkProcessed(context.Context, int64) error { return nil }

func (f *fakeEventStore) ListUnprocessed(ctx context.Context, limit int32) ([]model.WebhookEvent, error) {
	if f.listFn != nil {
		return f.listFn(ctx, limit)
	}
	return nil, nil
}

type noopTracker struct{}

func (noopTracker) TrackWebhookReceived(context.Context, string)        {}
func (noopTracker) TrackHookExecuted(context.Context, string, string, string) {}
func (noopTracker) TrackHookFailed(context.Context, string, string)     {}

var _ = Describe("AdminHandler", func() {
	const apiKey = "test-admin-key"

	var (
		router   *gin.Engine
		registry *hook.Registry
		events   *fakeEventStore
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		registry = hook.NewRegistry()
		events = &fakeEventStore{}

		dispatcher := hook.NewDispatcher(registry, noopTracker{}, time.Second)
		svc := ingest.NewService(events, dispatcher, queue.NewNoopProducer(), noopTracker{})
		h := handler.NewAdminHandler(registry, svc, apiKey)

		router = gin.New()
		admin := router.Group("/api/v1")
		admin.Use(h.RequireAdminAPIKey())
		{
			admin.GET("/hooks", h.ListHooks)
			admin.POST("/hooks/:name/enable", h.EnableHook)
			admin.POST("/hooks/:name/disable", h.DisableHook)
			admin.DELETE("/hooks/:name", h.DeleteHook)
			admin.GET("/events/unprocessed", h.ListUnprocessedEvents)
		}
	})

	do := func(method, path string, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if key != "" {
			req.Header.Set("X-Admin-API-Key", key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("rejects requests without the api key", func() {
		Expect(do(http.MethodGet, "/api/v1/hooks", "").Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects a wrong api key", func() {
		Expect(do(http.MethodGet, "/api/v1/hooks", "nope").Code).To(Equal(http.StatusUnauthorized))
	})

	It("accepts the key via bearer authorization", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/hooks", nil)
		req.Header.Set("Authorization", "Bearer "+apiKey)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("lists registered hooks", func() {
		hook.RegisterDefaults(registry, hook.HandlerDeps{})

		w := do(http.MethodGet, "/api/v1/hooks", apiKey)
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp struct {
			Hooks []struct {
				Name    string `json:"name"`
				Enabled bool   `json:"enabled"`
			} `json:"hooks"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Hooks).To(HaveLen(5))
		Expect(resp.Hooks[0].Name).To(Equal("email_auto_response"))
	})

	It("disables and re-enables a hook", func() {
		hook.RegisterDefaults(registry, hook.HandlerDeps{})

		w := do(http.MethodPost, "/api/v1/hooks/customer_support/disable", apiKey)
		Expect(w.Code).To(Equal(http.StatusOK))

		h, ok := registry.Get("customer_support")
		Expect(ok).To(BeTrue())
		Expect(h.Enabled).To(BeFalse())

		w = do(http.MethodPost, "/api/v1/hooks/customer_support/enable", apiKey)
		Expect(w.Code).To(Equal(http.StatusOK))

		h, _ = registry.Get("customer_support")
		Expect(h.Enabled).To(BeTrue())
	})

	It("404s when toggling an unknown hook", func() {
		Expect(do(http.MethodPost, "/api/v1/hooks/missing/enable", apiKey).Code).To(Equal(http.StatusNotFound))
	})

	It("deletes a hook", func() {
		hook.RegisterDefaults(registry, hook.HandlerDeps{})

		w := do(http.MethodDelete, "/api/v1/hooks/meeting_scheduler", apiKey)
		Expect(w.Code).To(Equal(http.StatusOK))

		_, ok := registry.Get("meeting_scheduler")
		Expect(ok).To(BeFalse())
	})

	Describe("unprocessed events", func() {
		It("lists events pending replay", func() {
			externalID := "Ev1"
			events.listFn = func(_ context.Context, limit int32) ([]model.WebhookEvent, error) {
				Expect(limit).To(Equal(int32(50)))
				return []model.WebhookEvent{{
					ID:             101,
					SourcePlatform: model.PlatformSlack,
					ExternalID:     &externalID,
					CreatedAt:      time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
				}}, nil
			}

			w := do(http.MethodGet, "/api/v1/events/unprocessed", apiKey)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Events []struct {
					ID       int64  `json:"id"`
					Platform string `json:"platform"`
				} `json:"events"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Events).To(HaveLen(1))
			Expect(resp.Events[0].ID).To(Equal(int64(101)))
			Expect(resp.Events[0].Platform).To(Equal("slack"))
		})

		It("honors an explicit limit", func() {
			events.listFn = func(_ context.Context, limit int32) ([]model.WebhookEvent, error) {
				Expect(limit).To(Equal(int32(5)))
				return nil, nil
			}

			Expect(do(http.MethodGet, "/api/v1/events/unprocessed?limit=5", apiKey).Code).To(Equal(http.StatusOK))
		})

		It("rejects an out-of-range limit", func() {
			Expect(do(http.MethodGet, "/api/v1/events/unprocessed?limit=0", apiKey).Code).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodGet, "/api/v1/events/unprocessed?limit=9999", apiKey).Code).To(Equal(http.StatusBadRequest))
		})
	})
})
