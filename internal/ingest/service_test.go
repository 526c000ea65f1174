package ingest_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"reflex.app/assistant/internal/hook"
	"reflex.app/assistant/internal/ingest"
	"reflex.app/assistant/internal/model"
	"reflex.app/assistant/internal/normalize"
	"reflex.app/assistant/internal/queue"
)

type fakeEventStore struct {
	createFn        func(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error)
	markProcessedFn func(ctx context.Context, id int64) error
	listFn          func(ctx context.Context, limit int32) ([]model.WebhookEvent, error)

	created   []*model.WebhookEvent
	processed []int64
}

func (f *fakeEventStore) Create(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error) {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	stored := *event
	stored.CreatedAt = time.Now().UTC()
	f.created = append(f.created, &stored)
	return &stored, nil
}

func (f *fakeEventStore) GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeEventStore) MarkProcessed(ctx context.Context, id int64) error {
	if f.markProcessedFn != nil {
		return f.markProcessedFn(ctx, id)
	}
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeEventStore) ListUnprocessed(ctx context.Context, limit int32) ([]model.WebhookEvent, error) {
	if f.listFn != nil {
		return f.listFn(ctx, limit)
	}
	return nil, nil
}

type fakeProducer struct {
	publishFn func(ctx context.Context, msg queue.ProcessedEvent) error
	published []queue.ProcessedEvent
}

func (f *fakeProducer) Publish(ctx context.Context, msg queue.ProcessedEvent) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, msg)
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

type fakeTracker struct {
	received []string
	executed []string
	failed   []string
}

func (f *fakeTracker) TrackWebhookReceived(_ context.Context, platform string) {
	f.received = append(f.received, platform)
}

func (f *fakeTracker) TrackHookExecuted(_ context.Context, hookName, _, _ string) {
	f.executed = append(f.executed, hookName)
}

func (f *fakeTracker) TrackHookFailed(_ context.Context, hookName, _ string) {
	f.failed = append(f.failed, hookName)
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		events   *fakeEventStore
		producer *fakeProducer
		tracker  *fakeTracker
		registry *hook.Registry
		svc      *ingest.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		events = &fakeEventStore{}
		producer = &fakeProducer{}
		tracker = &fakeTracker{}
		registry = hook.NewRegistry()
		dispatcher := hook.NewDispatcher(registry, tracker, time.Second)
		svc = ingest.NewService(events, dispatcher, producer, tracker)
	})

	Describe("Persist", func() {
		It("stores the raw payload unprocessed with a fresh id", func() {
			stored, err := svc.Persist(ctx, model.PlatformSlack, "Ev123", "message", "", []byte(`{"a":1}`))
			Expect(err).NotTo(HaveOccurred())

			Expect(stored.ID).NotTo(BeZero())
			Expect(stored.SourcePlatform).To(Equal(model.PlatformSlack))
			Expect(*stored.ExternalID).To(Equal("Ev123"))
			Expect(*stored.EventType).To(Equal("message"))
			Expect(stored.ResourceType).To(BeNil())
			Expect(stored.Processed).To(BeFalse())
			Expect(tracker.received).To(Equal([]string{"slack"}))
		})

		It("propagates store failures without counting a receipt", func() {
			events.createFn = func(context.Context, *model.WebhookEvent) (*model.WebhookEvent, error) {
				return nil, fmt.Errorf("connection refused")
			}

			_, err := svc.Persist(ctx, model.PlatformGmail, "", "", "", []byte("{}"))
			Expect(err).To(HaveOccurred())
			Expect(tracker.received).To(BeEmpty())
		})
	})

	Describe("Process", func() {
		var stored *model.WebhookEvent

		BeforeEach(func() {
			var err error
			stored, err = svc.Persist(ctx, model.PlatformSlack, "Ev123", "message", "", []byte(`{}`))
			Expect(err).NotTo(HaveOccurred())
		})

		It("dispatches, marks processed, and publishes downstream", func() {
			registry.Register(hook.Hook{Name: "echo", Enabled: true}, func(_ context.Context, hctx hook.Context) (map[string]any, error) {
				return map[string]any{"seen": hctx.EventData["content"]}, nil
			})

			executed, err := svc.Process(ctx, stored, []normalize.Event{{
				Platform:  model.PlatformSlack,
				EventType: "message",
				ActorID:   "U1",
				Payload:   map[string]any{"content": "hi"},
				Timestamp: time.Now(),
			}})
			Expect(err).NotTo(HaveOccurred())
			Expect(executed).To(Equal(1))

			Expect(events.processed).To(Equal([]int64{stored.ID}))
			Expect(producer.published).To(HaveLen(1))
			Expect(producer.published[0].EventID).To(Equal(stored.ID))
			Expect(producer.published[0].HooksRun).To(Equal(1))
		})

		It("marks ignored envelopes processed without dispatching", func() {
			registry.Register(hook.Hook{Name: "echo", Enabled: true}, func(_ context.Context, _ hook.Context) (map[string]any, error) {
				return nil, nil
			})

			executed, err := svc.Process(ctx, stored, []normalize.Event{{
				Platform:     model.PlatformSlack,
				Ignored:      true,
				IgnoreReason: "bot_message",
			}})
			Expect(err).NotTo(HaveOccurred())
			Expect(executed).To(BeZero())
			Expect(events.processed).To(Equal([]int64{stored.ID}))
		})

		It("marks an empty envelope list processed", func() {
			executed, err := svc.Process(ctx, stored, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(executed).To(BeZero())
			Expect(events.processed).To(Equal([]int64{stored.ID}))
		})

		It("surfaces mark-processed failures", func() {
			events.markProcessedFn = func(context.Context, int64) error {
				return fmt.Errorf("deadlock detected")
			}

			_, err := svc.Process(ctx, stored, nil)
			Expect(err).To(HaveOccurred())
		})

		It("treats publish failures as best effort", func() {
			producer.publishFn = func(context.Context, queue.ProcessedEvent) error {
				return fmt.Errorf("stream full")
			}

			_, err := svc.Process(ctx, stored, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(events.processed).To(Equal([]int64{stored.ID}))
		})
	})
})
