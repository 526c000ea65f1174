package store

import (
	"reflex.app/assistant/core/db"
)

type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) WebhookEvents() WebhookEventStore {
	return newWebhookEventStore(s.q)
}
