// Package kb provides document search over the assistant knowledge base.
package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"
)

// Document is a knowledge-base search hit.
type Document struct {
	Content  string
	Metadata map[string]any
	Score    float64
}

// Retriever searches and grows the knowledge base. Hook handlers consume
// this as an opaque capability.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]Document, error)
	AddDocument(ctx context.Context, content string, metadata map[string]any) error
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
}

type typesenseRetriever struct {
	client     *typesense.Client
	collection string
}

// New builds a Retriever backed by a Typesense collection.
func New(cfg Config) (Retriever, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("typesense url and api key are required")
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "knowledge_base"
	}

	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(10*time.Second),
	)

	return &typesenseRetriever{
		client:     client,
		collection: collection,
	}, nil
}

func (r *typesenseRetriever) Search(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = 5
	}

	result, err := r.client.Collection(r.collection).Documents().Search(ctx, &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("content"),
		PerPage: pointer.Int(topK),
	})
	if err != nil {
		return nil, fmt.Errorf("searching knowledge base: %w", err)
	}

	if result.Hits == nil {
		return nil, nil
	}

	docs := make([]Document, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := Document{Metadata: make(map[string]any)}
		for k, v := range *hit.Document {
			if k == "content" {
				if s, ok := v.(string); ok {
					doc.Content = s
					continue
				}
			}
			doc.Metadata[k] = v
		}
		if hit.TextMatch != nil {
			doc.Score = float64(*hit.TextMatch)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *typesenseRetriever) AddDocument(ctx context.Context, content string, metadata map[string]any) error {
	document := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		document[k] = v
	}
	document["content"] = content
	document["indexed_at"] = time.Now().UTC().Format(time.RFC3339)

	if _, err := r.client.Collection(r.collection).Documents().Create(ctx, document, &api.DocumentIndexParameters{}); err != nil {
		return fmt.Errorf("indexing document: %w", err)
	}
	return nil
}
