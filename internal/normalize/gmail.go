package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reflex.app/assistant/internal/gmail"
	"reflex.app/assistant/internal/model"
)

// Resource states delivered in X-Goog-Resource-State.
const (
	GmailStateSync      = "sync"
	GmailStateExists    = "exists"
	GmailStateNotExists = "not_exists"
)

const gmailSyncBatchSize = 10

// GmailNormalizer resolves push-notification resource URIs into message
// events, hydrating each message through the Gmail client.
type GmailNormalizer struct {
	client gmail.Client
}

func NewGmailNormalizer(client gmail.Client) *GmailNormalizer {
	return &GmailNormalizer{client: client}
}

// Normalize turns one notification into zero or more message events.
// A sync state lists recent messages; exists fetches the single message;
// not_exists is a deletion and produces no dispatchable events. Hydration
// failures for individual messages are logged and skipped. Without a
// configured client, notifications are acknowledged but produce nothing.
func (n *GmailNormalizer) Normalize(ctx context.Context, resourceState, resourceURI string) ([]Event, error) {
	if n.client == nil {
		slog.WarnContext(ctx, "gmail client not configured, acknowledging without processing", "state", resourceState)
		return nil, nil
	}

	switch resourceState {
	case GmailStateSync:
		userID, _, err := parseGmailResourceURI(resourceURI)
		if err != nil {
			return nil, err
		}
		messages, err := n.client.ListRecentMessages(ctx, userID, gmailSyncBatchSize)
		if err != nil {
			return nil, fmt.Errorf("syncing messages for %s: %w", userID, err)
		}
		events := make([]Event, 0, len(messages))
		for _, msg := range messages {
			events = append(events, gmailMessageEvent(userID, msg))
		}
		return events, nil

	case GmailStateExists:
		userID, messageID, err := parseGmailResourceURI(resourceURI)
		if err != nil {
			return nil, err
		}
		if messageID == "" {
			return nil, fmt.Errorf("exists notification without message id: %s", resourceURI)
		}
		msg, err := n.client.GetMessage(ctx, userID, messageID)
		if err != nil {
			slog.WarnContext(ctx, "skipping unresolvable gmail message", "message_id", messageID, "error", err)
			return nil, nil
		}
		return []Event{gmailMessageEvent(userID, *msg)}, nil

	case GmailStateNotExists:
		slog.InfoContext(ctx, "gmail message deleted", "resource_uri", resourceURI)
		return nil, nil

	default:
		slog.WarnContext(ctx, "unknown gmail resource state", "state", resourceState)
		return nil, nil
	}
}

func gmailMessageEvent(userID string, msg gmail.Message) Event {
	return Event{
		Platform:     model.PlatformGmail,
		EventType:    "message",
		ResourceType: "message",
		ResourceID:   msg.ID,
		ActorID:      msg.From,
		Payload: map[string]any{
			"message_id": msg.ID,
			"thread_id":  msg.ThreadID,
			"subject":    msg.Subject,
			"from":       msg.From,
			"to":         msg.To,
			"content":    msg.Snippet,
			"user_id":    userID,
		},
		Timestamp: time.Now().UTC(),
	}
}

// parseGmailResourceURI handles both shapes:
//
//	…/users/{user_id}/messages            (sync of many)
//	…/users/{user_id}/messages/{msg_id}   (single message)
func parseGmailResourceURI(uri string) (userID, messageID string, err error) {
	_, after, found := strings.Cut(uri, "/users/")
	if !found {
		return "", "", fmt.Errorf("unrecognized gmail resource uri: %s", uri)
	}

	parts := strings.Split(strings.Trim(after, "/"), "/")
	if len(parts) < 2 || parts[1] != "messages" {
		return "", "", fmt.Errorf("unrecognized gmail resource uri: %s", uri)
	}

	userID = parts[0]
	if len(parts) >= 3 {
		messageID = parts[2]
	}
	return userID, messageID, nil
}
