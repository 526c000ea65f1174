package normalize

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"reflex.app/assistant/internal/model"
)

// SlackNormalizer extracts the inner event from a Slack Events API envelope.
type SlackNormalizer struct {
	// BotUserIDs are ignored as actors to prevent the assistant
	// responding to its own messages.
	BotUserIDs []string
}

func NewSlackNormalizer(botUserIDs []string) *SlackNormalizer {
	return &SlackNormalizer{BotUserIDs: botUserIDs}
}

// Normalize is pure: the same payload always yields a structurally
// identical event.
func (n *SlackNormalizer) Normalize(payload map[string]any) Event {
	event := sub(payload, "event")
	if event == nil {
		return ignored(model.PlatformSlack, "no event in payload")
	}

	eventType := str(event, "type")
	user := str(event, "user")

	if n.isBot(event, user) {
		ev := ignored(model.PlatformSlack, "bot_message")
		ev.EventType = eventType
		return ev
	}

	return Event{
		Platform:     model.PlatformSlack,
		EventType:    eventType,
		ResourceType: "message",
		ResourceID:   str(event, "channel"),
		ActorID:      user,
		Payload:      slackPayload(event),
		Timestamp:    slackTimestamp(event),
	}
}

func (n *SlackNormalizer) isBot(event map[string]any, user string) bool {
	if str(event, "bot_id") != "" {
		return true
	}
	if str(event, "subtype") == "bot_message" {
		return true
	}
	return user != "" && slices.Contains(n.BotUserIDs, user)
}

func slackPayload(event map[string]any) map[string]any {
	payload := make(map[string]any, len(event)+1)
	for k, v := range event {
		payload[k] = v
	}
	// Hooks match on a uniform "content" key across platforms
	if _, ok := payload["content"]; !ok {
		payload["content"] = str(event, "text")
	}
	return payload
}

func slackTimestamp(event map[string]any) time.Time {
	ts := str(event, "ts")
	if ts == "" {
		return time.Now().UTC()
	}
	// Slack timestamps are "seconds.fraction"
	seconds, _, _ := strings.Cut(ts, ".")
	if secs, err := strconv.ParseInt(seconds, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	return time.Now().UTC()
}
