// Package gmail is a minimal Gmail API client used to hydrate message IDs
// from push notifications into full messages.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Message is the subset of a Gmail message the assistant cares about.
type Message struct {
	ID       string
	ThreadID string
	Subject  string
	From     string
	To       []string
	Date     string
	Snippet  string
}

// Client hydrates Gmail resource IDs into full messages.
type Client interface {
	GetMessage(ctx context.Context, userID, messageID string) (*Message, error)
	ListRecentMessages(ctx context.Context, userID string, maxResults int) ([]Message, error)
}

type restClient struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

// NewClient builds a REST client against the Gmail API. The access token is
// expected to be managed (refreshed) outside this package.
func NewClient(baseURL, accessToken string) Client {
	return &restClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *restClient) GetMessage(ctx context.Context, userID, messageID string) (*Message, error) {
	var raw rawMessage
	path := fmt.Sprintf("/users/%s/messages/%s?format=metadata", url.PathEscape(userID), url.PathEscape(messageID))
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", messageID, err)
	}
	msg := raw.toMessage()
	return &msg, nil
}

func (c *restClient) ListRecentMessages(ctx context.Context, userID string, maxResults int) ([]Message, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	path := fmt.Sprintf("/users/%s/messages?maxResults=%d", url.PathEscape(userID), maxResults)
	if err := c.get(ctx, path, &list); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := c.GetMessage(ctx, userID, ref.ID)
		if err != nil {
			return messages, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

func (c *restClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gmail api returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type rawMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Snippet  string `json:"snippet"`
	Payload  struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
	} `json:"payload"`
}

func (r rawMessage) toMessage() Message {
	msg := Message{
		ID:       r.ID,
		ThreadID: r.ThreadID,
		Snippet:  r.Snippet,
	}
	for _, h := range r.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			msg.Subject = h.Value
		case "from":
			msg.From = ParseEmailAddress(h.Value)
		case "to":
			msg.To = ParseEmailAddresses(h.Value)
		case "date":
			msg.Date = h.Value
		}
	}
	return msg
}

// ParseEmailAddress extracts the bare address from forms like
// "Jane Doe <jane@example.com>" or "jane@example.com".
func ParseEmailAddress(s string) string {
	if s == "" {
		return ""
	}
	if start := strings.Index(s, "<"); start >= 0 {
		if end := strings.Index(s, ">"); end > start {
			return strings.TrimSpace(s[start+1 : end])
		}
	}
	return strings.TrimSpace(s)
}

// ParseEmailAddresses splits a comma-separated recipient header.
func ParseEmailAddresses(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if addr := ParseEmailAddress(p); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
