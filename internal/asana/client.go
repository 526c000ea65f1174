// Package asana is a minimal Asana API client used to hydrate resource GIDs
// from webhook events into full objects.
package asana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Task struct {
	GID       string `json:"gid"`
	Name      string `json:"name"`
	Notes     string `json:"notes"`
	Completed bool   `json:"completed"`
	DueOn     string `json:"due_on"`
	Assignee  *struct {
		GID string `json:"gid"`
	} `json:"assignee"`
}

type Project struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// Client hydrates Asana resource GIDs into full objects.
type Client interface {
	GetTask(ctx context.Context, taskGID string) (*Task, error)
	GetProject(ctx context.Context, projectGID string) (*Project, error)
	CreateTask(ctx context.Context, projectGID, name, notes string) (*Task, error)
}

type restClient struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func NewClient(baseURL, accessToken string) Client {
	return &restClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *restClient) GetTask(ctx context.Context, taskGID string) (*Task, error) {
	var out struct {
		Data Task `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskGID), nil, &out); err != nil {
		return nil, fmt.Errorf("fetching task %s: %w", taskGID, err)
	}
	return &out.Data, nil
}

func (c *restClient) GetProject(ctx context.Context, projectGID string) (*Project, error) {
	var out struct {
		Data Project `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectGID), nil, &out); err != nil {
		return nil, fmt.Errorf("fetching project %s: %w", projectGID, err)
	}
	return &out.Data, nil
}

func (c *restClient) CreateTask(ctx context.Context, projectGID, name, notes string) (*Task, error) {
	body := map[string]any{
		"data": map[string]any{
			"name":     name,
			"notes":    notes,
			"projects": []string{projectGID},
		},
	}
	var out struct {
		Data Task `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks", body, &out); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &out.Data, nil
}

func (c *restClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = strings.NewReader(string(data))
	} else {
		reqBody = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("asana api returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
