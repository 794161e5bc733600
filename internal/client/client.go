// Package client talks to the task tracker HTTP API on behalf of a terminal user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/task-tracker/internal/dto"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/session"
)

// ErrUnauthorized is returned when the server rejects the session.
var ErrUnauthorized = errors.New("not signed in")

// StatusError carries a non-2xx response.
type StatusError struct {
	Status int
	API    apierrors.APIError
}

func (e *StatusError) Error() string {
	if e.API.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.API.Code, e.API.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// Client keeps the session cookie between calls.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// Login opens a session and returns the signed-in principal.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Principal, error) {
	var user dto.UserDTO
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &session.Principal{UserID: user.ID, Email: user.Email}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// List fetches one page of the signed-in user's tasks. The server derives the
// owner from the session; ownerID only gates whether a request is made.
func (c *Client) List(ctx context.Context, ownerID string, filter models.TaskFilter, page, pageSize int) (models.TaskPage, error) {
	if ownerID == "" {
		return models.EmptyTaskPage(), nil
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(pageSize))
	query.Set("status", filter.Status.String())
	query.Set("priority", filter.Priority.String())
	if search := filter.NormalizedSearch(); search != "" {
		query.Set("search", search)
	}

	var resp dto.TaskListResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks?"+query.Encode(), nil, &resp); err != nil {
		return models.TaskPage{}, err
	}

	tasks := make([]models.Task, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		tasks = append(tasks, dto.FromTaskDTO(t))
	}
	return models.TaskPage{Tasks: tasks, TotalCount: resp.TotalCount, HasMore: resp.HasMore}, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := &StatusError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&statusErr.API)
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", ErrUnauthorized, statusErr)
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
