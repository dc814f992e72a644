package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"fluxo-board/domain"
)

const responseBodyLimit = 4 << 20

// Session identifies the user on whose behalf remote calls are made. It is
// built once at startup and passed explicitly; there is no ambient
// authentication state.
type Session struct {
	UserID string
	Token  string
}

// Client is the sole network boundary for task data. All operations are
// single-shot and normalize failures to TransportError, ValidationError or
// NotFoundError before returning.
type Client struct {
	baseURL string
	session Session
	http    *http.Client
}

// New creates a Client for the task service at baseURL.
func New(baseURL string, session Session) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid task service URL %q", baseURL)
	}
	return &Client{
		baseURL: u.String(),
		session: session,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// List fetches all tasks within the given scope.
func (c *Client) List(ctx context.Context, scope domain.Scope) ([]domain.Task, error) {
	q := url.Values{}
	q.Set("workspaceId", strconv.FormatInt(scope.WorkspaceID, 10))
	if scope.SprintID != nil {
		q.Set("sprintId", strconv.FormatInt(*scope.SprintID, 10))
	}
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks?"+q.Encode(), 0, nil, &tasks, "remote.list"); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// Create submits a draft. The response may be a partial projection; use
// GetByID for the full server-computed representation.
func (c *Client) Create(ctx context.Context, draft domain.TaskDraft) (domain.Task, error) {
	var created domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks", 0, draft, &created, "remote.create")
	return created, err
}

// Update applies a partial patch to one task.
func (c *Client) Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	var updated domain.Task
	err := c.do(ctx, http.MethodPut, "/tasks/"+strconv.FormatInt(id, 10), id, patch, &updated, "remote.update")
	return updated, err
}

// DeleteMany removes all tasks whose id is in ids. Best effort from the
// remote side; the caller sees a single error, never partial results.
func (c *Client) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	body := struct {
		IDs []int64 `json:"ids"`
	}{IDs: ids}
	return c.do(ctx, http.MethodDelete, "/tasks", 0, body, nil, "remote.deleteMany")
}

// Move reassigns one task to the given step.
func (c *Client) Move(ctx context.Context, id, stepID int64) error {
	body := struct {
		StepID int64 `json:"stepId"`
	}{StepID: stepID}
	return c.do(ctx, http.MethodPost, "/tasks/"+strconv.FormatInt(id, 10)+"/move", id, body, nil, "remote.move")
}

// GetByID fetches the full task representation.
func (c *Client) GetByID(ctx context.Context, id int64) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodGet, "/tasks/"+strconv.FormatInt(id, 10), id, nil, &task, "remote.getById")
	return task, err
}

func (c *Client) do(ctx context.Context, method, path string, id int64, in, out any, op string) error {
	var body io.Reader
	if in != nil {
		data, err := sonic.ConfigStd.Marshal(in)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return normalizeStatus(op, id, resp.StatusCode, readErrorMessage(resp.Body))
	}
	if out == nil {
		return nil
	}

	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(resp.Body, responseBodyLimit))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &TransportError{Op: op, Status: resp.StatusCode, Message: "empty response body"}
		}
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// readErrorMessage extracts the human-readable message the service attaches
// to non-2xx responses. A malformed body yields an empty message.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Message
}
