package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"

	"fluxo-board/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, Session{UserID: "user-1", Token: "tok"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestListForwardsScopeAndDecodes(t *testing.T) {
	sprint := int64(4)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/tasks" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("workspaceId"); got != "9" {
			t.Fatalf("unexpected workspaceId: %q", got)
		}
		if got := r.URL.Query().Get("sprintId"); got != "4" {
			t.Fatalf("unexpected sprintId: %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"title":"a","stepId":10},{"id":2,"title":"b","stepId":11}]`))
	})

	tasks, err := c.List(context.Background(), domain.Scope{WorkspaceID: 9, SprintID: &sprint})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != 1 || tasks[1].StepID != 11 {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
}

func TestListEmptyScopeReturnsEmptySlice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("sprintId") {
			t.Fatalf("sprintId must be omitted for backlog scope")
		}
		_, _ = w.Write([]byte(`[]`))
	})

	tasks, err := c.List(context.Background(), domain.Scope{WorkspaceID: 9})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", tasks)
	}
}

func TestMoveSendsStepAndIdempotencyKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks/5/move" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Fatal("expected idempotency key on mutating call")
		}
		data, _ := io.ReadAll(r.Body)
		var body struct {
			StepID int64 `json:"stepId"`
		}
		if err := sonic.Unmarshal(data, &body); err != nil || body.StepID != 12 {
			t.Fatalf("unexpected move body: %s", data)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.Move(context.Background(), 5, 12); err != nil {
		t.Fatalf("move: %v", err)
	}
}

func TestErrorNormalization(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"not_found", http.StatusNotFound, `{"message":"gone"}`, IsNotFound},
		{"validation_400", http.StatusBadRequest, `{"message":"bad step"}`, IsValidation},
		{"validation_422", http.StatusUnprocessableEntity, `{"message":"bad dates"}`, IsValidation},
		{"transport_500", http.StatusInternalServerError, `{"message":"boom"}`, IsTransport},
		{"transport_garbage_body", http.StatusBadGateway, `<html>`, IsTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			err := c.Move(context.Background(), 5, 12)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tc.check(err) {
				t.Fatalf("wrong error kind: %T %v", err, err)
			}
		})
	}
}

func TestValidationErrorCarriesRemoteMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"deadline precedes start"}`))
	})
	_, err := c.Create(context.Background(), domain.TaskDraft{Title: "t", StepID: 1})
	if err == nil || !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	ve := err.(*ValidationError)
	if ve.Message != "deadline precedes start" {
		t.Fatalf("unexpected message: %q", ve.Message)
	}
}

func TestConnectionFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url, Session{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.GetByID(context.Background(), 1); !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestDeleteManyNoopOnEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty id set")
	})
	if err := c.DeleteMany(context.Background(), nil); err != nil {
		t.Fatalf("delete many: %v", err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative"} {
		if _, err := New(raw, Session{}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
