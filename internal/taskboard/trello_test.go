package taskboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		APIBase: srv.URL + "/1/",
		Key:     "k3y",
		Token:   "t0ken",
		ListID:  "list-42",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestCreateCardSendsQuery(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost || r.URL.Path != "/1/cards" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "k3y" || q.Get("token") != "t0ken" || q.Get("idList") != "list-42" {
			t.Errorf("missing credentials: %v", q)
		}
		if q.Get("name") != "Nova Solicitação de Ana" {
			t.Errorf("name: %q", q.Get("name"))
		}
		if q.Get("desc") != "linha 1\nlinha 2 & mais" {
			t.Errorf("desc: %q", q.Get("desc"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	err := newTestClient(t, srv).CreateCard(context.Background(), Card{
		Name:        "Nova Solicitação de Ana",
		Description: "linha 1\nlinha 2 & mais",
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
}

func TestCreateCardDoesNotRetryOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).CreateCard(context.Background(), Card{Name: "x"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || !strings.Contains(statusErr.Body, "invalid key") {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected no retry, got %d calls", calls)
	}
}

func TestCreateCardRedactsTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, srv)
	srv.Close()

	err := c.CreateCard(context.Background(), Card{Name: "x"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "k3y") || strings.Contains(err.Error(), "t0ken") {
		t.Fatalf("credentials leaked: %v", err)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{Key: "k", Token: "t"}); err == nil {
		t.Fatal("expected error without list id")
	}
}

func TestCreateCardCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newTestClient(t, srv).CreateCard(ctx, Card{Name: "x"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
