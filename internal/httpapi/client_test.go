package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeSession struct {
	mu           sync.Mutex
	token        string
	forcedLogout int
}

func (s *fakeSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) ForceLogout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedLogout++
	s.token = ""
}

func TestDo_AttachesCurrentToken(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	sess := &fakeSession{token: "t1"}
	c.BindSession(sess)

	if err := c.DoJSON(context.Background(), "/api/courses", Options{}, nil); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if gotAuth != "Bearer t1" {
		t.Errorf("Authorization = %q, want Bearer t1", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}

	// The token is read at call time, not bind time.
	sess.mu.Lock()
	sess.token = "t2"
	sess.mu.Unlock()
	if err := c.DoJSON(context.Background(), "/api/courses", Options{}, nil); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if gotAuth != "Bearer t2" {
		t.Errorf("Authorization = %q, want Bearer t2", gotAuth)
	}
}

func TestDo_PublicSkipsAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if err := c.DoJSON(context.Background(), "/api/auth/token", Options{Public: true}, nil); err != nil {
		t.Fatalf("DoJSON public: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want none on public call", gotAuth)
	}
}

func TestDo_MissingTokenOnAuthorizedCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server without a token")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.BindSession(&fakeSession{})

	_, err := c.Do(context.Background(), "/api/courses", Options{})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestDo_401TearsDownSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	sess := &fakeSession{token: "t1"}
	c.BindSession(sess)

	_, err := c.Do(context.Background(), "/api/courses", Options{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if sess.forcedLogout != 1 {
		t.Errorf("ForceLogout called %d times, want 1", sess.forcedLogout)
	}
}

func TestDo_401OnPublicCallPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	sess := &fakeSession{token: "t1"}
	c.BindSession(sess)

	err := c.DoJSON(context.Background(), "/api/auth/token", Options{Public: true, Method: http.MethodPost}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "bad credentials" {
		t.Errorf("APIError = %+v, want 401/bad credentials", apiErr)
	}
	if sess.forcedLogout != 0 {
		t.Errorf("public 401 must not tear down the session (ForceLogout called %d times)", sess.forcedLogout)
	}
}

func TestDoJSON_ServerMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"already exists"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.BindSession(&fakeSession{token: "t1"})

	err := c.Post(context.Background(), "/api/categories", map[string]string{"nom": "Fiqh"}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "already exists" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestDoJSON_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"c1","titre":"Tajwid"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.BindSession(&fakeSession{token: "t1"})

	var out struct {
		ID    string `json:"id"`
		Title string `json:"titre"`
	}
	if err := c.Get(context.Background(), "/api/courses/c1", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.ID != "c1" || out.Title != "Tajwid" {
		t.Errorf("decoded = %+v", out)
	}
}
