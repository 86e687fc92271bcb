package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fakeSupabase(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.Header.Get("apikey") != "anon" {
			http.Error(w, "missing apikey", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			http.Error(w, `{"msg":"invalid JWT"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(User{ID: "user-1", Email: "a@example.com"})
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "password" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		if in["email"] != "a@example.com" {
			http.Error(w, "bad credentials", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(Session{AccessToken: "good", User: User{ID: "user-1", Email: in["email"]}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyAccessTokenCaches(t *testing.T) {
	var calls int32
	srv := fakeSupabase(t, &calls)
	c := NewSupabaseClient(srv.URL+"/", "anon")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		user, err := c.VerifyAccessToken(context.Background(), "good")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if user.ID != "user-1" {
			t.Fatalf("unexpected user %+v", user)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("upstream calls got=%d want=1", got)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.VerifyAccessToken(context.Background(), "good"); err != nil {
		t.Fatalf("verify after expiry: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("upstream calls after expiry got=%d want=2", got)
	}
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	var calls int32
	srv := fakeSupabase(t, &calls)
	c := NewSupabaseClient(srv.URL, "anon")
	if _, err := c.VerifyAccessToken(context.Background(), "bad"); err == nil {
		t.Fatalf("expected invalid token to fail")
	}
	if _, err := c.VerifyAccessToken(context.Background(), "bad"); err == nil {
		t.Fatalf("failed verification must not be cached")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("upstream calls got=%d want=2", got)
	}
}

func TestLogin(t *testing.T) {
	var calls int32
	srv := fakeSupabase(t, &calls)
	c := NewSupabaseClient(srv.URL, "anon")
	sess, err := c.Login(context.Background(), " a@example.com ", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.AccessToken != "good" || sess.User.ID != "user-1" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if _, err := c.Login(context.Background(), "b@example.com", "pw"); err == nil {
		t.Fatalf("expected bad credentials to fail")
	}
}
