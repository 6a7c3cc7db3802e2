package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClient(url, 5*time.Second)
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	return c
}

func TestDoWithRetryHandles429(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode([]any{})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.LoadFeed(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestLoginSendsCredentialsAndBearerAfterSetToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "a@b.c", body["email"])
			assert.Equal(t, "pw", body["password"])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token": "tok-1",
				"user":  map[string]string{"id": "u1", "username": "alice"},
			})
		case "/walker/load_feed":
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode([]any{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	sess, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, "alice", sess.User.Username)

	c.SetToken(sess.Token)
	_, err = c.LoadFeed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestErrorBodyMessageSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.Login(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	c := newTestClient("http://unused")
	_, err := c.Login(context.Background(), "", "")
	assert.Error(t, err)
}

func TestDeleteTweetFallsBackToSentID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	id, err := c.DeleteTweet(context.Background(), "t42")
	require.NoError(t, err)
	assert.Equal(t, "t42", id)
}

func TestSearchEmbeddingDecodesVector(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "golang", body["query"])
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2}})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	emb, err := c.SearchEmbedding(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, emb)
}
