package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"littlex/internal/metrics"
	"littlex/internal/model"
)

// Backend defines the littleX operations the client uses.
type Backend interface {
	Login(ctx context.Context, email, password string) (model.Session, error)
	Register(ctx context.Context, email, password string) (model.Session, error)

	LoadFeed(ctx context.Context) ([]model.Tweet, error)
	CreateTweet(ctx context.Context, content string) (model.Tweet, error)
	UpdateTweet(ctx context.Context, id, content string) (model.Tweet, error)
	DeleteTweet(ctx context.Context, id string) (string, error)
	LikeTweet(ctx context.Context, id, username string) (LikeAck, error)
	RemoveLike(ctx context.Context, id, username string) (LikeAck, error)

	AddComment(ctx context.Context, tweetID, content string) (model.Comment, error)
	UpdateComment(ctx context.Context, tweetID string, comment model.Comment) (model.Comment, error)
	DeleteComment(ctx context.Context, tweetID, id string) (string, error)

	GetProfile(ctx context.Context) (model.UserProfile, error)
	LoadUserProfiles(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, username string) (model.User, error)
	Follow(ctx context.Context, id string) (model.User, error)
	Unfollow(ctx context.Context, id string) (model.User, error)

	SearchEmbedding(ctx context.Context, query string) ([]float64, error)
}

// LikeAck is the backend's acknowledgement of a like/unlike.
type LikeAck struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Client is a token-authenticated HTTP client for the littleX backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(5), 10),
		maxAttempts: getEnvInt("LITTLEX_API_MAX_ATTEMPTS", 3),
		baseBackoff: time.Duration(getEnvInt("LITTLEX_API_BASE_BACKOFF_MS", 250)) * time.Millisecond,
	}
}

// SetToken installs the session token used for subsequent requests.
// An empty token clears authentication.
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

func (c *Client) auth(req *http.Request) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
}

// post sends a JSON body to path and decodes the JSON response into out.
// A nil body sends an empty object; a nil out discards the response.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if body == nil {
		body = struct{}{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, req, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			return errors.New(apiErr.Message)
		}
		return fmt.Errorf("littlex api status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Login(ctx context.Context, email, password string) (model.Session, error) {
	var out model.Session
	if email == "" || password == "" {
		return out, errors.New("email and password are required")
	}
	body := map[string]string{"email": email, "password": password}
	err := c.post(ctx, "/user/login", body, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, email, password string) (model.Session, error) {
	var out model.Session
	if email == "" || password == "" {
		return out, errors.New("email and password are required")
	}
	body := map[string]string{"email": email, "password": password}
	err := c.post(ctx, "/user/register", body, &out)
	return out, err
}

func (c *Client) LoadFeed(ctx context.Context) ([]model.Tweet, error) {
	var out []model.Tweet
	err := c.post(ctx, "/walker/load_feed", nil, &out)
	return out, err
}

func (c *Client) CreateTweet(ctx context.Context, content string) (model.Tweet, error) {
	var out model.Tweet
	err := c.post(ctx, "/walker/create_tweet", map[string]string{"content": content}, &out)
	return out, err
}

func (c *Client) UpdateTweet(ctx context.Context, id, content string) (model.Tweet, error) {
	var out model.Tweet
	err := c.post(ctx, "/walker/update_tweet", map[string]string{"id": id, "content": content}, &out)
	return out, err
}

func (c *Client) DeleteTweet(ctx context.Context, id string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/walker/remove_tweet", map[string]string{"id": id}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		// backend may omit the id in its ack; fall back to what we sent
		return id, nil
	}
	return out.ID, nil
}

func (c *Client) LikeTweet(ctx context.Context, id, username string) (LikeAck, error) {
	var out LikeAck
	err := c.post(ctx, "/walker/like_tweet", map[string]string{"id": id, "username": username}, &out)
	return out, err
}

func (c *Client) RemoveLike(ctx context.Context, id, username string) (LikeAck, error) {
	var out LikeAck
	err := c.post(ctx, "/walker/remove_like", map[string]string{"id": id, "username": username}, &out)
	return out, err
}

func (c *Client) AddComment(ctx context.Context, tweetID, content string) (model.Comment, error) {
	var out model.Comment
	err := c.post(ctx, "/walker/comment_tweet", map[string]string{"tweet_id": tweetID, "content": content}, &out)
	return out, err
}

func (c *Client) UpdateComment(ctx context.Context, tweetID string, comment model.Comment) (model.Comment, error) {
	var out model.Comment
	body := map[string]string{"tweet_id": tweetID, "comment_id": comment.ID, "content": comment.Content}
	err := c.post(ctx, "/walker/update_comment", body, &out)
	return out, err
}

func (c *Client) DeleteComment(ctx context.Context, tweetID, id string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/walker/remove_comment", map[string]string{"tweet_id": tweetID, "id": id}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return id, nil
	}
	return out.ID, nil
}

func (c *Client) GetProfile(ctx context.Context) (model.UserProfile, error) {
	var out model.UserProfile
	err := c.post(ctx, "/walker/get_profile", nil, &out)
	return out, err
}

func (c *Client) LoadUserProfiles(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := c.post(ctx, "/walker/load_user_profiles", nil, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, username string) (model.User, error) {
	var out model.User
	err := c.post(ctx, "/walker/update_profile", map[string]string{"username": username}, &out)
	return out, err
}

func (c *Client) Follow(ctx context.Context, id string) (model.User, error) {
	var out model.User
	err := c.post(ctx, "/walker/follow_request", map[string]string{"id": id}, &out)
	return out, err
}

func (c *Client) Unfollow(ctx context.Context, id string) (model.User, error) {
	var out model.User
	err := c.post(ctx, "/walker/un_follow_request", map[string]string{"id": id}, &out)
	return out, err
}

// SearchEmbedding sends the query text and returns the query embedding.
// The backend does not rank tweets; ranking happens client-side.
func (c *Client) SearchEmbedding(ctx context.Context, query string) ([]float64, error) {
	var out struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := c.post(ctx, "/walker/search_tweets", map[string]string{"query": query}, &out); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		clone := req.Clone(ctx)
		if req.GetBody != nil {
			rb, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			clone.Body = rb
		}
		resp, err := c.httpClient.Do(clone)
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				metrics.IncAPIRetry(endpoint)
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncAPIRetry(endpoint)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
