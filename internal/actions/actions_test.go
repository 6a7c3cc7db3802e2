package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"littlex/internal/api"
	"littlex/internal/model"
	"littlex/internal/notify"
	"littlex/internal/storage"
	"littlex/internal/store"
)

type fakeBackend struct {
	feed      []model.Tweet
	feedCalls int
	failFeed  bool
	loginErr  error
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (model.Session, error) {
	if f.loginErr != nil {
		return model.Session{}, f.loginErr
	}
	return model.Session{Token: "tok-1", User: model.User{ID: "u1", Username: "alice"}}, nil
}

func (f *fakeBackend) Register(ctx context.Context, email, password string) (model.Session, error) {
	return model.Session{Token: "tok-r", User: model.User{ID: "u2"}}, nil
}

func (f *fakeBackend) LoadFeed(ctx context.Context) ([]model.Tweet, error) {
	f.feedCalls++
	if f.failFeed {
		return nil, errors.New("backend unavailable")
	}
	return f.feed, nil
}

func (f *fakeBackend) CreateTweet(ctx context.Context, content string) (model.Tweet, error) {
	return model.Tweet{ID: "t-new", Content: content}, nil
}

func (f *fakeBackend) UpdateTweet(ctx context.Context, id, content string) (model.Tweet, error) {
	return model.Tweet{ID: id, Content: content}, nil
}

func (f *fakeBackend) DeleteTweet(ctx context.Context, id string) (string, error) { return id, nil }

func (f *fakeBackend) LikeTweet(ctx context.Context, id, username string) (api.LikeAck, error) {
	return api.LikeAck{ID: id, Username: username}, nil
}

func (f *fakeBackend) RemoveLike(ctx context.Context, id, username string) (api.LikeAck, error) {
	return api.LikeAck{ID: id, Username: username}, nil
}

func (f *fakeBackend) AddComment(ctx context.Context, tweetID, content string) (model.Comment, error) {
	return model.Comment{ID: "c-new", Content: content}, nil
}

func (f *fakeBackend) UpdateComment(ctx context.Context, tweetID string, c model.Comment) (model.Comment, error) {
	return c, nil
}

func (f *fakeBackend) DeleteComment(ctx context.Context, tweetID, id string) (string, error) {
	return id, nil
}

func (f *fakeBackend) GetProfile(ctx context.Context) (model.UserProfile, error) {
	return model.UserProfile{User: model.User{ID: "u1", Username: "alice"}}, nil
}

func (f *fakeBackend) LoadUserProfiles(ctx context.Context) ([]model.User, error) {
	return []model.User{{ID: "u2", Username: "carol"}}, nil
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, username string) (model.User, error) {
	return model.User{ID: "u1", Username: username}, nil
}

func (f *fakeBackend) Follow(ctx context.Context, id string) (model.User, error) {
	return model.User{ID: id, Username: "carol"}, nil
}

func (f *fakeBackend) Unfollow(ctx context.Context, id string) (model.User, error) {
	return model.User{ID: id, Username: "carol"}, nil
}

func (f *fakeBackend) SearchEmbedding(ctx context.Context, query string) ([]float64, error) {
	return []float64{1, 0}, nil
}

type fakeTokens struct{ token string }

func (f *fakeTokens) SetToken(tok string) { f.token = tok }

func newTestDispatcher(t *testing.T, backend api.Backend) (*Dispatcher, *storage.DB, *fakeTokens) {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	tokens := &fakeTokens{}
	d := New(backend, tokens, store.NewTweetStore(), store.NewSessionStore(), db, notify.New(db))
	return d, db, tokens
}

func TestLoginPersistsSessionAndSignalsHome(t *testing.T) {
	d, db, tokens := newTestDispatcher(t, &fakeBackend{})
	ctx := context.Background()

	require.NoError(t, d.Login(ctx, "a@b.c", "pw"))

	st := d.Session().Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, "alice", st.User.Username)
	assert.Equal(t, store.StatusAuthenticated, st.Status)
	assert.Equal(t, store.IntentHome, d.Session().ConsumeIntent())
	assert.Equal(t, "tok-1", tokens.token)

	tok, err := db.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	notes := d.Notifications(ctx)
	require.NotEmpty(t, notes)
	assert.Equal(t, "Login successful", notes[0].Content)
	assert.Equal(t, notify.StatusSuccess, notes[0].Status)
}

func TestLoginFailureBecomesStateAndNote(t *testing.T) {
	d, _, tokens := newTestDispatcher(t, &fakeBackend{loginErr: errors.New("invalid credentials")})
	ctx := context.Background()

	err := d.Login(ctx, "a@b.c", "bad")
	require.Error(t, err)
	st := d.Session().Snapshot()
	assert.Equal(t, "invalid credentials", st.Err)
	assert.Nil(t, st.User)
	assert.Empty(t, tokens.token)

	notes := d.Notifications(ctx)
	require.Len(t, notes, 1)
	assert.Equal(t, notify.StatusError, notes[0].Status)
}

func TestRegisterDoesNotPersistSession(t *testing.T) {
	d, db, tokens := newTestDispatcher(t, &fakeBackend{})
	ctx := context.Background()

	require.NoError(t, d.Register(ctx, "a@b.c", "pw"))
	assert.Equal(t, store.IntentLogin, d.Session().ConsumeIntent())
	assert.Empty(t, tokens.token)
	assert.False(t, db.Has(ctx, storage.KeyToken))
}

func TestRestoreWithPersistedSession(t *testing.T) {
	d, db, tokens := newTestDispatcher(t, &fakeBackend{})
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, storage.KeyToken, "opaque-token", 0))
	require.NoError(t, db.SetJSON(ctx, storage.KeyUser, model.User{ID: "u1", Username: "alice"}, 0))

	d.Restore(ctx)
	st := d.Session().Snapshot()
	assert.True(t, st.InitialCheckComplete)
	assert.Equal(t, store.StatusAuthenticated, st.Status)
	assert.Equal(t, "opaque-token", tokens.token)
}

func TestRestoreWithoutSession(t *testing.T) {
	d, _, _ := newTestDispatcher(t, &fakeBackend{})
	d.Restore(context.Background())
	st := d.Session().Snapshot()
	assert.True(t, st.InitialCheckComplete)
	assert.Equal(t, store.StatusAnonymous, st.Status)
	assert.Nil(t, st.User)
}

func TestRestoreRejectsExpiredJWT(t *testing.T) {
	d, db, _ := newTestDispatcher(t, &fakeBackend{})
	ctx := context.Background()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, storage.KeyToken, signed, 0))
	require.NoError(t, db.SetJSON(ctx, storage.KeyUser, model.User{ID: "u1"}, 0))

	d.Restore(ctx)
	assert.Equal(t, store.StatusAnonymous, d.Session().Snapshot().Status)
}

func TestLogoutClearsEverything(t *testing.T) {
	d, db, tokens := newTestDispatcher(t, &fakeBackend{})
	ctx := context.Background()
	require.NoError(t, d.Login(ctx, "a@b.c", "pw"))
	require.NoError(t, d.FetchTweets(ctx))
	require.NotEmpty(t, d.Notifications(ctx))

	require.NoError(t, d.Logout(ctx))

	st := d.Session().Snapshot()
	assert.Nil(t, st.User)
	assert.Equal(t, store.StatusAnonymous, st.Status)
	assert.Equal(t, store.IntentLogin, d.Session().ConsumeIntent())
	assert.Empty(t, tokens.token)
	assert.False(t, db.Has(ctx, storage.KeyToken))
	assert.False(t, db.Has(ctx, storage.KeyUser))
	assert.Empty(t, d.Notifications(ctx))
}

func TestNotificationLogGrowsNewestFirst(t *testing.T) {
	d, _, _ := newTestDispatcher(t, &fakeBackend{})
	ctx := context.Background()

	require.NoError(t, d.FetchTweets(ctx))
	require.NoError(t, d.CreateTweet(ctx, "hello world"))
	require.NoError(t, d.Search(ctx, "hello"))

	notes := d.Notifications(ctx)
	require.Len(t, notes, 3)
	assert.Equal(t, "Search completed successfully", notes[0].Content)
	assert.Equal(t, "Tweet created successfully", notes[1].Content)
	assert.Equal(t, "Tweets fetched successfully", notes[2].Content)
	for _, n := range notes {
		assert.Equal(t, notify.StatusSuccess, n.Status)
	}
}

func TestCreateTweetNormalizesContent(t *testing.T) {
	d, _, _ := newTestDispatcher(t, &fakeBackend{})
	ctx := context.Background()
	require.NoError(t, d.GetProfile(ctx))
	require.NoError(t, d.CreateTweet(ctx, "  spaced \n out  "))
	st := d.Tweets().Snapshot()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "spaced out", st.Items[0].Content)
	assert.Equal(t, "alice", st.Items[0].Username)
}

func TestFollowRefetchesFeed(t *testing.T) {
	b := &fakeBackend{}
	d, _, _ := newTestDispatcher(t, b)
	ctx := context.Background()
	require.NoError(t, d.LoadUserProfiles(ctx))

	require.NoError(t, d.Follow(ctx, "u2"))
	assert.Equal(t, 1, b.feedCalls)
	st := d.Tweets().Snapshot()
	require.Len(t, st.Profile.Following, 1)
	assert.Empty(t, st.UserProfiles)

	require.NoError(t, d.Unfollow(ctx, "u2"))
	assert.Equal(t, 2, b.feedCalls)
}

func TestRejectedFetchRecordsErrorNote(t *testing.T) {
	d, _, _ := newTestDispatcher(t, &fakeBackend{failFeed: true})
	ctx := context.Background()

	err := d.FetchTweets(ctx)
	require.Error(t, err)
	st := d.Tweets().Snapshot()
	assert.Equal(t, "backend unavailable", st.Err)
	assert.False(t, st.Success)

	notes := d.Notifications(ctx)
	require.Len(t, notes, 1)
	assert.Equal(t, "backend unavailable", notes[0].Content)
	assert.Equal(t, notify.StatusError, notes[0].Status)
}

func TestLikeUsesOwnUsername(t *testing.T) {
	b := &fakeBackend{feed: []model.Tweet{{ID: "t1"}}}
	d, _, _ := newTestDispatcher(t, b)
	ctx := context.Background()
	require.NoError(t, d.GetProfile(ctx))
	require.NoError(t, d.FetchTweets(ctx))

	require.NoError(t, d.LikeTweet(ctx, "t1"))
	st := d.Tweets().Snapshot()
	assert.Equal(t, []string{"alice"}, st.Items[0].Likes)
}
