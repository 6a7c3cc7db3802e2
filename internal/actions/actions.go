// Package actions is the asynchronous operation layer: every network-backed
// operation dispatches a pending event, performs the request, and resolves
// into a fulfilled or rejected state transition plus a durable notification.
package actions

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"littlex/internal/api"
	"littlex/internal/logging"
	"littlex/internal/metrics"
	"littlex/internal/model"
	"littlex/internal/notify"
	"littlex/internal/storage"
	"littlex/internal/store"
	"littlex/internal/util"
)

// TokenSink receives the session token for subsequent authenticated calls.
type TokenSink interface{ SetToken(string) }

// Dispatcher owns the backend client and both stores. It is the composition
// root's handle for every operation; no other code mutates state.
type Dispatcher struct {
	backend api.Backend
	tokens  TokenSink
	tweets  *store.TweetStore
	session *store.SessionStore
	db      *storage.DB
	notes   *notify.Log
}

func New(backend api.Backend, tokens TokenSink, tweets *store.TweetStore, session *store.SessionStore, db *storage.DB, notes *notify.Log) *Dispatcher {
	return &Dispatcher{
		backend: backend,
		tokens:  tokens,
		tweets:  tweets,
		session: session,
		db:      db,
		notes:   notes,
	}
}

// Tweets exposes the tweet store for read-only snapshots.
func (d *Dispatcher) Tweets() *store.TweetStore { return d.tweets }

// Session exposes the session store for read-only snapshots.
func (d *Dispatcher) Session() *store.SessionStore { return d.session }

// Notifications returns the persisted notification log, newest first.
func (d *Dispatcher) Notifications(ctx context.Context) []model.Notification {
	return d.notes.Entries(ctx)
}

// run executes one three-phase tweet-store operation. Errors never
// propagate past the rejected transition uncaptured: they become state and a
// notification, and are returned for callers that want to surface them.
func (d *Dispatcher) run(ctx context.Context, op store.Op, call func(ctx context.Context) (any, error)) error {
	start := time.Now()
	d.tweets.Apply(store.NewPending(op))
	payload, err := call(ctx)
	if err != nil {
		msg := err.Error()
		d.tweets.Apply(store.NewRejected(op, msg))
		d.notes.Record(ctx, msg, notify.StatusError)
		metrics.IncAction(string(op), "rejected")
		logging.Error("action_rejected", map[string]any{"op": op, "error": msg})
		return err
	}
	d.tweets.Apply(store.NewFulfilled(op, payload))
	if msg := d.tweets.SuccessMessage(); msg != "" {
		d.notes.Record(ctx, msg, notify.StatusSuccess)
	}
	metrics.IncAction(string(op), "fulfilled")
	metrics.ObserveActionDuration(start)
	logging.Debug("action_fulfilled", map[string]any{"op": op})
	return nil
}

// ownUsername resolves the acting username from the profile, falling back to
// the session user.
func (d *Dispatcher) ownUsername() string {
	if u := d.tweets.Snapshot().Profile.User.Username; u != "" {
		return u
	}
	if u := d.session.Snapshot().User; u != nil {
		return u.Username
	}
	return ""
}

func (d *Dispatcher) FetchTweets(ctx context.Context) error {
	return d.run(ctx, store.OpFetchTweets, func(ctx context.Context) (any, error) {
		tweets, err := d.backend.LoadFeed(ctx)
		if err != nil {
			return nil, err
		}
		return store.FeedLoaded(tweets), nil
	})
}

func (d *Dispatcher) CreateTweet(ctx context.Context, content string) error {
	content = util.NormalizeWhitespace(content)
	return d.run(ctx, store.OpCreateTweet, func(ctx context.Context) (any, error) {
		t, err := d.backend.CreateTweet(ctx, content)
		if err != nil {
			return nil, err
		}
		return store.TweetCreated(t), nil
	})
}

func (d *Dispatcher) UpdateTweet(ctx context.Context, id, content string) error {
	return d.run(ctx, store.OpUpdateTweet, func(ctx context.Context) (any, error) {
		t, err := d.backend.UpdateTweet(ctx, id, content)
		if err != nil {
			return nil, err
		}
		if t.ID == "" {
			t.ID = id
		}
		return store.TweetUpdated(t), nil
	})
}

func (d *Dispatcher) DeleteTweet(ctx context.Context, id string) error {
	return d.run(ctx, store.OpDeleteTweet, func(ctx context.Context) (any, error) {
		deleted, err := d.backend.DeleteTweet(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.TweetDeleted(deleted), nil
	})
}

func (d *Dispatcher) LikeTweet(ctx context.Context, id string) error {
	username := d.ownUsername()
	return d.run(ctx, store.OpLikeTweet, func(ctx context.Context) (any, error) {
		ack, err := d.backend.LikeTweet(ctx, id, username)
		if err != nil {
			return nil, err
		}
		return store.LikeSet{ID: ack.ID, Username: ack.Username}, nil
	})
}

func (d *Dispatcher) RemoveLike(ctx context.Context, id string) error {
	username := d.ownUsername()
	return d.run(ctx, store.OpRemoveLike, func(ctx context.Context) (any, error) {
		ack, err := d.backend.RemoveLike(ctx, id, username)
		if err != nil {
			return nil, err
		}
		return store.LikeRemoved{ID: ack.ID, Username: ack.Username}, nil
	})
}

func (d *Dispatcher) AddComment(ctx context.Context, tweetID, content string) error {
	username := d.ownUsername()
	return d.run(ctx, store.OpAddComment, func(ctx context.Context) (any, error) {
		c, err := d.backend.AddComment(ctx, tweetID, content)
		if err != nil {
			return nil, err
		}
		if c.Username == "" {
			c.Username = username
		}
		return store.CommentAdded{TweetID: tweetID, Comment: c}, nil
	})
}

func (d *Dispatcher) UpdateComment(ctx context.Context, tweetID string, comment model.Comment) error {
	return d.run(ctx, store.OpUpdateComment, func(ctx context.Context) (any, error) {
		c, err := d.backend.UpdateComment(ctx, tweetID, comment)
		if err != nil {
			return nil, err
		}
		if c.ID == "" {
			c.ID = comment.ID
		}
		return store.CommentUpdated{TweetID: tweetID, Comment: c}, nil
	})
}

func (d *Dispatcher) DeleteComment(ctx context.Context, tweetID, id string) error {
	return d.run(ctx, store.OpDeleteComment, func(ctx context.Context) (any, error) {
		deleted, err := d.backend.DeleteComment(ctx, tweetID, id)
		if err != nil {
			return nil, err
		}
		return store.CommentDeleted{TweetID: tweetID, ID: deleted}, nil
	})
}

func (d *Dispatcher) GetProfile(ctx context.Context) error {
	return d.run(ctx, store.OpGetProfile, func(ctx context.Context) (any, error) {
		p, err := d.backend.GetProfile(ctx)
		if err != nil {
			return nil, err
		}
		return store.ProfileLoaded(p), nil
	})
}

func (d *Dispatcher) LoadUserProfiles(ctx context.Context) error {
	return d.run(ctx, store.OpLoadProfiles, func(ctx context.Context) (any, error) {
		users, err := d.backend.LoadUserProfiles(ctx)
		if err != nil {
			return nil, err
		}
		return store.ProfilesLoaded(users), nil
	})
}

func (d *Dispatcher) UpdateProfile(ctx context.Context, username string) error {
	return d.run(ctx, store.OpUpdateProfile, func(ctx context.Context) (any, error) {
		u, err := d.backend.UpdateProfile(ctx, username)
		if err != nil {
			return nil, err
		}
		return store.ProfileUpdated(u), nil
	})
}

// Follow moves the target into the following list and refetches the feed so
// the target's tweets show up.
func (d *Dispatcher) Follow(ctx context.Context, id string) error {
	err := d.run(ctx, store.OpFollow, func(ctx context.Context) (any, error) {
		u, err := d.backend.Follow(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.Followed(u), nil
	})
	if err != nil {
		return err
	}
	return d.FetchTweets(ctx)
}

// Unfollow moves the target back into the directory and refetches the feed.
func (d *Dispatcher) Unfollow(ctx context.Context, id string) error {
	err := d.run(ctx, store.OpUnfollow, func(ctx context.Context) (any, error) {
		u, err := d.backend.Unfollow(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.Unfollowed(u), nil
	})
	if err != nil {
		return err
	}
	return d.FetchTweets(ctx)
}

// Search asks the backend for the query's embedding and ranks the current
// feed client-side.
func (d *Dispatcher) Search(ctx context.Context, query string) error {
	return d.run(ctx, store.OpSearch, func(ctx context.Context) (any, error) {
		emb, err := d.backend.SearchEmbedding(ctx, query)
		if err != nil {
			return nil, err
		}
		return store.SearchCompleted{Embedding: emb}, nil
	})
}

// Restore runs the one-time session restoration: if a live token and user
// record are persisted, the session becomes authenticated without a network
// round-trip. The backend asserts real validity when the token is next used.
func (d *Dispatcher) Restore(ctx context.Context) {
	tok, err := d.db.Get(ctx, storage.KeyToken)
	if err != nil || tok == "" || tokenExpired(tok) {
		d.session.CompleteRestore(nil)
		return
	}
	var user model.User
	if err := d.db.GetJSON(ctx, storage.KeyUser, &user); err != nil || user.ID == "" {
		d.session.CompleteRestore(nil)
		return
	}
	if d.tokens != nil {
		d.tokens.SetToken(tok)
	}
	d.session.CompleteRestore(&user)
	logging.Info("session_restored", map[string]any{"user": user.Username})
}

// tokenExpired reads the exp claim without verifying the signature; local
// restore is a presence check, validity is the backend's call. A token that
// is not a JWT passes the check.
func tokenExpired(tok string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// Login authenticates, persists the session, and signals a one-shot
// navigate-home intent.
func (d *Dispatcher) Login(ctx context.Context, email, password string) error {
	return d.runSession(ctx, store.OpLogin, func(ctx context.Context) (any, error) {
		sess, err := d.backend.Login(ctx, email, password)
		if err != nil {
			return nil, err
		}
		if sess.Token == "" {
			return nil, errors.New("login response carried no token")
		}
		if err := d.db.Set(ctx, storage.KeyToken, sess.Token, 0); err != nil {
			logging.Error("session_persist_failed", map[string]any{"error": err.Error()})
		}
		if err := d.db.SetJSON(ctx, storage.KeyUser, sess.User, 0); err != nil {
			logging.Error("session_persist_failed", map[string]any{"error": err.Error()})
		}
		if d.tokens != nil {
			d.tokens.SetToken(sess.Token)
		}
		return store.LoggedIn(sess.User), nil
	})
}

// Register creates the account but does not authenticate the caller; the
// fulfilled intent sends them to login.
func (d *Dispatcher) Register(ctx context.Context, email, password string) error {
	return d.runSession(ctx, store.OpRegister, func(ctx context.Context) (any, error) {
		if _, err := d.backend.Register(ctx, email, password); err != nil {
			return nil, err
		}
		return store.Registered{}, nil
	})
}

// Logout clears the persisted token, user record, and notification log, then
// resets the session. The logout outcome itself is not recorded: the log must
// be empty afterwards.
func (d *Dispatcher) Logout(ctx context.Context) error {
	d.session.Apply(store.NewPending(store.OpLogout))
	if err := d.db.Delete(ctx, storage.KeyToken); err != nil {
		logging.Warn("logout_cleanup", map[string]any{"error": err.Error()})
	}
	if err := d.db.Delete(ctx, storage.KeyUser); err != nil {
		logging.Warn("logout_cleanup", map[string]any{"error": err.Error()})
	}
	d.notes.Clear(ctx)
	if d.tokens != nil {
		d.tokens.SetToken("")
	}
	d.session.Apply(store.NewFulfilled(store.OpLogout, store.LoggedOut{}))
	metrics.IncAction(string(store.OpLogout), "fulfilled")
	return nil
}

// runSession mirrors run for the session store.
func (d *Dispatcher) runSession(ctx context.Context, op store.Op, call func(ctx context.Context) (any, error)) error {
	start := time.Now()
	d.session.Apply(store.NewPending(op))
	payload, err := call(ctx)
	if err != nil {
		msg := err.Error()
		d.session.Apply(store.NewRejected(op, msg))
		d.notes.Record(ctx, msg, notify.StatusError)
		metrics.IncAction(string(op), "rejected")
		logging.Error("action_rejected", map[string]any{"op": op, "error": msg})
		return err
	}
	d.session.Apply(store.NewFulfilled(op, payload))
	if msg := d.session.SuccessMessage(); msg != "" {
		d.notes.Record(ctx, msg, notify.StatusSuccess)
	}
	metrics.IncAction(string(op), "fulfilled")
	metrics.ObserveActionDuration(start)
	return nil
}
