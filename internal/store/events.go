package store

import "littlex/internal/model"

// Op identifies one network-backed operation.
type Op string

const (
	OpFetchTweets   Op = "fetch_tweets"
	OpCreateTweet   Op = "create_tweet"
	OpUpdateTweet   Op = "update_tweet"
	OpDeleteTweet   Op = "delete_tweet"
	OpLikeTweet     Op = "like_tweet"
	OpRemoveLike    Op = "remove_like"
	OpAddComment    Op = "add_comment"
	OpUpdateComment Op = "update_comment"
	OpDeleteComment Op = "delete_comment"
	OpGetProfile    Op = "get_profile"
	OpLoadProfiles  Op = "load_user_profiles"
	OpUpdateProfile Op = "update_profile"
	OpFollow        Op = "follow_request"
	OpUnfollow      Op = "un_follow_request"
	OpSearch        Op = "search_tweets"

	OpLogin    Op = "login"
	OpRegister Op = "register"
	OpLogout   Op = "logout"
)

// Phase is the observable lifecycle of an async operation.
type Phase string

const (
	Pending   Phase = "pending"
	Fulfilled Phase = "fulfilled"
	Rejected  Phase = "rejected"
)

// Event is a tagged state transition. Payload carries the op-specific
// fulfilled data; Err carries the rejected message.
type Event struct {
	Op      Op
	Phase   Phase
	Err     string
	Payload any
}

// Fulfilled payloads, one type per operation.
type (
	FeedLoaded   []model.Tweet
	TweetCreated model.Tweet
	TweetUpdated model.Tweet // partial record, matched by ID
	TweetDeleted string      // tweet id

	LikeSet     struct{ ID, Username string }
	LikeRemoved struct{ ID, Username string }

	CommentAdded struct {
		TweetID string
		Comment model.Comment
	}
	CommentUpdated struct {
		TweetID string
		Comment model.Comment
	}
	CommentDeleted struct{ TweetID, ID string }

	ProfileLoaded  model.UserProfile
	ProfilesLoaded []model.User
	ProfileUpdated model.User
	Followed       model.User
	Unfollowed     model.User

	SearchCompleted struct{ Embedding []float64 }

	LoggedIn   model.User
	Registered struct{}
	LoggedOut  struct{}
)

// NewPending, NewFulfilled, and NewRejected build events for dispatchers.
func NewPending(op Op) Event { return Event{Op: op, Phase: Pending} }

func NewFulfilled(op Op, payload any) Event {
	return Event{Op: op, Phase: Fulfilled, Payload: payload}
}

func NewRejected(op Op, msg string) Event { return Event{Op: op, Phase: Rejected, Err: msg} }
