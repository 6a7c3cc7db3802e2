package store

import (
	"fmt"
	"sync"

	"littlex/internal/model"
)

// SearchThreshold is the fixed minimum similarity for a tweet to appear in
// search results.
const SearchThreshold = 0.4

// TweetState is the normalized client-side view of the feed. Items is
// newest-first. UserProfiles (the "who to follow" directory) and
// Profile.Following are disjoint: follow/unfollow move users between them.
// SearchResult is always derived from Items and the last query embedding.
type TweetState struct {
	Items        []model.Tweet
	UserProfiles []model.User
	Profile      model.UserProfile
	SearchResult []model.Match

	IsLoading      bool
	Err            string
	Success        bool
	SuccessMessage string
}

// TweetStore is an explicitly constructed, process-wide state container.
// All mutation flows through Apply; reads get a snapshot copy.
type TweetStore struct {
	mu        sync.RWMutex
	state     TweetState
	lastQuery []float64
}

func NewTweetStore() *TweetStore {
	return &TweetStore{}
}

// Snapshot returns a copy of the current state. Nested slices are copied so
// a subscriber holding an old snapshot never observes later mutations.
func (s *TweetStore) Snapshot() TweetState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.Items = cloneTweets(s.state.Items)
	out.UserProfiles = append([]model.User(nil), s.state.UserProfiles...)
	out.Profile.Following = append([]model.User(nil), s.state.Profile.Following...)
	out.SearchResult = append([]model.Match(nil), s.state.SearchResult...)
	return out
}

// Apply is the reducer: a deterministic transition for one tagged event.
// Pending clears prior outcome flags; Rejected records the error and leaves
// domain state untouched; Fulfilled applies the payload-specific patch.
func (s *TweetStore) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Phase {
	case Pending:
		s.state.IsLoading = true
		s.state.Err = ""
		s.state.Success = false
		s.state.SuccessMessage = ""
	case Rejected:
		s.state.IsLoading = false
		s.state.Err = ev.Err
		s.state.Success = false
	case Fulfilled:
		s.state.IsLoading = false
		s.state.Err = ""
		s.state.Success = true
		s.fulfill(ev)
	}
}

// SuccessMessage returns the message of the last fulfilled event.
func (s *TweetStore) SuccessMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SuccessMessage
}

func (s *TweetStore) fulfill(ev Event) {
	switch p := ev.Payload.(type) {
	case FeedLoaded:
		s.state.Items = cloneTweets(p)
		s.state.SuccessMessage = "Tweets fetched successfully"
		s.rerank()

	case TweetCreated:
		t := model.Tweet(p)
		// the create response may omit the author; it is always ourselves
		t.Username = s.state.Profile.User.Username
		s.state.Items = append([]model.Tweet{t}, s.state.Items...)
		s.state.SuccessMessage = "Tweet created successfully"
		s.rerank()

	case TweetUpdated:
		for i := range s.state.Items {
			if s.state.Items[i].ID == p.ID {
				if p.Content != "" {
					s.state.Items[i].Content = p.Content
				}
				if len(p.Embedding) > 0 {
					s.state.Items[i].Embedding = p.Embedding
				}
				break
			}
		}
		s.state.SuccessMessage = "Tweet updated successfully"
		s.rerank()

	case TweetDeleted:
		items := s.state.Items[:0]
		for _, t := range s.state.Items {
			if t.ID != string(p) {
				items = append(items, t)
			}
		}
		s.state.Items = items
		s.state.SuccessMessage = "Tweet deleted successfully"
		s.rerank()

	case LikeSet:
		for i := range s.state.Items {
			if s.state.Items[i].ID == p.ID && !s.state.Items[i].LikedBy(p.Username) {
				s.state.Items[i].Likes = append(s.state.Items[i].Likes, p.Username)
				break
			}
		}
		s.state.SuccessMessage = "Tweet liked successfully"
		s.rerank()

	case LikeRemoved:
		for i := range s.state.Items {
			if s.state.Items[i].ID != p.ID {
				continue
			}
			likes := s.state.Items[i].Likes[:0]
			for _, l := range s.state.Items[i].Likes {
				if l != p.Username {
					likes = append(likes, l)
				}
			}
			s.state.Items[i].Likes = likes
			break
		}
		s.state.SuccessMessage = "Tweet removed from likes successfully"
		s.rerank()

	case CommentAdded:
		for i := range s.state.Items {
			if s.state.Items[i].ID == p.TweetID {
				s.state.Items[i].Comments = append(s.state.Items[i].Comments, p.Comment)
				s.state.SuccessMessage = fmt.Sprintf("You commented on %s's post", s.state.Items[i].Username)
				break
			}
		}
		s.rerank()

	case CommentUpdated:
		for i := range s.state.Items {
			if s.state.Items[i].ID != p.TweetID {
				continue
			}
			for j := range s.state.Items[i].Comments {
				if s.state.Items[i].Comments[j].ID == p.Comment.ID {
					if p.Comment.Content != "" {
						s.state.Items[i].Comments[j].Content = p.Comment.Content
					}
					break
				}
			}
			break
		}
		s.state.SuccessMessage = "Comment updated successfully"
		s.rerank()

	case CommentDeleted:
		for i := range s.state.Items {
			if s.state.Items[i].ID != p.TweetID {
				continue
			}
			comments := s.state.Items[i].Comments[:0]
			for _, c := range s.state.Items[i].Comments {
				if c.ID != p.ID {
					comments = append(comments, c)
				}
			}
			s.state.Items[i].Comments = comments
			break
		}
		s.state.SuccessMessage = "Comment deleted successfully"
		s.rerank()

	case ProfileLoaded:
		s.state.Profile = model.UserProfile(p)
		s.state.SuccessMessage = "Profile updated"

	case ProfilesLoaded:
		s.state.UserProfiles = append([]model.User(nil), p...)
		s.state.SuccessMessage = "User profiles fetched successfully"

	case ProfileUpdated:
		s.state.Profile.User = model.User(p)
		s.state.SuccessMessage = "Profile updated"

	case Followed:
		u := model.User(p)
		if !containsUser(s.state.Profile.Following, u.ID) {
			s.state.Profile.Following = append(s.state.Profile.Following, u)
		}
		s.state.UserProfiles = removeUser(s.state.UserProfiles, u.ID)
		s.state.SuccessMessage = fmt.Sprintf("You're following %s", u.Username)

	case Unfollowed:
		u := model.User(p)
		s.state.Profile.Following = removeUser(s.state.Profile.Following, u.ID)
		if !containsUser(s.state.UserProfiles, u.ID) {
			s.state.UserProfiles = append(s.state.UserProfiles, u)
		}
		s.state.SuccessMessage = fmt.Sprintf("You're unfollowing %s", u.Username)

	case SearchCompleted:
		s.state.SuccessMessage = "Search completed successfully"
		if len(p.Embedding) == 0 {
			s.lastQuery = nil
			s.state.SearchResult = []model.Match{}
			return
		}
		s.lastQuery = append([]float64(nil), p.Embedding...)
		s.state.SearchResult = model.RankBySimilarity(s.lastQuery, s.state.Items, SearchThreshold)
	}
}

// rerank keeps SearchResult derived from Items after any feed mutation.
func (s *TweetStore) rerank() {
	if s.lastQuery == nil {
		return
	}
	s.state.SearchResult = model.RankBySimilarity(s.lastQuery, s.state.Items, SearchThreshold)
}

func cloneTweets(in []model.Tweet) []model.Tweet {
	out := make([]model.Tweet, len(in))
	copy(out, in)
	for i := range out {
		out[i].Likes = append([]string(nil), in[i].Likes...)
		out[i].Comments = append([]model.Comment(nil), in[i].Comments...)
	}
	return out
}

func containsUser(users []model.User, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func removeUser(users []model.User, id string) []model.User {
	out := users[:0]
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
