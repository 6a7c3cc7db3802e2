// Package views holds read-only projections over the stores: pure functions
// from state snapshots to view-models, no mutation, no I/O.
package views

import (
	"littlex/internal/model"
	"littlex/internal/store"
)

// MenuCounts backs the navigation menu.
type MenuCounts struct {
	Tweets        int
	MyTweets      int
	Following     int
	Suggestions   int
	Notifications int
}

// Menu combines both stores into the navigation counts.
func Menu(ts store.TweetState, notes []model.Notification) MenuCounts {
	return MenuCounts{
		Tweets:        len(ts.Items),
		MyTweets:      len(MyTweets(ts)),
		Following:     len(ts.Profile.Following),
		Suggestions:   len(ts.UserProfiles),
		Notifications: len(notes),
	}
}

// MyTweets returns the feed entries authored by the profile user, keeping
// feed order (newest first).
func MyTweets(ts store.TweetState) []model.Tweet {
	own := ts.Profile.User.Username
	if own == "" {
		return nil
	}
	var out []model.Tweet
	for _, t := range ts.Items {
		if t.Username == own {
			out = append(out, t)
		}
	}
	return out
}

// LikedByMe returns the feed entries the profile user has liked.
func LikedByMe(ts store.TweetState) []model.Tweet {
	own := ts.Profile.User.Username
	if own == "" {
		return nil
	}
	var out []model.Tweet
	for _, t := range ts.Items {
		if t.LikedBy(own) {
			out = append(out, t)
		}
	}
	return out
}
