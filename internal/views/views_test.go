package views

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"littlex/internal/model"
	"littlex/internal/store"
)

func testState() store.TweetState {
	return store.TweetState{
		Items: []model.Tweet{
			{ID: "t1", Username: "alice", Likes: []string{"bob"}},
			{ID: "t2", Username: "bob", Likes: []string{"alice"}},
			{ID: "t3", Username: "alice"},
		},
		UserProfiles: []model.User{{ID: "u3", Username: "carol"}},
		Profile: model.UserProfile{
			User:      model.User{ID: "u1", Username: "alice"},
			Following: []model.User{{ID: "u2", Username: "bob"}},
		},
	}
}

func TestMyTweetsKeepsFeedOrder(t *testing.T) {
	got := MyTweets(testState())
	assert.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "t3", got[1].ID)
}

func TestMyTweetsEmptyWithoutProfile(t *testing.T) {
	st := testState()
	st.Profile.User.Username = ""
	assert.Nil(t, MyTweets(st))
}

func TestLikedByMe(t *testing.T) {
	got := LikedByMe(testState())
	assert.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ID)
}

func TestMenuCounts(t *testing.T) {
	notes := []model.Notification{{Content: "x"}, {Content: "y"}}
	got := Menu(testState(), notes)
	assert.Equal(t, MenuCounts{Tweets: 3, MyTweets: 2, Following: 1, Suggestions: 1, Notifications: 2}, got)
}
