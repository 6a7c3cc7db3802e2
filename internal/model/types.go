package model

// User is a littleX account as the backend reports it.
// ID is server-assigned and stable; Username is a mutable display attribute.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// UserProfile is the authenticated actor's identity plus who they follow.
// Following is a set keyed by user ID; order is follow order.
type UserProfile struct {
	User      User   `json:"user"`
	Following []User `json:"following"`
}

// Comment lives only inside its parent tweet.
type Comment struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Tweet is a feed post. Embedding is a fixed-length vector produced by the
// backend at creation time; the client never recomputes it. Likes is a set
// of usernames.
type Tweet struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Embedding []float64 `json:"embedding"`
	Likes     []string  `json:"likes"`
	Comments  []Comment `json:"comments"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// LikedBy reports whether username is in the tweet's like set.
func (t Tweet) LikedBy(username string) bool {
	for _, l := range t.Likes {
		if l == username {
			return true
		}
	}
	return false
}

// Session is what the backend returns on login/register.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Notification is one entry of the durable notification log.
type Notification struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Status  string `json:"status"` // "success" or "error"
	Time    string `json:"time"`   // localized, e.g. "3:04 PM"
}
