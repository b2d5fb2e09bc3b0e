package remote

// Profile is the authenticated account's own metadata.
type Profile struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	AvatarURL      string `json:"avatar_url"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
}

// User is one entry of a following list.
type User struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Collection is a saved-media collection header.
type Collection struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MediaCount int    `json:"media_count"`
}

// Media is one saved asset inside a collection.
type Media struct {
	MediaID      string `json:"media_id"`
	ThumbnailURL string `json:"thumbnail_url"`
}
