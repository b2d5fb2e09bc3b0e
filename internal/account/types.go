package account

// ProfileView is the account profile with its avatar resolved to a local
// cache key.
type ProfileView struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	AvatarURL      string `json:"avatar_url"`
	AvatarKey      string `json:"avatar_key"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
}

// FollowingView is one following-list entry, avatar resolved locally.
type FollowingView struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	AvatarKey string `json:"avatar_key"`
}

// MediaView is one saved asset with its thumbnail resolved locally.
type MediaView struct {
	MediaID      string `json:"media_id"`
	ThumbnailURL string `json:"thumbnail_url"`
	ThumbnailKey string `json:"thumbnail_key"`
}

// CollectionView mirrors the original payload shape: id/name/amount plus the
// cache-enriched media list.
type CollectionView struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Amount int         `json:"amount"`
	Medias []MediaView `json:"medias"`
}

// BatchResult partitions a batch operation's items. Every input item lands in
// exactly one bucket; Waiting stays empty for binary operations.
type BatchResult struct {
	Success []string `json:"success"`
	Waiting []string `json:"waiting"`
	Fail    []string `json:"fail"`
}

func newBatchResult() *BatchResult {
	return &BatchResult{
		Success: []string{},
		Waiting: []string{},
		Fail:    []string{},
	}
}
