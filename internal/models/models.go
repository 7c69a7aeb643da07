package models

import "time"

// User represents an account within the TubeStream platform.
type User struct {
	ID           string
	Email        string
	UserName     string
	FullName     string
	Password     string
	AvatarURL    string
	AvatarKey    string
	CoverURL     string
	CoverKey     string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicProfile strips credential and media-binding fields from a user.
func (u User) PublicProfile() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		UserName:   u.UserName,
		FullName:   u.FullName,
		Avatar:     u.AvatarURL,
		CoverImage: u.CoverURL,
		CreatedAt:  u.CreatedAt,
	}
}

// PublicUser is the profile projection safe to return to any caller.
type PublicUser struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	UserName   string    `json:"userName"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Video stores uploaded video metadata along with its external object bindings.
type Video struct {
	ID           string
	OwnerID      string
	Title        string
	Description  string
	VideoURL     string
	VideoKey     string
	ThumbnailURL string
	ThumbnailKey string
	IsPublished  bool
	Views        int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary projects the listing fields of a video.
func (v Video) Summary() VideoSummary {
	return VideoSummary{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		VideoFile:   v.VideoURL,
		Thumbnail:   v.ThumbnailURL,
		Views:       v.Views,
		CreatedAt:   v.CreatedAt,
	}
}

// VideoSummary is the projection returned by listing and search endpoints.
type VideoSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Views       int64     `json:"views"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Subscription is a directed edge from a subscriber to a channel user.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	ChannelName  string
	CreatedAt    time.Time
}

// LikeTarget enumerates the entity kinds a like edge may point at.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// Valid reports whether the target kind is one of the supported values.
func (t LikeTarget) Valid() bool {
	switch t {
	case LikeTargetVideo, LikeTargetComment, LikeTargetTweet:
		return true
	}
	return false
}

// Like is a directed edge from a user to a likeable target.
type Like struct {
	ID         string
	UserID     string
	TargetKind LikeTarget
	TargetID   string
	CreatedAt  time.Time
}

// Comment is user-authored text attached to a video.
type Comment struct {
	ID        string
	VideoID   string
	OwnerID   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CommentWithAuthor joins a comment to its author's public profile.
type CommentWithAuthor struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	Author    PublicUser `json:"author"`
}

// ChannelProfile is the aggregate view of a channel as seen by a viewer.
type ChannelProfile struct {
	PublicUser
	SubscribersCount int64 `json:"subscribersCount"`
	SubscribedCount  int64 `json:"subscribedCount"`
	IsSubscribed     bool  `json:"isSubscribed"`
}

// SubscriberList pairs a channel's subscriber count with the joined profiles.
type SubscriberList struct {
	TotalSubscribers int64        `json:"totalSubscribers"`
	Subscribers      []PublicUser `json:"subscribersList"`
}

// LikedVideo projects the fields shown in a user's liked-videos list.
type LikedVideo struct {
	Title     string `json:"title"`
	VideoFile string `json:"videoFile"`
}

// WatchedVideo is a watch-history entry joined to its video and owner.
type WatchedVideo struct {
	Video     VideoSummary `json:"video"`
	Owner     PublicUser   `json:"owner"`
	WatchedAt time.Time    `json:"watchedAt"`
}

// VideoOwner joins a video's view count with its owner's public fields.
type VideoOwner struct {
	Views int64      `json:"views"`
	Owner PublicUser `json:"owner"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
