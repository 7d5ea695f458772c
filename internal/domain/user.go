package domain

import "time"

// User is an account known to the API. Its id comes from the identity
// provider; following and followers are derived from follow edges.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserProfile is a user with derived graph counts.
type UserProfile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FollowingCount   int64     `json:"followingCount"`
	FollowersCount   int64     `json:"followersCount"`
	FollowedByViewer bool      `json:"followedByViewer"`
	CreatedAt        time.Time `json:"createdAt"`
}

// RegisterUserRequest creates or refreshes a user record after sign-up.
type RegisterUserRequest struct {
	ID    string `json:"id" binding:"required,max=128"`
	Email string `json:"email" binding:"omitempty,email,max=255"`
}

// FollowRequest is the body of follow and unfollow calls.
type FollowRequest struct {
	FollowerID  string `json:"followerId" binding:"max=128"`
	FollowingID string `json:"followingId" binding:"required,max=128"`
}

// UserListResponse lists user ids, newest relationship first.
type UserListResponse struct {
	UserID string   `json:"userId"`
	Users  []string `json:"users"`
	Count  int      `json:"count"`
}
