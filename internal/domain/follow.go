package domain

import "time"

// Follow is a directed edge: FollowerID sees FollowingID's posts.
type Follow struct {
	FollowerID  string
	FollowingID string
	CreatedAt   time.Time
}
