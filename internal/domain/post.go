package domain

import "time"

// Post is an authored photo post. Image bytes live in object storage under
// ImageKey; an empty ImageKey means the post has no image.
type Post struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"authorId"`
	AuthorEmail string    `json:"authorEmail"`
	Title       string    `json:"title"`
	Caption     string    `json:"caption"`
	ImageKey    string    `json:"-"`
	ContentType string    `json:"contentType,omitempty"`
	LikeCount   int64     `json:"likeCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasImage reports whether the post carries an image.
func (p *Post) HasImage() bool {
	return p.ImageKey != ""
}

// Comment belongs to exactly one post and is removed with it.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostView is a post annotated with engagement as seen by one viewer.
// Comments is either the full list or, in feeds, the latest few.
type PostView struct {
	Post
	LikedByViewer bool      `json:"likedByViewer"`
	CommentCount  int64     `json:"commentCount"`
	Comments      []Comment `json:"comments"`
}

// FeedPage is one page of a viewer's feed. NextCursor is empty on the last page.
type FeedPage struct {
	Posts      []*PostView `json:"posts"`
	NextCursor string      `json:"nextCursor"`
}

// ImageUpload is an image as received from a client.
type ImageUpload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// CreatePostInput carries everything needed to publish a post.
type CreatePostInput struct {
	AuthorID    string
	AuthorEmail string
	Title       string
	Caption     string
	Image       *ImageUpload
}

// CommentRequest is the body of the add-comment call.
type CommentRequest struct {
	Text   string `json:"text"`
	Author string `json:"author" binding:"max=128"`
}

// LikeRequest is the body of like and unlike calls.
type LikeRequest struct {
	UserID string `json:"userId" binding:"max=128"`
}

// DeletePostRequest optionally names the requester of a delete.
type DeletePostRequest struct {
	UserID string `json:"userId" binding:"max=128"`
}

// SearchResult is one page of post search hits, newest first.
type SearchResult struct {
	Posts    []*Post `json:"posts"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}
