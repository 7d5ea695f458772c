package domain

import "time"

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID        string    `gorm:"type:varchar(128);primaryKey"`
	Email     string    `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *User {
	return &User{
		ID:        m.ID,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FollowModel is the GORM model for the follows table, the only place the
// follow graph is stored.
type FollowModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	FollowerID  string    `gorm:"column:follower_id;type:varchar(128);not null;uniqueIndex:uidx_follow_pair,priority:1"`
	FollowingID string    `gorm:"column:following_id;type:varchar(128);not null;uniqueIndex:uidx_follow_pair,priority:2;index:idx_follows_following"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (FollowModel) TableName() string { return "follows" }

func (m *FollowModel) ToDomain() *Follow {
	return &Follow{
		FollowerID:  m.FollowerID,
		FollowingID: m.FollowingID,
		CreatedAt:   m.CreatedAt,
	}
}

// PostModel is the GORM model for the posts table. The composite index
// serves feed pages: author set, then (created_at, id) descending.
type PostModel struct {
	ID          string    `gorm:"type:char(26);primaryKey;index:idx_posts_author_created,priority:3"`
	AuthorID    string    `gorm:"type:varchar(128);not null;index:idx_posts_author_created,priority:1"`
	AuthorEmail string    `gorm:"type:varchar(255);not null;default:''"`
	Title       string    `gorm:"type:varchar(200);not null"`
	Caption     string    `gorm:"type:text;not null"`
	ImageKey    string    `gorm:"type:varchar(255);not null;default:''"`
	ContentType string    `gorm:"type:varchar(64);not null;default:''"`
	LikeCount   int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null;index:idx_posts_author_created,priority:2;index:idx_posts_created"`
}

func (PostModel) TableName() string { return "posts" }

func (m *PostModel) ToDomain() *Post {
	return &Post{
		ID:          m.ID,
		AuthorID:    m.AuthorID,
		AuthorEmail: m.AuthorEmail,
		Title:       m.Title,
		Caption:     m.Caption,
		ImageKey:    m.ImageKey,
		ContentType: m.ContentType,
		LikeCount:   m.LikeCount,
		CreatedAt:   m.CreatedAt,
	}
}

func PostToModel(p *Post) *PostModel {
	return &PostModel{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		AuthorEmail: p.AuthorEmail,
		Title:       p.Title,
		Caption:     p.Caption,
		ImageKey:    p.ImageKey,
		ContentType: p.ContentType,
		LikeCount:   p.LikeCount,
		CreatedAt:   p.CreatedAt,
	}
}

// LikeModel is one (post, user) like; the composite key makes a second
// like by the same user a conflict.
type LikeModel struct {
	PostID    string    `gorm:"type:char(26);primaryKey"`
	UserID    string    `gorm:"type:varchar(128);primaryKey;index:idx_post_likes_user"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (LikeModel) TableName() string { return "post_likes" }

// CommentModel is the GORM model for the comments table.
type CommentModel struct {
	ID        string    `gorm:"type:char(26);primaryKey"`
	PostID    string    `gorm:"type:char(26);not null;index:idx_comments_post_created,priority:1"`
	AuthorID  string    `gorm:"type:varchar(128);not null"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_comments_post_created,priority:2"`
}

func (CommentModel) TableName() string { return "comments" }

func (m *CommentModel) ToDomain() Comment {
	return Comment{
		ID:        m.ID,
		PostID:    m.PostID,
		AuthorID:  m.AuthorID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func CommentToModel(c *Comment) *CommentModel {
	return &CommentModel{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

// Models lists every table for auto-migration.
func Models() []interface{} {
	return []interface{}{
		&UserModel{},
		&FollowModel{},
		&PostModel{},
		&LikeModel{},
		&CommentModel{},
	}
}
