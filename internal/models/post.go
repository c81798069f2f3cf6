package models

// Post is a single entry of the moments feed.
type Post struct {
	ID              int64     `json:"id"`
	Content         string    `json:"content"`
	CreatedAt       string    `json:"created_at"`
	UserID          int64     `json:"user_id"`
	Username        string    `json:"username"`
	RealName        string    `json:"real_name"`
	IsTeacher       bool      `json:"is_teacher"`
	Images          []string  `json:"images"`
	LikeCount       int       `json:"like_count"`
	CommentCount    int       `json:"comment_count"`
	IsLiked         bool      `json:"is_liked"`
	Comments        []Comment `json:"comments"`
	DisableComments bool      `json:"disable_comments"`
}

// Comment is a comment on a post or a reply to another comment.
type Comment struct {
	ID                int64     `json:"id"`
	Content           string    `json:"content"`
	CreatedAt         string    `json:"created_at"`
	UserID            int64     `json:"user_id"`
	Username          string    `json:"username"`
	RealName          string    `json:"real_name"`
	IsTeacher         bool      `json:"is_teacher"`
	ParentID          *int64    `json:"parent_id,omitempty"`
	RepliedToUserID   *int64    `json:"replied_to_user_id,omitempty"`
	RepliedToUsername *string   `json:"replied_to_username,omitempty"`
	Replies           []Comment `json:"replies,omitempty"`
}
