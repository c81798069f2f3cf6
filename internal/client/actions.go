package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/moments/internal/models"
)

// ErrInvalidUser is returned when the backend answers a login without a usable user.
var ErrInvalidUser = errors.New("backend returned a user without id")

// Credentials are the login form values.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the payload of a new account. Students set Grade and
// ClassName, teachers set RegisterCode instead.
type Registration struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	RealName     string `json:"real_name"`
	RegisterCode string `json:"register_code,omitempty"`
	Grade        int    `json:"grade,omitempty"`
	ClassName    int    `json:"class_name,omitempty"`
}

// ProfileUpdate is submitted on the onboarding page.
type ProfileUpdate struct {
	Password string `json:"password"`
	RealName string `json:"real_name"`
}

// NewPost is the payload of CreatePost. The backend expects the image
// names joined by commas.
type NewPost struct {
	Content         string
	Images          []string
	DisableComments bool
}

// NewComment is the payload of AddComment. ParentID and RepliedToUserID are
// set for replies.
type NewComment struct {
	Content         string `json:"content"`
	ParentID        *int64 `json:"parent_id,omitempty"`
	RepliedToUserID *int64 `json:"replied_to_user_id,omitempty"`
}

// LikeResult is the state of a post after toggling a like.
type LikeResult struct {
	IsLiked bool `json:"is_liked"`
	Likes   int  `json:"likes"`
}

// Login authenticates against the backend and commits the returned user to
// the session store.
func (c *Client) Login(ctx context.Context, creds Credentials) (*models.User, error) {
	var user models.User
	if err := c.Do(ctx, http.MethodPost, "/login", nil, creds, &user); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if !user.Valid() {
		return nil, ErrInvalidUser
	}

	c.session.SetUser(ctx, &user)
	log.Info("logged in", "user_id", user.ID, "username", user.Username)
	return user.Clone(), nil
}

// Logout ends the local session. The backend keeps no session state.
func (c *Client) Logout(ctx context.Context) {
	c.session.Clear(ctx)
	log.Info("logged out")
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, reg Registration) (*models.User, error) {
	var user models.User
	if err := c.Do(ctx, http.MethodPost, "/register", nil, reg, &user); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return &user, nil
}

// UpdateProfile completes the onboarding of the current user and commits the
// updated user, which clears the first-login flag.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*models.User, error) {
	var resp struct {
		Message string       `json:"message"`
		User    *models.User `json:"user"`
	}
	if err := c.Do(ctx, http.MethodPost, "/users/update-profile", nil, upd, &resp); err != nil {
		return nil, fmt.Errorf("profile update failed: %w", err)
	}
	if !resp.User.Valid() {
		return nil, ErrInvalidUser
	}

	c.session.SetUser(ctx, resp.User)
	return resp.User.Clone(), nil
}

// ListPosts returns the feed as seen by the current user.
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.Do(ctx, http.MethodGet, "/posts", nil, nil, &posts); err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

// CreatePost publishes a post and returns its id.
func (c *Client) CreatePost(ctx context.Context, p NewPost) (int64, error) {
	payload := map[string]any{
		"content":          p.Content,
		"images":           strings.Join(p.Images, ","),
		"disable_comments": p.DisableComments,
	}
	var resp struct {
		PostID int64 `json:"post_id"`
	}
	if err := c.Do(ctx, http.MethodPost, "/posts", nil, payload, &resp); err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}
	return resp.PostID, nil
}

// LikePost toggles the like of the current user on a post.
func (c *Client) LikePost(ctx context.Context, postID int64) (*LikeResult, error) {
	var res LikeResult
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/like", postID), nil, nil, &res); err != nil {
		return nil, fmt.Errorf("error liking post %d: %w", postID, err)
	}
	return &res, nil
}

// AddComment comments on a post or replies to a comment.
func (c *Client) AddComment(ctx context.Context, postID int64, cm NewComment) (*models.Comment, error) {
	var resp struct {
		Comment models.Comment `json:"comment"`
	}
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID), nil, cm, &resp); err != nil {
		return nil, fmt.Errorf("error commenting on post %d: %w", postID, err)
	}
	return &resp.Comment, nil
}

// UploadImage uploads a single image and returns the stored file names.
// Multipart bodies are left alone by the pipeline, so the identity is added
// as form field here.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) ([]string, error) {
	fields := map[string]string{}
	if u := c.session.CurrentUser(); u.Valid() {
		fields[IdentityField] = strconv.FormatInt(u.ID, 10)
	}

	var resp struct {
		Filenames []string `json:"filenames"`
	}
	if err := c.Upload(ctx, "/upload", "file", filename, r, fields, &resp); err != nil {
		return nil, fmt.Errorf("error uploading %s: %w", filename, err)
	}
	return resp.Filenames, nil
}
