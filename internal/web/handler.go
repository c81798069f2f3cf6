package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/moments/internal/client"
	"github.com/jon4hz/moments/internal/router"
	"github.com/jon4hz/moments/internal/session"
)

type Handler struct {
	router  *router.Router
	client  *client.Client
	session *session.Store
	paths   router.Paths
}

func newHandler(s *Server) *Handler {
	return &Handler{
		router:  s.router,
		client:  s.client,
		session: s.session,
		paths:   s.paths,
	}
}

// page returns the template data every page gets.
func (h *Handler) page(data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = h.session.CurrentUser()
	data["Paths"] = h.paths
	return data
}

func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	c.HTML(status, name, h.page(data))
}

// fail renders name with the error of an API call. A rejected session has
// already been cleared by the client, the browser follows the redirect the
// client triggered.
func (h *Handler) fail(c *gin.Context, name string, data gin.H, err error) {
	if data == nil {
		data = gin.H{}
	}

	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrUnauthorized) && !h.session.IsLoggedIn() && name != "login":
		c.Redirect(http.StatusFound, h.router.Current().FullPath())
		return
	case client.IsNetworkError(err):
		data["Error"] = "the moments server is not reachable, please try again later"
		h.render(c, http.StatusBadGateway, name, data)
		return
	case errors.As(err, &apiErr):
		data["Error"] = apiErr.Message
		if data["Error"] == "" {
			data["Error"] = apiErr.Error()
		}
		status := apiErr.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		h.render(c, status, name, data)
		return
	default:
		log.Error("request failed", "page", name, "error", err)
		data["Error"] = "something went wrong"
		h.render(c, http.StatusInternalServerError, name, data)
	}
}

func (h *Handler) Root(c *gin.Context) {
	c.Redirect(http.StatusFound, h.paths.Login)
}

func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login", nil)
}

func (h *Handler) Login(c *gin.Context) {
	creds := client.Credentials{
		Username: c.PostForm("username"),
		Password: c.PostForm("password"),
	}
	if creds.Username == "" || creds.Password == "" {
		h.render(c, http.StatusBadRequest, "login", gin.H{"Error": "username and password are required"})
		return
	}

	if _, err := h.client.Login(c.Request.Context(), creds); err != nil {
		h.fail(c, "login", nil, err)
		return
	}
	c.Redirect(http.StatusFound, h.paths.Landing)
}

func (h *Handler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register", nil)
}

func (h *Handler) Register(c *gin.Context) {
	grade, _ := strconv.Atoi(c.PostForm("grade"))
	className, _ := strconv.Atoi(c.PostForm("class_name"))
	reg := client.Registration{
		Username:     c.PostForm("username"),
		Password:     c.PostForm("password"),
		RealName:     c.PostForm("real_name"),
		RegisterCode: c.PostForm("register_code"),
		Grade:        grade,
		ClassName:    className,
	}

	if _, err := h.client.Register(c.Request.Context(), reg); err != nil {
		h.fail(c, "register", nil, err)
		return
	}
	c.Redirect(http.StatusFound, h.paths.Login)
}

func (h *Handler) Logout(c *gin.Context) {
	h.client.Logout(c.Request.Context())
	h.router.HardRedirect(h.paths.Login)
	c.Redirect(http.StatusFound, h.paths.Login)
}

func (h *Handler) Moments(c *gin.Context) {
	posts, err := h.client.ListPosts(c.Request.Context())
	if err != nil {
		h.fail(c, "moments", nil, err)
		return
	}
	h.render(c, http.StatusOK, "moments", gin.H{"Posts": posts})
}

func (h *Handler) CreatePage(c *gin.Context) {
	h.render(c, http.StatusOK, "create", nil)
}

func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()

	var images []string
	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["images"] {
			f, err := fh.Open()
			if err != nil {
				h.fail(c, "create", nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err))
				return
			}
			names, err := h.client.UploadImage(ctx, fh.Filename, f)
			f.Close() //nolint:errcheck,gosec
			if err != nil {
				h.fail(c, "create", nil, err)
				return
			}
			images = append(images, names...)
		}
	}

	_, err := h.client.CreatePost(ctx, client.NewPost{
		Content:         c.PostForm("content"),
		Images:          images,
		DisableComments: c.PostForm("disable_comments") == "on",
	})
	if err != nil {
		h.fail(c, "create", nil, err)
		return
	}
	c.Redirect(http.StatusFound, h.paths.Landing)
}

func (h *Handler) OnboardingPage(c *gin.Context) {
	h.render(c, http.StatusOK, "first-login", nil)
}

func (h *Handler) CompleteOnboarding(c *gin.Context) {
	_, err := h.client.UpdateProfile(c.Request.Context(), client.ProfileUpdate{
		Password: c.PostForm("password"),
		RealName: c.PostForm("real_name"),
	})
	if err != nil {
		h.fail(c, "first-login", nil, err)
		return
	}
	c.Redirect(http.StatusFound, h.paths.Landing)
}

func (h *Handler) LikePost(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.NotFound(c)
		return
	}
	if _, err := h.client.LikePost(c.Request.Context(), postID); err != nil {
		h.fail(c, "moments", nil, err)
		return
	}
	c.Redirect(http.StatusFound, h.paths.Landing)
}

func (h *Handler) AddComment(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.NotFound(c)
		return
	}

	cm := client.NewComment{Content: c.PostForm("content")}
	if id, err := strconv.ParseInt(c.PostForm("parent_id"), 10, 64); err == nil {
		cm.ParentID = &id
	}
	if id, err := strconv.ParseInt(c.PostForm("replied_to_user_id"), 10, 64); err == nil {
		cm.RepliedToUserID = &id
	}

	if _, err := h.client.AddComment(c.Request.Context(), postID, cm); err != nil {
		h.fail(c, "moments", nil, err)
		return
	}
	c.Redirect(http.StatusFound, h.paths.Landing)
}

func (h *Handler) Admin(c *gin.Context) {
	h.render(c, http.StatusOK, "admin", nil)
}

func (h *Handler) AdminUsers(c *gin.Context) {
	h.render(c, http.StatusOK, "admin", gin.H{"Section": "users"})
}

func (h *Handler) NotFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "not-found", nil)
}

// Session reports the current session state.
func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"logged_in":      h.session.IsLoggedIn(),
		"user":           h.session.CurrentUser(),
		"is_admin":       h.session.IsAdmin(),
		"is_teacher":     h.session.IsTeacher(),
		"is_first_login": h.session.IsFirstLogin(),
		"can_post":       h.session.CanPost(),
		"mirror_stale":   h.session.MirrorStale(),
	})
}
