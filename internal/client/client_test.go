package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jon4hz/moments/internal/config"
	"github.com/jon4hz/moments/internal/models"
	"github.com/jon4hz/moments/internal/session"
	"github.com/jon4hz/moments/internal/storage"
	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
	ctx     context.Context
	mux     *http.ServeMux
	server  *httptest.Server
	storage storage.Storage
	store   *session.Store
	nav     *fakeNavigator
	client  *Client
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.mux = http.NewServeMux()
	s.server = httptest.NewServer(s.mux)
	s.storage = storage.NewMemoryStorage("test-", 0)
	s.store = session.New(s.storage, session.DefaultStorageKey)
	s.nav = &fakeNavigator{}
	s.client = New(&config.APIConfig{
		BaseURL: s.server.URL + "/api",
		Timeout: 5 * time.Second,
	}, s.store, s.nav, "/login", nil)
}

func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientTestSuite) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	s.Require().NoError(json.NewEncoder(w).Encode(v))
}

func (s *ClientTestSuite) TestLoginCommitsSession() {
	s.mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		s.Equal("li", body["username"])
		s.NotContains(body, "user_id")
		s.writeJSON(w, http.StatusOK, map[string]any{
			"id": 5, "username": "li", "real_name": "李雷", "is_teacher": true,
		})
	})

	user, err := s.client.Login(s.ctx, Credentials{Username: "li", Password: "secret1"})
	s.Require().NoError(err)
	s.Equal(int64(5), user.ID)
	s.True(s.store.IsLoggedIn())
	s.True(s.store.IsTeacher())

	reloaded := session.New(s.storage, session.DefaultStorageKey).LoadFromStorage(s.ctx)
	s.Require().NotNil(reloaded)
	s.Equal("李雷", reloaded.RealName)
}

func (s *ClientTestSuite) TestLoginRejectsUserWithoutID() {
	s.mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]any{"username": "li"})
	})

	_, err := s.client.Login(s.ctx, Credentials{Username: "li", Password: "x"})
	s.ErrorIs(err, ErrInvalidUser)
	s.False(s.store.IsLoggedIn())
}

func (s *ClientTestSuite) TestLoginWrongPassword() {
	s.mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "用户名或密码错误"})
	})

	_, err := s.client.Login(s.ctx, Credentials{Username: "li", Password: "x"})
	s.Require().Error(err)
	s.ErrorIs(err, ErrUnauthorized)

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("用户名或密码错误", apiErr.Message)
	s.False(s.store.IsLoggedIn())
	s.Equal([]string{"/login"}, s.nav.redirects())
}

func (s *ClientTestSuite) TestListPostsInjectsIdentity() {
	s.store.SetUser(s.ctx, &models.User{ID: 42})
	s.mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user_id") != "42" {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "用户ID不能为空"})
			return
		}
		s.writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "content": "hello", "images": []string{"a.png"}, "like_count": 3},
		})
	})

	posts, err := s.client.ListPosts(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(posts, 1)
	s.Equal("hello", posts[0].Content)
	s.Equal(3, posts[0].LikeCount)
}

func (s *ClientTestSuite) TestUnauthorizedInvalidatesSession() {
	s.store.SetUser(s.ctx, &models.User{ID: 42})
	s.mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "用户不存在"})
	})

	_, err := s.client.ListPosts(s.ctx)
	s.ErrorIs(err, ErrUnauthorized)
	s.False(s.store.IsLoggedIn())
	s.Equal([]string{"/login"}, s.nav.redirects())
}

func (s *ClientTestSuite) TestDomainError() {
	s.store.SetUser(s.ctx, &models.User{ID: 42, IsTeacher: false})
	s.mux.HandleFunc("POST /api/posts", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "只有教师才能发布动态"})
	})

	_, err := s.client.CreatePost(s.ctx, NewPost{Content: "hi"})
	s.Require().Error(err)

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusForbidden, apiErr.StatusCode)
	s.NotErrorIs(err, ErrUnauthorized)
	s.True(s.store.IsLoggedIn())
	s.Empty(s.nav.redirects())
}

func (s *ClientTestSuite) TestNetworkErrorKeepsSession() {
	s.store.SetUser(s.ctx, &models.User{ID: 42})
	s.server.Close()

	_, err := s.client.ListPosts(s.ctx)
	s.Require().Error(err)
	s.True(IsNetworkError(err))
	s.True(s.store.IsLoggedIn())
	s.Empty(s.nav.redirects())
}

func (s *ClientTestSuite) TestUnreadableBodyIsNetworkError() {
	s.store.SetUser(s.ctx, &models.User{ID: 42})
	called := false
	s.mux.HandleFunc("POST /api/posts", func(w http.ResponseWriter, _ *http.Request) {
		called = true
		s.writeJSON(w, http.StatusOK, map[string]any{})
	})

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.server.URL+"/api/posts", io.NopCloser(failingBody{}))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.httpClient.Do(req)
	if resp != nil {
		resp.Body.Close() //nolint:errcheck,gosec
	}
	s.Require().Error(err)
	s.True(IsNetworkError(err))
	s.False(called)
	s.True(s.store.IsLoggedIn())
}

func (s *ClientTestSuite) TestCreatePost() {
	s.store.SetUser(s.ctx, &models.User{ID: 42, IsTeacher: true})
	s.mux.HandleFunc("POST /api/posts", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		s.Equal("hello", body["content"])
		s.Equal("a.png,b.png", body["images"])
		s.Equal(true, body["disable_comments"])
		s.InDelta(42, body["user_id"], 0)
		s.writeJSON(w, http.StatusCreated, map[string]any{"message": "ok", "post_id": 9})
	})

	id, err := s.client.CreatePost(s.ctx, NewPost{Content: "hello", Images: []string{"a.png", "b.png"}, DisableComments: true})
	s.Require().NoError(err)
	s.Equal(int64(9), id)
}

func (s *ClientTestSuite) TestLikePost() {
	s.store.SetUser(s.ctx, &models.User{ID: 42})
	s.mux.HandleFunc("POST /api/posts/{id}/like", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("3", r.PathValue("id"))
		var body map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		s.InDelta(42, body["user_id"], 0)
		s.writeJSON(w, http.StatusCreated, map[string]any{"is_liked": true, "likes": 4})
	})

	res, err := s.client.LikePost(s.ctx, 3)
	s.Require().NoError(err)
	s.True(res.IsLiked)
	s.Equal(4, res.Likes)
}

func (s *ClientTestSuite) TestAddReply() {
	s.store.SetUser(s.ctx, &models.User{ID: 42})
	parent := int64(11)
	s.mux.HandleFunc("POST /api/posts/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		s.InDelta(11, body["parent_id"], 0)
		s.NotContains(body, "replied_to_user_id")
		s.writeJSON(w, http.StatusCreated, map[string]any{
			"comment": map[string]any{"id": 12, "content": body["content"], "parent_id": 11},
		})
	})

	c, err := s.client.AddComment(s.ctx, 1, NewComment{Content: "me too", ParentID: &parent})
	s.Require().NoError(err)
	s.Equal(int64(12), c.ID)
	s.Require().NotNil(c.ParentID)
	s.Equal(parent, *c.ParentID)
}

func (s *ClientTestSuite) TestUpdateProfileClearsFirstLogin() {
	s.store.SetUser(s.ctx, &models.User{ID: 42, IsFirstLogin: true})
	s.mux.HandleFunc("POST /api/users/update-profile", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		s.InDelta(42, body["user_id"], 0)
		s.writeJSON(w, http.StatusOK, map[string]any{
			"message": "ok",
			"user":    map[string]any{"id": 42, "real_name": "韩梅梅", "is_first_login": false, "can_post": true},
		})
	})

	user, err := s.client.UpdateProfile(s.ctx, ProfileUpdate{Password: "abc1234", RealName: "韩梅梅"})
	s.Require().NoError(err)
	s.Equal("韩梅梅", user.RealName)
	s.False(s.store.IsFirstLogin())
	s.True(s.store.CanPost())
}

func (s *ClientTestSuite) TestUploadImageSendsIdentityField() {
	s.store.SetUser(s.ctx, &models.User{ID: 42})
	s.mux.HandleFunc("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		s.Empty(r.URL.RawQuery)
		s.Require().NoError(r.ParseMultipartForm(1 << 20))
		s.Equal("42", r.FormValue("user_id"))
		f, hdr, err := r.FormFile("file")
		s.Require().NoError(err)
		defer f.Close() //nolint:errcheck
		data, err := io.ReadAll(f)
		s.Require().NoError(err)
		s.Equal("cat.png", hdr.Filename)
		s.Equal("png-bytes", string(data))
		s.writeJSON(w, http.StatusOK, map[string]any{"filenames": []string{"cat_1_ab.png"}})
	})

	names, err := s.client.UploadImage(s.ctx, "cat.png", strings.NewReader("png-bytes"))
	s.Require().NoError(err)
	s.Equal([]string{"cat_1_ab.png"}, names)
}

func (s *ClientTestSuite) TestLogout() {
	s.store.SetUser(s.ctx, &models.User{ID: 42})
	s.client.Logout(s.ctx)
	s.False(s.store.IsLoggedIn())
	s.Nil(s.store.LoadFromStorage(s.ctx))
}

func (s *ClientTestSuite) TestDoWithoutJSONError() {
	s.mux.HandleFunc("GET /api/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	err := s.client.Do(s.ctx, http.MethodGet, "/broken", nil, nil, nil)
	var apiErr *APIError
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(http.StatusBadGateway, apiErr.StatusCode)
	s.Empty(apiErr.Message)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
