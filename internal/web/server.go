package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/moments/internal/client"
	"github.com/jon4hz/moments/internal/router"
	"github.com/jon4hz/moments/internal/session"
)

// maxUploadSize limits the multipart form of the create page.
const maxUploadSize = 32 << 20

type Server struct {
	ginEngine *gin.Engine
	router    *router.Router
	client    *client.Client
	session   *session.Store
	paths     router.Paths
	http      *http.Server
}

// New creates the web front end. The router must already have the navigation
// guard registered and the session must be loaded from storage.
func New(listen string, r *router.Router, c *client.Client, paths router.Paths, debug bool) (*Server, error) {
	if r == nil || c == nil {
		return nil, fmt.Errorf("router and client are required")
	}
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := template.New("pages").Funcs(templateFuncs).Parse(pageTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	engine.SetHTMLTemplate(tmpl)
	engine.MaxMultipartMemory = maxUploadSize

	s := &Server{
		ginEngine: engine,
		router:    r,
		client:    c,
		session:   c.Session(),
		paths:     paths,
	}
	s.http = &http.Server{
		Addr:              listen,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	h := newHandler(s)

	pages := s.ginEngine.Group("/")
	pages.Use(s.navigate())

	pages.GET("/", h.Root)
	pages.GET(s.paths.Login, h.LoginPage)
	pages.GET(s.paths.Register, h.RegisterPage)
	pages.GET(s.paths.Landing, h.Moments)
	pages.GET("/create", h.CreatePage)
	pages.GET(s.paths.Onboarding, h.OnboardingPage)
	pages.GET("/admin", h.Admin)
	pages.GET("/admin/users", h.AdminUsers)

	s.ginEngine.POST(s.paths.Login, h.Login)
	s.ginEngine.POST(s.paths.Register, h.Register)

	actions := s.ginEngine.Group("/")
	actions.Use(s.requireSession())

	actions.POST("/logout", h.Logout)
	actions.POST(s.paths.Onboarding, h.CompleteOnboarding)
	actions.POST("/create", h.CreatePost)
	actions.POST("/posts/:id/like", h.LikePost)
	actions.POST("/posts/:id/comments", h.AddComment)

	s.ginEngine.GET("/session", h.Session)
	s.ginEngine.NoRoute(s.navigate(), h.NotFound)
}

// Handler returns the http.Handler of the front end.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves the front end until Shutdown is called.
func (s *Server) Run() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
