package web

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/moments/internal/router"
)

const locationKey = "location"

// navigate runs every page request through the router. When the navigation
// ends up somewhere else, e.g. because the guard redirected it, the browser
// is sent there.
func (s *Server) navigate() gin.HandlerFunc {
	return func(c *gin.Context) {
		target := c.Request.URL.RequestURI()

		loc, err := s.router.Push(c.Request.Context(), target)
		switch {
		case errors.Is(err, router.ErrNotFound):
			c.Next()
			return
		case err != nil:
			log.Error("navigation failed", "target", target, "error", err)
			c.HTML(http.StatusInternalServerError, "error", gin.H{"Error": "navigation failed", "Paths": s.paths})
			c.Abort()
			return
		}

		if loc.FullPath() != c.Request.URL.RequestURI() {
			c.Redirect(http.StatusFound, loc.FullPath())
			c.Abort()
			return
		}

		c.Set(locationKey, loc)
		c.Next()
	}
}

// requireSession protects the form actions. They are no navigations, so the
// guard does not see them.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.session.IsLoggedIn() {
			s.router.HardRedirect(s.paths.Login)
			c.Redirect(http.StatusFound, s.paths.Login)
			c.Abort()
			return
		}
		c.Next()
	}
}
