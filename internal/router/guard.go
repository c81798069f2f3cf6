package router

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/moments/internal/models"
)

// SessionReader gives read access to the current session.
type SessionReader interface {
	CurrentUser() *models.User
}

// guardInput is everything a rule may look at.
type guardInput struct {
	user *models.User
	meta Meta
	path string
}

type rule struct {
	name   string
	match  func(in guardInput, p Paths) bool
	target func(p Paths) string
}

// rules are evaluated in order and the first match wins. Later rules rely on
// earlier ones having failed, e.g. the onboarding rule only runs for users
// that passed all access checks.
var rules = []rule{
	{
		name: "requires-auth",
		match: func(in guardInput, _ Paths) bool {
			return in.meta.RequiresAuth && in.user == nil
		},
		target: func(p Paths) string { return p.Login },
	},
	{
		// no default route sets TeacherOnly
		name: "teacher-only",
		match: func(in guardInput, _ Paths) bool {
			return in.meta.TeacherOnly && in.user != nil && !in.user.IsTeacher
		},
		target: func(p Paths) string { return p.Landing },
	},
	{
		name: "admin-only",
		match: func(in guardInput, _ Paths) bool {
			return in.meta.AdminOnly && in.user != nil && !in.user.IsAdmin
		},
		target: func(p Paths) string { return p.Landing },
	},
	{
		name: "first-login",
		match: func(in guardInput, p Paths) bool {
			return in.user != nil && in.user.IsFirstLogin && in.path != p.Onboarding && in.path != p.Login
		},
		target: func(p Paths) string { return p.Onboarding },
	},
}

// Evaluate decides whether a navigation to path with the given requirements
// may proceed for user. It has no state; nil user means no session.
func Evaluate(user *models.User, meta Meta, path string, paths Paths) Decision {
	if !user.Valid() {
		user = nil
	}
	in := guardInput{user: user, meta: meta, path: path}
	for _, r := range rules {
		if r.match(in, paths) {
			return Decision{Redirect: r.target(paths), Reason: r.name}
		}
	}
	return Decision{}
}

// Guard gates navigations on the current session.
type Guard struct {
	session SessionReader
	paths   Paths
}

// NewGuard creates a guard reading the session from s.
func NewGuard(s SessionReader, paths Paths) *Guard {
	return &Guard{session: s, paths: paths}
}

// BeforeEach is the Hook to register on the router. The session is read
// fresh on every call.
func (g *Guard) BeforeEach(_ context.Context, to, _ Location) Decision {
	user := g.session.CurrentUser()
	meta := to.Requirements()

	d := Evaluate(user, meta, to.Path, g.paths)

	var userID int64
	if user != nil {
		userID = user.ID
	}
	log.Debug("navigation guard",
		"path", to.Path,
		"user_id", userID,
		"requires_auth", meta.RequiresAuth,
		"teacher_only", meta.TeacherOnly,
		"admin_only", meta.AdminOnly,
		"redirect", d.Redirect,
		"reason", d.Reason,
	)
	return d
}

// Register installs the guard on r.
func (g *Guard) Register(r *Router) {
	r.BeforeEach(g.BeforeEach)
}
