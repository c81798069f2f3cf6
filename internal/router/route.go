package router

import (
	"net/url"
	"path"
	"strings"

	"github.com/jon4hz/moments/internal/config"
	"github.com/samber/lo"
)

// Meta holds the declarative access requirements of a route.
type Meta struct {
	RequiresAuth bool
	TeacherOnly  bool
	AdminOnly    bool
}

// Route is a single entry of the route table. Child paths that don't start
// with a slash are relative to their parent.
type Route struct {
	Path     string
	Name     string
	Redirect string
	Meta     Meta
	Children []*Route
}

// Location is a resolved navigation target.
type Location struct {
	Path     string
	RawQuery string
	Name     string
	Params   map[string]string
	// Matched holds the route records from the outermost parent to the matched route.
	Matched []*Route
}

// FullPath returns the path including the query string.
func (l Location) FullPath() string {
	if l.RawQuery == "" {
		return l.Path
	}
	return l.Path + "?" + l.RawQuery
}

// Requirements aggregates the requirements of all matched records. A
// requirement holds if any record on the matched chain declares it.
func (l Location) Requirements() Meta {
	return Meta{
		RequiresAuth: lo.SomeBy(l.Matched, func(r *Route) bool { return r.Meta.RequiresAuth }),
		TeacherOnly:  lo.SomeBy(l.Matched, func(r *Route) bool { return r.Meta.TeacherOnly }),
		AdminOnly:    lo.SomeBy(l.Matched, func(r *Route) bool { return r.Meta.AdminOnly }),
	}
}

// Paths are the well-known pages redirects point to.
type Paths struct {
	Login      string
	Register   string
	Landing    string
	Onboarding string
}

// PathsFromConfig returns the configured well-known pages.
func PathsFromConfig(c *config.RoutesConfig) Paths {
	return Paths{
		Login:      c.Login,
		Register:   c.Register,
		Landing:    c.Landing,
		Onboarding: c.Onboarding,
	}
}

// DefaultRoutes returns the route table of the moments front end.
func DefaultRoutes(p Paths) []*Route {
	return []*Route{
		{Path: "/", Redirect: p.Login},
		{Path: p.Login, Name: "login"},
		{Path: p.Register, Name: "register"},
		{Path: p.Landing, Name: "moments", Meta: Meta{RequiresAuth: true}},
		{Path: "/create", Name: "create-post", Meta: Meta{RequiresAuth: true}},
		{Path: p.Onboarding, Name: "first-login", Meta: Meta{RequiresAuth: true}},
		{
			Path: "/admin",
			Name: "admin",
			Meta: Meta{RequiresAuth: true, AdminOnly: true},
			Children: []*Route{
				{Path: "users", Name: "admin-users"},
			},
		},
	}
}

// record is a flattened route with its full path split into segments.
type record struct {
	segments []string
	matched  []*Route
}

func flatten(routes []*Route, parentPath string, parents []*Route) []record {
	var records []record
	for _, r := range routes {
		full := r.Path
		if !strings.HasPrefix(full, "/") {
			full = path.Join(parentPath, full)
		}
		matched := append(append([]*Route{}, parents...), r)
		records = append(records, record{segments: splitPath(full), matched: matched})
		records = append(records, flatten(r.Children, full, matched)...)
	}
	return records
}

func (rec record) match(segments []string) (map[string]string, bool) {
	if len(rec.segments) != len(segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range rec.segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			params[name] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// normalize cleans the target and splits off the query string.
func normalize(target string) (string, string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", "", err
	}
	p := path.Clean("/" + u.Path)
	return p, u.RawQuery, nil
}
