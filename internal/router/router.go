package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// maxRedirects bounds the number of redirects a single navigation may follow.
const maxRedirects = 10

var (
	// ErrNotFound is returned when no route matches the target.
	ErrNotFound = errors.New("router: no route matches")
	// ErrRedirectLoop is returned when a navigation keeps being redirected.
	ErrRedirectLoop = errors.New("router: too many redirects")
)

// Decision is the outcome of a navigation hook. An empty Redirect means proceed.
type Decision struct {
	Redirect string
	// Reason names the rule that caused the redirect, for logging.
	Reason string
}

// Proceed reports whether the navigation may continue to its target.
func (d Decision) Proceed() bool {
	return d.Redirect == ""
}

// Hook runs before every navigation. It receives the resolved target and the
// current location and decides whether to proceed or redirect.
type Hook func(ctx context.Context, to, from Location) Decision

// Router resolves paths against the route table and runs the registered
// hooks on every transition.
type Router struct {
	mu      sync.RWMutex
	records []record
	hooks   []Hook
	current Location
}

// New creates a router for the given route table.
func New(routes []*Route) *Router {
	return &Router{
		records: flatten(routes, "/", nil),
	}
}

// BeforeEach registers a hook that runs before every navigation.
// Hooks run in registration order, the first redirect wins.
func (r *Router) BeforeEach(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Resolve matches target against the route table without navigating.
func (r *Router) Resolve(target string) (Location, error) {
	p, query, err := normalize(target)
	if err != nil {
		return Location{}, fmt.Errorf("invalid target %q: %w", target, err)
	}
	segments := splitPath(p)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		params, ok := rec.match(segments)
		if !ok {
			continue
		}
		return Location{
			Path:     p,
			RawQuery: query,
			Name:     rec.matched[len(rec.matched)-1].Name,
			Params:   params,
			Matched:  rec.matched,
		}, nil
	}
	return Location{}, fmt.Errorf("%w: %s", ErrNotFound, p)
}

// Push navigates to target. Route redirects and hook redirects are followed
// until a location is accepted, which then becomes the current location.
func (r *Router) Push(ctx context.Context, target string) (Location, error) {
	r.mu.RLock()
	from := r.current
	hooks := append([]Hook(nil), r.hooks...)
	r.mu.RUnlock()

	for range maxRedirects {
		if err := ctx.Err(); err != nil {
			return Location{}, err
		}

		to, err := r.Resolve(target)
		if err != nil {
			return Location{}, err
		}

		if redirect := to.Matched[len(to.Matched)-1].Redirect; redirect != "" {
			log.Debug("following route redirect", "from", to.Path, "to", redirect)
			target = redirect
			continue
		}

		decision := runHooks(ctx, hooks, to, from)
		if !decision.Proceed() {
			log.Debug("navigation redirected", "to", to.Path, "redirect", decision.Redirect, "reason", decision.Reason)
			target = decision.Redirect
			continue
		}

		r.mu.Lock()
		r.current = to
		r.mu.Unlock()
		return to, nil
	}

	return Location{}, fmt.Errorf("%w: last target %s", ErrRedirectLoop, target)
}

func runHooks(ctx context.Context, hooks []Hook, to, from Location) Decision {
	for _, h := range hooks {
		if d := h(ctx, to, from); !d.Proceed() {
			return d
		}
	}
	return Decision{}
}

// HardRedirect moves to path without running any hooks, like a full page
// load. Redirecting to the current location is a no-op.
func (r *Router) HardRedirect(path string) {
	to, err := r.Resolve(path)
	if err != nil {
		// unknown pages still become the current location, the page layer renders a 404
		p, query, _ := normalize(path)
		to = Location{Path: p, RawQuery: query}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current.FullPath() == to.FullPath() {
		return
	}
	log.Info("hard redirect", "from", r.current.FullPath(), "to", to.FullPath())
	r.current = to
}

// Current returns the current location.
func (r *Router) Current() Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}
