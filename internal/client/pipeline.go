package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jon4hz/moments/internal/models"
)

// IdentityField is the parameter the caller identity is injected as.
const IdentityField = "user_id"

// RequestIDHeader carries the correlation id of an outbound call.
const RequestIDHeader = "X-Request-ID"

// Middleware wraps a RoundTripper with an additional stage.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base with the given stages. The first stage is the outermost
// one: it sees the request first and the response last.
func Chain(base http.RoundTripper, stages ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(stages) - 1; i >= 0; i-- {
		rt = stages[i](rt)
	}
	return rt
}

// SessionReader gives read access to the current session.
type SessionReader interface {
	CurrentUser() *models.User
}

// Invalidator clears the session after the server rejected it.
type Invalidator interface {
	// Invalidate clears the session if it still belongs to userID (any session if 0)
	// and reports whether this call cleared it.
	Invalidate(ctx context.Context, userID int64) bool
}

// Navigator performs a full redirect that skips the navigation hooks.
type Navigator interface {
	HardRedirect(path string)
}

type sentUserKey struct{}

// SentUserID returns the id of the session a request was sent with, or 0.
func SentUserID(ctx context.Context) int64 {
	id, _ := ctx.Value(sentUserKey{}).(int64)
	return id
}

// Trace assigns a request id to every call and logs its outcome.
func Trace() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) == "" {
				req = req.Clone(req.Context())
				req.Header.Set(RequestIDHeader, uuid.New().String())
			}
			reqID := req.Header.Get(RequestIDHeader)
			start := time.Now()

			resp, err := next.RoundTrip(req)
			if err != nil {
				log.Debug("api request failed", "method", req.Method, "url", req.URL.Redacted(), "request_id", reqID, "error", err)
				return nil, err
			}
			log.Debug("api request", "method", req.Method, "url", req.URL.Redacted(), "request_id", reqID,
				"status", resp.StatusCode, "duration", time.Since(start))
			return resp, nil
		})
	}
}

// InjectIdentity adds the id of the current user to every outbound call. Read
// requests get it as query parameter, structured bodies get it merged in.
// Caller supplied values are never overwritten and multipart or binary
// payloads are sent unchanged.
func InjectIdentity(s SessionReader) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			user := s.CurrentUser()
			if !user.Valid() {
				return next.RoundTrip(req)
			}

			req = req.Clone(context.WithValue(req.Context(), sentUserKey{}, user.ID))
			if err := injectIdentity(req, user.ID); err != nil {
				return nil, err
			}
			return next.RoundTrip(req)
		})
	}
}

func injectIdentity(req *http.Request, id int64) error {
	value := strconv.FormatInt(id, 10)

	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		if req.URL.Query().Has(IdentityField) {
			return nil
		}
		param := IdentityField + "=" + value
		if req.URL.RawQuery == "" {
			req.URL.RawQuery = param
		} else {
			req.URL.RawQuery += "&" + param
		}
		return nil
	}

	mediaType := ""
	if ct := req.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			log.Debug("not injecting identity, unparsable content type", "content_type", ct)
			return nil
		}
		mediaType = mt
	}

	switch {
	case mediaType == "" || mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return injectJSON(req, value)
	case mediaType == "application/x-www-form-urlencoded":
		return injectForm(req, value)
	default:
		log.Debug("not injecting identity into binary payload", "content_type", mediaType)
		return nil
	}
}

func injectJSON(req *http.Request, value string) error {
	body, err := readBody(req)
	if err != nil {
		return err
	}

	fields := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(body)) > 0 {
		// anything but a JSON object is left alone
		if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
			setBody(req, body)
			return nil
		}
	}
	if _, ok := fields[IdentityField]; ok {
		setBody(req, body)
		return nil
	}

	fields[IdentityField] = json.RawMessage(value)
	merged, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	setBody(req, merged)
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return nil
}

func injectForm(req *http.Request, value string) error {
	body, err := readBody(req)
	if err != nil {
		return err
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		setBody(req, body)
		return nil
	}
	if !form.Has(IdentityField) {
		form.Set(IdentityField, value)
		body = []byte(form.Encode())
	}
	setBody(req, body)
	return nil
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close() //nolint:errcheck
	return io.ReadAll(req.Body)
}

func setBody(req *http.Request, body []byte) {
	req.ContentLength = int64(len(body))
	if len(body) == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}

// HandleAuthFailure invalidates the session when the server answers 401 and
// sends the user to loginPath. Of several concurrent 401s for the same
// session only the first one clears and redirects. A 401 for a request sent
// without a session only redirects. The response itself is
// passed on, so the caller still sees the failure.
func HandleAuthFailure(inv Invalidator, nav Navigator, loginPath string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}

			userID := SentUserID(req.Context())
			// the call may time out right after the response, the logout must happen anyway
			switch {
			case inv.Invalidate(context.WithoutCancel(req.Context()), userID):
				log.Warn("session rejected by the server, logging out", "user_id", userID, "url", req.URL.Redacted())
				nav.HardRedirect(loginPath)
			case userID == 0:
				log.Debug("request without session rejected by the server", "url", req.URL.Redacted())
				nav.HardRedirect(loginPath)
			}
			return resp, nil
		})
	}
}

// ClassifyNetworkErrors marks every failure without a response as NetworkError.
func ClassifyNetworkErrors() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil {
				log.Error("network error", "method", req.Method, "url", req.URL.Redacted(), "error", err)
				return nil, &NetworkError{Err: err}
			}
			return resp, nil
		})
	}
}
