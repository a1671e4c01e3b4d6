package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionCookie carries the browser session key used for sponsor stickiness.
const SessionCookie = "coach_session"

const (
	defaultMaxBodyBytes = 256 << 10
	defaultMaxLimit     = 500
	sessionCookieMaxAge = 30 * 24 * time.Hour
)

type options struct {
	publicOrigin string
	maxBodyBytes int64
	maxLimit     int
	secureCookie bool
}

func applyOptions(opts []Option) options {
	o := options{maxBodyBytes: defaultMaxBodyBytes, maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures the Server.
type Option func(*options)

// WithPublicOrigin sets the origin used in links when the client sends none.
func WithPublicOrigin(origin string) Option {
	return func(o *options) {
		o.publicOrigin = strings.TrimRight(strings.TrimSpace(origin), "/")
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithMaxLimit bounds the limit query parameter of list endpoints.
func WithMaxLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(o *options) {
		o.secureCookie = secure
	}
}

// decodeJSON reads one JSON object from a bounded body.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// originOf picks the origin links are built on: the explicit value, then the
// Origin header, then the configured public origin.
func originOf(r *http.Request, explicit, fallback string) string {
	if o := strings.TrimSpace(explicit); o != "" {
		return strings.TrimRight(o, "/")
	}
	if o := strings.TrimSpace(r.Header.Get("Origin")); o != "" && o != "null" {
		return strings.TrimRight(o, "/")
	}
	return fallback
}

// parseLimit reads ?limit=; absent means the store default.
func parseLimit(r *http.Request, maxLimit int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if n > maxLimit {
		return 0, fmt.Errorf("%w: limit exceeds %d", ErrBadRequest, maxLimit)
	}
	return n, nil
}

// sessionKey returns the session cookie value, issuing a new one when absent.
func sessionKey(w http.ResponseWriter, r *http.Request, secure bool) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    key,
		Path:     "/",
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}
