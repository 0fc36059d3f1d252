/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/acronis/go-crawldispatch/log"
)

// Target is a fetchable URL. It's immutable, the underlying URL is copied on creation and on access.
// The zero value is not a valid target, use ParseTarget or NewTarget.
type Target struct {
	u *url.URL
}

// ParseTarget parses raw string as an absolute http(s) URL.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	return NewTarget(u)
}

// MustParseTarget is like ParseTarget but panics if raw string cannot be parsed.
func MustParseTarget(raw string) Target {
	t, err := ParseTarget(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTarget creates a new Target from the URL. The URL is copied.
func NewTarget(u *url.URL) (Target, error) {
	if u == nil {
		return Target{}, fmt.Errorf("%w: nil URL", ErrInvalidTarget)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("%w: unsupported scheme %q in %q", ErrInvalidTarget, u.Scheme, u.Redacted())
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("%w: no host in %q", ErrInvalidTarget, u.Redacted())
	}
	return Target{u: cloneURL(u)}, nil
}

// URL returns a copy of the target URL.
func (t Target) URL() *url.URL {
	if t.u == nil {
		return nil
	}
	return cloneURL(t.u)
}

// Host returns the host (with port if any) of the target.
func (t Target) Host() string {
	if t.u == nil {
		return ""
	}
	return t.u.Host
}

// String returns the target URL as a string.
func (t Target) String() string {
	if t.u == nil {
		return ""
	}
	return t.u.String()
}

// Redacted returns the target URL with credentials hidden: the userinfo password
// and the values of well-known secret query parameters (access_token, api_key, etc.) are replaced by "***".
// Use it instead of String when the target is logged.
func (t Target) Redacted() string {
	if t.u == nil {
		return ""
	}
	return targetMasker.Mask(t.u.Redacted())
}

var targetMasker = log.NewMasker(log.DefaultMasks)

// IsZero reports whether the target is not initialized.
func (t Target) IsZero() bool {
	return t.u == nil
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
