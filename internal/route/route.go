// Package route maps URL fragments onto role and page tuples.
package route

import (
	"strings"

	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/roles"
)

// LoginToken is the first path segment that selects the sign-in screen.
const LoginToken = "login"

// LoginPath is the canonical path of the sign-in screen.
const LoginPath = "/" + LoginToken

// View kinds.
const (
	ViewApp   = "app"
	ViewLogin = "login"
)

// State is the resolved form of a path. It is recomputed on every navigation.
type State struct {
	Role          models.Role       `json:"role"`
	Page          string            `json:"page"`
	Config        models.RoleConfig `json:"config"`
	CanonicalPath string            `json:"canonical_path"`
	View          string            `json:"view"`
}

// Normalize turns a raw fragment into an absolute path. An empty input yields "".
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	p := strings.TrimPrefix(raw, "#")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Segments splits a path into its non-empty segments.
func Segments(path string) []string {
	parts := strings.Split(Normalize(path), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve maps path to a route state. Unknown roles fall back to fallback (or the
// system default when fallback is itself unknown) and unknown pages fall back to the
// role's default page. It never fails and reads nothing but its arguments.
func Resolve(path string, fallback models.Role) State {
	if !roles.Known(fallback) {
		fallback = roles.Default
	}
	segs := Segments(path)

	if len(segs) > 0 && segs[0] == LoginToken {
		cfg := roles.MustLookup(fallback)
		return State{
			Role:          fallback,
			Page:          cfg.DefaultPage,
			Config:        cfg,
			CanonicalPath: LoginPath,
			View:          ViewLogin,
		}
	}

	role := fallback
	if len(segs) > 0 && roles.Known(models.Role(segs[0])) {
		role = models.Role(segs[0])
	}
	cfg := roles.MustLookup(role)

	page := cfg.DefaultPage
	if len(segs) > 1 && cfg.HasPage(segs[1]) {
		page = segs[1]
	}

	return State{
		Role:          role,
		Page:          page,
		Config:        cfg,
		CanonicalPath: cfg.BasePath + "/" + page,
		View:          ViewApp,
	}
}

// IsLogin reports whether s is the sign-in screen.
func (s State) IsLogin() bool {
	return s.View == ViewLogin
}
