package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classboard/classboard/models"
)

// RouteClass is the access class of a page route.
type RouteClass int

const (
	// RoutePublic proceeds without any session check.
	RoutePublic RouteClass = iota
	// RouteGuestOnly redirects authenticated users away (login, register).
	RouteGuestOnly
	// RouteAuthenticatedOnly redirects anonymous users to the login page.
	RouteAuthenticatedOnly
	// RouteRoleRestricted additionally requires a teacher or admin role.
	RouteRoleRestricted
)

type routeRule struct {
	prefix string
	class  RouteClass
}

// The classes are disjoint, so ordering in this table does not matter;
// Classify picks the longest matching prefix. Anything unmatched requires
// authentication.
var routeRules = []routeRule{
	{"/api/", RoutePublic},
	{"/static/", RoutePublic},
	{"/health", RoutePublic},
	{"/auth/callback", RoutePublic},
	{"/login", RouteGuestOnly},
	{"/register", RouteGuestOnly},
	{"/reset-password", RouteGuestOnly},
	{"/admin", RouteRoleRestricted},
}

// Classify returns the access class for a request path using longest-prefix
// match against the static table.
func Classify(path string) RouteClass {
	best := -1
	class := RouteAuthenticatedOnly
	for _, r := range routeRules {
		if strings.HasPrefix(path, r.prefix) && len(r.prefix) > best {
			best = len(r.prefix)
			class = r.class
		}
	}
	return class
}

// SafeRedirectTarget validates a caller-supplied redirect target. Only
// same-origin relative paths come back; protocol-relative, absolute and
// backslash-bearing values, and paths that land on a guest-only route, all
// collapse to "/".
func SafeRedirectTarget(raw string) string {
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		return "/"
	}
	if strings.HasPrefix(raw, "//") {
		return "/"
	}
	if strings.ContainsAny(raw, "\\") {
		return "/"
	}
	// Redirecting back to login/register would bounce forever.
	path := raw
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if Classify(path) == RouteGuestOnly {
		return "/"
	}
	return raw
}

// GateDecision is the outcome of the gate for one request.
type GateDecision struct {
	Allow    bool
	Location string // redirect target when Allow is false
}

func allow() GateDecision { return GateDecision{Allow: true} }

func redirect(to string) GateDecision { return GateDecision{Location: to} }

// Decide is the pure authorization-gate decision over the request path, the
// caller-supplied redirect parameter, and the session state. role is only
// meaningful when authenticated is true.
func Decide(path, redirectParam string, authenticated bool, role models.Role) GateDecision {
	switch Classify(path) {
	case RoutePublic:
		return allow()
	case RouteGuestOnly:
		if authenticated {
			return redirect(SafeRedirectTarget(redirectParam))
		}
		return allow()
	case RouteRoleRestricted:
		if !authenticated {
			return redirect(loginRedirect(path))
		}
		if !role.Privileged() {
			return redirect("/")
		}
		return allow()
	default: // RouteAuthenticatedOnly
		if !authenticated {
			return redirect(loginRedirect(path))
		}
		return allow()
	}
}

func loginRedirect(originalPath string) string {
	return "/login?redirect=" + url.QueryEscape(originalPath)
}

// Gate classifies page routes and redirects before any handler runs. The
// role is resolved from the user row only when the route demands it.
func Gate(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		path := ctx.Request.URL.Path

		claims, authenticated := SessionClaims(ctx)
		role := models.RoleStudent
		if authenticated && Classify(path) == RouteRoleRestricted {
			var user models.User
			if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
				// A session pointing at a deleted account is no session.
				authenticated = false
			} else {
				role = user.Role
			}
		}

		decision := Decide(path, ctx.Query("redirect"), authenticated, role)
		if !decision.Allow {
			ctx.Redirect(http.StatusFound, decision.Location)
			ctx.Abort()
			return
		}

		if authenticated {
			ctx.Set(ContextUserIDKey, claims.UserID)
			ctx.Set(ContextUsernameKey, claims.Username)
		}
		ctx.Next()
	}
}
