// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/internal/observability"
	"github.com/safevault/safevault/internal/sanitize"
)

// HeaderAuthToken carries the session token.
const HeaderAuthToken = "X-Auth-Token"

// ServiceName is reported by the index endpoint.
const ServiceName = "safevault"

// ErrNilService is returned by NewRouter when no service is supplied.
var ErrNilService = errors.New("web: auth service is required")

// AuthService is the subset of auth.Service the HTTP layer calls.
type AuthService interface {
	Register(ctx context.Context, username, email, password, role string) (*auth.UserRecord, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	ResolveToken(ctx context.Context, token string) (*auth.UserRecord, error)
	Logout(ctx context.Context, token string) (bool, error)
	Authorize(user *auth.UserRecord, requiredRole string) bool
	CountUsers(ctx context.Context) (int64, error)
}

// Options configures the router.
type Options struct {
	// AllowRoleSelection lets registrants request a role other than user.
	AllowRoleSelection bool
	// AllowedOrigins enables CORS for the listed origins. Empty disables CORS.
	AllowedOrigins []string
	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
	// Metrics records per-route counters and latencies when set.
	Metrics *observability.Metrics
}

type handler struct {
	svc                AuthService
	allowRoleSelection bool
	logger             *slog.Logger
}

const userKey = "user"

// NewRouter builds the gin engine serving the SafeVault API.
func NewRouter(svc AuthService, opts Options) (*gin.Engine, error) {
	if svc == nil {
		return nil, ErrNilService
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{
		svc:                svc,
		allowRoleSelection: opts.AllowRoleSelection,
		logger:             logger,
	}

	router := gin.New()
	router.Use(requestID(), requestLogger(logger), recovery(logger))
	if opts.Metrics != nil {
		router.Use(requestMetrics(opts.Metrics))
	}
	if len(opts.AllowedOrigins) > 0 {
		cfg := corsConfig(opts.AllowedOrigins)
		if err := cfg.Validate(); err != nil {
			return nil, err //nolint:wrapcheck // cors reports the offending origin
		}
		router.Use(cors.New(cfg))
	}

	router.GET("/", h.index)
	router.POST("/register", h.register)
	router.POST("/login", h.login)

	authed := router.Group("/")
	authed.Use(h.requireSession())
	authed.POST("/logout", h.logout)
	authed.GET("/me", h.me)
	authed.GET("/profile", h.profile)
	authed.GET("/admin", h.requireRole(auth.RoleAdmin), h.admin)

	return router, nil
}

// tokenFrom returns the session token from X-Auth-Token or a Bearer
// Authorization header.
func tokenFrom(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(HeaderAuthToken)); token != "" {
		return token
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func (h *handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.svc.ResolveToken(c.Request.Context(), tokenFrom(c.Request))
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func (h *handler) requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.svc.Authorize(currentUser(c), role) {
			h.writeError(c, forbidden(role))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *auth.UserRecord {
	user, _ := c.MustGet(userKey).(*auth.UserRecord)
	return user
}

func (h *handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": ServiceName, "status": "running"})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, auth.InvalidInput("body"))
		return
	}

	role := strings.TrimSpace(req.Role)
	if role != "" && !strings.EqualFold(role, auth.RoleUser) && !h.allowRoleSelection {
		h.writeError(c, roleNotAllowed(role))
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Username, req.Email, req.Password, role)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"id":       user.ID,
		"username": user.Username,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, auth.InvalidInput("body"))
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    session.Token,
		"username": session.User.Username,
		"role":     session.User.Role,
	})
}

func (h *handler) logout(c *gin.Context) {
	revoked, err := h.svc.Logout(c.Request.Context(), tokenFrom(c.Request))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !revoked {
		// Revoked concurrently between resolution and logout.
		h.writeError(c, auth.ErrSessionInvalid)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) me(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}

const profileTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>SafeVault profile</title></head>
<body>
<h1>Welcome, %s</h1>
<p>Email: %s</p>
<p>Role: %s</p>
</body>
</html>
`

func (h *handler) profile(c *gin.Context) {
	user := currentUser(c)
	page := fmt.Sprintf(profileTemplate,
		sanitize.HTMLEscape(user.Username),
		sanitize.HTMLEscape(user.Email),
		sanitize.HTMLEscape(user.Role),
	)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *handler) admin(c *gin.Context) {
	count, err := h.svc.CountUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": count})
}
