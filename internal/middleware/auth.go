package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"backend/internal/authctx"
	"backend/internal/config"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Gin context keys set by Authenticate
const (
	CtxUserID = "userID"
	CtxRole   = "userRole"
)

// PermissionChecker answers whether a user holds a permission code. Satisfied
// by the permission service; injected here so the middleware stays free of
// storage concerns.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID uuid.UUID, code string) (bool, error)
}

// permCacheEntry stores a user's cached permission decisions with a TTL
type permCacheEntry struct {
	decisions map[string]bool
	expiresAt time.Time
}

// AuthMiddleware authenticates requests and enforces permissions. Permission
// decisions are cached per user for permCacheTTL, so a grant change can take
// up to the TTL to propagate unless the cache is invalidated explicitly.
type AuthMiddleware struct {
	cfg     *config.Config
	checker PermissionChecker

	mu        sync.Mutex
	permCache sync.Map // uuid.UUID -> *permCacheEntry
}

const permCacheTTL = 5 * time.Minute

func NewAuthMiddleware(cfg *config.Config, checker PermissionChecker) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg, checker: checker}
}

// extractToken reads the access token from the cookie first, then from the
// Authorization header.
func extractToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// parseToken validates signature and expiry; issuer/audience are checked
// strictly first, then once more without them so tokens minted before those
// claims were introduced keep working until they expire.
func (m *AuthMiddleware) parseToken(tokenString string) (jwt.MapClaims, error) {
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.cfg.JWTSecret), nil
	}

	token, err := jwt.Parse(tokenString, keyFunc,
		jwt.WithIssuer(m.cfg.JWTIssuer),
		jwt.WithAudience(m.cfg.JWTAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// Legacy tokens carry no iss/aud
		token, err = jwt.Parse(tokenString, keyFunc)
		if err != nil {
			return nil, err
		}
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Authenticate rejects the request unless it carries a valid access token,
// then stashes the caller's identity in both the gin context and the request
// context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		claims, err := m.parseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
			return
		}
		role, _ := claims["role"].(string)

		c.Set(CtxUserID, userID)
		c.Set(CtxRole, role)

		ctx := authctx.WithUserID(c.Request.Context(), userID)
		ctx = authctx.WithRole(ctx, role)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequirePermission enforces that the authenticated user holds every listed
// permission code. Must run after Authenticate.
func (m *AuthMiddleware) RequirePermission(codes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		for _, code := range codes {
			allowed, err := m.hasPermission(c, userID, code)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
				return
			}
			if !allowed {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+code+"'"))
				return
			}
		}

		c.Next()
	}
}

func (m *AuthMiddleware) hasPermission(c *gin.Context, userID uuid.UUID, code string) (bool, error) {
	if entry, ok := m.permCache.Load(userID); ok {
		cached := entry.(*permCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			m.mu.Lock()
			decision, hit := cached.decisions[code]
			m.mu.Unlock()
			if hit {
				return decision, nil
			}
		}
	}

	allowed, err := m.checker.HasPermission(c.Request.Context(), userID, code)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.permCache.Load(userID)
	cached, valid := entry.(*permCacheEntry)
	if !ok || !valid || time.Now().After(cached.expiresAt) {
		cached = &permCacheEntry{
			decisions: make(map[string]bool),
			expiresAt: time.Now().Add(permCacheTTL),
		}
		m.permCache.Store(userID, cached)
	}
	cached.decisions[code] = allowed

	return allowed, nil
}

// ClearUserPermissionCache drops cached decisions for one user, or for
// everyone when the zero UUID is passed. Called on grant and role changes.
func (m *AuthMiddleware) ClearUserPermissionCache(userID uuid.UUID) {
	if userID == uuid.Nil {
		m.permCache.Range(func(key, _ any) bool {
			m.permCache.Delete(key)
			return true
		})
		return
	}
	m.permCache.Delete(userID)
}

// UserIDFromContext reads the authenticated user id set by Authenticate
func UserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (m *AuthMiddleware) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	sameSite, secure := m.cookiePolicy()
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, int(m.cfg.AccessTokenTTL.Seconds()), "/", "", secure, true)
	c.SetCookie("refresh_token", refreshToken, int(m.cfg.RefreshTokenTTL.Seconds()), "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (m *AuthMiddleware) ClearTokenCookies(c *gin.Context) {
	sameSite, secure := m.cookiePolicy()
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

func (m *AuthMiddleware) cookiePolicy() (http.SameSite, bool) {
	// Cross-origin deployments need SameSite=None + Secure; local development
	// runs same-site over plain http.
	if m.cfg.GinMode == "release" {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}
