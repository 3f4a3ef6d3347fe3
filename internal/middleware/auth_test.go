package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend/internal/authctx"
	"backend/internal/config"
	"backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func testCfg() *config.Config {
	return &config.Config{
		JWTSecret:       testSecret,
		JWTIssuer:       "backend",
		JWTAudience:     "backend-clients",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}
	return token
}

func fullToken(t *testing.T, userID uuid.UUID, role string) string {
	now := time.Now()
	return signToken(t, jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"iss":  "backend",
		"aud":  "backend-clients",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	})
}

// fakeChecker counts permission lookups so cache behavior is observable
type fakeChecker struct {
	allowed map[string]bool
	calls   int
}

func (f *fakeChecker) HasPermission(_ context.Context, _ uuid.UUID, code string) (bool, error) {
	f.calls++
	return f.allowed[code], nil
}

func runRequest(t *testing.T, mw *AuthMiddleware, handlers []gin.HandlerFunc, decorate func(*http.Request)) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var captured *gin.Context
	router := gin.New()
	chain := append([]gin.HandlerFunc{}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		captured = c
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/protected", chain...)

	req := httptest.NewRequest("GET", "/protected", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec, captured
}

func TestAuthenticateMissingToken(t *testing.T) {
	mw := NewAuthMiddleware(testCfg(), &fakeChecker{})

	rec, _ := runRequest(t, mw, []gin.HandlerFunc{mw.Authenticate()}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticateBearerHeader(t *testing.T) {
	mw := NewAuthMiddleware(testCfg(), &fakeChecker{})
	userID := uuid.New()
	token := fullToken(t, userID, model.RoleManager)

	rec, captured := runRequest(t, mw, []gin.HandlerFunc{mw.Authenticate()}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	got, ok := UserIDFromContext(captured)
	if !ok || got != userID {
		t.Errorf("context user = (%v, %v), want %s", got, ok, userID)
	}
	if id, ok := authctx.UserID(captured.Request.Context()); !ok || id != userID {
		t.Error("request context must carry the authenticated user")
	}
	if role, ok := authctx.Role(captured.Request.Context()); !ok || role != model.RoleManager {
		t.Errorf("request context role = (%s, %v)", role, ok)
	}
}

func TestAuthenticateCookie(t *testing.T) {
	mw := NewAuthMiddleware(testCfg(), &fakeChecker{})
	token := fullToken(t, uuid.New(), model.RoleUser)

	rec, _ := runRequest(t, mw, []gin.HandlerFunc{mw.Authenticate()}, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthenticateLegacyTokenWithoutIssuer(t *testing.T) {
	mw := NewAuthMiddleware(testCfg(), &fakeChecker{})
	token := signToken(t, jwt.MapClaims{
		"sub":  uuid.New().String(),
		"role": model.RoleUser,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	rec, _ := runRequest(t, mw, []gin.HandlerFunc{mw.Authenticate()}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if rec.Code != http.StatusOK {
		t.Errorf("legacy token without iss/aud must still pass, got %d", rec.Code)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	mw := NewAuthMiddleware(testCfg(), &fakeChecker{})

	wrongKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))

	expired := signToken(t, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	badSubject := signToken(t, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	cases := []struct {
		name  string
		token string
	}{
		{"wrong signature", wrongKey},
		{"expired", expired},
		{"garbage", "abc.def.ghi"},
		{"bad subject", badSubject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := runRequest(t, mw, []gin.HandlerFunc{mw.Authenticate()}, func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+tc.token)
			})
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	checker := &fakeChecker{allowed: map[string]bool{model.PermCustomersView: true}}
	mw := NewAuthMiddleware(testCfg(), checker)
	token := fullToken(t, uuid.New(), model.RoleUser)
	withToken := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }

	rec, _ := runRequest(t, mw, []gin.HandlerFunc{
		mw.Authenticate(), mw.RequirePermission(model.PermCustomersView),
	}, withToken)
	if rec.Code != http.StatusOK {
		t.Errorf("granted permission: status = %d, want 200", rec.Code)
	}

	rec, _ = runRequest(t, mw, []gin.HandlerFunc{
		mw.Authenticate(), mw.RequirePermission(model.PermUsersDelete),
	}, withToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("missing permission: status = %d, want 403", rec.Code)
	}
}

func TestRequirePermissionCaching(t *testing.T) {
	checker := &fakeChecker{allowed: map[string]bool{model.PermCustomersView: true}}
	mw := NewAuthMiddleware(testCfg(), checker)
	userID := uuid.New()
	token := fullToken(t, userID, model.RoleUser)
	withToken := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	chain := []gin.HandlerFunc{mw.Authenticate(), mw.RequirePermission(model.PermCustomersView)}

	for i := 0; i < 3; i++ {
		runRequest(t, mw, chain, withToken)
	}
	if checker.calls != 1 {
		t.Errorf("checker calls = %d, want 1 (decisions must be cached)", checker.calls)
	}

	mw.ClearUserPermissionCache(userID)
	runRequest(t, mw, chain, withToken)
	if checker.calls != 2 {
		t.Errorf("checker calls after invalidation = %d, want 2", checker.calls)
	}
}

func TestRequirePermissionWithoutAuthenticate(t *testing.T) {
	mw := NewAuthMiddleware(testCfg(), &fakeChecker{})

	rec, _ := runRequest(t, mw, []gin.HandlerFunc{mw.RequirePermission(model.PermCustomersView)}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
