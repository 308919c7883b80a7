package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/requestdata"
	"github.com/coursecal/coursecal-backend/internal/types"
)

type stubAuthService struct {
	userID uuid.UUID
}

func (s *stubAuthService) RegisterUser(ctx context.Context, user *types.User) error { return nil }
func (s *stubAuthService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	return "", "", nil
}
func (s *stubAuthService) RefreshUser(ctx context.Context) (string, string, error) {
	return "", "", nil
}
func (s *stubAuthService) LogoutUser(ctx context.Context) error { return nil }
func (s *stubAuthService) GetAccessTTL() time.Duration          { return time.Minute }

func (s *stubAuthService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString != "good-token" {
		return ctx, fmt.Errorf("invalid token")
	}
	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      s.userID,
	}), nil
}

func newTestRouter(t *testing.T, auth *stubAuthService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	am := NewAuthMiddleware(log, auth)

	engine := gin.New()
	engine.GET("/protected", am.RequireAuth(), func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": rd.UserID})
	})
	return engine
}

func TestRequireAuthMissingToken(t *testing.T) {
	engine := newTestRouter(t, &stubAuthService{userID: uuid.New()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	engine := newTestRouter(t, &stubAuthService{userID: uuid.New()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuthBearerHeader(t *testing.T) {
	engine := newTestRouter(t, &stubAuthService{userID: uuid.New()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireAuthQueryToken(t *testing.T) {
	// Calendar apps subscribe to the ICS feed by URL and cannot set headers.
	engine := newTestRouter(t, &stubAuthService{userID: uuid.New()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?token=good-token", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAuthRejectsNilUser(t *testing.T) {
	engine := newTestRouter(t, &stubAuthService{userID: uuid.Nil})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
