package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	authsvc "github.com/dkazakova/pawmatch/backend/internal/services/auth"
)

func TestAuthMiddlewareRejectsMissingBearerToken(t *testing.T) {
	mw := AuthMiddleware(authsvc.NewJWTManager("test-secret", time.Hour), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/v1/swipes", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without a token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	mw := AuthMiddleware(authsvc.NewJWTManager("test-secret", time.Hour), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/v1/swipes", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called with an invalid token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Hour)
	token, _, err := manager.GenerateAccessToken(101)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}

	mw := AuthMiddleware(manager, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/v1/swipes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok || identity.UserID != 101 {
			t.Fatalf("identity missing or wrong: %+v ok=%v", identity, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestRequestLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRequestLimiter(60, 2)
	mw := limiter.Middleware()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 101})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/notifications/budget", nil).WithContext(ctx)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("request %d: unexpected status %d", i, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications/budget", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected burst to be exhausted, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}
}

func TestRequestLimiterKeysByUser(t *testing.T) {
	limiter := NewRequestLimiter(60, 1)
	mw := limiter.Middleware()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, userID := range []int64{101, 202} {
		ctx := authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: userID})
		req := httptest.NewRequest(http.MethodGet, "/v1/notifications/budget", nil).WithContext(ctx)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("user %d must have an independent bucket, got %d", userID, rr.Code)
		}
	}
}

func TestRequestLimiterRequiresIdentity(t *testing.T) {
	mw := NewRequestLimiter(60, 1).Middleware()

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications/budget", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without identity")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}
