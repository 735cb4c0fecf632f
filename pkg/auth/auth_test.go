package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/models"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func studentClaims(sub string) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: models.RoleStudent,
	}
}

func TestParseValidToken(t *testing.T) {
	svc := NewService(testSecret)
	signed := signToken(t, testSecret, studentClaims("u1"))

	claims, err := svc.Parse(signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != models.RoleStudent {
		t.Errorf("wrong claims: %+v", claims)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	svc := NewService(testSecret)

	if _, err := svc.Parse(signToken(t, "wrong-secret", studentClaims("u1"))); err == nil {
		t.Error("wrong signature must be rejected")
	}

	expired := studentClaims("u1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	if _, err := svc.Parse(signToken(t, testSecret, expired)); err == nil {
		t.Error("expired token must be rejected")
	}

	noSub := studentClaims("")
	if _, err := svc.Parse(signToken(t, testSecret, noSub)); err == nil {
		t.Error("token without subject must be rejected")
	}

	if _, err := svc.Parse("not.a.token"); err == nil {
		t.Error("garbage must be rejected")
	}
}

func TestRequireAdmin(t *testing.T) {
	m := NewMiddleware(NewService(testSecret), zap.NewNop())
	var seenUser string
	handler := m.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		seenUser = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	// No token.
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/admin", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Student token.
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, studentClaims("u1")))
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for student, got %d", rec.Code)
	}

	// Admin token.
	adminClaims := studentClaims("boss")
	adminClaims.Role = models.RoleAdmin
	req = httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, adminClaims))
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", rec.Code)
	}
	if seenUser != "boss" {
		t.Errorf("claims not propagated, got user %q", seenUser)
	}
}

func TestRequireUser(t *testing.T) {
	m := NewMiddleware(NewService(testSecret), zap.NewNop())
	handler := m.RequireUser(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaims(r.Context())
		if !ok || claims.Subject != "u1" {
			t.Errorf("claims missing in context: %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/content", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, studentClaims("u1")))
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
