package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tbmobb813/KidMap-sub000/config"

	"github.com/gin-gonic/gin"
)

func newAuthTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	InitAuthMiddleware(&config.Config{JWTSecretKey: "test-secret"})

	r := gin.New()
	r.GET("/guardian", AuthenticateGuardian(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 0})
	})
	return r
}

func issueToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwtService.GenerateToken(1, role)
	if err != nil {
		t.Fatalf("生成令牌失败: %v", err)
	}
	return token
}

// TestAuthenticateGuardianMissingHeader 验证缺少授权头时返回401
func TestAuthenticateGuardianMissingHeader(t *testing.T) {
	r := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/guardian", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("状态码 = %d, 期望 401", w.Code)
	}
}

// TestAuthenticateGuardianMalformedHeader 验证非Bearer格式返回401
func TestAuthenticateGuardianMalformedHeader(t *testing.T) {
	r := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/guardian", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("状态码 = %d, 期望 401", w.Code)
	}
}

// TestAuthenticateGuardianWrongRole 验证非家长角色被拒绝
func TestAuthenticateGuardianWrongRole(t *testing.T) {
	r := newAuthTestRouter(t)
	token := issueToken(t, "child")

	req := httptest.NewRequest(http.MethodGet, "/guardian", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("状态码 = %d, 期望 403", w.Code)
	}
}

// TestAuthenticateGuardianSuccess 验证家长令牌通过认证
func TestAuthenticateGuardianSuccess(t *testing.T) {
	r := newAuthTestRouter(t)
	token := issueToken(t, "guardian")

	req := httptest.NewRequest(http.MethodGet, "/guardian", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("状态码 = %d, 期望 200, body=%s", w.Code, w.Body.String())
	}
}
