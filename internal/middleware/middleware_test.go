package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anoa.com/pharmatrade/internal/entity"
	userRepo "anoa.com/pharmatrade/internal/modules/user/repository"
	"anoa.com/pharmatrade/internal/testutil"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, subject string, key string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func newRouter(m *AuthMiddleware, admin bool) *gin.Engine {
	r := gin.New()
	chain := []gin.HandlerFunc{m.RequireAuth()}
	if admin {
		chain = append(chain, m.RequireAdmin())
	}
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet("user_id")})
	})
	r.GET("/me", chain...)
	return r
}

func TestRequireAuth(t *testing.T) {
	db := testutil.NewDB(t)
	m := NewAuthMiddleware(userRepo.NewUserRepository(db), secret)
	r := newRouter(m, false)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"bearer token", "Bearer " + signToken(t, "7", secret, time.Hour), "", http.StatusOK},
		{"query token", "", signToken(t, "7", secret, time.Hour), http.StatusOK},
		{"wrong key", "Bearer " + signToken(t, "7", "other", time.Hour), "", http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "7", secret, -time.Minute), "", http.StatusUnauthorized},
		{"non numeric subject", "Bearer " + signToken(t, "abc", secret, time.Hour), "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"user_id":7}`, w.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice", entity.RoleRegular)
	root := testutil.CreateUser(t, db, "root", entity.RoleAdmin)
	r := newRouter(NewAuthMiddleware(userRepo.NewUserRepository(db), secret), true)

	call := func(id uint) int {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, strconv.FormatUint(uint64(id), 10), secret, time.Hour))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusForbidden, call(alice.ID))
	assert.Equal(t, http.StatusOK, call(root.ID))
	assert.Equal(t, http.StatusUnauthorized, call(999))
}

func TestRateLimitPassesThroughWithoutRedis(t *testing.T) {
	r := gin.New()
	r.POST("/write", RateLimit(nil, "write", time.Second), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/write", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.POST("/write", RateLimit(rdb, "write", time.Second), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/write", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCallerKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.9:4321"
	assert.Equal(t, "rate_limit:ip:10.0.0.9:login", rateLimitKey(callerKey(c), "login"))

	c.Set("user_id", uint(42))
	assert.Equal(t, "rate_limit:user:42:login", rateLimitKey(callerKey(c), "login"))
}
