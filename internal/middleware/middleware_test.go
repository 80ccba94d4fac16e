package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-dispensa/internal/domain"
	"go-dispensa/internal/middleware"
	"go-dispensa/internal/shared/contextutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		OK    bool `json:"ok"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.OK)
	return body.Error.Code
}

func TestAuth(t *testing.T) {
	var seen contextutil.Caller
	r := gin.New()
	r.GET("/me", middleware.Auth(testSecret), func(c *gin.Context) {
		seen, _ = contextutil.GetCaller(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("success", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"user_id": "u-1",
			"role":    " Manager ",
			"name":    "Ana Souza",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		w := call("Bearer " + token)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, contextutil.Caller{UserID: "u-1", Role: "manager", DisplayName: "Ana Souza"}, seen)
	})

	t.Run("success cookie", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"user_id": "u-2", "role": "employee"})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("negative missing token", func(t *testing.T) {
		w := call("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
	})

	t.Run("negative expired", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"user_id": "u-1",
			"role":    "admin",
			"exp":     time.Now().Add(-time.Minute).Unix(),
		})

		w := call("Bearer " + token)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "TOKEN_EXPIRED", errorCode(t, w))
	})

	t.Run("negative wrong secret", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u-1", "role": "admin"}).
			SignedString([]byte("other"))
		require.NoError(t, err)

		w := call("Bearer " + token)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_TOKEN", errorCode(t, w))
	})

	t.Run("negative missing role claim", func(t *testing.T) {
		w := call("Bearer " + signToken(t, jwt.MapClaims{"user_id": "u-1"}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_TOKEN", errorCode(t, w))
	})
}

type fakeRBACService struct {
	enforceFn func(req domain.EnforceRequest) (bool, error)
}

func (f *fakeRBACService) Enforce(req domain.EnforceRequest) (bool, error) {
	return f.enforceFn(req)
}

func TestRBACAuthorize(t *testing.T) {
	newRouter := func(svc middleware.RBACService, role string) *gin.Engine {
		r := gin.New()
		r.GET("/x",
			func(c *gin.Context) {
				if role != "" {
					c.Set("role", role)
				}
				c.Next()
			},
			middleware.RBACAuthorize(svc, "dispensa", "approve"),
			func(c *gin.Context) { c.Status(http.StatusNoContent) },
		)
		return r
	}

	serve := func(r *gin.Engine) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		return w
	}

	t.Run("success allowed", func(t *testing.T) {
		var got domain.EnforceRequest
		svc := &fakeRBACService{enforceFn: func(req domain.EnforceRequest) (bool, error) {
			got = req
			return true, nil
		}}

		w := serve(newRouter(svc, "manager"))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, domain.EnforceRequest{Role: "manager", Resource: "dispensa", Action: "approve"}, got)
	})

	t.Run("negative denied", func(t *testing.T) {
		svc := &fakeRBACService{enforceFn: func(domain.EnforceRequest) (bool, error) { return false, nil }}

		w := serve(newRouter(svc, "employee"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", errorCode(t, w))
	})

	t.Run("negative no role", func(t *testing.T) {
		svc := &fakeRBACService{enforceFn: func(domain.EnforceRequest) (bool, error) {
			t.Fatal("enforce must not be called")
			return false, nil
		}}

		w := serve(newRouter(svc, ""))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("negative enforcer error", func(t *testing.T) {
		svc := &fakeRBACService{enforceFn: func(domain.EnforceRequest) (bool, error) {
			return false, errors.New("policy store down")
		}}

		w := serve(newRouter(svc, "admin"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("by ip", func(t *testing.T) {
		r := gin.New()
		r.Use(middleware.RateLimitByIP(1, 2))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			codes = append(codes, w.Code)
		}

		assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	})

	t.Run("by user keeps separate buckets", func(t *testing.T) {
		r := gin.New()
		r.GET("/x",
			func(c *gin.Context) {
				c.Set("user_id", c.GetHeader("X-User"))
				c.Next()
			},
			middleware.RateLimitByUser(1, 1),
			func(c *gin.Context) { c.Status(http.StatusNoContent) },
		)

		serve := func(user string) int {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set("X-User", user)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			return w.Code
		}

		assert.Equal(t, http.StatusNoContent, serve("a"))
		assert.Equal(t, http.StatusTooManyRequests, serve("a"))
		assert.Equal(t, http.StatusNoContent, serve("b"))
		assert.Equal(t, http.StatusNoContent, serve(""))
		assert.Equal(t, http.StatusNoContent, serve(""))
	})
}

func TestKeyedRateLimiter_GetLimiter(t *testing.T) {
	k := middleware.NewKeyedRateLimiter(1, 1)

	assert.Same(t, k.GetLimiter("a"), k.GetLimiter("a"))
	assert.NotSame(t, k.GetLimiter("a"), k.GetLimiter("b"))
}

func TestIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	r := gin.New()
	r.POST("/dispensas",
		func(c *gin.Context) {
			c.Set("user_id_validated", "u-1")
			c.Next()
		},
		middleware.Idempotency(rdb),
		func(c *gin.Context) {
			calls++
			c.JSON(http.StatusCreated, gin.H{"n": calls})
		},
	)

	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/dispensas", nil)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("success first then replay", func(t *testing.T) {
		first := post("k-1")
		second := post("k-1")

		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
		assert.JSONEq(t, first.Body.String(), second.Body.String())
		assert.Equal(t, 1, calls)
		assert.False(t, mr.Exists("idemp:/dispensas:u-1:k-1:lock"))
	})

	t.Run("negative still processing", func(t *testing.T) {
		require.NoError(t, mr.Set("idemp:/dispensas:u-1:k-2:lock", "locked"))

		w := post("k-2")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "PROCESSING", errorCode(t, w))
	})

	t.Run("no key passes through", func(t *testing.T) {
		before := calls
		post("")
		post("")
		assert.Equal(t, before+2, calls)
	})
}

func TestContextLogger(t *testing.T) {
	var rid string
	var hasLogger bool
	r := gin.New()
	r.Use(middleware.ContextLogger(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) {
		rid = contextutil.GetRequestID(c.Request.Context())
		hasLogger = contextutil.GetLogger(c.Request.Context(), nil) != nil
		c.Status(http.StatusNoContent)
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Request-ID", "req-7")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, "req-7", rid)
		assert.Equal(t, "req-7", w.Header().Get("X-Request-ID"))
		assert.True(t, hasLogger)
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()

		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.NotEmpty(t, rid)
		assert.Equal(t, rid, w.Header().Get("X-Request-ID"))
	})
}
