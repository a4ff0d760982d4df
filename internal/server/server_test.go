package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecommerce-api/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDatabase struct {
	db     *sql.DB
	status string
	closed bool
}

func (f *fakeDatabase) DB() *sql.DB { return f.db }

func (f *fakeDatabase) Health(context.Context) map[string]string {
	return map[string]string{"status": f.status}
}

func (f *fakeDatabase) Close() error {
	f.closed = true
	return f.db.Close()
}

func newFakeDatabase(t *testing.T, status string) *fakeDatabase {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	return &fakeDatabase{db: db, status: status}
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "test"},
		JWT:       config.JWTConfig{Secret: "server-test-secret", AccessExpiry: 15, RefreshExpiry: 7},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute, Burst: 50},
	}
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.7:41000"
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	return w
}

func TestHealthReflectsDatabaseState(t *testing.T) {
	for status, code := range map[string]int{"up": http.StatusOK, "down": http.StatusServiceUnavailable} {
		t.Run(status, func(t *testing.T) {
			srv := NewServer(testConfig(), zap.NewNop(), newFakeDatabase(t, status))
			defer srv.Close()

			w := get(srv, "/health")
			require.Equal(t, code, w.Code)

			var body struct {
				Data map[string]string `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, status, body.Data["status"])
		})
	}
}

func TestAPIRoutesAreMounted(t *testing.T) {
	srv := NewServer(testConfig(), zap.NewNop(), newFakeDatabase(t, "up"))
	defer srv.Close()

	for _, path := range []string{"/api/v1/cart", "/api/v1/orders/my-orders", "/api/v1/wishlist", "/api/v1/users/me"} {
		assert.Equal(t, http.StatusUnauthorized, get(srv, path).Code, path)
	}
	assert.Equal(t, http.StatusNotFound, get(srv, "/api/v2/cart").Code)
}

func TestLocalLimiterWhenRedisDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 2}
	srv := NewServer(cfg, zap.NewNop(), newFakeDatabase(t, "up"))
	defer srv.Close()

	assert.Nil(t, srv.redis)
	assert.Equal(t, http.StatusOK, get(srv, "/health").Code)
	assert.Equal(t, http.StatusOK, get(srv, "/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(srv, "/health").Code)
}

func TestRedisLimiterWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := strings.Cut(mr.Addr(), ":")

	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: host, Port: port}
	cfg.RateLimit = config.RateLimitConfig{Requests: 3, Window: time.Minute, Burst: 1}
	srv := NewServer(cfg, zap.NewNop(), newFakeDatabase(t, "up"))
	defer srv.Close()

	require.NotNil(t, srv.redis)
	for i := 0; i < 3; i++ {
		w := get(srv, "/health")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusTooManyRequests, get(srv, "/health").Code)
}

func TestFallsBackWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := strings.Cut(mr.Addr(), ":")
	mr.Close()

	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: host, Port: port}
	srv := NewServer(cfg, zap.NewNop(), newFakeDatabase(t, "up"))
	defer srv.Close()

	assert.Nil(t, srv.redis)
	assert.NotNil(t, srv.stopLimiter)
	assert.Equal(t, http.StatusOK, get(srv, "/health").Code)
}

func TestCloseReleasesDatabase(t *testing.T) {
	db := newFakeDatabase(t, "up")
	srv := NewServer(testConfig(), zap.NewNop(), db)

	require.NoError(t, srv.Close())
	assert.True(t, db.closed)
}
