package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nilpay/payment-service/internal/infrastructure/redis"
	"github.com/stretchr/testify/assert"
)

type fakeRedis struct {
	values map[string]string
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	val, ok := f.values[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	return val, nil
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }
func (f *fakeRedis) Close() error                   { return nil }

func TestMiddleware(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	token, err := tokens.Issue(42)
	assert.NoError(t, err)

	newHandler := func(redisClient redis.RedisClient) (http.Handler, *int32) {
		var seenUserID int32
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			assert.True(t, ok)
			seenUserID = userID
			w.WriteHeader(http.StatusOK)
		})
		return Middleware(tokens, redisClient)(next), &seenUserID
	}

	t.Run("ValidToken", func(t *testing.T) {
		rc := &fakeRedis{values: map[string]string{"user:42:token": token}}
		handler, seenUserID := newHandler(rc)

		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int32(42), *seenUserID)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		handler, _ := newHandler(&fakeRedis{values: map[string]string{}})
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		handler, _ := newHandler(&fakeRedis{values: map[string]string{}})
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Basic %s", token))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		handler, _ := newHandler(&fakeRedis{values: map[string]string{}})
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		expired, err := NewTokenService("secret", -time.Minute).Issue(42)
		assert.NoError(t, err)

		handler, _ := newHandler(&fakeRedis{values: map[string]string{"user:42:token": expired}})
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RevokedToken", func(t *testing.T) {
		// Valid signature but no longer present in Redis.
		handler, _ := newHandler(&fakeRedis{values: map[string]string{}})
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
