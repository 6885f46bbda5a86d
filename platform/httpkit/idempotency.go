package httpkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	idempotencyPending = "pending"
	maxIdempotencyKey  = 200
)

// StoredResponse is the replayable outcome of a completed request.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// IdempotencyStore records request outcomes by key.
type IdempotencyStore interface {
	// Begin claims key. It returns started=true when the caller owns the key,
	// or the stored response when a previous request already completed.
	// Both zero values mean another request with the key is still running.
	Begin(ctx context.Context, key string, ttl time.Duration) (*StoredResponse, bool, error)
	Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error
	Abort(ctx context.Context, key string) error
}

// RedisIdempotencyStore keeps keys in Redis with SETNX so concurrent
// replicas agree on which request owns a key.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: "idem:"}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (*StoredResponse, bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, idempotencyPending, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; treat as in flight and let the client retry
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read idempotency key: %w", err)
	}
	if raw == idempotencyPending {
		return nil, false, nil
	}

	var stored StoredResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, false, fmt.Errorf("decode idempotent response: %w", err)
	}
	return &stored, false, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, raw, ttl).Err()
}

func (s *RedisIdempotencyStore) Abort(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotent replays the first completed response for a repeated
// Idempotency-Key from the same caller. Requests without the header pass
// through. Server errors release the key so the client may retry.
func Idempotent(store IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}
		header := c.GetHeader(HeaderIdempotencyKey)
		if header == "" {
			c.Next()
			return
		}
		if len(header) > maxIdempotencyKey {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "idempotency key too long"})
			return
		}

		key := fmt.Sprintf("%s:%s:%s:%s", GetIdentity(c).UserID(), c.Request.Method, c.Request.URL.Path, header)
		ctx := c.Request.Context()

		stored, started, err := store.Begin(ctx, key, ttl)
		if err != nil {
			if log := loggerFrom(c); log != nil {
				log.Warn("idempotency store unavailable", "error", err)
			}
			c.Next()
			return
		}
		if stored != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}
		if !started {
			c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "a request with this idempotency key is in progress"})
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			_ = store.Abort(context.WithoutCancel(ctx), key)
			return
		}
		_ = store.Complete(context.WithoutCancel(ctx), key, StoredResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}, ttl)
	}
}
