package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/utils/cache"
	"finops/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
	inFlightTTL             = 2 * time.Minute
)

// IdempotencyStore is the subset of the redis cache service the middleware
// needs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response of a POST that carries an
// Idempotency-Key already seen for the same caller and route. A duplicate
// arriving while the first is still running gets 409, as does a reused key
// whose request body differs from the stored one. 5xx responses are not
// stored so transient failures stay retryable. Redis errors fail open.
// Must run after AuthMiddleware.
func Idempotency(store IdempotencyStore, ttl time.Duration, log logrus.FieldLogger) fiber.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "idempotency")

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}
		key := c.Get(HeaderIdempotencyKey)
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLength {
			return response.BadRequest(c, "Idempotency-Key is too long")
		}

		owner := "anonymous"
		if id, ok := Identity(c); ok {
			owner = id.UserID
		}
		route := c.Method() + " " + c.Path()
		responseKey := cache.GenerateCompositeKey(cache.EntityIdempotency, owner, route, key)
		lockKey := cache.GenerateCompositeKey(cache.EntityIdempotencyLock, owner, route, key)
		ctx := c.UserContext()
		entry := log.WithFields(logrus.Fields{"route": route, "owner": owner})
		sum := sha256.Sum256(c.Body())
		requestHash := hex.EncodeToString(sum[:])

		var stored storedResponse
		found, err := store.Get(ctx, responseKey, &stored)
		if err != nil {
			entry.WithError(err).Warn("idempotency lookup failed, processing request")
			return c.Next()
		}
		if found {
			if stored.RequestHash != requestHash {
				return response.Error(c, apperrors.New(apperrors.KindAlreadyFinalized, "IDEMPOTENCY_KEY_REUSED",
					"Idempotency-Key was already used with a different request body"))
			}
			c.Set(HeaderReplayed, "true")
			if stored.ContentType != "" {
				c.Set(fiber.HeaderContentType, stored.ContentType)
			}
			return c.Status(stored.Status).Send(stored.Body)
		}

		acquired, err := store.SetNX(ctx, lockKey, owner, inFlightTTL)
		if err != nil {
			entry.WithError(err).Warn("idempotency lock failed, processing request")
			return c.Next()
		}
		if !acquired {
			return response.Error(c, apperrors.New(apperrors.KindAlreadyFinalized, "IDEMPOTENCY_IN_FLIGHT",
				"a request with this Idempotency-Key is still being processed"))
		}
		defer func() {
			if err := store.Delete(context.Background(), lockKey); err != nil {
				entry.WithError(err).Warn("failed to release idempotency lock")
			}
		}()

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			return nil
		}
		body := append([]byte(nil), c.Response().Body()...)
		err = store.SetWithTTL(ctx, responseKey, storedResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        body,
			RequestHash: requestHash,
		}, ttl)
		if err != nil {
			entry.WithError(err).Warn("failed to store idempotent response")
		}
		return nil
	}
}
