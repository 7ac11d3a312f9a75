// Package handlers binds the HTTP API onto the processors.
package handlers

import (
	apperrors "finops/internal/errors"
	"finops/internal/middleware"
	"finops/internal/services/auth"
	"finops/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// bind parses the JSON body into dst and checks its validate tags.
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}
	return validation.Struct(dst)
}

func caller(c *fiber.Ctx) (auth.Identity, error) {
	id, ok := middleware.Identity(c)
	if !ok {
		return auth.Identity{}, apperrors.Unauthenticated("unauthenticated")
	}
	return id, nil
}
