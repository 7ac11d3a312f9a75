// Package response writes the JSON envelopes shared by every handler.
package response

import (
	"errors"

	apperrors "finops/internal/errors"

	"github.com/gofiber/fiber/v2"
)

// Success writes {success:true, <key>: data}.
func Success(c *fiber.Ctx, key string, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		key:       data,
	})
}

// Error maps err onto its status and writes {success:false, error, kind}.
// Internal errors never expose their cause.
func Error(c *fiber.Ctx, err error) error {
	kind := apperrors.KindOf(err)
	return c.Status(apperrors.HTTPStatus(kind)).JSON(errorBody(err, kind))
}

// PartialFailure writes a 207 carrying both the error and the per-item data.
func PartialFailure(c *fiber.Ctx, err error, key string, data interface{}) error {
	body := errorBody(err, apperrors.KindPartialFailure)
	body[key] = data
	return c.Status(fiber.StatusMultiStatus).JSON(body)
}

// BadRequest reports a malformed request body.
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, apperrors.InvalidArgument(message))
}

func errorBody(err error, kind apperrors.Kind) fiber.Map {
	message := err.Error()
	code := ""
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		code = de.Code
		if kind == apperrors.KindInternal {
			message = de.Message
		}
	} else if kind == apperrors.KindInternal {
		message = "internal server error"
	}

	body := fiber.Map{
		"success": false,
		"error":   message,
		"kind":    kind,
	}
	if code != "" {
		body["code"] = code
	}
	return body
}
