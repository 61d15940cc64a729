package controller

import "github.com/gofiber/fiber/v2"

// Stable reason codes returned in error payloads.
const (
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidPlan       = "INVALID_PLAN"
	CodeAlreadySubscribed = "ALREADY_SUBSCRIBED"
	CodeMustUsePortal     = "MUST_USE_PORTAL"
	CodeKeyAlreadyUsed    = "KEY_ALREADY_USED"
	CodeAlreadyConnected  = "ALREADY_CONNECTED"
	CodeNotFound          = "NOT_FOUND"
	CodeUpstreamFailure   = "UPSTREAM_FAILURE"
	CodeInternalError     = "INTERNAL_ERROR"
)

func errJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
