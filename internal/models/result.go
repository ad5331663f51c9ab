package models

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Result is the uniform mutation response: a status flag, a user-facing
// message and an optional named payload.
type Result struct {
	Status      bool   `json:"status"`
	Message     string `json:"message"`
	PayloadName string `json:"-"`
	Payload     any    `json:"-"`
	Code        string `json:"code,omitempty"`
	Retryable   bool   `json:"retryable,omitempty"`
}

// OK builds a successful result.
func OK(message, payloadName string, payload any) Result {
	return Result{Status: true, Message: message, PayloadName: payloadName, Payload: payload}
}

// Failed builds an unsuccessful result from a business-rule error.
func Failed(err error) Result {
	r := Result{Status: false, Message: err.Error(), Code: CodeInternal}
	var appErr *AppError
	if errors.As(err, &appErr) {
		r.Message = appErr.Message
		r.Code = appErr.Code
		r.Retryable = appErr.Retryable
	}
	return r
}

// Map flattens the result into its wire shape.
func (r Result) Map() fiber.Map {
	m := fiber.Map{
		"status":  r.Status,
		"message": r.Message,
	}
	if r.Code != "" {
		m["code"] = r.Code
	}
	if r.Retryable {
		m["retryable"] = true
	}
	if r.PayloadName != "" {
		m[r.PayloadName] = r.Payload
	}
	return m
}

// RespondResult writes the envelope with the given status code.
func RespondResult(c *fiber.Ctx, status int, r Result) error {
	return c.Status(status).JSON(r.Map())
}

// RespondFailure writes a status:false envelope for business-rule failures.
// Internal errors keep the error body so details never reach the client.
func RespondFailure(c *fiber.Ctx, err error) error {
	status := HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		return RespondWithError(c, status, NewInternalError(err))
	}
	return RespondResult(c, status, Failed(err))
}
