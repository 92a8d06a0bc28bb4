package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/medirx/internal/apperr"
)

// Envelope statuses.
const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
	StatusError   = "Error"
)

// Response is the envelope wrapped around every API payload.
type Response struct {
	Data       interface{} `json:"data"`
	StatusCode int         `json:"status_code"`
	Status     string      `json:"status"`
	Message    string      `json:"message"`
}

// PagedResponse is the envelope for paginated listings.
type PagedResponse struct {
	Data          interface{} `json:"data"`
	TotalRecords  int64       `json:"total_records"`
	PageNumber    int         `json:"page_number"`
	PageSize      int         `json:"page_size"`
	SortBy        string      `json:"sort_by"`
	SortDirection string      `json:"sort_direction"`
	Message       string      `json:"message"`
}

// OK writes a 200 success envelope.
func OK(c *fiber.Ctx, data interface{}, message string) error {
	return c.JSON(Response{Data: data, StatusCode: fiber.StatusOK, Status: StatusSuccess, Message: message})
}

// Created writes a 201 success envelope.
func Created(c *fiber.Ctx, data interface{}, message string) error {
	return c.Status(fiber.StatusCreated).
		JSON(Response{Data: data, StatusCode: fiber.StatusCreated, Status: StatusSuccess, Message: message})
}

// Paged writes a 200 envelope following the pagination contract.
func Paged(c *fiber.Ctx, data interface{}, total int64, pg Pagination, message string) error {
	return c.JSON(PagedResponse{
		Data:          data,
		TotalRecords:  total,
		PageNumber:    pg.PageNumber,
		PageSize:      pg.PageSize,
		SortBy:        pg.SortBy,
		SortDirection: pg.SortDirection,
		Message:       message,
	})
}

// ErrorHandler is installed as the fiber app error handler. Expected
// business failures (apperr, fiber errors) keep their status and message;
// anything else is logged by the logger middleware and reported as a
// generic 500, with the raw detail exposed only in development mode.
func ErrorHandler(development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "something went wrong"

		var appErr *apperr.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			code = appErr.Status()
			message = appErr.Message
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		default:
			if development {
				message = err.Error()
			}
		}

		status := StatusFailed
		if code >= fiber.StatusInternalServerError {
			status = StatusError
		}

		return c.Status(code).JSON(Response{
			StatusCode: code,
			Status:     status,
			Message:    message,
		})
	}
}
