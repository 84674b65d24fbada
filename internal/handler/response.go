package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cleft-care-backend/internal/lib/logger/sl"
	"github.com/iliyamo/cleft-care-backend/internal/service"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func ok(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes an error envelope.
func Fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message, Data: nil})
}

// errorStatus maps service errors to HTTP statuses.  The first match wins.
var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrUserExists, http.StatusConflict},
	{service.ErrSignupPending, http.StatusConflict},
	{service.ErrProfileCompleted, http.StatusConflict},

	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrSignupNotFound, http.StatusNotFound},

	{service.ErrInvalidCode, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusBadRequest},

	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrAccountSuspended, http.StatusForbidden},
	{service.ErrForbidden, http.StatusForbidden},

	{service.ErrSignupIncomplete, http.StatusBadRequest},
	{service.ErrMissingIDToken, http.StatusBadRequest},
	{service.ErrProfileFieldsMissing, http.StatusBadRequest},
	{service.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},

	{service.ErrDependency, http.StatusBadGateway},
}

// statusFor returns the status and the client-facing message for err.
func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "something went wrong"
}

// serviceError logs unexpected failures and writes the mapped envelope.
func serviceError(c echo.Context, log *slog.Logger, err error) error {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("path", c.Path()),
			slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			sl.Err(err))
	}
	return Fail(c, status, msg)
}

// HTTPErrorHandler renders errors that reach echo (bind failures, unknown
// routes, panics recovered by middleware) in the response envelope.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := http.StatusInternalServerError, "something went wrong"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status, msg = he.Code, fmt.Sprint(he.Message)
		} else {
			log.Error("unhandled error", slog.String("path", c.Path()), sl.Err(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = Fail(c, status, msg)
		}
		if err != nil {
			log.Error("failed to write error response", sl.Err(err))
		}
	}
}

// bind decodes and validates the request body into dst.  Failures come back
// as 400 echo.HTTPErrors.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(verrs))
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", fe.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}
