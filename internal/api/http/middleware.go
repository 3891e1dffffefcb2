package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/observability"
	"github.com/spec-kit/noc-incidents/internal/pattern"
	"github.com/spec-kit/noc-incidents/internal/repository"
	"github.com/spec-kit/noc-incidents/internal/telemetry"
	apperrors "github.com/spec-kit/noc-incidents/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// toDomainError maps pipeline errors onto API error codes.
func toDomainError(err error) *apperrors.DomainError {
	var (
		fiberErr     *fiber.Error
		schemaErr    *telemetry.SchemaError
		formatErr    *telemetry.FormatError
		insufficient *pattern.InsufficientDataError
		corrupt      *repository.StoreCorruptionError
		domainErr    *apperrors.DomainError
	)
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.As(err, &schemaErr):
		return apperrors.NewUnprocessable(apperrors.CodeSchemaInvalid, schemaErr.Error(),
			map[string]any{"missing": schemaErr.Missing}).Wrap(err)
	case errors.As(err, &formatErr):
		return apperrors.NewUnprocessable(apperrors.CodeFormatInvalid, formatErr.Error(),
			map[string]any{"row": formatErr.Row, "field": formatErr.Field, "value": formatErr.Value}).Wrap(err)
	case errors.As(err, &insufficient):
		return apperrors.NewUnprocessable(apperrors.CodeInsufficientData, insufficient.Error(),
			map[string]any{"bins": insufficient.Bins, "required": insufficient.Required}).Wrap(err)
	case errors.Is(err, repository.ErrTicketNotFound):
		return apperrors.NewNotFound("ticket", nil).(*apperrors.DomainError)
	case errors.As(err, &corrupt):
		return apperrors.NewDomainError(apperrors.CodeStoreCorrupt, "ticket store is unreadable",
			fiber.StatusInternalServerError, nil).Wrap(err)
	case errors.As(err, &fiberErr):
		code := apperrors.CodeValidationFailed
		if fiberErr.Code == fiber.StatusNotFound {
			code = apperrors.CodeNotFound
		} else if fiberErr.Code >= fiber.StatusInternalServerError {
			code = apperrors.CodeInternal
		}
		return apperrors.NewDomainError(code, fiberErr.Message, fiberErr.Code, nil)
	default:
		return apperrors.ToDomainError(err)
	}
}
