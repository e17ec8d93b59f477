package auth

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-auth-service/middleware/jwtware"
)

// ErrorResponse is the JSON body sent for failed requests
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// RouteAuthenticator builds the request gate and the identity policy
type RouteAuthenticator struct {
	tokens       TokenService
	cfg          Config
	Logger       Logger
	ErrorHandler router.ErrorHandler
}

func NewHTTPAuthenticator(tokens TokenService, cfg Config) (*RouteAuthenticator, error) {
	if tokens == nil {
		return nil, goerrors.New("token service is required", goerrors.CategoryBadInput)
	}

	a := &RouteAuthenticator{
		tokens: tokens,
		cfg:    cfg,
		Logger: defLogger(),
	}
	a.ErrorHandler = NewErrorHandler(a.Logger)

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = normalizeLogger(logger)
	a.ErrorHandler = NewErrorHandler(a.Logger)
	return a
}

// Gate returns the middleware that resolves the request Identity. It never
// rejects a request.
func (a *RouteAuthenticator) Gate() router.MiddlewareFunc {
	return jwtware.New(GateConfig(a.cfg, a.tokens, a.Logger))
}

// RequireIdentity rejects requests that reached it without an Identity
func (a *RouteAuthenticator) RequireIdentity() router.MiddlewareFunc {
	return RequireIdentity(a.cfg.GetContextKey(), a.ErrorHandler)
}

// RequireIdentity rejects requests with no Identity stored under contextKey.
// Rejections go through errorHandler, which defaults to NewErrorHandler.
func RequireIdentity(contextKey string, errorHandler ...router.ErrorHandler) router.MiddlewareFunc {
	onError := NewErrorHandler(nil)
	if len(errorHandler) > 0 && errorHandler[0] != nil {
		onError = errorHandler[0]
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, ok := GetRouterIdentity(ctx, contextKey); ok {
				return next(ctx)
			}
			if _, ok := IdentityFromContext(ctx.Context()); ok {
				return next(ctx)
			}
			return onError(ctx, ErrUnableToFindIdentity)
		}
	}
}

// StatusFromError maps an error kind to the HTTP status sent to clients
func StatusFromError(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			return fiberErr.Code
		}
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorHandler returns a router error handler writing ErrorResponse bodies.
// Internal failures are logged and their details are not sent to clients.
func NewErrorHandler(logger Logger) router.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(ctx router.Context, err error) error {
		status := StatusFromError(err)
		body := ErrorResponse{Message: http.StatusText(status)}

		var richErr *goerrors.Error
		switch {
		case goerrors.As(err, &richErr) && status != http.StatusInternalServerError:
			body.Message = richErr.Message
			if fields := richErr.ValidationMap(); len(fields) > 0 {
				body.Errors = fields
			}
		case status == http.StatusInternalServerError:
			logRichError(logger, "request failed", err)
			if goerrors.Is(err, context.Canceled) {
				body.Message = "request cancelled"
			}
		default:
			var fiberErr *fiber.Error
			if goerrors.As(err, &fiberErr) {
				body.Message = fiberErr.Message
			}
		}

		return ctx.JSON(status, body)
	}
}

// NewFiberErrorHandler adapts NewErrorHandler for errors that escape the
// router, such as unmatched routes.
func NewFiberErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		status := StatusFromError(err)
		body := ErrorResponse{Message: http.StatusText(status)}

		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			body.Message = fiberErr.Message
		} else if status == http.StatusInternalServerError {
			logRichError(logger, "request failed", err)
		}

		return c.Status(status).JSON(body)
	}
}
