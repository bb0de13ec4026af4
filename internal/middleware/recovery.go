package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
)

// Recovery returns middleware that recovers from panics, logs the stack
// trace, and returns a 500 to the client. Sits outermost so a panic in any
// later middleware (the gate included) cannot crash the server. The response
// shape matches the application error handler's JSON body.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				if r := recover(); r != nil {
					// Log the panic with full stack trace for debugging.
					stack := debug.Stack()
					slog.Error("panic recovered",
						slog.Any("panic", r),
						slog.String("stack", string(stack)),
						slog.String("method", c.Request().Method),
						slog.String("path", c.Request().URL.Path),
					)

					// Never leak the panic value to the client.
					returnErr = c.JSON(http.StatusInternalServerError, map[string]string{
						"error":   http.StatusText(http.StatusInternalServerError),
						"message": "An unexpected error occurred",
					})
				}
			}()

			return next(c)
		}
	}
}
