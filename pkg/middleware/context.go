package middleware

import (
	"strings"

	"github.com/Farcas-Consult/rams-sub000/pkg/context"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderReaderID identifies the RFID reader or gateway posting reads
const HeaderReaderID = "X-Reader-ID"

// Context stamps every request with a request id, echoed back in the
// response, and the calling reader when it names itself.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := context.SetRequestID(req.Context(), requestID)
			if readerID := strings.TrimSpace(req.Header.Get(HeaderReaderID)); readerID != "" {
				ctx = context.SetReaderID(ctx, readerID)
			}

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
