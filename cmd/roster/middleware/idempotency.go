package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/common/idempotency"
	"github.com/lyzr/coffeeroster/common/logger"
)

const (
	// HeaderIdempotencyKey carries the client-chosen key
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotencyReplayed marks a response served from the store
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
)

// bodyRecorder tees everything written to the client into buf
type bodyRecorder struct {
	io.Writer
	http.ResponseWriter
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

// Idempotency makes POST handlers safe to retry when the client sends an
// Idempotency-Key header. The first response below 500 is stored and
// replayed for the same key, route and body; a duplicate that arrives while
// the first is still running gets 409, and a key reused with another body
// gets 422. Requests without the header, or a nil store, pass straight
// through. Store failures fail open.
func Idempotency(store *idempotency.Store, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderIdempotencyKey)
			if store == nil || key == "" {
				return next(c)
			}

			req := c.Request()
			ctx := req.Context()
			scope := req.Method + " " + c.Path()

			var body []byte
			if req.Body != nil {
				read, err := io.ReadAll(req.Body)
				if err != nil {
					return c.JSON(http.StatusBadRequest, map[string]interface{}{
						"error": "Invalid request body",
					})
				}
				body = read
				req.Body = io.NopCloser(bytes.NewReader(body))
			}
			fingerprint := idempotency.Fingerprint(body)

			stored, err := store.Begin(ctx, scope, key, fingerprint)
			switch {
			case errors.Is(err, idempotency.ErrKeyReused):
				return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
					"error": "This Idempotency-Key was already used with a different request body",
				})
			case errors.Is(err, idempotency.ErrInFlight):
				return c.JSON(http.StatusConflict, map[string]interface{}{
					"error": "A request with this Idempotency-Key is already in progress",
				})
			case err != nil:
				log.Warn("idempotency store unavailable, processing request normally", "error", err)
				return next(c)
			case stored != nil:
				c.Response().Header().Set(HeaderIdempotencyReplayed, "true")
				return c.Blob(stored.Status, stored.ContentType, stored.Body)
			}

			var buf bytes.Buffer
			res := c.Response()
			original := res.Writer
			res.Writer = &bodyRecorder{Writer: io.MultiWriter(original, &buf), ResponseWriter: original}
			defer func() { res.Writer = original }()

			if err := next(c); err != nil {
				// the error handler writes the response later; let the client retry
				if abortErr := store.Abort(ctx, scope, key); abortErr != nil {
					log.Warn("failed to release idempotency key", "error", abortErr)
				}
				return err
			}

			if res.Status >= http.StatusInternalServerError {
				if err := store.Abort(ctx, scope, key); err != nil {
					log.Warn("failed to release idempotency key", "error", err)
				}
				return nil
			}

			rec := idempotency.Record{
				Fingerprint: fingerprint,
				Status:      res.Status,
				ContentType: res.Header().Get(echo.HeaderContentType),
				Body:        buf.Bytes(),
			}
			if err := store.Complete(ctx, scope, key, rec); err != nil {
				log.Warn("failed to store idempotent response", "error", err)
			}
			return nil
		}
	}
}
